package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"greenloop/internal/datastore"
	"greenloop/internal/models"
	"greenloop/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceUser struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, postgresDB, readonlyPostgresDB, cache, readonlyCache}, nil
}

func (service *ServiceUser) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	callback := func() (*models.User, error) {
		return datastore.FindUserByID(ctx, service.readonlyPostgresDB, userID)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUser(userID), CACHE_TTL_5_MINS, callback)
}

// FindOrCreateUser resolves the authenticated user, creating the row on
// first contact.
func (service *ServiceUser) FindOrCreateUser(ctx context.Context, userAuth *models.UserFromAuth) (*models.User, error) {
	if userAuth.ID > 0 {
		user, err := service.FindUserByID(ctx, userAuth.ID)
		if err == nil {
			return user, nil
		}

		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	user, err := datastore.FindUserByUsername(ctx, service.readonlyPostgresDB, userAuth.Username)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now()
	user = &models.User{
		Username:    strings.ToLower(userAuth.Username),
		DisplayName: userAuth.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if user.DisplayName == "" {
		user.DisplayName = userAuth.Username
	}

	return datastore.CreateUser(ctx, service.postgresDB, user)
}

// Me decorates the user with avatar URL and school name for the profile
// response.
func (service *ServiceUser) Me(ctx context.Context, user *models.User) (*models.User, error) {
	callback := func() (*models.User, error) {
		if user.AvatarID != nil {
			avatar, err := datastore.FindAvatarByID(ctx, service.readonlyPostgresDB, *user.AvatarID)
			if err == nil {
				user.AvatarURL = &avatar.URL
			}
		}

		if user.SchoolID != nil {
			school, err := datastore.FindSchoolByID(ctx, service.readonlyPostgresDB, *user.SchoolID)
			if err == nil {
				user.SchoolName = &school.Name
			}
		}

		return user, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyMe(user.ID), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceUser) InvalidateUser(ctx context.Context, userID int64) {
	//nolint:errcheck
	service.cache.Delete(ctx, DBKeyUser(userID))
	//nolint:errcheck
	service.cache.Delete(ctx, DBKeyMe(userID))
}
