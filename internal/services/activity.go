package services

import (
	"context"
	"time"

	"greenloop/internal/datastore"
	"greenloop/internal/models"
	"greenloop/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceActivity struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache

	serviceConfig  *ServiceConfig
	serviceCheckin *ServiceCheckin
	serviceUser    *ServiceUser
}

func NewServiceActivity(container *do.Injector) (*ServiceActivity, error) {
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

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	serviceCheckin, err := do.Invoke[*ServiceCheckin](container)
	if err != nil {
		return nil, err
	}

	serviceUser, err := do.Invoke[*ServiceUser](container)
	if err != nil {
		return nil, err
	}

	return &ServiceActivity{container, postgresDB, readonlyPostgresDB, cache, serviceConfig, serviceCheckin, serviceUser}, nil
}

// SubmitActivity stores the record and awards points; the day's organic
// checkin rides along best-effort and never fails the submission.
func (service *ServiceActivity) SubmitActivity(ctx context.Context, user *models.User, category string, co2Grams int) (*models.ActivityRecord, error) {
	basePoints, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_ACTIVITY_BASE_POINTS, ACTIVITY_BASE_POINTS_DEFAULT)

	now := time.Now()
	record := &models.ActivityRecord{
		UserID:    user.ID,
		Category:  category,
		CO2Grams:  co2Grams,
		Points:    basePoints + co2Grams/100,
		CreatedAt: now,
	}

	record, err := datastore.CreateActivityRecord(ctx, service.postgresDB, record)
	if err != nil {
		return nil, err
	}

	if err := datastore.AddUserPoints(ctx, service.postgresDB, user.ID, record.Points); err != nil {
		return nil, err
	}

	service.serviceCheckin.RecordOrganicCheckin(ctx, user.ID, &record.ID, now)
	service.serviceUser.InvalidateUser(ctx, user.ID)

	return record, nil
}

func (service *ServiceActivity) GetUserActivities(ctx context.Context, userID int64, limit, offset int) ([]*models.ActivityRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	return datastore.GetUserActivityRecords(ctx, service.readonlyPostgresDB, userID, limit, offset)
}
