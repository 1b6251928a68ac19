package datastore

import (
	"context"
	"strings"
	"time"

	"greenloop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableUser(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_username").IfNotExists().Column("username").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_region_code").IfNotExists().Column("region_code").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_school_id").IfNotExists().Column("school_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_points").IfNotExists().Column("points").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindUserByID(ctx context.Context, db *bun.DB, userID int64) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", userID).Where("deleted_at IS NULL").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// if the user is not found, return the sql error as-is
func FindUserByUsername(ctx context.Context, db *bun.DB, username string) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("username = ?", strings.ToLower(username)).Where("deleted_at IS NULL").Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func CreateUser(ctx context.Context, db *bun.DB, user *models.User) (*models.User, error) {
	_, err := db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func UpdateUserProfile(ctx context.Context, db *bun.DB, user *models.User) (*models.User, error) {
	_, err := db.NewUpdate().Model(user).
		Set("username = ?", user.Username).
		Set("display_name = ?", user.DisplayName).
		Set("avatar_id = ?", user.AvatarID).
		Set("region_code = ?", user.RegionCode).
		Set("school_id = ?", user.SchoolID).
		Set("updated_at = ?", time.Now()).
		WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func AddUserPoints(ctx context.Context, db *bun.DB, userID int64, points int) error {
	_, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("points = points + ?", points).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	return err
}

func CountUsers(ctx context.Context, db *bun.DB) (int, error) {
	count, err := db.NewSelect().Model((*models.User)(nil)).Where("deleted_at IS NULL").Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetPointsRows is the points leaderboard scan: every non-deleted user with
// school and avatar resolved, ordered by (points desc, id asc) so equal
// totals always land in a deterministic order.
func GetPointsRows(ctx context.Context, db *bun.DB) ([]*models.PointsRow, error) {
	var rows []*models.PointsRow
	err := db.NewSelect().
		ColumnExpr("u.id AS user_id, u.display_name, u.points, u.region_code, u.school_id").
		ColumnExpr("s.name AS school_name, a.url AS avatar_url").
		TableExpr("\"user\" u").
		Join("LEFT JOIN school s ON s.id = u.school_id").
		Join("LEFT JOIN avatar a ON a.id = u.avatar_id").
		Where("u.deleted_at IS NULL").
		OrderExpr("u.points DESC").
		OrderExpr("u.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	return rows, nil
}
