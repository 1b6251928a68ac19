package datastore

import (
	"context"
	"time"

	"greenloop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCheckin(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.CheckinEvent)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CheckinEvent)(nil)).Index("index_checkin_user_id_checkin_date").IfNotExists().Unique().Column("user_id", "checkin_date").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CheckinEvent)(nil)).Index("index_checkin_checkin_date").IfNotExists().Column("checkin_date").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertCheckin is insert-if-absent on (user_id, checkin_date). It reports
// whether a new row landed; a duplicate day is not an error.
func InsertCheckin(ctx context.Context, db *bun.DB, event *models.CheckinEvent) (bool, error) {
	res, err := db.NewInsert().Model(event).On("CONFLICT (user_id, checkin_date) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return inserted > 0, nil
}

func CheckinExists(ctx context.Context, db *bun.DB, userID int64, date time.Time) (bool, error) {
	count, err := db.NewSelect().
		Model((*models.CheckinEvent)(nil)).
		Where("user_id = ?", userID).
		Where("checkin_date = ?", date).
		Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func GetUserCheckins(ctx context.Context, db *bun.DB, userID int64) ([]*models.CheckinEvent, error) {
	var events []*models.CheckinEvent
	err := db.NewSelect().
		Model(&events).
		Where("user_id = ?", userID).
		Order("checkin_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return events, nil
}

func GetUserCheckinsInRange(ctx context.Context, db *bun.DB, userID int64, from, to time.Time) ([]*models.CheckinEvent, error) {
	var events []*models.CheckinEvent
	err := db.NewSelect().
		Model(&events).
		Where("user_id = ?", userID).
		Where("checkin_date >= ?", from).
		Where("checkin_date <= ?", to).
		Order("checkin_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return events, nil
}

func CountMakeupCheckinsSince(ctx context.Context, db *bun.DB, userID int64, from time.Time) (int, error) {
	count, err := db.NewSelect().
		Model((*models.CheckinEvent)(nil)).
		Where("user_id = ?", userID).
		Where("source = ?", models.CHECKIN_SOURCE_MAKEUP).
		Where("created_at >= ?", from).
		Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetStreakRows is the streak leaderboard scan: a single query over every
// checkin of every non-deleted user ordered by (user_id, checkin_date), so
// the builder can aggregate streaks in one pass instead of N per-user reads.
func GetStreakRows(ctx context.Context, db *bun.DB) ([]*models.StreakRow, error) {
	var rows []*models.StreakRow
	err := db.NewSelect().
		ColumnExpr("c.user_id, c.checkin_date, u.display_name, u.region_code, u.school_id").
		ColumnExpr("s.name AS school_name, a.url AS avatar_url").
		TableExpr("checkin c").
		Join("JOIN \"user\" u ON u.id = c.user_id AND u.deleted_at IS NULL").
		Join("LEFT JOIN school s ON s.id = u.school_id").
		Join("LEFT JOIN avatar a ON a.id = u.avatar_id").
		OrderExpr("c.user_id ASC").
		OrderExpr("c.checkin_date ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	return rows, nil
}
