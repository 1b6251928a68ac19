package datastore

import (
	"context"

	"greenloop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableActivityRecord(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ActivityRecord)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ActivityRecord)(nil)).Index("index_activity_record_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ActivityRecord)(nil)).Index("index_activity_record_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateActivityRecord(ctx context.Context, db *bun.DB, record *models.ActivityRecord) (*models.ActivityRecord, error) {
	_, err := db.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func GetUserActivityRecords(ctx context.Context, db *bun.DB, userID int64, limit, offset int) ([]*models.ActivityRecord, error) {
	var records []*models.ActivityRecord
	err := db.NewSelect().
		Model(&records).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}
