package datastore

import (
	"context"

	"greenloop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableSchool(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.School)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.School)(nil)).Index("index_school_region_code").IfNotExists().Column("region_code").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableAvatar(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Avatar)(nil)).IfNotExists().Exec(ctx)
	return err
}

func FindSchoolByID(ctx context.Context, db *bun.DB, schoolID int64) (*models.School, error) {
	var school models.School
	err := db.NewSelect().Model(&school).Where("id = ?", schoolID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &school, nil
}

func CreateSchool(ctx context.Context, db *bun.DB, school *models.School) (*models.School, error) {
	_, err := db.NewInsert().Model(school).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return school, nil
}

func FindAvatarByID(ctx context.Context, db *bun.DB, avatarID int64) (*models.Avatar, error) {
	var avatar models.Avatar
	err := db.NewSelect().Model(&avatar).Where("id = ?", avatarID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &avatar, nil
}
