package datastore

import (
	"context"

	"vouchswap/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableExtractionFailure(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ExtractionFailure)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ExtractionFailure)(nil)).
		Index("index_extraction_failure_user").IfNotExists().
		Column("user_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateExtractionFailure(ctx context.Context, db *bun.DB, failure *models.ExtractionFailure) (*models.ExtractionFailure, error) {
	_, err := db.NewInsert().Model(failure).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return failure, nil
}

func GetRecentExtractionFailures(ctx context.Context, db *bun.DB, limit, offset int) ([]*models.ExtractionFailure, error) {
	var failures []*models.ExtractionFailure
	err := db.NewSelect().Model(&failures).
		Order("created_at DESC", "id DESC").
		Limit(limit).Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return failures, nil
}

func FindExtractionFailureBySupportCode(ctx context.Context, db *bun.DB, code string) (*models.ExtractionFailure, error) {
	var failure models.ExtractionFailure
	err := db.NewSelect().Model(&failure).Where("support_code = ?", code).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &failure, nil
}
