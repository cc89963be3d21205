package datastore

import (
	"context"

	"vouchswap/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableConfig(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Config)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetConfigByKey(ctx context.Context, db *bun.DB, key string) (*models.Config, error) {
	var config models.Config
	err := db.NewSelect().Model(&config).Where("key = ?", key).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// UpsertConfig writes a tunable, keeping existing values on conflict only
// when overwrite is false (used by migrate to seed defaults idempotently).
func UpsertConfig(ctx context.Context, db *bun.DB, config models.Config, overwrite bool) error {
	q := db.NewInsert().Model(&config)
	if overwrite {
		q = q.On("CONFLICT (key) DO UPDATE").Set("value = EXCLUDED.value").Set("updated_at = current_timestamp")
	} else {
		q = q.On("CONFLICT (key) DO NOTHING")
	}

	_, err := q.Exec(ctx)
	return err
}

func GetAllConfigs(ctx context.Context, db *bun.DB) ([]*models.Config, error) {
	var configs []*models.Config
	err := db.NewSelect().Model(&configs).Order("key ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}

	return configs, nil
}
