package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"vouchswap/internal/datastore"
	"vouchswap/internal/models"
	"vouchswap/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceConfig struct {
	container          *do.Injector
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
}

func NewServiceConfig(container *do.Injector) (*ServiceConfig, error) {
	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	readOnlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{container, readonlyPostgresDB, cache, readOnlyCache}, nil
}

func (service *ServiceConfig) GetStringConfig(ctx context.Context, key string, defaultValue string) (string, error) {
	callback := func() (string, error) {
		config, err := datastore.GetConfigByKey(ctx, service.readonlyPostgresDB, key)
		if err != nil {
			return defaultValue, err
		}
		return config.Value, nil
	}

	value, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyConfig(key), CACHE_TTL_5_MINS, callback)
	if err != nil {
		return defaultValue, err
	}

	return value, nil
}

func (service *ServiceConfig) GetIntConfig(ctx context.Context, key string, defaultValue int) (int, error) {
	callback := func() (int, error) {
		config, err := datastore.GetConfigByKey(ctx, service.readonlyPostgresDB, key)
		if err != nil {
			return defaultValue, err
		}

		intValue, err := strconv.Atoi(config.Value)
		if err != nil {
			return defaultValue, err
		}

		return intValue, nil
	}

	value, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyConfig(key), CACHE_TTL_5_MINS, callback)
	if err != nil {
		return defaultValue, err
	}

	return value, nil
}

// AllConfigs reads the tunables straight from the store; the operator
// surface wants current values, not the cached ones.
func (service *ServiceConfig) AllConfigs(ctx context.Context) ([]*models.Config, error) {
	return datastore.GetAllConfigs(ctx, service.readonlyPostgresDB)
}

// Location resolves the operating timezone. The same-day cutoff and the
// daily report quota are calendar questions, so they need a fixed answer
// to "whose midnight".
func (service *ServiceConfig) Location(ctx context.Context) *time.Location {
	name, err := service.GetStringConfig(ctx, CONFIG_TIMEZONE, DEFAULT_TIMEZONE)
	if err != nil {
		name = DEFAULT_TIMEZONE
	}

	location, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}

	return location
}

func (service *ServiceConfig) AdminChatIDs(ctx context.Context) []int64 {
	value, err := service.GetStringConfig(ctx, CONFIG_ADMIN_CHAT_IDS, "")
	if err != nil || value == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids
}

func (service *ServiceConfig) SignupBonus(ctx context.Context) int {
	bonus, err := service.GetIntConfig(ctx, CONFIG_SIGNUP_BONUS, SIGNUP_BONUS_DEFAULT)
	if err != nil {
		return SIGNUP_BONUS_DEFAULT
	}
	return bonus
}

func (service *ServiceConfig) HighVolumeUploadCount(ctx context.Context) int {
	count, err := service.GetIntConfig(ctx, CONFIG_HIGH_VOLUME_UPLOAD_COUNT, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT)
	if err != nil {
		return HIGH_VOLUME_UPLOAD_COUNT_DEFAULT
	}
	return count
}
