package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samber/do"
	"github.com/uptrace/bun"

	"vouchswap/internal/datastore"
	"vouchswap/internal/interfaces"
	"vouchswap/internal/models"
	"vouchswap/internal/pkg/caching"
)

const MessageBanned = `🚫 Your account has been suspended after a review of recent exchange activity.`

const MessageUnbanned = `✅ Your account has been reinstated. Welcome back!`

type ServiceUser struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceConfig *ServiceConfig
	notifier      interfaces.Notifier
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

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	notifier, err := do.Invoke[*Notifier](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, serviceConfig, notifier}, nil
}

func (service *ServiceUser) FindOrCreateUser(ctx context.Context, userAuth *models.UserFromAuth) (*models.User, error) {
	if userAuth == nil {
		return nil, errors.New("userAuth is nil")
	}

	user, _ := service.FindUserByID(ctx, userAuth.ID)
	if user != nil {
		if (user.Username != strings.ToLower(userAuth.Username)) ||
			(user.FirstName != userAuth.FirstName) ||
			(user.LastName != userAuth.LastName) {
			user.Username = strings.ToLower(userAuth.Username)
			user.FirstName = userAuth.FirstName
			user.LastName = userAuth.LastName
			datastore.UpdateUserProfile(ctx, service.postgresDB, user)
			_ = service.cache.Delete(ctx, DBKeyUser(user.ID))
		}
		return user, nil
	}

	now := time.Now()
	newUser := &models.User{
		ID:           userAuth.ID,
		FirstName:    userAuth.FirstName,
		LastName:     userAuth.LastName,
		Username:     strings.ToLower(userAuth.Username),
		LanguageCode: userAuth.LanguageCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	bonus := service.serviceConfig.SignupBonus(ctx)

	log.Println("Create new user:", "user:", newUser.ID, "username:", newUser.Username)

	// the signup bonus and its ledger row land in the same transaction
	// as the user row, so a half-credited account cannot exist
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := datastore.CreateUser(ctx, tx, newUser)
		if err != nil {
			return err
		}
		user = created

		newBalance, applied := ApplyCredit(0, bonus)
		if applied == 0 {
			return nil
		}

		if err := datastore.UpdateUserBalance(ctx, tx, user.ID, newBalance); err != nil {
			return err
		}
		user.Balance = newBalance

		_, err = datastore.CreateCoinTransaction(ctx, tx, &models.CoinTransaction{
			UserID: user.ID,
			Kind:   models.TransactionKindSignupBonus,
			Amount: applied,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	user.IsNewUser = true

	return user, nil
}

func (service *ServiceUser) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	callback := func() (*models.User, error) {
		return datastore.FindUserByID(ctx, service.readonlyPostgresDB, userID)
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUser(userID), CACHE_TTL_5_MINS, callback)
}

// BanUser is the operator path. Heuristic bans run inside the report and
// upload transactions instead, against the tx handle.
func (service *ServiceUser) BanUser(ctx context.Context, userID int64, reason string) error {
	if err := datastore.BanUser(ctx, service.postgresDB, userID, reason, time.Now()); err != nil {
		return err
	}

	_ = service.cache.Delete(ctx, DBKeyUser(userID))

	contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
	service.notifier.Notify(userID, BanMessage(contact))

	return nil
}

func (service *ServiceUser) UnbanUser(ctx context.Context, userID int64) error {
	if err := datastore.UnbanUser(ctx, service.postgresDB, userID); err != nil {
		return err
	}

	_ = service.cache.Delete(ctx, DBKeyUser(userID))

	service.notifier.Notify(userID, MessageUnbanned)

	return nil
}

func (service *ServiceUser) GetUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	users, err := datastore.GetUsersByLimit(ctx, service.readonlyPostgresDB, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := datastore.CountUsers(ctx, service.readonlyPostgresDB)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// RecountStats rebuilds the advisory counters on the user row from the
// voucher, transaction and report tables.
func (service *ServiceUser) RecountStats(ctx context.Context, userID int64) error {
	if err := datastore.RecountUserStats(ctx, service.postgresDB, userID); err != nil {
		return err
	}
	return service.cache.Delete(ctx, DBKeyUser(userID))
}

func BanMessage(appealContact string) string {
	if appealContact == "" {
		return MessageBanned
	}
	return fmt.Sprintf("%s\n\nTo appeal, contact %s and mention your account ID.", MessageBanned, appealContact)
}
