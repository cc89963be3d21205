package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/limiter"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"vouchswap/internal/datastore"
	"vouchswap/internal/datastore/redis_store"
	"vouchswap/internal/interfaces"
	"vouchswap/internal/models"
	"vouchswap/internal/pkg/caching"
)

const MessageUploadQuota = `⏳ Upload limit reached: %d vouchers per 24 hours. Try again later.`

const MessageClaimQuota = `⏳ Claim limit reached: %d vouchers per 24 hours. Try again later.`

const MessageInsufficientCoins = `💰 A €%d voucher costs %d coins and you have %d. Upload vouchers to earn more.`

const MessageNoVouchers = `😔 No €%d vouchers on the shelf right now. Check /stock and try again later.`

const MessageExpiryReminder = `⏰ Reminder: your claimed €%d voucher expires on %s. Spend it before it's gone!`

// UploadResult is the structured outcome of an upload attempt. Outcome is
// always set; rejections carry the reason and a user-facing message,
// accepted uploads carry the stored voucher and the coins actually paid.
type UploadResult struct {
	Outcome string          `json:"outcome"`
	Reason  string          `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
	Voucher *models.Voucher `json:"voucher,omitempty"`
	Reward  int             `json:"reward"`
	Balance int             `json:"balance"`
}

type ClaimResult struct {
	Outcome string          `json:"outcome"`
	Message string          `json:"message,omitempty"`
	Voucher *models.Voucher `json:"voucher,omitempty"`
	Cost    int             `json:"cost"`
	Balance int             `json:"balance"`
}

type ServiceVoucher struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	limiter            interfaces.Limiter

	serviceConfig *ServiceConfig
	resolver      interfaces.ImageResolver
	notifier      interfaces.Notifier
}

func NewServiceVoucher(container *do.Injector) (*ServiceVoucher, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

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

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	notifier, err := do.Invoke[*Notifier](container)
	if err != nil {
		return nil, err
	}

	return &ServiceVoucher{container, redisDB, rs, postgresDB, readonlyPostgresDB, cache, readonlyCache, limiter, serviceConfig, bot, notifier}, nil
}

const pgUniqueViolation = "23505"

// isUniqueViolation matches the SQLSTATE field pgdriver errors expose.
func isUniqueViolation(err error) bool {
	var pgErr interface{ Field(byte) string }
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	return false
}

// Upload validates an extraction and, when it passes, shelves the voucher
// and credits the uploader in one transaction. Business outcomes come back
// in the result, never as errors.
func (service *ServiceVoucher) Upload(ctx context.Context, userID int64, imageRef string, raw *models.RawExtraction, now time.Time) (*UploadResult, error) {
	err := service.limiter.Allow(ctx, LimitKeyInteraction(userID), redis_rate.PerMinute(INTERACTION_RATE_LIMIT_PER_MINUTE))
	if err != nil {
		if err.Error() == limiter.ErrRateLimited.Error() {
			return nil, errorx.Wrap(err, errorx.RateLimiting)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	mutex := service.rs.NewMutex(LockKeyUser(userID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrUserLock, errorx.RateLimiting)
	}

	// nolint:errcheck
	defer mutex.Unlock()

	user, err := datastore.FindUserByID(ctx, service.readonlyPostgresDB, userID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if user.Banned {
		contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
		return &UploadResult{Outcome: OUTCOME_BANNED, Message: BanMessage(contact), Balance: user.Balance}, nil
	}

	// "today" and the evening cutoff are wall-clock concepts; validate in
	// the engine's configured timezone, not the server's
	now = now.In(service.serviceConfig.Location(ctx))

	fields, reason := ValidateExtraction(raw, now)
	if reason != "" {
		service.logExtractionFailure(ctx, userID, imageRef, reason, raw, nil)
		return &UploadResult{Outcome: OUTCOME_REJECTED, Reason: reason, Message: RejectionMessages[reason], Balance: user.Balance}, nil
	}

	var result *UploadResult

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		locked, err := datastore.FindUserByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if locked.Banned {
			contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
			result = &UploadResult{Outcome: OUTCOME_BANNED, Message: BanMessage(contact), Balance: locked.Balance}
			return nil
		}

		// staging skips the daily quotas
		serverMode, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_SERVER_MODE, SERVER_MODE_PRODUCTION)
		if serverMode != SERVER_MODE_STAGING {
			uploads, err := datastore.CountUploadsSince(ctx, tx, userID, now.Add(-QUOTA_WINDOW))
			if err != nil {
				return err
			}
			if uploads >= UPLOAD_LIMIT_PER_WINDOW {
				result = &UploadResult{
					Outcome: OUTCOME_RATE_LIMITED,
					Message: fmt.Sprintf(MessageUploadQuota, UPLOAD_LIMIT_PER_WINDOW),
					Balance: locked.Balance,
				}
				return nil
			}
		}

		exists, err := datastore.VoucherBarcodeExists(ctx, tx, fields.Barcode)
		if err != nil {
			return err
		}
		if exists {
			result = &UploadResult{
				Outcome: OUTCOME_REJECTED,
				Reason:  REJECT_DUPLICATE_BARCODE,
				Message: RejectionMessages[REJECT_DUPLICATE_BARCODE],
				Balance: locked.Balance,
			}
			return nil
		}

		barcode := fields.Barcode
		validFrom := fields.ValidFrom
		voucher := &models.Voucher{
			Denomination:  fields.Denomination,
			Status:        models.VoucherStatusAvailable,
			ImageRef:      imageRef,
			Barcode:       &barcode,
			ValidFrom:     &validFrom,
			ExpiresAt:     fields.ExpiresAt,
			UploaderID:    userID,
			RawExtraction: raw.ToMap(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		voucher, err = datastore.CreateVoucher(ctx, tx, voucher)
		if err != nil {
			// the barcode gate above raced a concurrent upload of the
			// same code and lost; the unique index is the authority
			if isUniqueViolation(err) {
				return ErrDuplicateBarcode
			}
			return err
		}

		reward, _ := RewardForDenomination(fields.Denomination)
		newBalance, applied := ApplyCredit(locked.Balance, reward)
		if applied != 0 {
			if err := datastore.UpdateUserBalance(ctx, tx, userID, newBalance); err != nil {
				return err
			}

			voucherID := voucher.ID
			if _, err := datastore.CreateCoinTransaction(ctx, tx, &models.CoinTransaction{
				UserID:    userID,
				Kind:      models.TransactionKindUploadReward,
				Amount:    applied,
				VoucherID: &voucherID,
			}); err != nil {
				return err
			}
		}

		if err := datastore.BumpUserUploadCount(ctx, tx, userID); err != nil {
			return err
		}

		result = &UploadResult{Outcome: OUTCOME_ACCEPTED, Voucher: voucher, Reward: applied, Balance: newBalance}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateBarcode) {
			service.logExtractionFailure(ctx, userID, imageRef, REJECT_DUPLICATE_BARCODE, raw, nil)
			return &UploadResult{
				Outcome: OUTCOME_REJECTED,
				Reason:  REJECT_DUPLICATE_BARCODE,
				Message: RejectionMessages[REJECT_DUPLICATE_BARCODE],
				Balance: user.Balance,
			}, nil
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if result.Outcome == OUTCOME_ACCEPTED {
		_ = service.cache.Delete(ctx, DBKeyUser(userID))
		_ = service.cache.Delete(ctx, DBKeyAvailability())
	}

	// the duplicate check runs in-tx, so its triage row is filed after
	if result.Outcome == OUTCOME_REJECTED && result.Reason == REJECT_DUPLICATE_BARCODE {
		service.logExtractionFailure(ctx, userID, imageRef, REJECT_DUPLICATE_BARCODE, raw, nil)
	}

	return result, nil
}

// Claim hands the soonest-expiring voucher of the denomination to the
// caller and debits the cost, all in one transaction. The image is
// resolved before the voucher is marked; a resolve miss aborts the
// transaction so nothing was charged and nothing left the shelf.
func (service *ServiceVoucher) Claim(ctx context.Context, userID int64, denomination int, now time.Time) (*ClaimResult, error) {
	cost, ok := CostForDenomination(denomination)
	if !ok {
		return nil, errorx.Wrap(fmt.Errorf("unknown denomination %d", denomination), errorx.Invalid)
	}

	err := service.limiter.Allow(ctx, LimitKeyInteraction(userID), redis_rate.PerMinute(INTERACTION_RATE_LIMIT_PER_MINUTE))
	if err != nil {
		if err.Error() == limiter.ErrRateLimited.Error() {
			return nil, errorx.Wrap(err, errorx.RateLimiting)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	mutex := service.rs.NewMutex(LockKeyUser(userID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrUserLock, errorx.RateLimiting)
	}

	// nolint:errcheck
	defer mutex.Unlock()

	user, err := datastore.FindUserByID(ctx, service.readonlyPostgresDB, userID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if user.Banned {
		contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
		return &ClaimResult{Outcome: OUTCOME_BANNED, Message: BanMessage(contact), Balance: user.Balance}, nil
	}

	var result *ClaimResult

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		locked, err := datastore.FindUserByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if locked.Banned {
			contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
			result = &ClaimResult{Outcome: OUTCOME_BANNED, Message: BanMessage(contact), Balance: locked.Balance}
			return nil
		}

		// staging skips the daily quotas
		serverMode, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_SERVER_MODE, SERVER_MODE_PRODUCTION)
		if serverMode != SERVER_MODE_STAGING {
			claims, err := datastore.CountClaimSpendsSince(ctx, tx, userID, now.Add(-QUOTA_WINDOW))
			if err != nil {
				return err
			}
			if claims >= CLAIM_LIMIT_PER_WINDOW {
				result = &ClaimResult{
					Outcome: OUTCOME_RATE_LIMITED,
					Message: fmt.Sprintf(MessageClaimQuota, CLAIM_LIMIT_PER_WINDOW),
					Balance: locked.Balance,
				}
				return nil
			}
		}

		if locked.Balance < cost {
			result = &ClaimResult{
				Outcome: OUTCOME_INSUFFICIENT_COINS,
				Message: fmt.Sprintf(MessageInsufficientCoins, denomination, cost, locked.Balance),
				Cost:    cost,
				Balance: locked.Balance,
			}
			return nil
		}

		voucher, err := datastore.NextClaimableVoucher(ctx, tx, denomination, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				result = &ClaimResult{
					Outcome: OUTCOME_NO_VOUCHERS,
					Message: fmt.Sprintf(MessageNoVouchers, denomination),
					Cost:    cost,
					Balance: locked.Balance,
				}
				return nil
			}
			return err
		}

		imageURL, err := service.resolver.ResolveImage(ctx, voucher.ImageRef)
		if err != nil {
			return fmt.Errorf("resolve image of voucher %d: %w", voucher.ID, err)
		}

		if err := datastore.MarkVoucherClaimed(ctx, tx, voucher.ID, userID, now); err != nil {
			return err
		}

		newBalance := locked.Balance - cost
		if err := datastore.UpdateUserBalance(ctx, tx, userID, newBalance); err != nil {
			return err
		}

		voucherID := voucher.ID
		if _, err := datastore.CreateCoinTransaction(ctx, tx, &models.CoinTransaction{
			UserID:    userID,
			Kind:      models.TransactionKindClaimSpend,
			Amount:    -cost,
			VoucherID: &voucherID,
		}); err != nil {
			return err
		}

		if err := datastore.BumpUserClaimCount(ctx, tx, userID); err != nil {
			return err
		}

		claimedAt := now
		voucher.Status = models.VoucherStatusClaimed
		voucher.ClaimerID = &userID
		voucher.ClaimedAt = &claimedAt
		voucher.ImageURL = imageURL

		result = &ClaimResult{Outcome: OUTCOME_CLAIMED, Voucher: voucher, Cost: cost, Balance: newBalance}
		return nil
	})
	if err != nil {
		code := uuid.NewString()
		log.Println("claim failed:", "user:", userID, "code:", code, "err:", err)
		return nil, errorx.Wrap(fmt.Errorf("claim failed, support code %s", code), errorx.Service)
	}

	if result.Outcome == OUTCOME_CLAIMED {
		_ = service.cache.Delete(ctx, DBKeyUser(userID))
		_ = service.cache.Delete(ctx, DBKeyAvailability())
	}

	return result, nil
}

// RecordSystemFailure files a triage row for an upload that died before
// validation and returns the support code shown to the user.
func (service *ServiceVoucher) RecordSystemFailure(ctx context.Context, userID int64, imageRef string, cause error) string {
	code := uuid.NewString()
	log.Println("upload system failure:", "user:", userID, "code:", code, "err:", cause)
	service.logExtractionFailure(ctx, userID, imageRef, REASON_SYSTEM_ERROR, nil, &code)
	return code
}

func (service *ServiceVoucher) logExtractionFailure(ctx context.Context, userID int64, imageRef, reason string, raw *models.RawExtraction, supportCode *string) {
	failure := &models.ExtractionFailure{
		UserID:      userID,
		ImageRef:    imageRef,
		Reason:      reason,
		SupportCode: supportCode,
	}
	if raw != nil {
		if raw.Denomination != 0 {
			failure.Denomination = &raw.Denomination
		}
		if raw.ValidFrom != "" {
			failure.ValidFromRaw = &raw.ValidFrom
		}
		if raw.ExpiryDate != "" {
			failure.ExpiryRaw = &raw.ExpiryDate
		}
		if raw.Barcode != "" {
			failure.Barcode = &raw.Barcode
		}
	}

	if _, err := datastore.CreateExtractionFailure(ctx, service.postgresDB, failure); err != nil {
		log.Println("extraction failure log:", err)
	}
}

func (service *ServiceVoucher) Availability(ctx context.Context) ([]*models.DenominationCount, error) {
	callback := func() ([]*models.DenominationCount, error) {
		return datastore.CountAvailableByDenomination(ctx, service.readonlyPostgresDB, time.Now())
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyAvailability(), CACHE_TTL_15_SECONDS, callback)
}

// ClaimedVoucherImage re-resolves the photo of a voucher the caller
// already claimed, for re-delivery on demand.
func (service *ServiceVoucher) ClaimedVoucherImage(ctx context.Context, userID, voucherID int64) (string, error) {
	voucher, err := datastore.FindVoucherByID(ctx, service.readonlyPostgresDB, voucherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errorx.Wrap(ErrVoucherNotFound, errorx.NotExist)
		}
		return "", errorx.Wrap(err, errorx.Service)
	}

	if voucher.ClaimerID == nil || *voucher.ClaimerID != userID {
		return "", errorx.Wrap(errors.New("voucher was not claimed by this user"), errorx.Authn)
	}

	imageURL, err := service.resolver.ResolveImage(ctx, voucher.ImageRef)
	if err != nil {
		return "", errorx.Wrap(err, errorx.Service)
	}

	return imageURL, nil
}

func (service *ServiceVoucher) GetUserUploads(ctx context.Context, userID int64, limit, offset int) ([]*models.Voucher, error) {
	return datastore.GetVouchersByUploader(ctx, service.readonlyPostgresDB, userID, limit, offset)
}

func (service *ServiceVoucher) GetUserClaims(ctx context.Context, userID int64, limit, offset int) ([]*models.Voucher, error) {
	return datastore.GetVouchersByClaimer(ctx, service.readonlyPostgresDB, userID, limit, offset)
}

func (service *ServiceVoucher) GetVouchers(ctx context.Context, limit, offset int) ([]*models.Voucher, error) {
	return datastore.GetVouchersByLimit(ctx, service.readonlyPostgresDB, limit, offset)
}

func (service *ServiceVoucher) GetRecentFailures(ctx context.Context, limit, offset int) ([]*models.ExtractionFailure, error) {
	return datastore.GetRecentExtractionFailures(ctx, service.readonlyPostgresDB, limit, offset)
}

// FailureBySupportCode looks up the triage row behind the code a user
// quotes in a support ticket.
func (service *ServiceVoucher) FailureBySupportCode(ctx context.Context, code string) (*models.ExtractionFailure, error) {
	failure, err := datastore.FindExtractionFailureBySupportCode(ctx, service.readonlyPostgresDB, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errorx.Wrap(errors.New("support code not found"), errorx.NotExist)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return failure, nil
}

// ReleaseClaim puts a claimed voucher back on the shelf, the operator path
// for claims resolved off the record. No coins move.
func (service *ServiceVoucher) ReleaseClaim(ctx context.Context, voucherID int64) error {
	voucher, err := datastore.FindVoucherByID(ctx, service.postgresDB, voucherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errorx.Wrap(ErrVoucherNotFound, errorx.NotExist)
		}
		return errorx.Wrap(err, errorx.Service)
	}

	if !models.CanTransitionVoucher(voucher.Status, models.VoucherStatusAvailable) {
		return errorx.Wrap(errors.New("voucher is not claimed"), errorx.Invalid)
	}

	if err := datastore.ReleaseVoucher(ctx, service.postgresDB, voucherID); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	_ = service.cache.Delete(ctx, DBKeyAvailability())

	return nil
}

// SweepExpired retires every available voucher whose expiry has passed.
// Runs from cron; set-based, no per-row locking.
func (service *ServiceVoucher) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := datastore.ExpireVouchers(ctx, service.postgresDB, time.Now())
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		_ = service.cache.Delete(ctx, DBKeyAvailability())
		log.Println("expiry sweep:", swept, "vouchers off the shelf")
	}

	return swept, nil
}

// RemindExpiringClaims nudges claimers whose vouchers expire within the
// configured horizon. The redis marker keeps reruns from double-sending.
func (service *ServiceVoucher) RemindExpiringClaims(ctx context.Context) (int, error) {
	horizon, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_REMINDER_HORIZON_HOURS, DEFAULT_REMINDER_HORIZON_HRS)

	now := time.Now()
	vouchers, err := datastore.ClaimedVouchersExpiringBetween(ctx, service.readonlyPostgresDB, now, now.Add(time.Duration(horizon)*time.Hour))
	if err != nil {
		return 0, err
	}

	loc := service.serviceConfig.Location(ctx)

	reminded := 0
	for _, voucher := range vouchers {
		if voucher.ClaimerID == nil {
			continue
		}

		fresh, err := redis_store.MarkExpiryReminded(ctx, service.redisDB, voucher.ID)
		if err != nil || !fresh {
			continue
		}

		service.notifier.Notify(*voucher.ClaimerID, fmt.Sprintf(MessageExpiryReminder, voucher.Denomination, voucher.ExpiresAt.In(loc).Format("Monday 2 January")))
		reminded++
	}

	return reminded, nil
}
