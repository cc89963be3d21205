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
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/limiter"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"vouchswap/internal/datastore"
	"vouchswap/internal/interfaces"
	"vouchswap/internal/models"
	"vouchswap/internal/pkg"
	"vouchswap/internal/pkg/caching"
)

const MessageReportQuota = `⏳ You can report one voucher per day. Try again tomorrow.`

const MessageAlreadyReported = `You already reported this voucher. It's with our team.`

// ReportResult is the structured outcome of a report. Replaced means a
// substitute voucher was handed over at no charge; refunded means the
// coins came back instead. RefundedWithCaveat is a refund where a
// substitute existed but its image could not be delivered.
type ReportResult struct {
	Outcome     string          `json:"outcome"`
	Message     string          `json:"message,omitempty"`
	Replacement *models.Voucher `json:"replacement,omitempty"`
	Refund      int             `json:"refund"`
	Balance     int             `json:"balance"`
}

type ServiceReport struct {
	container          *do.Injector
	rs                 *redsync.Redsync
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	limiter            interfaces.Limiter

	serviceConfig *ServiceConfig
	resolver      interfaces.ImageResolver
	notifier      interfaces.Notifier
}

func NewServiceReport(container *do.Injector) (*ServiceReport, error) {
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

	return &ServiceReport{container, rs, postgresDB, readonlyPostgresDB, cache, limiter, serviceConfig, bot, notifier}, nil
}

// Report handles a claimer flagging their voucher as already used. The
// whole pipeline runs in one transaction: daily quota, reporter heuristic,
// lifecycle transition, refund or replacement, uploader heuristic. A
// reporter ban commits only the ban; the triggering report is never
// persisted.
func (service *ServiceReport) Report(ctx context.Context, reporterID, voucherID int64, reason string, now time.Time) (*ReportResult, error) {
	err := service.limiter.Allow(ctx, LimitKeyInteraction(reporterID), redis_rate.PerMinute(INTERACTION_RATE_LIMIT_PER_MINUTE))
	if err != nil {
		if err.Error() == limiter.ErrRateLimited.Error() {
			return nil, errorx.Wrap(err, errorx.RateLimiting)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	mutex := service.rs.NewMutex(LockKeyUser(reporterID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrUserLock, errorx.RateLimiting)
	}

	// nolint:errcheck
	defer mutex.Unlock()

	reporter, err := datastore.FindUserByID(ctx, service.readonlyPostgresDB, reporterID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if reporter.Banned {
		contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
		return &ReportResult{Outcome: OUTCOME_BANNED, Message: BanMessage(contact), Balance: reporter.Balance}, nil
	}

	now = now.In(service.serviceConfig.Location(ctx))

	var result *ReportResult
	var bannedUploaderID int64

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		locked, err := datastore.FindUserByIDForUpdate(ctx, tx, reporterID)
		if err != nil {
			return err
		}
		if locked.Banned {
			contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
			result = &ReportResult{Outcome: OUTCOME_BANNED, Message: BanMessage(contact), Balance: locked.Balance}
			return nil
		}

		// one report per calendar day, in the engine's timezone; staging
		// skips the quota
		serverMode, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_SERVER_MODE, SERVER_MODE_PRODUCTION)
		if serverMode != SERVER_MODE_STAGING && locked.LastReportAt != nil && pkg.SameCalendarDay(*locked.LastReportAt, now) {
			result = &ReportResult{Outcome: OUTCOME_RATE_LIMITED, Message: MessageReportQuota, Balance: locked.Balance}
			return nil
		}

		voucher, err := datastore.FindVoucherByIDForUpdate(ctx, tx, voucherID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errorx.Wrap(ErrVoucherNotFound, errorx.NotExist)
			}
			return err
		}

		if voucher.ClaimerID == nil || *voucher.ClaimerID != reporterID {
			return errorx.Wrap(errors.New("voucher was not claimed by this user"), errorx.Authn)
		}

		// a reported voucher stays reported even after the report row is
		// admitted away, so the refund cannot be collected twice
		if !models.CanTransitionVoucher(voucher.Status, models.VoucherStatusReported) {
			result = &ReportResult{Outcome: OUTCOME_ALREADY_REPORTED, Message: MessageAlreadyReported, Balance: locked.Balance}
			return nil
		}

		exists, err := datastore.ReportExists(ctx, tx, voucherID, reporterID)
		if err != nil {
			return err
		}
		if exists {
			result = &ReportResult{Outcome: OUTCOME_ALREADY_REPORTED, Message: MessageAlreadyReported, Balance: locked.Balance}
			return nil
		}

		// serial reporters get banned instead of refunded; the commit
		// carries the ban and nothing else
		window, err := datastore.RecentClaimRecords(ctx, tx, reporterID, REPORTER_WINDOW)
		if err != nil {
			return err
		}
		if ReporterVerdict(window, voucherID) {
			if err := datastore.BanUser(ctx, tx, reporterID, BAN_REASON_REPORTER, now); err != nil {
				return err
			}
			contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
			result = &ReportResult{Outcome: OUTCOME_BANNED, Message: BanMessage(contact), Balance: locked.Balance}
			return nil
		}

		if err := datastore.MarkVoucherReported(ctx, tx, voucherID); err != nil {
			return err
		}

		report, err := datastore.CreateReport(ctx, tx, &models.Report{
			VoucherID:  voucherID,
			ReporterID: reporterID,
			UploaderID: voucher.UploaderID,
			Reason:     reason,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}

		if err := datastore.StampUserReport(ctx, tx, reporterID, now); err != nil {
			return err
		}

		// the uploader verdict rides the same commit but never blocks the
		// reporter's outcome
		lifetime, err := datastore.CountUploadsByUser(ctx, tx, voucher.UploaderID)
		if err != nil {
			return err
		}
		uploads, err := datastore.RecentUploadRecords(ctx, tx, voucher.UploaderID, UPLOADER_WINDOW_HIGH_VOLUME)
		if err != nil {
			return err
		}
		if UploaderVerdict(uploads, lifetime, service.serviceConfig.HighVolumeUploadCount(ctx)) {
			if err := datastore.BanUser(ctx, tx, voucher.UploaderID, BAN_REASON_UPLOADER, now); err != nil {
				return err
			}
			bannedUploaderID = voucher.UploaderID
		}

		cost, _ := CostForDenomination(voucher.Denomination)

		refund := func(outcome string) error {
			newBalance, applied := ApplyCredit(locked.Balance, cost)
			if applied != 0 {
				if err := datastore.UpdateUserBalance(ctx, tx, reporterID, newBalance); err != nil {
					return err
				}
				if _, err := datastore.CreateCoinTransaction(ctx, tx, &models.CoinTransaction{
					UserID:    reporterID,
					Kind:      models.TransactionKindReportRefund,
					Amount:    applied,
					VoucherID: &voucherID,
				}); err != nil {
					return err
				}
			}
			result = &ReportResult{Outcome: outcome, Refund: applied, Balance: newBalance}
			return nil
		}

		replacement, err := datastore.NextClaimableVoucher(ctx, tx, voucher.Denomination, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return refund(OUTCOME_REFUNDED)
			}
			return err
		}

		// a replacement whose image cannot be delivered stays on the
		// shelf; the reporter gets a refund instead
		imageURL, err := service.resolver.ResolveImage(ctx, replacement.ImageRef)
		if err != nil {
			log.Println("replacement image miss:", "voucher:", replacement.ID, "err:", err)
			return refund(OUTCOME_REFUNDED_WITH_CAVEAT)
		}

		// the replacement is handed over at no charge: no spend row, so
		// it does not count against the claim quota
		if err := datastore.MarkVoucherClaimed(ctx, tx, replacement.ID, reporterID, now); err != nil {
			return err
		}
		if err := datastore.SetReportReplacement(ctx, tx, report.ID, replacement.ID); err != nil {
			return err
		}

		claimedAt := now
		replacement.Status = models.VoucherStatusClaimed
		replacement.ClaimerID = &reporterID
		replacement.ClaimedAt = &claimedAt
		replacement.ImageURL = imageURL

		result = &ReportResult{Outcome: OUTCOME_REPLACED, Replacement: replacement, Balance: locked.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = service.cache.Delete(ctx, DBKeyUser(reporterID))
	_ = service.cache.Delete(ctx, DBKeyAvailability())

	if bannedUploaderID != 0 {
		_ = service.cache.Delete(ctx, DBKeyUser(bannedUploaderID))
		contact, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_APPEAL_CONTACT, "")
		service.notifier.Notify(bannedUploaderID, BanMessage(contact))
	}

	return result, nil
}

// AdmitUpload dismisses a report the operators judged mistaken or
// malicious. The row is deleted outright so the uploader heuristic stops
// counting it; an earlier ban stays until an operator lifts it.
func (service *ServiceReport) AdmitUpload(ctx context.Context, reportID int64) error {
	_, err := datastore.FindReportByID(ctx, service.postgresDB, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errorx.Wrap(fmt.Errorf("report %d not found", reportID), errorx.NotExist)
		}
		return errorx.Wrap(err, errorx.Service)
	}

	if err := datastore.DeleteReport(ctx, service.postgresDB, reportID); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	return nil
}

func (service *ServiceReport) GetRecentReports(ctx context.Context, limit, offset int) ([]*models.Report, error) {
	return datastore.GetRecentReports(ctx, service.readonlyPostgresDB, limit, offset)
}

func (service *ServiceReport) GetReportsByUploader(ctx context.Context, uploaderID int64, limit, offset int) ([]*models.Report, error) {
	return datastore.GetReportsByUploader(ctx, service.readonlyPostgresDB, uploaderID, limit, offset)
}
