package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUserLock = errors.New("user locked")
var ErrVoucherNotFound = errors.New("voucher not found")
var ErrDuplicateBarcode = errors.New("duplicate barcode")

const (
	CONFIG_SERVER_MODE                  = "SERVER_MODE"
	CONFIG_TIMEZONE                     = "TIMEZONE"
	CONFIG_ADMIN_CHAT_IDS               = "ADMIN_CHAT_IDS"
	CONFIG_SIGNUP_BONUS                 = "SIGNUP_BONUS"
	CONFIG_HIGH_VOLUME_UPLOAD_COUNT     = "HIGH_VOLUME_UPLOAD_COUNT"
	CONFIG_APPEAL_CONTACT               = "APPEAL_CONTACT"
	CONFIG_CRONJOB_TIME_EXPIRY_SWEEP    = "CRONJOB_TIME_EXPIRY_SWEEP"
	CONFIG_CRONJOB_TIME_REMINDER        = "CRONJOB_TIME_REMINDER"
	CONFIG_CRONJOB_TIME_SESSION_CLEANUP = "CRONJOB_TIME_SESSION_CLEANUP"
	CONFIG_REMINDER_HORIZON_HOURS       = "REMINDER_HORIZON_HOURS"

	SERVER_MODE_DEVELOPMENT = "development"
	SERVER_MODE_STAGING     = "staging"
	SERVER_MODE_PRODUCTION  = "production"

	// coin economy
	MAX_COINS            = 100
	SIGNUP_BONUS_DEFAULT = 10

	// engine quotas, counted against the requester's own rows
	UPLOAD_LIMIT_PER_WINDOW = 10
	CLAIM_LIMIT_PER_WINDOW  = 5
	QUOTA_WINDOW            = 24 * time.Hour

	// ban heuristics
	REPORTER_WINDOW                  = 5
	REPORTER_TRIP                    = 3
	UPLOADER_WINDOW                  = 5
	UPLOADER_TRIP                    = 3
	UPLOADER_WINDOW_HIGH_VOLUME      = 10
	UPLOADER_TRIP_HIGH_VOLUME        = 5
	HIGH_VOLUME_UPLOAD_COUNT_DEFAULT = 50

	// a voucher expiring today is worthless to claimants past this hour
	SAME_DAY_CUTOFF_HOUR = 21

	DEFAULT_TIMEZONE             = "Europe/Amsterdam"
	DEFAULT_REMINDER_HORIZON_HRS = 48

	// transport-edge burst guard; the real quotas live in the store
	INTERACTION_RATE_LIMIT_PER_MINUTE = 20

	CACHE_TTL_5_SECONDS  = 5 * time.Second
	CACHE_TTL_15_SECONDS = 15 * time.Second
	CACHE_TTL_1_MIN      = 1 * time.Minute
	CACHE_TTL_5_MINS     = 5 * time.Minute
	CACHE_TTL_1_HOUR     = 1 * time.Hour

	TELEGRAM_API_BASE_URL = "https://api.telegram.org"

	// business outcomes, rendered directly by callers
	OUTCOME_ACCEPTED             = "accepted"
	OUTCOME_REJECTED             = "rejected"
	OUTCOME_CLAIMED              = "claimed"
	OUTCOME_REPLACED             = "replaced"
	OUTCOME_REFUNDED             = "refunded"
	OUTCOME_REFUNDED_WITH_CAVEAT = "refunded_with_caveat"
	OUTCOME_ALREADY_REPORTED     = "already_reported"
	OUTCOME_NO_VOUCHERS          = "no_vouchers"
	OUTCOME_INSUFFICIENT_COINS   = "insufficient_coins"
	OUTCOME_RATE_LIMITED         = "rate_limited"
	OUTCOME_BANNED               = "banned"

	BAN_REASON_REPORTER = "reporter_heuristic"
	BAN_REASON_UPLOADER = "uploader_heuristic"
	BAN_REASON_OPERATOR = "operator"
)

// coinReward pays uploaders inversely to scarcity; coinCost mirrors it so
// a denomination buys back exactly what it paid out.
var coinReward = map[int]int{5: 15, 10: 10, 20: 5}
var coinCost = map[int]int{5: 15, 10: 10, 20: 5}

func RewardForDenomination(denomination int) (int, bool) {
	reward, ok := coinReward[denomination]
	return reward, ok
}

func CostForDenomination(denomination int) (int, bool) {
	cost, ok := coinCost[denomination]
	return cost, ok
}

func Denominations() []int {
	return []int{5, 10, 20}
}

func LockKeyUser(userID int64) string {
	return fmt.Sprintf("lock:user:%d", userID)
}

// db
func DBKeyUser(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyAvailability() string {
	return "vouchers:availability"
}

func LimitKeyInteraction(userID int64) string {
	return fmt.Sprintf("limit:interaction:%d", userID)
}
