package services

import (
	"strings"
	"time"

	"vouchswap/internal/models"
	"vouchswap/internal/pkg"
)

// Rejection reasons form a closed enum. Each maps to exactly one
// user-facing message; anything else an upload can go wrong with is a
// system error, not a rejection.
const (
	REJECT_INVALID_TYPE               = "INVALID_TYPE"
	REJECT_COULD_NOT_READ_VALID_FROM  = "COULD_NOT_READ_VALID_FROM"
	REJECT_COULD_NOT_READ_EXPIRY_DATE = "COULD_NOT_READ_EXPIRY_DATE"
	REJECT_EXPIRED                    = "EXPIRED"
	REJECT_COULD_NOT_READ_BARCODE     = "COULD_NOT_READ_BARCODE"
	REJECT_DUPLICATE_BARCODE          = "DUPLICATE_BARCODE"

	REASON_SYSTEM_ERROR = "SYSTEM_ERROR"
)

var RejectionMessages = map[string]string{
	REJECT_INVALID_TYPE:               "That doesn't look like a 5, 10 or 20 voucher. Please send a clear photo of the whole voucher.",
	REJECT_COULD_NOT_READ_VALID_FROM:  "I couldn't read the valid-from date. Please retake the photo with the date visible.",
	REJECT_COULD_NOT_READ_EXPIRY_DATE: "I couldn't read the expiry date. Please retake the photo with the date visible.",
	REJECT_EXPIRED:                    "This voucher is expired or expires too soon to be claimed by anyone.",
	REJECT_COULD_NOT_READ_BARCODE:     "I couldn't read the barcode. Please retake the photo with the barcode visible.",
	REJECT_DUPLICATE_BARCODE:          "This voucher was already uploaded before.",
}

// dateLayouts covers the formats the vision service is known to emit.
var dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// VoucherFields is a validated, normalized extraction ready to persist.
type VoucherFields struct {
	Denomination int
	ValidFrom    time.Time
	ExpiresAt    time.Time
	Barcode      string
}

// ValidateExtraction runs the ordered read checks over an untrusted
// extraction. First failing check wins. The returned reason is "" on
// success. The duplicate-barcode check needs the store and runs inside
// the upload transaction, after this.
//
// validFrom normalizes to start-of-day, expiry to end-of-day, both in
// now's location; expiry is inclusive, so "expires today" stays claimable
// until midnight but is useless past the evening cutoff.
func ValidateExtraction(raw *models.RawExtraction, now time.Time) (*VoucherFields, string) {
	if _, ok := coinReward[raw.Denomination]; !ok {
		return nil, REJECT_INVALID_TYPE
	}

	oneYearAgo := pkg.StartOfDay(now.AddDate(-1, 0, 0))

	validFrom, ok := parseDay(raw.ValidFrom, now.Location())
	if !ok || validFrom.Before(oneYearAgo) {
		return nil, REJECT_COULD_NOT_READ_VALID_FROM
	}

	// a year-old expiry is a misread, not a merely expired voucher
	expiryDay, ok := parseDay(raw.ExpiryDate, now.Location())
	if !ok || expiryDay.Before(oneYearAgo) {
		return nil, REJECT_COULD_NOT_READ_EXPIRY_DATE
	}

	if expiryDay.Before(pkg.StartOfDay(now)) {
		return nil, REJECT_EXPIRED
	}

	if pkg.SameCalendarDay(expiryDay, now) && now.Hour() >= SAME_DAY_CUTOFF_HOUR {
		return nil, REJECT_EXPIRED
	}

	barcode := strings.TrimSpace(raw.Barcode)
	if barcode == "" {
		return nil, REJECT_COULD_NOT_READ_BARCODE
	}

	return &VoucherFields{
		Denomination: raw.Denomination,
		ValidFrom:    validFrom,
		ExpiresAt:    pkg.EndOfDay(expiryDay),
		Barcode:      barcode,
	}, ""
}

// parseDay parses a calendar date and pins it to start-of-day.
func parseDay(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return pkg.StartOfDay(t), true
		}
	}

	return time.Time{}, false
}
