package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ExtractionFailure is the triage log for uploads that produced no voucher.
// Validation rejections keep whatever partial fields were read; system
// errors carry a support code instead so operators can match user tickets.
type ExtractionFailure struct {
	bun.BaseModel `bun:"table:extraction_failure"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64      `bun:"user_id" json:"user_id"`
	ImageRef      string     `bun:"image_ref" json:"-"`
	Reason        string     `bun:"reason" json:"reason"`
	Denomination  *int       `bun:"denomination" json:"denomination"`
	ValidFromRaw  *string    `bun:"valid_from_raw" json:"valid_from_raw"`
	ExpiryRaw     *string    `bun:"expiry_raw" json:"expiry_raw"`
	Barcode       *string    `bun:"barcode" json:"barcode"`
	SupportCode   *string    `bun:"support_code" json:"support_code"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
}
