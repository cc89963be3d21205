package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Report struct {
	bun.BaseModel `bun:"table:report"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	VoucherID     int64     `bun:"voucher_id" json:"voucher_id"`
	ReporterID    int64     `bun:"reporter_id" json:"reporter_id"`
	UploaderID    int64     `bun:"uploader_id" json:"uploader_id"` // denormalized from voucher at creation
	Reason        string    `bun:"reason" json:"reason"`
	ReplacementID *int64    `bun:"replacement_id" json:"replacement_id"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`

	Voucher *Voucher `bun:"-" json:"voucher,omitempty"`
}

// ClaimRecord is one row of a reporter's recent-claims window: a voucher
// they claimed and whether they filed a report against it.
type ClaimRecord struct {
	VoucherID int64 `bun:"voucher_id"`
	Reported  bool  `bun:"reported"`
}

// UploadRecord is one row of an uploader's recent-uploads window: a voucher
// they uploaded and whether any non-banned reporter filed against it.
type UploadRecord struct {
	VoucherID int64 `bun:"voucher_id"`
	Reported  bool  `bun:"reported"`
}
