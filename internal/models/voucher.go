package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	VoucherStatusProcessing = "processing"
	VoucherStatusAvailable  = "available"
	VoucherStatusClaimed    = "claimed"
	VoucherStatusReported   = "reported"
	VoucherStatusExpired    = "expired"
)

// voucherTransitions lists the legal forward edges of the lifecycle.
// claimed -> available is the compensation edge: a claim whose image
// hand-off failed puts the voucher back on the shelf.
var voucherTransitions = map[string][]string{
	VoucherStatusProcessing: {VoucherStatusAvailable},
	VoucherStatusAvailable:  {VoucherStatusClaimed, VoucherStatusExpired},
	VoucherStatusClaimed:    {VoucherStatusReported, VoucherStatusAvailable},
}

func CanTransitionVoucher(from, to string) bool {
	for _, next := range voucherTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Voucher struct {
	bun.BaseModel `bun:"table:voucher"`
	ID            int64                  `bun:"id,pk,autoincrement" json:"id"`
	Denomination  int                    `bun:"denomination" json:"denomination"`
	Status        string                 `bun:"status" json:"status"`
	ImageRef      string                 `bun:"image_ref" json:"-"`
	Barcode       *string                `bun:"barcode" json:"-"`
	ValidFrom     *time.Time             `bun:"valid_from" json:"valid_from"`
	ExpiresAt     time.Time              `bun:"expires_at" json:"expires_at"`
	UploaderID    int64                  `bun:"uploader_id" json:"uploader_id"`
	ClaimerID     *int64                 `bun:"claimer_id" json:"claimer_id"`
	ClaimedAt     *time.Time             `bun:"claimed_at" json:"claimed_at"`
	RawExtraction map[string]interface{} `bun:"raw_extraction,type:jsonb" json:"-"`
	CreatedAt     time.Time              `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time              `bun:"updated_at" json:"updated_at"`

	ImageURL string `bun:"-" json:"image_url,omitempty"`
}

type DenominationCount struct {
	Denomination int `bun:"denomination" json:"denomination"`
	Count        int `bun:"count" json:"count"`
}

// Claimable reports whether the voucher can be handed to a claimer at t:
// on the shelf, inside its validity window, not yet expired.
func (v *Voucher) Claimable(t time.Time) bool {
	if v.Status != VoucherStatusAvailable {
		return false
	}
	if v.ValidFrom != nil && v.ValidFrom.After(t) {
		return false
	}
	return v.ExpiresAt.After(t)
}
