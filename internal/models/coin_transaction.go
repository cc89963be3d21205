package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TransactionKindSignupBonus  = "signup_bonus"
	TransactionKindUploadReward = "upload_reward"
	TransactionKindClaimSpend   = "claim_spend"
	TransactionKindReportRefund = "report_refund"
)

// CoinTransaction is append-only. For every user the running sum of
// Amount equals User.Balance at all times.
type CoinTransaction struct {
	bun.BaseModel `bun:"table:coin_transaction"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	Kind          string    `bun:"kind" json:"kind"`
	Amount        int       `bun:"amount" json:"amount"` // signed, post-clamp delta
	VoucherID     *int64    `bun:"voucher_id" json:"voucher_id"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// LedgerDrift is a user whose stored balance disagrees with the sum of
// their transactions. An empty result set is the healthy state.
type LedgerDrift struct {
	UserID  int64 `bun:"user_id" json:"user_id"`
	Balance int   `bun:"balance" json:"balance"`
	Sum     int   `bun:"sum" json:"sum"`
}
