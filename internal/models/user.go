package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:exchange_user"`
	ID            int64      `bun:"id,pk" json:"id"`
	FirstName     string     `bun:"first_name" json:"first_name"`
	LastName      string     `bun:"last_name" json:"last_name"`
	Username      string     `bun:"username" json:"username"`
	LanguageCode  string     `bun:"language_code" json:"language_code"`
	Balance       int        `bun:"balance" json:"balance"`
	Banned        bool       `bun:"banned" json:"banned"`
	BannedAt      *time.Time `bun:"banned_at" json:"banned_at"`
	BanReason     *string    `bun:"ban_reason" json:"-"`
	LastReportAt  *time.Time `bun:"last_report_at" json:"last_report_at"`
	UploadCount   int        `bun:"upload_count" json:"upload_count"` // advisory, rebuilt from voucher rows
	ClaimCount    int        `bun:"claim_count" json:"claim_count"`   // advisory
	ReportCount   int        `bun:"report_count" json:"report_count"` // advisory
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at" json:"updated_at"`

	IsNewUser bool `bun:"-" json:"is_new_user"`
}

// UserFromAuth only use in middleware
type UserFromAuth struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	IsBot        bool   `json:"is_bot"`
	IsPremium    bool   `json:"is_premium"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	PhotoURL     string `json:"photo_url"`
}
