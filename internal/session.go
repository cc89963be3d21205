package internal

import (
	"time"
)

const UploadSessionAwaitingPhoto = "awaiting_photo"

// UploadSession tracks a chat user who was prompted for a voucher photo.
// Stored in redis as msgpack; the cleanup job prunes sessions nobody
// followed through on.
type UploadSession struct {
	UserID          int64     `json:"user_id"`
	ChatID          int64     `json:"chat_id"`
	State           string    `json:"state"`
	PromptMessageID int       `json:"prompt_message_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (s *UploadSession) StaleSince(t time.Time) bool {
	return s.UpdatedAt.Before(t)
}
