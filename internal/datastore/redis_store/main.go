package redis_store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vouchswap/internal"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	INBOUND_EVENT_TTL   = 72 * time.Hour
	EXPIRY_REMINDER_TTL = 72 * time.Hour
)

func dbKeyUploadSession(userID int64) string {
	return fmt.Sprintf("upload_session:%d", userID)
}

func dbKeyInboundEvent(channel string, messageID int64) string {
	return fmt.Sprintf("event:%s:%d", channel, messageID)
}

// channels are numeric chat ids, so "cb" cannot collide with a message key
func dbKeyInboundCallback(callbackID string) string {
	return fmt.Sprintf("event:cb:%s", callbackID)
}

func dbKeyExpiryReminder(voucherID int64) string {
	return fmt.Sprintf("reminder:voucher:%d", voucherID)
}

func GetUploadSession(ctx context.Context, cmd redis.Cmdable, userID int64) (*internal.UploadSession, error) {
	var v *internal.UploadSession
	b, err := cmd.Get(ctx, dbKeyUploadSession(userID)).Bytes()
	if err != nil {
		return nil, err
	}

	err = msgpack.Unmarshal(b, &v)
	return v, err
}

func SaveUploadSession(ctx context.Context, cmd redis.Cmdable, v *internal.UploadSession) (*internal.UploadSession, error) {
	if v.UserID == 0 {
		return nil, errors.New("invalid session")
	}

	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}

	err = cmd.Set(ctx, dbKeyUploadSession(v.UserID), b, 0).Err()
	if err != nil {
		return nil, err
	}

	return v, nil
}

func DeleteUploadSession(ctx context.Context, cmd redis.Cmdable, userID int64) error {
	return cmd.Del(ctx, dbKeyUploadSession(userID)).Err()
}

// CleanupStaleUploadSessions walks upload_session:* and drops sessions not
// touched since the cutoff. The cron job runs this on a fixed cadence.
func CleanupStaleUploadSessions(ctx context.Context, cmd redis.UniversalClient, cutoff time.Time) (int, error) {
	deleted := 0
	iter := cmd.Scan(ctx, 0, "upload_session:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := cmd.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return deleted, err
		}

		var v *internal.UploadSession
		if err := msgpack.Unmarshal(b, &v); err != nil {
			// unreadable sessions are dead weight either way
			if err := cmd.Del(ctx, key).Err(); err != nil {
				return deleted, err
			}
			deleted++
			continue
		}

		if v.StaleSince(cutoff) {
			if err := cmd.Del(ctx, key).Err(); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}

	return deleted, nil
}

// MarkInboundEvent claims the (channel, message id) pair. The second and
// later deliveries of the same transport event return false so retries can
// never double-process an upload or claim.
func MarkInboundEvent(ctx context.Context, cmd redis.Cmdable, channel string, messageID int64) (bool, error) {
	return cmd.SetNX(ctx, dbKeyInboundEvent(channel, messageID), true, INBOUND_EVENT_TTL).Result()
}

// MarkInboundCallback is the same claim for callback-query events, which
// carry their own id instead of a (chat, message) pair.
func MarkInboundCallback(ctx context.Context, cmd redis.Cmdable, callbackID string) (bool, error) {
	return cmd.SetNX(ctx, dbKeyInboundCallback(callbackID), true, INBOUND_EVENT_TTL).Result()
}

// MarkExpiryReminded claims the one reminder a claimed voucher gets before
// its window closes.
func MarkExpiryReminded(ctx context.Context, cmd redis.Cmdable, voucherID int64) (bool, error) {
	return cmd.SetNX(ctx, dbKeyExpiryReminder(voucherID), true, EXPIRY_REMINDER_TTL).Result()
}
