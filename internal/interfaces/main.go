package interfaces

import (
	"context"

	"vouchswap/internal/models"

	"github.com/go-redis/redis_rate/v10"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// ImageResolver turns an opaque image ref into a transient fetchable URL.
// A miss is an error; callers decide whether that aborts or compensates.
type ImageResolver interface {
	ResolveImage(ctx context.Context, ref string) (string, error)
}

// Extractor reads voucher fields off a photo. Output is untrusted input
// for the validation pipeline; a call failure is a system error, never a
// validation rejection.
type Extractor interface {
	Extract(ctx context.Context, imageURL string) (*models.RawExtraction, error)
}

// Notifier delivers chat messages after commit, best effort with bounded
// retry. Implementations must never block or fail the calling operation.
type Notifier interface {
	Notify(userID int64, text string)
}
