package services

import (
	"log"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/samber/do"
)

const (
	NOTIFY_MAX_ATTEMPTS    = 4
	NOTIFY_INITIAL_BACKOFF = 500 * time.Millisecond
	NOTIFY_MAX_BACKOFF     = 8 * time.Second
)

// Notifier delivers chat messages after the transaction commits. One
// goroutine per message, exponential backoff between attempts, permanent
// failures logged and dropped. It never blocks or fails the caller;
// committed state stands whether or not the message lands.
type Notifier struct {
	bot     *Bot
	backoff heimdall.Backoff
}

func NewNotifier(container *do.Injector) (*Notifier, error) {
	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	backoff := heimdall.NewExponentialBackoff(NOTIFY_INITIAL_BACKOFF, NOTIFY_MAX_BACKOFF, 2, 100*time.Millisecond)
	return &Notifier{bot, backoff}, nil
}

func (notifier *Notifier) Notify(userID int64, text string) {
	go func() {
		var err error
		for attempt := 0; attempt < NOTIFY_MAX_ATTEMPTS; attempt++ {
			if attempt > 0 {
				time.Sleep(notifier.backoff.Next(attempt - 1))
			}

			if err = notifier.bot.SendMsg(userID, text); err == nil {
				return
			}
		}

		log.Println("notify: giving up", "user:", userID, "err:", err)
	}()
}
