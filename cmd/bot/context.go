package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	tele "gopkg.in/telebot.v3"

	"vouchswap/internal/datastore/redis_store"
	"vouchswap/internal/models"
	"vouchswap/internal/services"
)

func getContextContainer(context tele.Context) (*do.Injector, error) {
	contextValue := context.Get(contextContainer)
	if contextValue == nil {
		return nil, fmt.Errorf("container not found")
	}

	result, ok := contextValue.(*do.Injector)
	if !ok {
		return nil, fmt.Errorf("container not valid")
	}

	return result, nil
}

func getContextRedis(context tele.Context) (redis.UniversalClient, error) {
	contextValue := context.Get(contextRedis)
	if contextValue == nil {
		return nil, fmt.Errorf("cache not found")
	}

	result, ok := contextValue.(redis.UniversalClient)
	if !ok {
		return nil, fmt.Errorf("cache not valid")
	}

	return result, nil
}

func senderFromAuth(c tele.Context) *models.UserFromAuth {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	return &models.UserFromAuth{
		ID:           sender.ID,
		Username:     sender.Username,
		FirstName:    sender.FirstName,
		LastName:     sender.LastName,
		IsBot:        sender.IsBot,
		IsPremium:    sender.IsPremium,
		LanguageCode: sender.LanguageCode,
	}
}

// inboundFresh claims the transport event behind the update. Long-poll
// updates are redelivered when the process dies between the handler's
// commit and the offset acknowledgment; the redelivery is not fresh and
// must not move coins again. Callbacks carry their own id, messages
// dedup on the (chat, message id) pair.
func inboundFresh(ctx context.Context, c tele.Context, dbRedis redis.UniversalClient) (bool, error) {
	if callback := c.Callback(); callback != nil {
		return redis_store.MarkInboundCallback(ctx, dbRedis, callback.ID)
	}

	msg := c.Message()
	if msg == nil {
		return true, nil
	}

	return redis_store.MarkInboundEvent(ctx, dbRedis, strconv.FormatInt(msg.Chat.ID, 10), int64(msg.ID))
}

// outcomeText falls back to the plain ban notice when an outcome carries
// no message; telegram rejects empty sends.
func outcomeText(message string) string {
	if message != "" {
		return message
	}
	return services.BanMessage("")
}
