package services

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"vouchswap/internal/models"
)

type Bot struct {
	token    string
	instance *tele.Bot
}

func NewBot(token string) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	instance, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	return &Bot{token, instance}, nil
}

// Instance exposes the underlying bot for the polling command.
func (bot *Bot) Instance() *tele.Bot {
	return bot.instance
}

func (bot *Bot) ValidateInitData(dataStr string) (*models.UserFromAuth, error) {
	err := initdata.Validate(dataStr, bot.token, time.Hour)
	if err != nil {
		return nil, err
	}

	data, err := initdata.Parse(dataStr)
	if err != nil {
		return nil, err
	}

	return &models.UserFromAuth{
		ID:           data.User.ID,
		Username:     data.User.Username,
		FirstName:    data.User.FirstName,
		LastName:     data.User.LastName,
		IsBot:        data.User.IsBot,
		IsPremium:    data.User.IsPremium,
		LanguageCode: data.User.LanguageCode,
		PhotoURL:     data.User.PhotoURL,
	}, nil
}

func (bot *Bot) SendMsg(chatID int64, text string) error {
	_, err := bot.instance.Send(&tele.User{ID: chatID}, text, &tele.SendOptions{
		ParseMode: tele.ModeHTML,
	})
	return err
}

// ResolveImage turns a stored Telegram file id into a short-lived download
// URL. Telegram owns the bytes; the engine only ever stores the ref.
func (bot *Bot) ResolveImage(ctx context.Context, ref string) (string, error) {
	file, err := bot.instance.FileByID(ref)
	if err != nil {
		return "", err
	}

	if file.FilePath == "" {
		return "", fmt.Errorf("file %s has no path", ref)
	}

	return fmt.Sprintf("%s/file/bot%s/%s", TELEGRAM_API_BASE_URL, bot.token, file.FilePath), nil
}
