package main

import (
	"context"
	"log"
	"os"

	"vouchswap/internal/pkg/container"
	"vouchswap/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	tele "gopkg.in/telebot.v3"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

var adminChatIDs []int64

const (
	textStart = `🎟 Welcome to VouchSwap!

Swap supermarket vouchers you won't use for ones you will.

📤 Send me a photo of a €5, €10 or €20 voucher to earn coins.
📥 Spend coins with /claim to pick one up.

Type /help to see all commands.`

	textStartBonus = `🎟 Welcome to VouchSwap!

Swap supermarket vouchers you won't use for ones you will.

🎁 You start with %d coins on the house.

📤 Send me a photo of a €5, €10 or €20 voucher to earn more.
📥 Spend coins with /claim to pick one up.

Type /help to see all commands.`

	textHelp = `🎟 VouchSwap commands:
/upload - send in a voucher photo
/claim - claim a voucher with your coins
/stock - what's on the shelf right now
/vouchers - your claimed vouchers
/voucher <id> - resend a claimed voucher's photo
/report <id> [reason] - report a claimed voucher as already used
/balance - your coins and counters
/history - your recent coin transactions
/help - this list

You can also just send a voucher photo, no command needed.`

	textUploadPrompt = `📤 Send me a photo of the voucher. Make sure the denomination, the dates and the barcode are readable.`

	textClaimPrompt = `Which voucher would you like? You always get the soonest-expiring one.`

	textClaimUsage = `Usage: /claim [5|10|20]`

	textReportUsage = `Usage: /report <voucher id> [reason]
Find the id with /vouchers.`

	textReportPrompt = `What's wrong with voucher #%d?`

	textVoucherUsage = `Usage: /voucher <voucher id>
Find the id with /vouchers.`

	textSystemFailure = `😵 Something went wrong reading your photo. Nothing was charged. Quote support code %s if you contact us.`

	contextContainer = "context-container"
	contextRedis     = "context-redis"
)

func main() {
	app := &cli.App{
		Name: "bot-telegram",
		Commands: []*cli.Command{
			commandBot(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandBot() *cli.Command {
	return &cli.Command{
		Name:   "server",
		Action: action,
	}
}

func action(c *cli.Context) error {
	vs, err := env.EnvsRequired(
		"BOT_TOKEN",
		"DB_DSN",
		"VISION_ENDPOINT",
	)
	if err != nil {
		return err
	}

	injector := container.New(vs)

	botService, err := do.Invoke[*services.Bot](injector)
	if err != nil {
		return err
	}

	dbRedis, err := do.InvokeNamed[redis.UniversalClient](injector, "redis-db")
	if err != nil {
		return err
	}

	serviceConfig, err := do.Invoke[*services.ServiceConfig](injector)
	if err != nil {
		return err
	}

	adminChatIDs = serviceConfig.AdminChatIDs(context.Background())

	b := botService.Instance()

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Callback() != nil {
				//nolint:errcheck
				defer c.Respond()
			}

			c.Set(contextContainer, injector)
			c.Set(contextRedis, dbRedis)

			return next(c)
		}
	})

	// exchange commands
	b.Handle("/start", commandStart)
	b.Handle("/help", commandHelp)
	b.Handle("/upload", commandUpload)
	b.Handle(tele.OnPhoto, handlePhoto)
	handleClaimCommands(b)
	b.Handle("/stock", commandStock)
	b.Handle("/vouchers", commandVouchers)
	b.Handle("/voucher", commandVoucherImage)
	handleReportCommands(b)
	b.Handle("/balance", commandBalance)
	b.Handle("/history", commandHistory)

	// operator commands - gated on the admin chats
	b.Handle("/list", commandList)
	b.Handle("/stats", commandStats)
	b.Handle("/reports", commandReports)
	b.Handle("/admit", commandAdmit)
	b.Handle("/failures", commandFailures)
	b.Handle("/drift", commandDrift)
	b.Handle("/sweep", commandSweep)
	b.Handle("/ban", commandBan)
	b.Handle("/unban", commandUnban)
	b.Handle("/recount", commandRecount)

	b.Start()

	return nil
}

func AuthRequire(ctx tele.Context, chatIds []int64) bool {
	authorized := false
	for _, id := range chatIds {
		if ctx.Message().Chat.ID == id {
			authorized = true
			break
		}
	}

	if !authorized {
		//nolint:errcheck
		ctx.Send("You are not authorized to use this bot here.")
	}

	return authorized
}
