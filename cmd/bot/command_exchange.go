package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/samber/do"
	tele "gopkg.in/telebot.v3"

	"vouchswap/internal"
	"vouchswap/internal/datastore/redis_store"
	"vouchswap/internal/services"
)

func commandStart(c tele.Context) error {
	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	user, err := serviceUser.FindOrCreateUser(context.Background(), senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if user.IsNewUser {
		return c.Send(fmt.Sprintf(textStartBonus, user.Balance))
	}

	return c.Send(textStart)
}

func commandHelp(c tele.Context) error {
	return c.Send(textHelp)
}

// commandUpload prompts for a photo and remembers the prompt so the photo
// handler can clear it once the photo arrives. The photo handler accepts
// photos with or without a prompt.
func commandUpload(c tele.Context) error {
	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	dbRedis, err := getContextRedis(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	ctx := context.Background()

	user, err := serviceUser.FindOrCreateUser(ctx, senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	prompt, err := c.Bot().Send(c.Recipient(), textUploadPrompt)
	if err != nil {
		return err
	}

	now := time.Now()
	if _, err := redis_store.SaveUploadSession(ctx, dbRedis, &internal.UploadSession{
		UserID:          user.ID,
		ChatID:          c.Chat().ID,
		State:           internal.UploadSessionAwaitingPhoto,
		PromptMessageID: prompt.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		log.Println("save upload session:", err)
	}

	return nil
}

func handlePhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	dbRedis, err := getContextRedis(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	ctx := context.Background()

	// restarts redeliver updates; claim the message before any coins move
	fresh, err := inboundFresh(ctx, c, dbRedis)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}
	if !fresh {
		return nil
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	user, err := serviceUser.FindOrCreateUser(ctx, senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	// the photo closes the session; drop the prompt to keep the chat tidy
	if session, err := redis_store.GetUploadSession(ctx, dbRedis, user.ID); err == nil && session != nil && session.PromptMessageID != 0 {
		//nolint:errcheck
		c.Bot().Delete(&tele.StoredMessage{MessageID: strconv.Itoa(session.PromptMessageID), ChatID: session.ChatID})
	}
	//nolint:errcheck
	redis_store.DeleteUploadSession(ctx, dbRedis, user.ID)

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	botService, err := do.Invoke[*services.Bot](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceVision, err := do.Invoke[*services.ServiceVision](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	imageRef := msg.Photo.FileID

	imageURL, err := botService.ResolveImage(ctx, imageRef)
	if err != nil {
		code := serviceVoucher.RecordSystemFailure(ctx, user.ID, imageRef, err)
		return c.Send(fmt.Sprintf(textSystemFailure, code))
	}

	raw, err := serviceVision.Extract(ctx, imageURL)
	if err != nil {
		code := serviceVoucher.RecordSystemFailure(ctx, user.ID, imageRef, err)
		return c.Send(fmt.Sprintf(textSystemFailure, code))
	}

	result, err := serviceVoucher.Upload(ctx, user.ID, imageRef, raw, time.Now())
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if result.Outcome != services.OUTCOME_ACCEPTED {
		return c.Send(outcomeText(result.Message))
	}

	voucher := result.Voucher
	text := fmt.Sprintf("✅ €%d voucher accepted, it expires on %s.", voucher.Denomination, voucher.ExpiresAt.Format("02 Jan 2006"))
	if result.Reward > 0 {
		text += fmt.Sprintf("\n💰 You earned %d coins. Balance: %d.", result.Reward, result.Balance)
	} else {
		text += fmt.Sprintf("\n💰 Your balance is already at the %d coin cap, so no coins this time.", services.MAX_COINS)
	}

	return c.Send(text)
}

func handleClaimCommands(b *tele.Bot) {
	menuClaim := &tele.ReplyMarkup{}

	var rows []tele.Row
	for _, denomination := range services.Denominations() {
		denomination := denomination
		cost, _ := services.CostForDenomination(denomination)
		btn := menuClaim.Data(fmt.Sprintf("€%d voucher for %d coins", denomination, cost), fmt.Sprintf("claim-%d", denomination))
		rows = append(rows, menuClaim.Row(btn))

		b.Handle(&btn, func(c tele.Context) error {
			return claimDenomination(c, denomination)
		})
	}
	menuClaim.Inline(rows...)

	b.Handle("/claim", func(c tele.Context) error {
		query := c.Args()
		if len(query) == 0 {
			return c.Send(textClaimPrompt, &tele.SendOptions{ReplyMarkup: menuClaim})
		}

		denomination, err := strconv.Atoi(strings.TrimPrefix(query[0], "€"))
		if err != nil {
			return c.Send(textClaimUsage)
		}

		return claimDenomination(c, denomination)
	})
}

func claimDenomination(c tele.Context, denomination int) error {
	if _, ok := services.CostForDenomination(denomination); !ok {
		return c.Send(textClaimUsage)
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	dbRedis, err := getContextRedis(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	ctx := context.Background()

	// a redelivered update must not claim a second voucher
	fresh, err := inboundFresh(ctx, c, dbRedis)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}
	if !fresh {
		return nil
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	user, err := serviceUser.FindOrCreateUser(ctx, senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	result, err := serviceVoucher.Claim(ctx, user.ID, denomination, time.Now())
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if result.Outcome != services.OUTCOME_CLAIMED {
		return c.Send(outcomeText(result.Message))
	}

	voucher := result.Voucher
	return c.Send(&tele.Photo{
		File: tele.FromURL(voucher.ImageURL),
		Caption: fmt.Sprintf(
			"🎟 Voucher #%d: €%d, expires %s.\n💰 %d coins spent. Balance: %d.\nAlready used by someone? /report %d",
			voucher.ID, voucher.Denomination, voucher.ExpiresAt.Format("02 Jan 2006"), result.Cost, result.Balance, voucher.ID,
		),
	})
}

func commandStock(c tele.Context) error {
	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	availability, err := serviceVoucher.Availability(context.Background())
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	counts := map[int]int{}
	for _, row := range availability {
		counts[row.Denomination] = row.Count
	}

	msg := "🛒 On the shelf:"
	for _, denomination := range services.Denominations() {
		cost, _ := services.CostForDenomination(denomination)
		msg += fmt.Sprintf("\n€%d: %d (costs %d coins)", denomination, counts[denomination], cost)
	}

	return c.Send(msg)
}

func commandVouchers(c tele.Context) error {
	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	ctx := context.Background()

	user, err := serviceUser.FindOrCreateUser(ctx, senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	vouchers, err := serviceVoucher.GetUserClaims(ctx, user.ID, 10, 0)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if len(vouchers) == 0 {
		return c.Send("You haven't claimed any vouchers yet. Try /claim.")
	}

	msg := "🎟 Your claimed vouchers:"
	for _, voucher := range vouchers {
		msg += fmt.Sprintf("\n#%d €%d, expires %s (%s)", voucher.ID, voucher.Denomination, voucher.ExpiresAt.Format("02 Jan 2006"), voucher.Status)
	}
	msg += "\n\n/voucher <id> resends the photo. /report <id> if one was already used."

	return c.Send(msg)
}

func commandVoucherImage(c tele.Context) error {
	query := c.Args()
	if len(query) < 1 {
		return c.Send(textVoucherUsage)
	}

	voucherID, err := strconv.ParseInt(strings.TrimPrefix(query[0], "#"), 10, 64)
	if err != nil {
		return c.Send(textVoucherUsage)
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	ctx := context.Background()

	user, err := serviceUser.FindOrCreateUser(ctx, senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	imageURL, err := serviceVoucher.ClaimedVoucherImage(ctx, user.ID, voucherID)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(&tele.Photo{File: tele.FromURL(imageURL)})
}

// reportReasons are the canned choices offered when /report arrives
// without a reason. The key doubles as the callback unique suffix.
var reportReasons = []struct {
	key   string
	label string
}{
	{"used", "Already used"},
	{"amount", "Wrong amount on it"},
	{"unreadable", "Photo unreadable"},
	{"expired", "Expired on arrival"},
}

func handleReportCommands(b *tele.Bot) {
	for _, reason := range reportReasons {
		reason := reason
		btn := (&tele.ReplyMarkup{}).Data(reason.label, "report-"+reason.key)

		b.Handle(&btn, func(c tele.Context) error {
			args := c.Args()
			if len(args) < 1 {
				return c.Send(textReportUsage)
			}

			voucherID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return c.Send(textReportUsage)
			}

			return fileReport(c, voucherID, reason.label)
		})
	}

	b.Handle("/report", func(c tele.Context) error {
		query := c.Args()
		if len(query) < 1 {
			return c.Send(textReportUsage)
		}

		id := strings.TrimPrefix(query[0], "#")
		voucherID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return c.Send(textReportUsage)
		}

		if len(query) > 1 {
			return fileReport(c, voucherID, strings.Join(query[1:], " "))
		}

		// reason picker; the voucher id rides in the callback data
		menuReasons := &tele.ReplyMarkup{}
		var rows []tele.Row
		for _, reason := range reportReasons {
			rows = append(rows, menuReasons.Row(menuReasons.Data(reason.label, "report-"+reason.key, id)))
		}
		menuReasons.Inline(rows...)

		return c.Send(fmt.Sprintf(textReportPrompt, voucherID), &tele.SendOptions{ReplyMarkup: menuReasons})
	})
}

func fileReport(c tele.Context, voucherID int64, reason string) error {
	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	dbRedis, err := getContextRedis(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	ctx := context.Background()

	// a redelivered update must not refund or replace twice
	fresh, err := inboundFresh(ctx, c, dbRedis)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}
	if !fresh {
		return nil
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	user, err := serviceUser.FindOrCreateUser(ctx, senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceReport, err := do.Invoke[*services.ServiceReport](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	result, err := serviceReport.Report(ctx, user.ID, voucherID, reason, time.Now())
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	switch result.Outcome {
	case services.OUTCOME_REPLACED:
		replacement := result.Replacement
		return c.Send(&tele.Photo{
			File: tele.FromURL(replacement.ImageURL),
			Caption: fmt.Sprintf(
				"✅ Sorry about that one. Here's a replacement €%d voucher (#%d) at no charge, expires %s.",
				replacement.Denomination, replacement.ID, replacement.ExpiresAt.Format("02 Jan 2006"),
			),
		})
	case services.OUTCOME_REFUNDED:
		return c.Send(fmt.Sprintf("✅ Report filed. No replacement in stock, so %d coins came back. Balance: %d.", result.Refund, result.Balance))
	case services.OUTCOME_REFUNDED_WITH_CAVEAT:
		return c.Send(fmt.Sprintf("✅ Report filed. A replacement exists but its photo can't be delivered right now, so %d coins came back instead. Balance: %d. Try /claim later.", result.Refund, result.Balance))
	default:
		return c.Send(outcomeText(result.Message))
	}
}

func commandBalance(c tele.Context) error {
	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	user, err := serviceUser.FindOrCreateUser(context.Background(), senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(fmt.Sprintf(
		"💰 %d coins\n📤 %d uploads, 📥 %d claims, 🚩 %d reports",
		user.Balance, user.UploadCount, user.ClaimCount, user.ReportCount,
	))
}

func commandHistory(c tele.Context) error {
	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	ctx := context.Background()

	user, err := serviceUser.FindOrCreateUser(ctx, senderFromAuth(c))
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceLedger, err := do.Invoke[*services.ServiceLedger](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	transactions, err := serviceLedger.GetUserTransactions(ctx, user.ID, 10, 0)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if len(transactions) == 0 {
		return c.Send("No coin movements yet. Send a voucher photo to earn some.")
	}

	msg := "📜 Recent coin movements:"
	for _, transaction := range transactions {
		msg += fmt.Sprintf("\n%+d %s", transaction.Amount, transaction.Kind)
		if transaction.VoucherID != nil {
			msg += fmt.Sprintf(" (voucher #%d)", *transaction.VoucherID)
		}
		msg += " " + transaction.CreatedAt.Format("02 Jan 15:04")
	}

	return c.Send(msg)
}
