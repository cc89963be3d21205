package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/do"
	tele "gopkg.in/telebot.v3"

	"vouchswap/internal/services"
)

func commandList(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	return c.Send(`Operator commands:
/stats - user and shelf totals
/reports [n] - latest reports
/admit <report id> - dismiss a report as mistaken
/failures [n] - latest extraction failures
/drift - ledger consistency check
/sweep - expire overdue vouchers now
/ban <user id> [reason] - suspend a user
/unban <user id> - reinstate a user
/recount <user id> - rebuild a user's counters
`)
}

func commandStats(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
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

	_, total, err := serviceUser.GetUsers(ctx, 1, 0)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	availability, err := serviceVoucher.Availability(ctx)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	msg := fmt.Sprintf("Total users: %d", total)
	for _, row := range availability {
		msg += fmt.Sprintf("\n€%d on the shelf: %d", row.Denomination, row.Count)
	}

	return c.Send(msg)
}

func commandReports(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	limit := 10
	if len(c.Args()) > 0 {
		if n, err := strconv.Atoi(c.Args()[0]); err == nil && n > 0 {
			limit = n
		}
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceReport, err := do.Invoke[*services.ServiceReport](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	reports, err := serviceReport.GetRecentReports(context.Background(), limit, 0)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if len(reports) == 0 {
		return c.Send("No reports on file.")
	}

	msg := "Latest reports:"
	for _, report := range reports {
		msg += fmt.Sprintf(
			"\n#%d voucher %d, reporter %d, uploader %d, %s",
			report.ID, report.VoucherID, report.ReporterID, report.UploaderID, report.CreatedAt.Format("02 Jan 15:04"),
		)
		if report.Reason != "" {
			msg += fmt.Sprintf(" (%s)", report.Reason)
		}
		if report.ReplacementID != nil {
			msg += fmt.Sprintf(" replaced by %d", *report.ReplacementID)
		}
	}

	return c.Send(msg)
}

func commandAdmit(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	if len(c.Args()) < 1 {
		return c.Send("Usage: /admit <report id>")
	}

	reportID, err := strconv.ParseInt(c.Args()[0], 10, 64)
	if err != nil {
		return c.Send("Usage: /admit <report id>")
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceReport, err := do.Invoke[*services.ServiceReport](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if err := serviceReport.AdmitUpload(context.Background(), reportID); err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(fmt.Sprintf("Report %d dismissed. The uploader heuristic no longer counts it.", reportID))
}

func commandFailures(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	limit := 10
	if len(c.Args()) > 0 {
		if n, err := strconv.Atoi(c.Args()[0]); err == nil && n > 0 {
			limit = n
		}
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	failures, err := serviceVoucher.GetRecentFailures(context.Background(), limit, 0)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if len(failures) == 0 {
		return c.Send("No extraction failures on file.")
	}

	msg := "Latest extraction failures:"
	for _, failure := range failures {
		msg += fmt.Sprintf("\n#%d user %d %s %s", failure.ID, failure.UserID, failure.Reason, failure.CreatedAt.Format("02 Jan 15:04"))
		if failure.SupportCode != nil {
			msg += fmt.Sprintf(" code %s", *failure.SupportCode)
		}
	}

	return c.Send(msg)
}

func commandDrift(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceLedger, err := do.Invoke[*services.ServiceLedger](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	drift, err := serviceLedger.FindLedgerDrift(context.Background())
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if len(drift) == 0 {
		return c.Send("Ledger healthy: every balance matches its transaction sum.")
	}

	msg := "⚠️ Ledger drift:"
	for _, row := range drift {
		msg += fmt.Sprintf("\nuser %d balance %d, transactions sum to %d", row.UserID, row.Balance, row.Sum)
	}

	return c.Send(msg)
}

func commandSweep(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	swept, err := serviceVoucher.SweepExpired(context.Background())
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(fmt.Sprintf("Swept %d expired vouchers off the shelf.", swept))
}

func commandBan(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	if len(c.Args()) < 1 {
		return c.Send("Usage: /ban <user id> [reason]")
	}

	userID, err := strconv.ParseInt(c.Args()[0], 10, 64)
	if err != nil {
		return c.Send("Usage: /ban <user id> [reason]")
	}

	reason := strings.Join(c.Args()[1:], " ")
	if reason == "" {
		reason = services.BAN_REASON_OPERATOR
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if err := serviceUser.BanUser(context.Background(), userID, reason); err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(fmt.Sprintf("User %d banned (%s).", userID, reason))
}

func commandUnban(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	if len(c.Args()) < 1 {
		return c.Send("Usage: /unban <user id>")
	}

	userID, err := strconv.ParseInt(c.Args()[0], 10, 64)
	if err != nil {
		return c.Send("Usage: /unban <user id>")
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if err := serviceUser.UnbanUser(context.Background(), userID); err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(fmt.Sprintf("User %d reinstated.", userID))
}

func commandRecount(c tele.Context) error {
	if !AuthRequire(c, adminChatIDs) {
		return nil
	}

	if len(c.Args()) < 1 {
		return c.Send("Usage: /recount <user id>")
	}

	userID, err := strconv.ParseInt(c.Args()[0], 10, 64)
	if err != nil {
		return c.Send("Usage: /recount <user id>")
	}

	injector, err := getContextContainer(c)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](injector)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	if err := serviceUser.RecountStats(context.Background(), userID); err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(fmt.Sprintf("Counters for user %d rebuilt from the store.", userID))
}
