package handler

import (
	"strconv"

	"vouchswap/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupAdmin struct {
	container *do.Injector
}

type BanPayload struct {
	Reason string `json:"reason"`
}

func (gr *groupAdmin) Reports(c echo.Context) error {
	serviceReport, err := do.Invoke[*services.ServiceReport](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	limit, offset := pagination(c)

	reports, err := serviceReport.GetRecentReports(c.Request().Context(), limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, reports, nil)
}

func (gr *groupAdmin) AdmitReport(c echo.Context) error {
	reportID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceReport, err := do.Invoke[*services.ServiceReport](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if err := serviceReport.AdmitUpload(c.Request().Context(), reportID); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{"admitted": reportID}, nil)
}

func (gr *groupAdmin) Failures(c echo.Context) error {
	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	limit, offset := pagination(c)

	failures, err := serviceVoucher.GetRecentFailures(c.Request().Context(), limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, failures, nil)
}

// FailureByCode resolves the support code a user quoted in a ticket back
// to its triage row.
func (gr *groupAdmin) FailureByCode(c echo.Context) error {
	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	failure, err := serviceVoucher.FailureBySupportCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, failure, nil)
}

func (gr *groupAdmin) Configs(c echo.Context) error {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	configs, err := serviceConfig.AllConfigs(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, configs, nil)
}

func (gr *groupAdmin) Users(c echo.Context) error {
	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	limit, offset := pagination(c)

	users, total, err := serviceUser.GetUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"users": users,
		"total": total,
	}, nil)
}

func (gr *groupAdmin) BanUser(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	var payload BanPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}
	if payload.Reason == "" {
		payload.Reason = services.BAN_REASON_OPERATOR
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if err := serviceUser.BanUser(c.Request().Context(), userID, payload.Reason); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{"banned": userID}, nil)
}

func (gr *groupAdmin) UnbanUser(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if err := serviceUser.UnbanUser(c.Request().Context(), userID); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{"unbanned": userID}, nil)
}

func (gr *groupAdmin) RecountUser(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if err := serviceUser.RecountStats(c.Request().Context(), userID); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{"recounted": userID}, nil)
}

// LedgerVerify cross-checks stored balances against transaction sums.
// An empty drift list is the healthy state.
func (gr *groupAdmin) LedgerVerify(c echo.Context) error {
	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	drift, err := serviceLedger.FindLedgerDrift(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"healthy": len(drift) == 0,
		"drift":   drift,
	}, nil)
}

// UserLedger runs the same cross-check for a single user, cheap enough
// for support triage.
func (gr *groupAdmin) UserLedger(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	drift, err := serviceLedger.VerifyUserLedger(c.Request().Context(), userID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"healthy": drift == nil,
		"drift":   drift,
	}, nil)
}

func (gr *groupAdmin) Vouchers(c echo.Context) error {
	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	limit, offset := pagination(c)

	vouchers, err := serviceVoucher.GetVouchers(c.Request().Context(), limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, vouchers, nil)
}

// ReleaseVoucher puts a claimed voucher back on the shelf without moving
// coins, for claims resolved off the record.
func (gr *groupAdmin) ReleaseVoucher(c echo.Context) error {
	voucherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if err := serviceVoucher.ReleaseClaim(c.Request().Context(), voucherID); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{"released": voucherID}, nil)
}

func (gr *groupAdmin) Sweep(c echo.Context) error {
	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	swept, err := serviceVoucher.SweepExpired(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{"swept": swept}, nil)
}
