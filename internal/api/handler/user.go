package handler

import (
	"vouchswap/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupUser struct {
	container *do.Injector
}

// Me bootstraps the session: finds or creates the account behind the
// Telegram init data and issues the token the other routes accept.
func (gr *groupUser) Me(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	authentication, err := do.Invoke[*services.Authentication](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	token, err := authentication.CreateSessionToken(user)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"token": token,
		"user":  user,
	}, nil)
}

func (gr *groupUser) Transactions(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	limit, offset := pagination(c)

	transactions, err := serviceLedger.GetUserTransactions(ctx, user.ID, limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, transactions, nil)
}

// Vouchers lists the caller's claimed vouchers, or their uploads with
// ?kind=uploaded.
func (gr *groupUser) Vouchers(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	limit, offset := pagination(c)

	if c.QueryParam("kind") == "uploaded" {
		vouchers, err := serviceVoucher.GetUserUploads(ctx, user.ID, limit, offset)
		if err != nil {
			return httpx.RestAbort(c, nil, err)
		}
		return httpx.RestAbort(c, vouchers, nil)
	}

	vouchers, err := serviceVoucher.GetUserClaims(ctx, user.ID, limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, vouchers, nil)
}
