package handler

import (
	"vouchswap/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupVoucher struct {
	container *do.Injector
}

func (gr *groupVoucher) Availability(c echo.Context) error {
	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	counts, err := serviceVoucher.Availability(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, counts, nil)
}
