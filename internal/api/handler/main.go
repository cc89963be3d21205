package handler

import (
	"net/http"
	"strconv"

	"vouchswap/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container   *do.Injector
	Mode        string
	Origins     []string
	AdminAPIKey string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == services.SERVER_MODE_DEVELOPMENT {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🎟")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		bot, err := do.Invoke[*services.Bot](cfg.Container)
		if err != nil {
			return nil, err
		}
		authentication, err := do.Invoke[*services.Authentication](cfg.Container)
		if err != nil {
			return nil, err
		}
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPIv1.Use(cors)

		routesAPIv1Me := routesAPIv1.Group("/user/me")
		routesAPIv1Me.Use(AuthnInitData(bot))
		{
			u := groupUser{cfg.Container}
			routesAPIv1Me.GET("", u.Me)
		}

		routesAPIv1.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated requests.
		routesAPIv1.GET("", Hello)

		v := groupVoucher{cfg.Container}
		routesAPIv1.GET("/vouchers/availability", v.Availability)

		routesAPIv1User := routesAPIv1.Group("/user")
		{
			u := groupUser{cfg.Container}
			routesAPIv1User.GET("/transactions", u.Transactions)
			routesAPIv1User.GET("/vouchers", u.Vouchers)
		}

		routesAPIv1Admin := routesAPIv1.Group("/admin")
		{
			routesAPIv1Admin.Use(AuthnAdmin(cfg.AdminAPIKey))
			a := groupAdmin{cfg.Container}
			routesAPIv1Admin.GET("/reports", a.Reports)
			routesAPIv1Admin.POST("/reports/:id/admit", a.AdmitReport)
			routesAPIv1Admin.GET("/failures", a.Failures)
			routesAPIv1Admin.GET("/failures/:code", a.FailureByCode)
			routesAPIv1Admin.GET("/configs", a.Configs)
			routesAPIv1Admin.GET("/users", a.Users)
			routesAPIv1Admin.POST("/users/:id/ban", a.BanUser)
			routesAPIv1Admin.POST("/users/:id/unban", a.UnbanUser)
			routesAPIv1Admin.POST("/users/:id/recount", a.RecountUser)
			routesAPIv1Admin.GET("/users/:id/ledger", a.UserLedger)
			routesAPIv1Admin.GET("/ledger/verify", a.LedgerVerify)
			routesAPIv1Admin.GET("/vouchers", a.Vouchers)
			routesAPIv1Admin.POST("/vouchers/:id/release", a.ReleaseVoucher)
			routesAPIv1Admin.POST("/sweep", a.Sweep)
		}
	}

	return r, nil
}

func Hello(c echo.Context) error {
	return httpx.RestAbort(c, "hello world", nil)
}

func pagination(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
