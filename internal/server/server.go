package server

import (
	"net/http"

	"app/internal/config"
	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// ルーティングに必要なhandler一式
type Handlers struct {
	Auth        *handler.AuthHandler
	Store       *handler.StoreHandler
	Listing     *handler.ListingHandler
	Cart        *handler.CartHandler
	Checkout    *handler.CheckoutHandler
	Payout      *handler.PayoutHandler
	AdminPayout *handler.AdminPayoutHandler
	Webhook     *handler.WebhookHandler
}

// New はechoを組み立てて返す。起動はしない。
func New(cfg config.Config, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FEURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Auth.RegisterRoutes(e)
	h.Store.RegisterRoutes(e, cfg)
	h.Listing.RegisterRoutes(e, cfg)
	h.Cart.RegisterRoutes(e, cfg)
	h.Checkout.RegisterRoutes(e, cfg)
	h.Payout.RegisterRoutes(e, cfg)
	h.AdminPayout.RegisterRoutes(e, cfg)
	h.Webhook.RegisterRoutes(e)

	return e
}

// Start は組み立てたechoで待ち受ける。
func Start(cfg config.Config, h Handlers) error {
	e := New(cfg, h)

	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}
	return e.Start(addr)
}
