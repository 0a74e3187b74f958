package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /payouts の出品者API。自分のストアの台帳しか見えない。
type PayoutHandler struct {
	payoutUC *usecase.PayoutUsecase
	storeUC  *usecase.StoreUsecase
}

// DI
func NewPayoutHandler(payoutUC *usecase.PayoutUsecase, storeUC *usecase.StoreUsecase) *PayoutHandler {
	return &PayoutHandler{payoutUC: payoutUC, storeUC: storeUC}
}

func (h *PayoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payouts")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("/balance", h.balance)
	g.GET("", h.list)
}

func (h *PayoutHandler) balance(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	store, err := h.storeUC.GetMyStore(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.payoutUC.Balance(c.Request().Context(), store.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PayoutHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	store, err := h.storeUC.GetMyStore(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.payoutUC.ListForStore(c.Request().Context(), store.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
