package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkout と /subscriptions のHTTP
type CheckoutHandler struct {
	checkoutUC *usecase.CheckoutUsecase
	subUC      *usecase.SubscriptionUsecase
	storeUC    *usecase.StoreUsecase
}

// DI
func NewCheckoutHandler(
	checkoutUC *usecase.CheckoutUsecase,
	subUC *usecase.SubscriptionUsecase,
	storeUC *usecase.StoreUsecase,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutUC: checkoutUC,
		subUC:      subUC,
		storeUC:    storeUC,
	}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	co := e.Group("/checkout")
	co.Use(middleware.AuthJWT(cfg))
	co.POST("/session", h.createSession)

	sub := e.Group("/subscriptions")
	sub.Use(middleware.AuthJWT(cfg))
	sub.POST("/session", h.createSubscriptionSession)
	sub.GET("/me", h.getMySubscription)
	sub.DELETE("/me", h.cancelSubscription)
}

// createSessionはカートの中身で決済セッションを作る。
func (h *CheckoutHandler) createSession(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.checkoutUC.CreateSession(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// createSubscriptionSessionは出品プラン加入のセッションを作る。
func (h *CheckoutHandler) createSubscriptionSession(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.checkoutUC.CreateSubscriptionSession(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) getMySubscription(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	store, err := h.storeUC.GetMyStore(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.subUC.GetForStore(c.Request().Context(), store.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// cancelSubscriptionは期間末解約を予約する。即時停止ではない。
func (h *CheckoutHandler) cancelSubscription(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.checkoutUC.CancelSubscription(c.Request().Context(), userID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
