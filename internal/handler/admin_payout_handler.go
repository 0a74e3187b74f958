package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin 配下の支払い管理API。ADMINロールのみ。
type AdminPayoutHandler struct {
	payoutUC  *usecase.PayoutUsecase
	webhookUC *usecase.WebhookUsecase
}

// DI
func NewAdminPayoutHandler(payoutUC *usecase.PayoutUsecase, webhookUC *usecase.WebhookUsecase) *AdminPayoutHandler {
	return &AdminPayoutHandler{payoutUC: payoutUC, webhookUC: webhookUC}
}

func (h *AdminPayoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/admin")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.GET("/stores/:id/payouts", h.listForStore)
	g.POST("/stores/:id/payouts/mark-paid", h.markPaid)
	g.POST("/stores/:id/payouts/undo", h.undoLast)
	g.POST("/payouts/:id/mark-failed", h.markFailed)
	g.GET("/webhook-events/failed", h.listFailedEvents)
}

func (h *AdminPayoutHandler) listForStore(c echo.Context) error {
	storeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.payoutUC.ListForStore(c.Request().Context(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// markPaidはPENDING全件をひとつのバッチとしてPAIDへ倒す。
func (h *AdminPayoutHandler) markPaid(c echo.Context) error {
	storeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.payoutUC.MarkPaid(c.Request().Context(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// undoLastは直近のmark-paidバッチだけを取り消す。
func (h *AdminPayoutHandler) undoLast(c echo.Context) error {
	storeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.payoutUC.UndoLastPayout(c.Request().Context(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminPayoutHandler) markFailed(c echo.Context) error {
	payoutID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.payoutUC.MarkFailed(c.Request().Context(), payoutID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminPayoutHandler) listFailedEvents(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	out, err := h.webhookUC.ListFailedEvents(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
