package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"app/internal/billing"

	"github.com/labstack/echo/v4"
)

// 署名ヘッダとボディ上限。プロバイダの推奨に合わせる。
const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 65536
)

// 署名検証済みイベントを処理する側の約束。
type webhookProcessor interface {
	HandleEvent(ctx context.Context, ev billing.Event) error
}

// /webhooks/billing のHTTP。認証はJWTではなく署名検証。
type WebhookHandler struct {
	client    billing.Client
	processor webhookProcessor
	log       *slog.Logger
}

// DI
func NewWebhookHandler(client billing.Client, processor webhookProcessor, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{client: client, processor: processor, log: log}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/billing", h.receive)
}

func (h *WebhookHandler) receive(c echo.Context) error {
	req := c.Request()

	payload, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
	}
	if len(payload) > maxWebhookBody {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "body too large"})
	}

	// 署名が検証できないものは処理せず400。プロバイダは再送しない。
	ev, err := h.client.VerifyWebhook(payload, req.Header.Get(signatureHeader))
	if err != nil {
		h.log.WarnContext(req.Context(), "webhook signature verification failed", "error", err.Error())
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid signature"})
	}

	// ここから先のエラーは5xx。プロバイダが同じイベントを再送してくる。
	if err := h.processor.HandleEvent(req.Context(), ev); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
