package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /stores の出品者API
type StoreHandler struct {
	uc *usecase.StoreUsecase
}

// DI
func NewStoreHandler(uc *usecase.StoreUsecase) *StoreHandler {
	return &StoreHandler{uc: uc}
}

type CreateStoreRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *StoreHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/stores")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.create)
	g.GET("/me", h.getMine)
}

func (h *StoreHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CreateStoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreateStore(c.Request().Context(), userID, usecase.CreateStoreInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *StoreHandler) getMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.GetMyStore(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
