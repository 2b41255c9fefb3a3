package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sweet-shop/internal/api/dto"
	"github.com/spec-kit/sweet-shop/internal/domain"
	"github.com/spec-kit/sweet-shop/internal/repository"
	"github.com/spec-kit/sweet-shop/internal/service"
	apperrors "github.com/spec-kit/sweet-shop/pkg/util/errorutil"
)

// SweetsHandler manages catalog endpoints.
type SweetsHandler struct {
	service   *service.SweetService
	validator *Validator
}

// NewSweetsHandler constructs handler.
func NewSweetsHandler(sweetService *service.SweetService, validator *Validator) *SweetsHandler {
	return &SweetsHandler{service: sweetService, validator: validator}
}

// List GET /sweets.
func (h *SweetsHandler) List(c *fiber.Ctx) error {
	filter, err := parseSweetQuery(c)
	if err != nil {
		return err
	}
	sweets, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSweetListResponse(sweets))
}

// Create POST /sweets.
func (h *SweetsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSweetRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}

	sweet, err := h.service.Create(c.UserContext(), service.SweetInput{
		Name:     req.Name,
		Category: req.Category,
		Price:    *req.Price,
		Quantity: *req.Quantity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewSweetResponse(sweet))
}

// Update PUT /sweets/:id.
func (h *SweetsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateSweetRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}
	if req.Quantity != nil {
		return apperrors.NewValidationError("quantity can only change through purchase or restock", map[string]any{"field": "quantity"})
	}

	sweet, err := h.service.Update(c.UserContext(), c.Params("id"), domain.SweetPatch{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSweetResponse(sweet))
}

// Delete DELETE /sweets/:id.
func (h *SweetsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "sweet deleted"})
}

// Purchase POST /sweets/:id/purchase.
func (h *SweetsHandler) Purchase(c *fiber.Ctx) error {
	var req dto.StockChangeRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}
	sweet, err := h.service.Purchase(c.UserContext(), c.Params("id"), *req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSweetResponse(sweet))
}

// Restock POST /sweets/:id/restock.
func (h *SweetsHandler) Restock(c *fiber.Ctx) error {
	var req dto.StockChangeRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}
	sweet, err := h.service.Restock(c.UserContext(), c.Params("id"), *req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSweetResponse(sweet))
}

func parseSweetQuery(c *fiber.Ctx) (repository.SweetFilter, error) {
	var filter repository.SweetFilter
	if v := strings.TrimSpace(c.Query("category")); v != "" {
		filter.Category = &v
	}
	if v := strings.TrimSpace(c.Query("name")); v != "" {
		filter.Name = &v
	}
	for key, dst := range map[string]**float64{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, apperrors.NewValidationError(key+" must be a number", map[string]any{"field": key})
		}
		*dst = &value
	}
	return filter, nil
}
