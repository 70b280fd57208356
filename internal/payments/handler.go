package payments

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/platform/httpx"
)

// Handler exposes the payment allocation HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/allocations", h.allocate)
}

type allocateRequest struct {
	OrgID     int64           `json:"org_id" validate:"required,gt=0"`
	PaymentID int64           `json:"payment_id" validate:"omitempty,gt=0"`
	TenantID  int64           `json:"tenant_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	BookedAt  string          `json:"booked_at" validate:"omitempty,datetime=2006-01-02"`
	ActorID   int64           `json:"actor_id" validate:"required,gt=0"`
	Strategy  string          `json:"strategy" validate:"omitempty,oneof=fifo component"`
}

type allocateResponse struct {
	Applied     decimal.Decimal     `json:"applied"`
	Unapplied   decimal.Decimal     `json:"unapplied"`
	Allocations []allocationPayload `json:"allocations"`
}

type allocationPayload struct {
	ID         int64            `json:"id"`
	InvoiceID  int64            `json:"invoice_id"`
	Amount     decimal.Decimal  `json:"amount"`
	Kind       string           `json:"kind"`
	Components []ComponentShare `json:"components,omitempty"`
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	in := AllocateInput{
		OrgID:     req.OrgID,
		PaymentID: req.PaymentID,
		TenantID:  req.TenantID,
		Amount:    req.Amount,
		ActorID:   req.ActorID,
		Strategy:  Strategy(req.Strategy),
	}
	if req.BookedAt != "" {
		booked, err := time.Parse("2006-01-02", req.BookedAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "booked_at must be YYYY-MM-DD")
			return
		}
		in.BookedAt = booked
	}

	result, err := h.service.Allocate(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	resp := allocateResponse{
		Applied:   result.Applied,
		Unapplied: result.Unapplied,
	}
	for _, alloc := range result.Allocations {
		resp.Allocations = append(resp.Allocations, allocationPayload{
			ID:         alloc.ID,
			InvoiceID:  alloc.InvoiceID,
			Amount:     alloc.Amount,
			Kind:       string(alloc.Kind),
			Components: alloc.Components,
		})
	}
	httpx.JSON(w, http.StatusCreated, resp)
}
