package settlement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/platform/httpx"
)

// Handler exposes the settlement HTTP API.
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

// MountRoutes registers settlement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/calculate", h.calculate)
	r.Post("/", h.persist)
}

type settleRequest struct {
	OrgID      int64 `json:"org_id" validate:"required,gt=0"`
	PropertyID int64 `json:"property_id" validate:"required,gt=0"`
	Year       int   `json:"year" validate:"required,gte=2000,lte=2200"`
	ActorID    int64 `json:"actor_id" validate:"required,gt=0"`
}

type settleResponse struct {
	SettlementID     int64                `json:"settlement_id,omitempty"`
	PropertyID       int64                `json:"property_id"`
	Year             int                  `json:"year"`
	TotalExpenses    decimal.Decimal      `json:"total_expenses"`
	TotalReserve     decimal.Decimal      `json:"total_reserve"`
	TotalAssessments decimal.Decimal      `json:"total_assessments"`
	Owners           []ownerResultPayload `json:"owners"`
}

type ownerResultPayload struct {
	OwnerID     int64                      `json:"owner_id"`
	UnitID      int64                      `json:"unit_id"`
	Name        string                     `json:"name"`
	Share       decimal.Decimal            `json:"share"`
	Soll        decimal.Decimal            `json:"soll"`
	Ist         decimal.Decimal            `json:"ist"`
	Saldo       decimal.Decimal            `json:"saldo"`
	Reserve     decimal.Decimal            `json:"reserve"`
	Assessments decimal.Decimal            `json:"assessments"`
	Categories  map[string]decimal.Decimal `json:"categories"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CalculateInput, bool) {
	var req settleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return CalculateInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return CalculateInput{}, false
	}
	return CalculateInput{
		OrgID:      req.OrgID,
		PropertyID: req.PropertyID,
		Year:       req.Year,
		ActorID:    req.ActorID,
	}, true
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.service.Calculate(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(0, result))
}

func (h *Handler) persist(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	header, result, err := h.service.Persist(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(header.ID, result))
}

func toResponse(settlementID int64, result *Result) settleResponse {
	resp := settleResponse{
		SettlementID:     settlementID,
		PropertyID:       result.PropertyID,
		Year:             result.Year,
		TotalExpenses:    result.TotalExpenses,
		TotalReserve:     result.TotalReserve,
		TotalAssessments: result.TotalAssessments,
	}
	for _, owner := range result.Owners {
		resp.Owners = append(resp.Owners, ownerResultPayload{
			OwnerID:     owner.Owner.ID,
			UnitID:      owner.Owner.UnitID,
			Name:        owner.Owner.Name,
			Share:       owner.Owner.Share,
			Soll:        owner.Soll,
			Ist:         owner.Ist,
			Saldo:       owner.Saldo,
			Reserve:     owner.Reserve,
			Assessments: owner.Assessments,
			Categories:  owner.Categories,
		})
	}
	return resp
}
