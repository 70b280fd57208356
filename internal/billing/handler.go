package billing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zinsbuch/zinsbuch/internal/platform/httpx"
	"github.com/zinsbuch/zinsbuch/internal/shared"
)

// Handler exposes the billing HTTP API.
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

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/runs", h.createRun)
	r.Post("/runs/preview", h.previewRun)
}

type runRequest struct {
	OrgID       int64   `json:"org_id" validate:"required,gt=0"`
	Year        int     `json:"year" validate:"required,gte=2000,lte=2200"`
	Month       int     `json:"month" validate:"required,gte=1,lte=12"`
	PropertyIDs []int64 `json:"property_ids" validate:"required,min=1,dive,gt=0"`
	ActorID     int64   `json:"actor_id" validate:"required,gt=0"`
	DryRun      bool    `json:"dry_run"`
}

func (h *Handler) decodeRun(w http.ResponseWriter, r *http.Request) (RunInput, bool) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return RunInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return RunInput{}, false
	}
	return RunInput{
		OrgID:       req.OrgID,
		Period:      shared.Period{Year: req.Year, Month: time.Month(req.Month)},
		PropertyIDs: req.PropertyIDs,
		ActorID:     req.ActorID,
		DryRun:      req.DryRun,
	}, true
}

type runResponse struct {
	RunID         int64          `json:"run_id,omitempty"`
	Reference     string         `json:"reference,omitempty"`
	Status        string         `json:"status,omitempty"`
	Inserted      int            `json:"inserted"`
	Skipped       int            `json:"skipped"`
	LineConflicts int            `json:"line_conflicts"`
	DryRun        bool           `json:"dry_run"`
	Summary       *runSummary    `json:"summary,omitempty"`
	Invoices      []draftPayload `json:"invoices,omitempty"`
}

type runSummary struct {
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

type draftPayload struct {
	PropertyID int64           `json:"property_id"`
	UnitID     int64           `json:"unit_id"`
	TenancyID  int64           `json:"tenancy_id,omitempty"`
	Period     string          `json:"period"`
	Total      decimal.Decimal `json:"total"`
	DueDate    string          `json:"due_date"`
	Vacancy    bool            `json:"vacancy"`
	Lines      []linePayload   `json:"lines"`
}

type linePayload struct {
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Net         decimal.Decimal `json:"net"`
	VatRate     decimal.Decimal `json:"vat_rate"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference,omitempty"`
}

func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeRun(w, r)
	if !ok {
		return
	}
	result, err := h.service.Run(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	resp := runResponse{
		Inserted:      result.Inserted,
		Skipped:       result.Skipped,
		LineConflicts: result.LineConflicts,
		DryRun:        result.DryRun,
		Summary:       summarize(result.Drafts),
		Invoices:      draftsToPayload(result.Drafts),
	}
	if result.Run != nil {
		resp.RunID = result.Run.ID
		resp.Reference = result.Run.Reference.String()
		resp.Status = string(result.Run.Status)
	}
	status := http.StatusCreated
	if result.DryRun {
		status = http.StatusOK
	}
	httpx.JSON(w, status, resp)
}

func (h *Handler) previewRun(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeRun(w, r)
	if !ok {
		return
	}
	drafts, err := h.service.Preview(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, runResponse{
		DryRun:   true,
		Summary:  summarize(drafts),
		Invoices: draftsToPayload(drafts),
	})
}

func summarize(drafts []Draft) *runSummary {
	if len(drafts) == 0 {
		return nil
	}
	s := &runSummary{Count: len(drafts), TotalAmount: decimal.Zero}
	for _, d := range drafts {
		s.TotalAmount = s.TotalAmount.Add(d.Invoice.Total)
		s.LineCount += len(d.Lines)
	}
	return s
}

func draftsToPayload(drafts []Draft) []draftPayload {
	if len(drafts) == 0 {
		return nil
	}
	out := make([]draftPayload, 0, len(drafts))
	for _, d := range drafts {
		p := draftPayload{
			PropertyID: d.Invoice.PropertyID,
			UnitID:     d.Invoice.UnitID,
			TenancyID:  d.Invoice.TenancyID,
			Period:     d.Invoice.Period.String(),
			Total:      d.Invoice.Total,
			DueDate:    d.Invoice.DueDate.Format("2006-01-02"),
			Vacancy:    d.Invoice.Vacancy,
		}
		for _, line := range d.Lines {
			p.Lines = append(p.Lines, linePayload{
				Type:        string(line.Type),
				Description: line.Description,
				Net:         line.Net,
				VatRate:     line.VatRate,
				Amount:      line.Amount,
				Reference:   line.Reference,
			})
		}
		out = append(out, p)
	}
	return out
}
