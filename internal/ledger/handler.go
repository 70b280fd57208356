package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zinsbuch/zinsbuch/internal/platform/httpx"
)

// Handler exposes the ledger HTTP API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/checks", h.dailyChecks)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), q)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) dailyChecks(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(r.URL.Query().Get("org_id"), 10, 64)
	if err != nil || orgID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "org_id must be a positive integer")
		return
	}
	report, err := h.service.DailyChecks(r.Context(), orgID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request) (Query, bool) {
	values := r.URL.Query()
	orgID, err := strconv.ParseInt(values.Get("org_id"), 10, 64)
	if err != nil || orgID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "org_id must be a positive integer")
		return Query{}, false
	}
	q := Query{OrgID: orgID}
	if raw := values.Get("property_id"); raw != "" {
		propertyID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || propertyID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "property_id must be a positive integer")
			return Query{}, false
		}
		q.PropertyID = propertyID
	}
	for param, target := range map[string]**time.Time{"from": &q.From, "to": &q.To} {
		if raw := values.Get(param); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Invalid payload", param+" must be YYYY-MM-DD")
				return Query{}, false
			}
			*target = &parsed
		}
	}
	return q, true
}
