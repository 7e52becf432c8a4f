package debt

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/platform/httpx"
)

// Handler serves the calculation endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers calculation routes under /abonents.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{abonentID}/totals", h.totals)
	r.Get("/{abonentID}/penalty-breakdown", h.penaltyBreakdown)
	r.Get("/{abonentID}/card", h.card)
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	opts := calc.Options{
		ApplyAdvanceOffset:     true,
		AllowNegativePrincipal: r.URL.Query().Get("allow_negative") == "1",
	}
	totals, err := h.service.Totals(r.Context(), id, asOf, opts)
	if err != nil {
		h.respondError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"abonent_id":            id,
		"as_of":                 calc.FormatISO(asOf),
		"principal":             totals.Principal.StringFixed(2),
		"penalty_debt":          totals.PenaltyDebt.StringFixed(2),
		"total":                 totals.Total.StringFixed(2),
		"penalty_accrued_total": totals.PenaltyAccruedTotal.StringFixed(2),
		"advance":               totals.AdvanceUpTo.StringFixed(2),
	})
}

func (h *Handler) penaltyBreakdown(w http.ResponseWriter, r *http.Request) {
	id, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	byMonth, err := h.service.PenaltyBreakdown(r.Context(), id, asOf)
	if err != nil {
		h.respondError(w, err, id)
		return
	}
	out := make(map[string]string, len(byMonth))
	for key, amount := range byMonth {
		out[key] = amount.StringFixed(2)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"abonent_id": id,
		"as_of":      calc.FormatISO(asOf),
		"by_month":   out,
	})
}

type cardRowResponse struct {
	ID         int64  `json:"id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Accrued    string `json:"accrued"`
	Paid       string `json:"paid"`
	PaidDate   string `json:"paid_date,omitempty"`
	AsOf       string `json:"as_of"`
	PayMain    string `json:"pay_main"`
	PayPenalty string `json:"pay_penalty"`
	TotalDebt  string `json:"total_debt"`
}

func (h *Handler) card(w http.ResponseWriter, r *http.Request) {
	id, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	rows, err := h.service.CardRows(r.Context(), id)
	if err != nil {
		h.respondError(w, err, id)
		return
	}
	out := make([]cardRowResponse, 0, len(rows))
	for _, cr := range rows {
		resp := cardRowResponse{
			ID:         cr.Row.ID,
			Year:       cr.Row.Year,
			Month:      cr.Row.Month,
			Accrued:    cr.Row.Accrued.StringFixed(2),
			Paid:       cr.Row.Paid.StringFixed(2),
			AsOf:       calc.FormatISO(cr.AsOf),
			PayMain:    cr.PayMain.StringFixed(2),
			PayPenalty: cr.PayPenalty.StringFixed(2),
			TotalDebt:  cr.TotalDebt.StringFixed(2),
		}
		if !cr.Row.PaidDate.IsZero() {
			resp.PaidDate = calc.FormatISO(cr.Row.PaidDate)
		}
		out = append(out, resp)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"abonent_id": id, "rows": out})
}

func (h *Handler) abonentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "abonentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "abonent id must be numeric")
		return 0, false
	}
	return id, true
}

// asOf reads the as_of query parameter, defaulting to today.
func (h *Handler) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return calc.DayStart(time.Now()), true
	}
	asOf, ok := calc.ParseDateAny(raw)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unrecognized as_of date")
		return time.Time{}, false
	}
	return asOf, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, abonent.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "abonent not found")
		return
	}
	h.logger.Error("debt request", slog.Any("error", err), slog.Int64("abonent_id", id))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
