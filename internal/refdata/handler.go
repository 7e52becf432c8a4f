package refdata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/platform/httpx"
)

// Handler manages reference-data endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reference-data routes under /refdata.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rates", h.listRates)
	r.Post("/rates", h.addRate)
	r.Delete("/rates/{id}", h.removeRate)
	r.Get("/exclusions", h.listExclusions)
	r.Post("/exclusions", h.addExclusion)
	r.Delete("/exclusions/{id}", h.removeExclusion)
	r.Get("/tariffs", h.listTariffs)
	r.Post("/tariffs", h.addTariff)
	r.Delete("/tariffs/{id}", h.removeTariff)
	r.Get("/charges", h.listCharges)
	r.Post("/charges", h.addCharge)
	r.Delete("/charges/{id}", h.removeCharge)
}

func (h *Handler) listRates(w http.ResponseWriter, r *http.Request) {
	kind := RateKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = RateNormal
	}
	rates, err := h.service.ListRates(r.Context(), kind)
	if err != nil {
		h.logger.Error("list rates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type rateResponse struct {
		ID   int64  `json:"id"`
		From string `json:"from"`
		Rate string `json:"rate"`
	}
	out := make([]rateResponse, 0, len(rates))
	for _, rate := range rates {
		out = append(out, rateResponse{ID: rate.ID, From: calc.FormatISO(rate.From), Rate: rate.Rate.String()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"kind": kind, "rates": out})
}

func (h *Handler) addRate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind string `json:"kind"`
		From string `json:"from"`
		Rate string `json:"rate"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	from, ok := calc.ParseDateAny(payload.From)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unrecognized from date")
		return
	}
	kind := RateKind(payload.Kind)
	if kind == "" {
		kind = RateNormal
	}
	id, err := h.service.AddRate(r.Context(), RefinancingRate{
		Kind: kind, From: from, Rate: calc.ParseAmount(payload.Rate),
	})
	if err != nil {
		h.logger.Error("add rate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) removeRate(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.RemoveRate)
}

func (h *Handler) listExclusions(w http.ResponseWriter, r *http.Request) {
	abonentID, _ := strconv.ParseInt(r.URL.Query().Get("abonent_id"), 10, 64)
	periods, err := h.service.ListExclusions(r.Context(), abonentID)
	if err != nil {
		h.logger.Error("list exclusions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type exclusionResponse struct {
		ID        int64  `json:"id"`
		AbonentID int64  `json:"abonent_id,omitempty"`
		From      string `json:"from"`
		To        string `json:"to"`
		Reason    string `json:"reason,omitempty"`
	}
	out := make([]exclusionResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, exclusionResponse{
			ID: p.ID, AbonentID: p.AbonentID,
			From: calc.FormatISO(p.From), To: calc.FormatISO(p.To),
			Reason: p.Reason,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"exclusions": out})
}

func (h *Handler) addExclusion(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AbonentID int64  `json:"abonent_id"`
		From      string `json:"from"`
		To        string `json:"to"`
		Reason    string `json:"reason"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	from, okFrom := calc.ParseDateAny(payload.From)
	to, okTo := calc.ParseDateAny(payload.To)
	if !okFrom || !okTo || to.Before(from) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "exclusion requires a valid from..to range")
		return
	}
	id, err := h.service.AddExclusion(r.Context(), ExcludedPeriod{
		AbonentID: payload.AbonentID, From: from, To: to, Reason: payload.Reason,
	})
	if err != nil {
		h.logger.Error("add exclusion", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) removeExclusion(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.RemoveExclusion)
}

func (h *Handler) listTariffs(w http.ResponseWriter, r *http.Request) {
	tariffs, fallback, err := h.service.TariffSchedule(r.Context())
	if err != nil {
		h.logger.Error("list tariffs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type tariffResponse struct {
		ID      int64  `json:"id,omitempty"`
		From    string `json:"from"`
		Content string `json:"content"`
		Repair  string `json:"repair"`
	}
	out := make([]tariffResponse, 0, len(tariffs))
	for _, t := range tariffs {
		out = append(out, tariffResponse{
			ID: t.ID, From: calc.FormatISO(t.From),
			Content: t.Content.String(), Repair: t.Repair.String(),
		})
	}
	resp := map[string]any{"tariffs": out}
	if fallback {
		resp["warning"] = "no tariff schedule stored, showing defaults"
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) addTariff(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		From    string `json:"from"`
		Content string `json:"content"`
		Repair  string `json:"repair"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	from, ok := calc.ParseDateAny(payload.From)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unrecognized from date")
		return
	}
	id, err := h.service.AddTariff(r.Context(), Tariff{
		From: from, Content: calc.ParseAmount(payload.Content), Repair: calc.ParseAmount(payload.Repair),
	})
	if err != nil {
		h.logger.Error("add tariff", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) removeTariff(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.RemoveTariff)
}

func (h *Handler) listCharges(w http.ResponseWriter, r *http.Request) {
	charges, err := h.service.FixedCharges(r.Context())
	if err != nil {
		h.logger.Error("list charges", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type rateResponse struct {
		From  string `json:"from"`
		Value string `json:"value"`
	}
	type chargeResponse struct {
		ID     int64          `json:"id"`
		Title  string         `json:"title"`
		Active bool           `json:"active"`
		Rates  []rateResponse `json:"rates"`
	}
	out := make([]chargeResponse, 0, len(charges))
	for _, c := range charges {
		cr := chargeResponse{ID: c.ID, Title: c.Title, Active: c.Active, Rates: []rateResponse{}}
		for _, rate := range c.Rates {
			cr.Rates = append(cr.Rates, rateResponse{From: calc.FormatISO(rate.From), Value: rate.Value.String()})
		}
		out = append(out, cr)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"charges": out})
}

func (h *Handler) addCharge(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title  string `json:"title"`
		Active *bool  `json:"active"`
		Rates  []struct {
			From  string `json:"from"`
			Value string `json:"value"`
		} `json:"rates"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if payload.Title == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "charge title required")
		return
	}
	charge := FixedCharge{Title: payload.Title, Active: true}
	if payload.Active != nil {
		charge.Active = *payload.Active
	}
	for _, rate := range payload.Rates {
		from, ok := calc.ParseDateAny(rate.From)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unrecognized rate from date")
			return
		}
		charge.Rates = append(charge.Rates, FixedChargeRate{From: from, Value: calc.ParseAmount(rate.Value)})
	}
	id, err := h.service.AddFixedCharge(r.Context(), charge)
	if err != nil {
		h.logger.Error("add charge", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) removeCharge(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.RemoveFixedCharge)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
