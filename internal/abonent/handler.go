package abonent

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/platform/httpx"
)

// Handler manages registry endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers registry routes under /abonents.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{abonentID}", h.get)
	r.Put("/{abonentID}", h.update)
	r.Get("/{abonentID}/range", h.responsibilityRange)
	r.Get("/{abonentID}/ownership", h.ownership)
	r.Post("/{abonentID}/links", h.addLink)
	r.Delete("/{abonentID}/links/{linkID}", h.removeLink)
}

type abonentPayload struct {
	Account       string `json:"account" validate:"required"`
	FIO           string `json:"fio" validate:"required"`
	Address       string `json:"address"`
	Square        string `json:"square"`
	Rooms         int    `json:"rooms"`
	Share         string `json:"share"`
	PremiseRegnum string `json:"premise_regnum"`
	Moratorium    bool   `json:"moratorium"`
	CalcStart     string `json:"calc_start"`
	CalcEnd       string `json:"calc_end"`
}

type abonentResponse struct {
	ID            int64  `json:"id"`
	Account       string `json:"account"`
	FIO           string `json:"fio"`
	Address       string `json:"address,omitempty"`
	Square        string `json:"square"`
	Rooms         int    `json:"rooms,omitempty"`
	Share         string `json:"share,omitempty"`
	PremiseRegnum string `json:"premise_regnum,omitempty"`
	Moratorium    bool   `json:"moratorium"`
	CalcStart     string `json:"calc_start,omitempty"`
	CalcEnd       string `json:"calc_end,omitempty"`
}

func toResponse(a Abonent) abonentResponse {
	resp := abonentResponse{
		ID: a.ID, Account: a.Account, FIO: a.FIO, Address: a.Address,
		Square: a.Square.String(), Rooms: a.Rooms, Share: a.Share,
		PremiseRegnum: a.PremiseRegnum, Moratorium: a.Moratorium,
	}
	if !a.CalcStart.IsZero() {
		resp.CalcStart = calc.FormatISO(a.CalcStart)
	}
	if !a.CalcEnd.IsZero() {
		resp.CalcEnd = calc.FormatISO(a.CalcEnd)
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	abonents, err := h.service.ListAbonents(r.Context())
	if err != nil {
		h.logger.Error("list abonents", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]abonentResponse, 0, len(abonents))
	for _, a := range abonents {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"abonents": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetAbonent(r.Context(), id)
	if err != nil {
		h.respondError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	a, err := h.service.CreateAbonent(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "account number already in use")
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	if err := h.service.UpdateAbonent(r.Context(), id, in); err != nil {
		h.respondError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": id})
}

func (h *Handler) responsibilityRange(w http.ResponseWriter, r *http.Request) {
	id, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	rng, err := h.service.ResponsibilityRange(r.Context(), id)
	if err != nil {
		h.respondError(w, err, id)
		return
	}
	if rng == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"range": nil, "warning": "no responsibility range"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"range": map[string]string{
		"from": calc.FormatISO(rng.From),
		"to":   calc.FormatISO(rng.To),
	}})
}

func (h *Handler) ownership(w http.ResponseWriter, r *http.Request) {
	id, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	premise, links, err := h.service.PremiseHistory(r.Context(), id)
	if err != nil {
		h.respondError(w, err, id)
		return
	}
	type linkResponse struct {
		ID        int64  `json:"id"`
		AbonentID int64  `json:"abonent_id"`
		From      string `json:"from"`
		To        string `json:"to,omitempty"`
	}
	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		lr := linkResponse{ID: l.ID, AbonentID: l.AbonentID, From: calc.FormatISO(l.From)}
		if !l.Open() {
			lr.To = calc.FormatISO(l.To)
		}
		out = append(out, lr)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"premise": map[string]any{"regnum": premise.Regnum, "address": premise.Address, "square": premise.Square.String()},
		"links":   out,
	})
}

func (h *Handler) addLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Regnum string `json:"regnum" validate:"required"`
		From   string `json:"from" validate:"required"`
		To     string `json:"to"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := LinkInput{AbonentID: id, Regnum: payload.Regnum}
	var dateOK bool
	if in.From, dateOK = calc.ParseDateAny(payload.From); !dateOK {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unrecognized from date")
		return
	}
	if payload.To != "" {
		if in.To, dateOK = calc.ParseDateAny(payload.To); !dateOK {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unrecognized to date")
			return
		}
	}
	link, err := h.service.AddLink(r.Context(), in)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": link.ID})
}

func (h *Handler) removeLink(w http.ResponseWriter, r *http.Request) {
	linkID, err := strconv.ParseInt(chi.URLParam(r, "linkID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "link id must be numeric")
		return
	}
	if err := h.service.RemoveLink(r.Context(), linkID); err != nil {
		h.respondError(w, err, linkID)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": linkID})
}

func (h *Handler) abonentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "abonentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "abonent id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (AbonentInput, bool) {
	var payload abonentPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return AbonentInput{}, false
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return AbonentInput{}, false
	}
	in := AbonentInput{
		Account: payload.Account, FIO: payload.FIO, Address: payload.Address,
		Square: calc.ParseAmount(payload.Square), Rooms: payload.Rooms, Share: payload.Share,
		PremiseRegnum: payload.PremiseRegnum, Moratorium: payload.Moratorium,
	}
	if payload.CalcStart != "" {
		in.CalcStart, _ = calc.ParseDateAny(payload.CalcStart)
	}
	if payload.CalcEnd != "" {
		in.CalcEnd, _ = calc.ParseDateAny(payload.CalcEnd)
	}
	return in, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "abonent not found")
		return
	}
	if errors.Is(err, ErrDuplicateAccount) {
		httpx.Problem(w, http.StatusConflict, "Duplicate", "account number already in use")
		return
	}
	h.logger.Error("abonent request", slog.Any("error", err), slog.Int64("id", id))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
