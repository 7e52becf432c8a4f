package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/platform/httpx"
)

var errDateFormat = errors.New("unrecognized date format")

// Handler manages ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes under /abonents/{abonentID}/ledger.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRows)
	r.Post("/", h.createRow)
	r.Put("/{rowID}", h.updateRow)
	r.Delete("/{rowID}", h.deleteRow)
	r.Post("/import", h.importXLSX)
}

type rowPayload struct {
	Year       int    `json:"year" validate:"required,gte=1990,lte=2100"`
	Month      int    `json:"month" validate:"required,gte=1,lte=12"`
	Accrued    string `json:"accrued"`
	Paid       string `json:"paid"`
	PaidDate   string `json:"paid_date"`
	UsePeriod  bool   `json:"use_period"`
	PeriodFrom string `json:"period_from"`
	PeriodTo   string `json:"period_to"`
	Note       string `json:"note"`
}

type rowResponse struct {
	ID         int64     `json:"id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Accrued    string    `json:"accrued"`
	Paid       string    `json:"paid"`
	PaidDate   string    `json:"paid_date,omitempty"`
	UsePeriod  bool      `json:"use_period"`
	PeriodFrom string    `json:"period_from,omitempty"`
	PeriodTo   string    `json:"period_to,omitempty"`
	Source     RowSource `json:"source"`
	Note       string    `json:"note,omitempty"`
	Locked     bool      `json:"locked"`
}

func toResponse(row Row) rowResponse {
	resp := rowResponse{
		ID: row.ID, Year: row.Year, Month: row.Month,
		Accrued: row.Accrued.StringFixed(2), Paid: row.Paid.StringFixed(2),
		UsePeriod: row.UsePeriod, PeriodFrom: row.PeriodFrom, PeriodTo: row.PeriodTo,
		Source: row.Source, Note: row.Note, Locked: row.Locked,
	}
	if !row.PaidDate.IsZero() {
		resp.PaidDate = calc.FormatISO(row.PaidDate)
	}
	return resp
}

func (h *Handler) listRows(w http.ResponseWriter, r *http.Request) {
	abonentID, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	rows, err := h.service.ListRows(r.Context(), abonentID)
	if err != nil {
		h.logger.Error("list ledger rows", slog.Any("error", err), slog.Int64("abonent_id", abonentID))
		httpx.RespondError(w, err)
		return
	}
	out := make([]rowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toResponse(row))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": out})
}

func (h *Handler) createRow(w http.ResponseWriter, r *http.Request) {
	abonentID, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	var payload rowPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := h.toInput(abonentID, payload)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	row, err := h.service.CreateRow(r.Context(), in)
	if err != nil {
		h.logger.Error("create ledger row", slog.Any("error", err), slog.Int64("abonent_id", abonentID))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(row))
}

func (h *Handler) updateRow(w http.ResponseWriter, r *http.Request) {
	abonentID, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	rowID, err := strconv.ParseInt(chi.URLParam(r, "rowID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "row id must be numeric")
		return
	}
	var payload rowPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := h.toInput(abonentID, payload)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateRow(r.Context(), rowID, in); err != nil {
		h.respondMutationError(w, err, rowID)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": rowID})
}

func (h *Handler) deleteRow(w http.ResponseWriter, r *http.Request) {
	rowID, err := strconv.ParseInt(chi.URLParam(r, "rowID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "row id must be numeric")
		return
	}
	if err := h.service.DeleteRow(r.Context(), rowID); err != nil {
		h.respondMutationError(w, err, rowID)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": rowID})
}

// importXLSX accepts a workbook upload and replaces the account's
// imported rows with its contents.
func (h *Handler) importXLSX(w http.ResponseWriter, r *http.Request) {
	abonentID, ok := h.abonentID(w, r)
	if !ok {
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "multipart field 'file' required")
		return
	}
	defer func() { _ = file.Close() }()

	inputs, result, err := ParseXLSX(abonentID, file)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Workbook", err.Error())
		return
	}
	result.BatchID = uuid.NewString()
	if err := h.service.ReplaceImported(r.Context(), abonentID, inputs); err != nil {
		h.logger.Error("import ledger rows", slog.Any("error", err), slog.Int64("abonent_id", abonentID))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("ledger import",
		slog.Int64("abonent_id", abonentID),
		slog.String("batch_id", result.BatchID),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) abonentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "abonentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "abonent id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) toInput(abonentID int64, payload rowPayload) (RowInput, error) {
	in := RowInput{
		AbonentID:  abonentID,
		Year:       payload.Year,
		Month:      payload.Month,
		Accrued:    calc.ParseAmount(payload.Accrued),
		Paid:       calc.ParseAmount(payload.Paid),
		UsePeriod:  payload.UsePeriod,
		PeriodFrom: payload.PeriodFrom,
		PeriodTo:   payload.PeriodTo,
		Note:       payload.Note,
	}
	if payload.PaidDate != "" {
		d, ok := calc.ParseDateAny(payload.PaidDate)
		if !ok {
			return RowInput{}, errDateFormat
		}
		in.PaidDate = d
	}
	return in, nil
}

func (h *Handler) respondMutationError(w http.ResponseWriter, err error, rowID int64) {
	switch {
	case errors.Is(err, ErrLocked):
		httpx.Problem(w, http.StatusConflict, "Row Locked", "imported rows cannot be changed")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "ledger row not found")
	default:
		h.logger.Error("mutate ledger row", slog.Any("error", err), slog.Int64("row_id", rowID))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
