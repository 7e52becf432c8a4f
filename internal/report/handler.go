package report

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/calc"
	"github.com/abonbill/abonbill/internal/platform/httpx"
)

// Handler serves certificate and requisites endpoints.
type Handler struct {
	logger     *slog.Logger
	builder    *Builder
	requisites *RequisitesService
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, builder *Builder, requisites *RequisitesService) *Handler {
	return &Handler{logger: logger, builder: builder, requisites: requisites}
}

// MountRoutes registers report routes under /report.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/court/{abonentID}", h.court)
	r.Get("/requisites", h.getRequisites)
	r.Put("/requisites", h.putRequisites)
	r.Get("/signers", h.listSigners)
	r.Put("/signers", h.putSigners)
}

func (h *Handler) court(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "abonentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "abonent id must be numeric")
		return
	}
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		var ok bool
		if from, ok = calc.ParseDateAny(raw); !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unrecognized from date")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		var ok bool
		if to, ok = calc.ParseDateAny(raw); !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unrecognized to date")
			return
		}
	}

	cert, err := h.builder.Build(r.Context(), id, from, to)
	if err != nil {
		if errors.Is(err, abonent.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "abonent not found")
			return
		}
		h.logger.Error("build certificate", slog.Any("error", err), slog.Int64("abonent_id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		httpx.JSON(w, http.StatusOK, certificateResponse(cert))
	case "pdf":
		data, err := RenderPDF(cert)
		if err != nil {
			h.logger.Error("render certificate pdf", slog.Any("error", err), slog.Int64("abonent_id", id))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="spravka_%d.pdf"`, id))
		_, _ = w.Write(data)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=windows-1251")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="spravka_%d.csv"`, id))
		if err := WriteCSV(w, cert); err != nil {
			h.logger.Error("render certificate csv", slog.Any("error", err), slog.Int64("abonent_id", id))
		}
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "format must be json, pdf or csv")
	}
}

func certificateResponse(cert Certificate) map[string]any {
	rows := make([]map[string]any, 0, len(cert.Rows))
	for _, row := range cert.Rows {
		rows = append(rows, map[string]any{
			"period":             row.PeriodLabel,
			"year":               row.Year,
			"month":              row.Month,
			"accrued":            money(row.Accrued),
			"paid":               money(row.Paid),
			"paid_date":          row.PaidDate,
			"month_debt_main":    money(row.MonthDebtMain),
			"month_debt_penalty": money(row.MonthDebtPenalty),
			"month_debt_total":   money(row.MonthDebtTotal),
		})
	}
	return map[string]any{
		"organization": map[string]string{
			"full_name":      cert.Requisites.FullName,
			"short_name":     cert.Requisites.ShortName,
			"form":           cert.Requisites.Form,
			"inn":            cert.Requisites.INN,
			"ogrn":           cert.Requisites.OGRN,
			"legal_address":  cert.Requisites.LegalAddress,
			"postal_address": cert.Requisites.PostalAddress,
			"phone":          cert.Requisites.Phone,
			"email":          cert.Requisites.Email,
		},
		"signer": map[string]string{
			"fio":      cert.Signer.FIO,
			"position": cert.Signer.Position,
			"basis":    cert.Signer.Basis,
		},
		"abonent": map[string]any{
			"account": cert.Account,
			"fio":     cert.FIO,
			"address": cert.Address,
			"square":  cert.Square,
			"rooms":   cert.Rooms,
			"share":   cert.Share,
		},
		"period_from": calc.FormatISO(cert.PeriodFrom),
		"period_to":   calc.FormatISO(cert.PeriodTo),
		"state_date":  calc.FormatISO(cert.StateDate),
		"doc_date":    calc.FormatISO(cert.DocDate),
		"rows":        rows,
		"sum_accrued": money(cert.SumAccrued),
		"sum_paid":    money(cert.SumPaid),
		"totals": map[string]string{
			"principal":    money(cert.Totals.Principal),
			"penalty_debt": money(cert.Totals.PenaltyDebt),
			"total":        money(cert.Totals.Total),
		},
	}
}

type requisitesPayload struct {
	FullName      string `json:"full_name"`
	ShortName     string `json:"short_name"`
	Form          string `json:"form"`
	INN           string `json:"inn"`
	OGRN          string `json:"ogrn"`
	LegalAddress  string `json:"legal_address"`
	PostalAddress string `json:"postal_address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

func (h *Handler) getRequisites(w http.ResponseWriter, r *http.Request) {
	req, err := h.requisites.Requisites(r.Context())
	if err != nil {
		h.logger.Error("load requisites", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, requisitesPayload{
		FullName: req.FullName, ShortName: req.ShortName, Form: req.Form,
		INN: req.INN, OGRN: req.OGRN, LegalAddress: req.LegalAddress,
		PostalAddress: req.PostalAddress, Phone: req.Phone, Email: req.Email,
	})
}

func (h *Handler) putRequisites(w http.ResponseWriter, r *http.Request) {
	var payload requisitesPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	req := Requisites{
		FullName: payload.FullName, ShortName: payload.ShortName, Form: payload.Form,
		INN: payload.INN, OGRN: payload.OGRN, LegalAddress: payload.LegalAddress,
		PostalAddress: payload.PostalAddress, Phone: payload.Phone, Email: payload.Email,
	}
	if err := h.requisites.SaveRequisites(r.Context(), req); err != nil {
		h.logger.Error("save requisites", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"saved": true})
}

type signerPayload struct {
	FIO       string `json:"fio"`
	Position  string `json:"position"`
	Basis     string `json:"basis"`
	IsDefault bool   `json:"is_default"`
	Active    bool   `json:"active"`
}

func (h *Handler) listSigners(w http.ResponseWriter, r *http.Request) {
	signers, err := h.requisites.ListSigners(r.Context())
	if err != nil {
		h.logger.Error("list signers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]signerPayload, 0, len(signers))
	for _, s := range signers {
		out = append(out, signerPayload{FIO: s.FIO, Position: s.Position, Basis: s.Basis, IsDefault: s.IsDefault, Active: s.Active})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"signers": out})
}

func (h *Handler) putSigners(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Signers []signerPayload `json:"signers"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	signers := make([]Signer, 0, len(payload.Signers))
	for _, s := range payload.Signers {
		signers = append(signers, Signer{FIO: s.FIO, Position: s.Position, Basis: s.Basis, IsDefault: s.IsDefault, Active: s.Active})
	}
	if err := h.requisites.SaveSigners(r.Context(), signers); err != nil {
		h.logger.Error("save signers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"saved": len(NormalizeSigners(signers))})
}
