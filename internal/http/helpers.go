package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/importer"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/storage"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money":       func(m core.Money) string { return m.String() },
		"currency":    core.FormatCurrency,
		"percent":     core.FormatPercent,
		"periodLabel": core.PeriodLabel,
		"sharing":     s.sharingLabel,
		"date": func(d core.Date) string {
			if d.IsZero() {
				return ""
			}
			return d.Format("02/01/2006")
		},
		"isNegative": func(d decimal.Decimal) bool { return d.IsNegative() },
		"quantity":   func(d decimal.Decimal) string { return strings.Replace(d.String(), ".", ",", 1) },
		"importRow": func(sessionID string, row importer.ImportRow) importRowView {
			return importRowView{SessionID: sessionID, Row: row}
		},
	}
}

// sharingLabel renders a sharing literal with the configured sharer names.
func (s *Server) sharingLabel(v core.Sharing) string {
	switch v {
	case core.SharingA:
		return "100% " + s.opts.SharerAName
	case core.SharingB:
		return "100% " + s.opts.SharerBName
	case core.SharingHalf:
		return "50/50"
	case core.SharingAll:
		return "Todos"
	}
	return string(v)
}

type option struct {
	Value string
	Label string
}

func (s *Server) sharingOptions(withAll bool) []option {
	var out []option
	if withAll {
		out = append(out, option{Value: string(core.SharingAll), Label: s.sharingLabel(core.SharingAll)})
	}
	for _, v := range core.Sharings {
		out = append(out, option{Value: string(v), Label: s.sharingLabel(v)})
	}
	return out
}

// page is the data every full page template receives.
type page struct {
	Title  string
	Active string
	Flash  string
	Data   any
}

// render executes a template into a buffer so a failing template never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, p); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("Erro ao montar a página").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// done finishes a successful write: htmx requests get HX-Redirect and a
// notification, plain form posts get a 303.
func (s *Server) done(w http.ResponseWriter, r *http.Request, location, message string, decorate func(*HTMXResponseBuilder)) {
	if r.Header.Get("HX-Request") == "true" {
		b := NewHTMXResponse().Redirect(location).TriggerSuccessNotification(message)
		if decorate != nil {
			decorate(b)
		}
		b.Write(w)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// fail maps err to a status and a short message and logs it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := classifyError(err)
	fields := applog.NewFields().WithError(err).WithOperation(op).WithComponent(applog.ComponentHTTP)
	fields[applog.FieldPath] = r.URL.Path
	fields[applog.FieldStatusCode] = status
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		s.logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

var validationErrors = []error{
	core.ErrInvalidDay, core.ErrInvalidMonth, core.ErrInvalidAmount,
	core.ErrEmptyDescription, core.ErrDescriptionTooLong, core.ErrInvalidStatus,
	core.ErrInvalidSharing, core.ErrInvalidCategory, core.ErrInvalidNature,
	core.ErrInvalidKind, core.ErrInvalidDueDay, core.ErrInvalidQuantity,
	core.ErrMissingReference, core.ErrInvalidCurrency,
}

// invalidError marks an entity rule failure.
type invalidError struct{ err error }

func (e *invalidError) Error() string { return e.err.Error() }
func (e *invalidError) Unwrap() error { return e.err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &invalidError{err: err}
}

func classifyError(err error) (int, string) {
	var (
		field      *FieldError
		inv        *invalidError
		unreadable *importer.UnreadableFileError
		missing    *importer.MissingColumnsError
		tx         *importer.TransactionError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("Arquivo maior que o limite de %d MB", tooLarge.Limit>>20)
	case errors.As(err, &field):
		return http.StatusUnprocessableEntity, "Campo inválido: " + field.Error()
	case errors.As(err, &unreadable):
		return http.StatusUnprocessableEntity, "Arquivo ilegível: envie um CSV ou XLSX válido"
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, "Colunas obrigatórias ausentes: " + strings.Join(missing.Missing, ", ")
	case errors.As(err, &tx):
		return http.StatusInternalServerError, "Importação desfeita, nenhum movimento foi salvo"
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, importer.ErrSessionNotFound),
		errors.Is(err, services.ErrRowNotFound):
		return http.StatusNotFound, "Registro não encontrado"
	case errors.Is(err, storage.ErrDuplicate):
		return http.StatusConflict, "Registro já existe"
	case errors.Is(err, storage.ErrInUse):
		return http.StatusConflict, "Registro em uso, não pode ser excluído"
	case errors.As(err, &inv):
		return http.StatusUnprocessableEntity, "Dados inválidos: " + inv.Error()
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, "Dados inválidos: " + err.Error()
		}
	}
	return http.StatusInternalServerError, "Erro interno, tente novamente"
}

// pathID reads a positive integer path value. Anything else cannot name a
// row, so it reports storage.ErrNotFound.
func pathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, v, storage.ErrNotFound)
	}
	return id, nil
}
