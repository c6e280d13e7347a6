package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"financas/internal/importer"
	applog "financas/internal/log"
)

type importReviewPage struct {
	Session *importer.Session
	Rows    []importer.ImportRow
	Valid   int
	Invalid int
}

type importResultPage struct {
	SessionID string
	FileName  string
	Result    importer.CommitResult
}

// handleImport shows the upload form on GET and starts a review session on POST.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, http.StatusOK, "import.html", page{Title: "Importar", Active: "import"})
	case http.MethodPost:
		s.uploadImport(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) uploadImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.fail(w, r, applog.OpImport, &FieldError{Field: "file", Err: err})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, applog.OpImport, &FieldError{Field: "file", Err: errRequired})
		return
	}
	defer file.Close()

	sess, err := s.svc.Imports.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, r, applog.OpImport, err)
		return
	}
	s.done(w, r, "/import/"+sess.ID, fmt.Sprintf("%d linhas lidas", sess.Len()), nil)
}

// handleImportReview lists every row of a session with its errors.
func (s *Server) handleImportReview(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	sess, err := s.svc.Imports.Session(r.PathValue("session"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	valid, invalid := sess.Counts()
	s.render(w, r, http.StatusOK, "import_review.html", page{
		Title:  "Revisar importação",
		Active: "import",
		Data:   importReviewPage{Session: sess, Rows: sess.Rows(), Valid: valid, Invalid: invalid},
	})
}

// handleImportRow revalidates one edited row. htmx callers get the row
// fragment back; plain posts return to the review page.
func (s *Server) handleImportRow(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	id := r.PathValue("session")
	line, err := strconv.Atoi(r.PathValue("line"))
	if err != nil {
		s.fail(w, r, applog.OpUpdate, fmt.Errorf("line %q: %w", r.PathValue("line"), importer.ErrSessionNotFound))
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}
	f := p.reader()
	edited := importer.ImportRow{
		Line:           line,
		Date:           f.text("date"),
		SettlementDate: f.text("settlement_date"),
		Description:    f.text("description"),
		CategoryName:   f.text("category"),
		AccountName:    f.text("account"),
		CardName:       f.text("card"),
		Amount:         normalizeDecimalInput(f.text("amount")),
		Status:         f.text("status"),
		Sharing:        f.text("sharing"),
	}

	row, err := s.svc.Imports.UpdateRow(r.Context(), id, edited)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}

	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, "/import/"+id, http.StatusSeeOther)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "import_row", importRowView{SessionID: id, Row: row}); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", "import_row",
			applog.FieldOperation, applog.OpRender)
		InternalServerError("Erro ao montar a linha").Write(w)
		return
	}
	NewHTMXResponse().TriggerImportRowUpdated(row.Line, row.Valid()).BodyHTML(buf.String()).Write(w)
}

// importRowView is the data of the editable row fragment.
type importRowView struct {
	SessionID string
	Row       importer.ImportRow
}

// handleImportCommit persists the rows the user confirmed.
func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id := r.PathValue("session")
	sess, err := s.svc.Imports.Session(id)
	if err != nil {
		s.fail(w, r, applog.OpCommit, err)
		return
	}
	fileName := sess.FileName

	confirmed := map[int]bool{}
	for _, v := range r.PostForm["confirm"] {
		line, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, r, applog.OpCommit, &FieldError{Field: "confirm", Err: fmt.Errorf("invalid line %q", v)})
			return
		}
		confirmed[line] = true
	}

	res, err := s.svc.Imports.Commit(r.Context(), id, confirmed)
	if err != nil {
		s.fail(w, r, applog.OpCommit, err)
		return
	}
	s.structLog.LogImportCommitted(r.Context(), id, res.Success, res.Total, len(res.Skipped))
	s.render(w, r, http.StatusOK, "import_result.html", page{
		Title:  "Importação concluída",
		Active: "import",
		Data:   importResultPage{SessionID: id, FileName: fileName, Result: res},
	})
}

func (s *Server) handleImportCancel(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	s.svc.Imports.Cancel(r.PathValue("session"))
	s.done(w, r, "/import", "Importação cancelada", nil)
}
