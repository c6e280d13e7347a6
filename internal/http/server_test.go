package http

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"financas/internal/core"
	"financas/internal/importer"
	"financas/internal/services"
	"financas/internal/storage"
)

type testEnv struct {
	srv  *Server
	repo *storage.SQLiteRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "financas.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	reports := services.NewReportService(repo, 16, time.Minute)
	sessions := importer.NewSessionStore(4, time.Hour)
	svc := Services{
		Movements: services.NewMovementService(repo, reports, nil),
		Ledger:    services.NewLedgerService(repo, reports),
		Imports:   services.NewImportService(repo, repo, sessions, dir, reports, nil),
		Reports:   reports,
	}
	srv, err := NewServer(":0", repo, svc, Options{SharerAName: "Ana", SharerBName: "Bia"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) seed(t *testing.T) (food, salary, account int64) {
	t.Helper()
	ctx := context.Background()
	var err error
	if food, err = e.repo.CreateCategory(ctx, core.Category{Description: "Alimentação", Type: core.Expense}); err != nil {
		t.Fatal(err)
	}
	if salary, err = e.repo.CreateCategory(ctx, core.Category{Description: "Salário", Type: core.Income}); err != nil {
		t.Fatal(err)
	}
	if account, err = e.repo.CreateAccount(ctx, core.Account{Description: "Banco X"}); err != nil {
		t.Fatal(err)
	}
	return food, salary, account
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Resumo") {
		t.Fatalf("index body missing heading")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := env.do(t, http.MethodGet, path, nil, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = env.do(t, http.MethodGet, "/nope", nil, false)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d, want 404", rr.Code)
	}
}

func TestReferenceCRUD(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/accounts", url.Values{"description": {"Banco X"}}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/accounts" {
		t.Errorf("Location=%q", loc)
	}

	rr = env.do(t, http.MethodPost, "/accounts", url.Values{"description": {"Banco X"}}, true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d, want 409", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "show-notification") {
		t.Errorf("duplicate missing notification trigger: %q", rr.Header().Get("HX-Trigger"))
	}

	rr = env.do(t, http.MethodPost, "/accounts", url.Values{"description": {""}}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty description status=%d, want 422", rr.Code)
	}

	accounts, _ := env.repo.ListAccounts(context.Background())
	if len(accounts) != 1 {
		t.Fatalf("accounts=%d, want 1", len(accounts))
	}
	id := accounts[0].ID
	target := "/accounts/" + idString(id)

	rr = env.do(t, http.MethodPost, target, url.Values{"description": {"Banco Y"}}, true)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/accounts" {
		t.Fatalf("update status=%d redirect=%q", rr.Code, rr.Header().Get("HX-Redirect"))
	}

	rr = env.do(t, http.MethodGet, "/accounts", nil, false)
	if !strings.Contains(rr.Body.String(), "Banco Y") {
		t.Error("list does not show updated account")
	}

	rr = env.do(t, http.MethodPost, target+"/delete", url.Values{}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, target+"/delete", url.Values{}, false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestDeleteReferenceInUse(t *testing.T) {
	env := newTestEnv(t)
	food, _, account := env.seed(t)

	form := url.Values{
		"date": {"2025-03-10"}, "description": {"Mercado"}, "category_id": {idString(food)},
		"account_id": {idString(account)}, "amount": {"150,00"}, "status": {"Efetivado"}, "sharing": {"50/50"},
	}
	if rr := env.do(t, http.MethodPost, "/movements", form, false); rr.Code != http.StatusSeeOther {
		t.Fatalf("create movement status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr := env.do(t, http.MethodPost, "/categories/"+idString(food)+"/delete", url.Values{}, false)
	if rr.Code != http.StatusConflict {
		t.Fatalf("delete in-use category status=%d, want 409", rr.Code)
	}
}

func TestMovementLifecycle(t *testing.T) {
	env := newTestEnv(t)
	food, _, account := env.seed(t)

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"missing amount", url.Values{"date": {"2025-03-10"}, "description": {"x"}, "category_id": {idString(food)}, "account_id": {idString(account)}}, http.StatusUnprocessableEntity},
		{"bad amount", url.Values{"date": {"2025-03-10"}, "description": {"x"}, "category_id": {idString(food)}, "account_id": {idString(account)}, "amount": {"abc"}}, http.StatusUnprocessableEntity},
		{"zero amount", url.Values{"date": {"2025-03-10"}, "description": {"x"}, "category_id": {idString(food)}, "account_id": {idString(account)}, "amount": {"0"}}, http.StatusUnprocessableEntity},
		{"unknown category", url.Values{"date": {"2025-03-10"}, "description": {"x"}, "category_id": {"999"}, "account_id": {idString(account)}, "amount": {"10"}, "status": {"Efetivado"}, "sharing": {"50/50"}}, http.StatusUnprocessableEntity},
		{"bad sharing", url.Values{"date": {"2025-03-10"}, "description": {"x"}, "category_id": {idString(food)}, "account_id": {idString(account)}, "amount": {"10"}, "sharing": {"30/70"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/movements", tt.form, false)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	form := url.Values{
		"date": {"2025-03-10"}, "description": {"Mercado"}, "category_id": {idString(food)},
		"account_id": {idString(account)}, "amount": {"1.234,50"}, "status": {"Efetivado"}, "sharing": {"50/50"},
	}
	rr := env.do(t, http.MethodPost, "/movements", form, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "2025-03") {
		t.Errorf("HX-Trigger missing period: %q", rr.Header().Get("HX-Trigger"))
	}

	rr = env.do(t, http.MethodGet, "/movements?from=2025-03-01&to=2025-03-31", nil, false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Mercado") {
		t.Fatalf("list status=%d", rr.Code)
	}

	items, err := env.repo.ListMovements(context.Background(), core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))
	if err != nil || len(items) != 1 {
		t.Fatalf("movements=%d err=%v", len(items), err)
	}
	m := items[0]
	if m.Amount.Cents != -123450 {
		t.Errorf("expense stored as %d, want -123450", m.Amount.Cents)
	}

	rr = env.do(t, http.MethodGet, "/movements?edit="+idString(m.ID), nil, false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "/movements/"+idString(m.ID)) {
		t.Fatalf("edit page status=%d", rr.Code)
	}

	form.Set("description", "Feira")
	rr = env.do(t, http.MethodPost, "/movements/"+idString(m.ID), form, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/movements/999/delete", url.Values{}, false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete unknown status=%d, want 404", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/movements/abc", form, false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("update bad id status=%d, want 404", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/movements/"+idString(m.ID)+"/delete", url.Values{}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("delete status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodPut, "/movements", nil, false)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status=%d, want 405", rr.Code)
	}
}

const importCSV = `Data;Descrição;Categoria;Conta;Cartão;Valor;Situação;Compartilhamento
10/01/2025;Mercado;Alimentação;Banco X;;150,00;Efetivado;50/50
12/01/2025;Salário;Salário;Banco X;;5.000,00;Efetivado;100%-A
15/02/2025;Cinema;Lazer;Banco X;;20,00;Pendente;50/50
`

func multipartUpload(t *testing.T, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(content))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestImportFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	body, ctype := multipartUpload(t, "extrato.csv", importCSV)
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	review := rr.Header().Get("Location")
	if !strings.HasPrefix(review, "/import/") {
		t.Fatalf("Location=%q", review)
	}

	rr = env.do(t, http.MethodGet, review, nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("review status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Lazer") {
		t.Error("review page missing the invalid row")
	}

	// fixing the unknown category on line 4 makes it valid
	rr = env.do(t, http.MethodPost, review+"/rows/4", url.Values{
		"date": {"2025-02-15"}, "description": {"Cinema"}, "category": {"Alimentação"},
		"account": {"Banco X"}, "amount": {"20,00"}, "status": {"Pendente"}, "sharing": {"50/50"},
	}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("row update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"valid":true`) {
		t.Errorf("row trigger=%q", rr.Header().Get("HX-Trigger"))
	}
	if !strings.Contains(rr.Body.String(), `id="row-4"`) {
		t.Error("row fragment not rendered")
	}

	rr = env.do(t, http.MethodPost, review+"/rows/99", url.Values{"date": {"2025-02-15"}}, false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown row status=%d, want 404", rr.Code)
	}

	rr = env.do(t, http.MethodPost, review+"/commit", url.Values{"confirm": {"2", "4"}}, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("commit status=%d body=%s", rr.Code, rr.Body.String())
	}
	items, _ := env.repo.ListMovements(context.Background(), core.NewDate(2025, 1, 1), core.NewDate(2025, 12, 31))
	if len(items) != 2 {
		t.Fatalf("movements after commit=%d, want 2", len(items))
	}

	rr = env.do(t, http.MethodGet, review, nil, false)
	if rr.Code != http.StatusNotFound {
		t.Errorf("finished session status=%d, want 404", rr.Code)
	}
}

func TestImportUploadLogsValidationOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	env := newTestEnv(t)
	env.seed(t)

	body, ctype := multipartUpload(t, "extrato.csv", importCSV)
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	if n := strings.Count(buf.String(), "Import file validated"); n != 1 {
		t.Errorf("validation logged %d times, want 1", n)
	}
}

func TestImportRejectsUnreadableFile(t *testing.T) {
	env := newTestEnv(t)

	body, ctype := multipartUpload(t, "foto.png", "\x89PNG\r\n")
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rr.Code)
	}

	body, ctype = multipartUpload(t, "extrato.csv", "Data;Valor\n10/01/2025;1,00\n")
	req = httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", ctype)
	rr = httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Colunas") {
		t.Fatalf("missing columns status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestReportPages(t *testing.T) {
	env := newTestEnv(t)
	food, salary, account := env.seed(t)
	ctx := context.Background()
	for _, m := range []core.Movement{
		{Date: core.NewDate(2025, 1, 5), Description: "Salário", CategoryID: salary, AccountID: account, Amount: core.Money{Cents: 500000}, Status: core.Settled, Sharing: core.SharingHalf},
		{Date: core.NewDate(2025, 1, 10), Description: "Mercado", CategoryID: food, AccountID: account, Amount: core.Money{Cents: 30000}, Status: core.Settled, Sharing: core.SharingHalf},
		{Date: core.NewDate(2025, 2, 10), Description: "Mercado", CategoryID: food, AccountID: account, Amount: core.Money{Cents: 25000}, Status: core.Settled, Sharing: core.SharingHalf},
	} {
		if _, err := env.srv.svc.Movements.Create(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	rr := env.do(t, http.MethodGet, "/reports/monthly?start=2025-01-01&end=2025-12-31&sharing=All", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("monthly status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Resultado") {
		t.Error("monthly page missing result line")
	}

	rr = env.do(t, http.MethodGet, "/reports/monthly?start=2025-05-01&end=2025-01-01", nil, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("reversed filter status=%d, want 422", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/reports/monthly.xlsx?start=2025-01-01&end=2025-12-31", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("xlsx status=%d", rr.Code)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("xlsx unreadable: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) == 0 || sheets[0] != "Fluxo de caixa" {
		t.Errorf("sheets=%v", sheets)
	}

	rr = env.do(t, http.MethodGet, "/reports/balances?date=2025-01-31", nil, false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Banco X") {
		t.Fatalf("balances status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/reports/balances?date=ontem", nil, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date status=%d, want 422", rr.Code)
	}

	env.srv.now = func() time.Time { return time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC) }
	rr = env.do(t, http.MethodGet, "/reports/trend?months=6", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("trend status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodGet, "/reports/trend?months=0", nil, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad months status=%d, want 422", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/investments/positions", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("positions status=%d", rr.Code)
	}
}

func TestLedgerPages(t *testing.T) {
	env := newTestEnv(t)
	_, _, account := env.seed(t)
	ctx := context.Background()
	savings, err := env.repo.CreateAccount(ctx, core.Account{Description: "Poupança"})
	if err != nil {
		t.Fatal(err)
	}

	rr := env.do(t, http.MethodPost, "/transfers", url.Values{
		"date": {"2025-03-01"}, "description": {"Reserva"}, "from_account_id": {idString(account)},
		"to_account_id": {idString(savings)}, "amount": {"500"}, "status": {"Efetivado"},
		"kind": {string(core.BetweenAccounts)}, "sharing": {"50/50"},
	}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodGet, "/transfers", nil, false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Reserva") {
		t.Fatalf("transfers list status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/transfers", url.Values{
		"date": {"2025-03-01"}, "description": {"Presente"}, "from_account_id": {idString(account)},
		"amount": {"500"}, "status": {"Efetivado"}, "kind": {"Presente"}, "sharing": {"50/50"},
	}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad kind status=%d, want 422", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/investments", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("investments status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/investments?edit=42", nil, false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("edit unknown investment status=%d, want 404", rr.Code)
	}
}
