package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
)

type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	calls    []string
	lastGrid [][]string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		f.calls = append(f.calls, "get")
		type props struct {
			Title string `json:"title"`
		}
		type sheet struct {
			Properties props `json:"properties"`
		}
		var resp struct {
			Sheets []sheet `json:"sheets"`
		}
		for _, t := range f.titles {
			resp.Sheets = append(resp.Sheets, sheet{Properties: props{Title: t}})
		}
		json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		var body struct {
			Values [][]string `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.lastGrid = body.Values
		w.Write([]byte(`{}`))
	default:
		http.Error(w, `{"error":{"code":404,"message":"unexpected"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-id",
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
			goption.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testOAuthClient), "http://localhost:8085/callback")
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "test" || cfg.RedirectURL != "http://localhost:8085/callback" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := OAuthConfig([]byte("invalid-json"), ""); err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got %v", err)
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}

	tok, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if tok.RefreshToken != "r" {
		t.Errorf("refresh token = %q, want r", tok.RefreshToken)
	}
}

func TestLoadToken_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(path); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNew_OAuthMissingToken(t *testing.T) {
	client := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(client, []byte(testOAuthClient), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := New(context.Background(), Options{SpreadsheetID: "x", OAuthClientFile: client})
	if err == nil || !strings.Contains(err.Error(), "missing oauth token") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestNew_OAuthCredentials(t *testing.T) {
	dir := t.TempDir()
	client := filepath.Join(dir, "client.json")
	if err := os.WriteFile(client, []byte(testOAuthClient), 0o600); err != nil {
		t.Fatal(err)
	}
	token := filepath.Join(dir, "token.json")
	if err := SaveToken(token, &oauth2.Token{AccessToken: "a", TokenType: "Bearer"}); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), Options{SpreadsheetID: "x", OAuthClientFile: client, OAuthTokenFile: token})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ReportSheet(2025) != "2025 Fluxo de Caixa" {
		t.Errorf("ReportSheet = %q", c.ReportSheet(2025))
	}
}

func TestWriteGrid_ExistingSheet(t *testing.T) {
	f := &fakeSheets{titles: []string{"2025 Fluxo de Caixa"}}
	c := newTestClient(t, f)

	rows := [][]string{{"Grupo", "Linha", "Média"}, {"Receita", "Salário", "R$ 1.000,00"}}
	if err := c.WriteGrid(context.Background(), c.ReportSheet(2025), rows); err != nil {
		t.Fatalf("WriteGrid: %v", err)
	}

	want := []string{"get", "clear", "update"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	if len(f.lastGrid) != 2 || f.lastGrid[1][2] != "R$ 1.000,00" {
		t.Fatalf("unexpected grid: %v", f.lastGrid)
	}
}

func TestWriteGrid_CreatesMissingSheet(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)

	if err := c.WriteGrid(context.Background(), "2024 Fluxo de Caixa", nil); err != nil {
		t.Fatalf("WriteGrid: %v", err)
	}
	want := []string{"get", "add", "clear"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
}

func TestWriteGrid_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if err := c.WriteGrid(context.Background(), "s", nil); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Fluxo de Caixa", 2025, "2025 Fluxo de Caixa"},
		{"2024 Fluxo", 2025, "2024 Fluxo"},
		{"  ", 2025, ""},
		{"Caixa", 2023, "2023 Caixa"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
