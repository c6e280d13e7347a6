// Command financas-oauth runs the installed-app OAuth flow once and stores
// the user token the export worker reads from GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"financas/internal/cli"
	gsheet "financas/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("financas-oauth")

	clientJSON, err := readClient()
	if err != nil {
		logger.Error("OAuth client unavailable", "error", err)
		os.Exit(1)
	}

	// The redirect URI must be registered on the OAuth client.
	port := envOr("OAUTH_REDIRECT_PORT", "8085")
	cfg, err := gsheet.OAuthConfig(clientJSON, "http://localhost:"+port+"/callback")
	if err != nil {
		logger.Error("Invalid OAuth client", "error", err)
		os.Exit(1)
	}

	state := fmt.Sprintf("financas-%d", time.Now().UnixNano())
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization denied: %s", q.Get("error")):
			default:
			}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "Pode fechar esta janela e voltar ao terminal.")
			select {
			case codeCh <- q.Get("code"):
			default:
			}
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	select {
	case code := <-codeCh:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			logger.Error("Token exchange failed", "error", err)
			os.Exit(1)
		}
		out := envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json")
		if err := gsheet.SaveToken(out, tok); err != nil {
			logger.Error("Failed to save token", "error", err, "path", out)
			os.Exit(1)
		}
		logger.Info("Token saved", "path", out)
	case err := <-errCh:
		logger.Error("Authorization failed", "error", err)
		os.Exit(1)
	case <-time.After(5 * time.Minute):
		logger.Error("Authorization timed out")
		os.Exit(1)
	case <-sig:
		logger.Warn("Interrupted")
		os.Exit(1)
	}
}

func readClient() ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")); v != "" {
		return []byte(v), nil
	}
	if path := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")); path != "" {
		return os.ReadFile(path)
	}
	return nil, fmt.Errorf("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
