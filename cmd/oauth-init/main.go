// Command oauth-init runs the OAuth consent flow once and stores the token
// the sync worker uses to write the spreadsheet.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"financeiro/internal/cli"
	"financeiro/internal/config"
	"financeiro/internal/log"
)

const authTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentCLI)

	if err := run(cfg, logger); err != nil {
		logger.Error("OAuth initialization failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	clientJSON, err := clientCredentials(cfg)
	if err != nil {
		return err
	}
	oauthCfg, err := google.ConfigFromJSON(clientJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("oauth config: %w", err)
	}

	// The OAuth client must list this URI among its authorized redirects.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	oauthCfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", e)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- q.Get("code")
	})
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-time.After(authTimeout):
		return errors.New("authorization timed out")
	case <-sigCh:
		return errors.New("interrupted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}

	outFile := cfg.GoogleOAuthTokenFile
	if outFile == "" {
		outFile = "token.json"
	}
	if err := writeToken(outFile, tok); err != nil {
		return err
	}
	logger.Info("Saved OAuth token", "path", outFile)
	return nil
}

func clientCredentials(cfg *config.Config) ([]byte, error) {
	if s := strings.TrimSpace(cfg.GoogleOAuthClientJSON); s != "" {
		return []byte(s), nil
	}
	if cfg.GoogleOAuthClientFile != "" {
		b, err := os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
}

func writeToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
