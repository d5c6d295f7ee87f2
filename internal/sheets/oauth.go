package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// DefaultCallbackAddr is where the interactive flow listens for Google's redirect.
const DefaultCallbackAddr = "localhost:8080"

const authTimeout = 5 * time.Minute

// OAuth2Config holds OAuth2 configuration.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	CallbackAddr string
}

func oauthConfig(config OAuth2Config) *oauth2.Config {
	addr := config.CallbackAddr
	if addr == "" {
		addr = DefaultCallbackAddr
	}
	return &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://" + addr + "/callback",
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

type callbackResult struct {
	err  error
	code string
}

// callbackHandler accepts exactly one redirect carrying the expected state.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var res callbackResult
		switch {
		case query.Get("state") != state:
			res.err = fmt.Errorf("oauth state mismatch")
		case query.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", query.Get("error"))
		case query.Get("code") == "":
			res.err = fmt.Errorf("no authorization code received")
		default:
			res.code = query.Get("code")
		}

		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, "<html><body><h1>Authentication failed</h1><p>Return to the terminal and try again.</p></body></html>")
		} else {
			_, _ = fmt.Fprint(w, "<html><body><h1>longbox is authorized</h1><p>You can close this window.</p></body></html>")
		}

		select {
		case results <- res:
		default:
		}
	})
	return mux
}

// AuthenticateOAuth2Interactive runs the browser consent flow and returns a token.
func AuthenticateOAuth2Interactive(ctx context.Context, config OAuth2Config, logger *slog.Logger) (*oauth2.Token, error) {
	if logger == nil {
		logger = slog.Default()
	}
	oc := oauthConfig(config)
	state := uuid.NewString()
	results := make(chan callbackResult, 1)

	addr := config.CallbackAddr
	if addr == "" {
		addr = DefaultCallbackAddr
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	server := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case results <- callbackResult{err: fmt.Errorf("callback server failed: %w", serveErr)}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("error shutting down callback server", "error", shutdownErr)
		}
	}()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	logger.Info("Google Sheets authorization required")
	logger.Info("visit this URL to authorize longbox", "url", authURL)

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authentication timed out after %s", authTimeout)
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := oc.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if config.TokenFile != "" {
		if err := saveToken(config.TokenFile, token); err != nil {
			logger.Warn("failed to save token", "error", err, "file", config.TokenFile)
		} else {
			logger.Info("token saved", "file", config.TokenFile)
		}
	}

	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// GetOrCreateToken loads a saved token, falling back to the interactive flow.
// Expired tokens are refreshed and written back.
func GetOrCreateToken(ctx context.Context, config OAuth2Config, logger *slog.Logger) (*oauth2.Token, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TokenFile != "" {
		token, err := LoadToken(config.TokenFile)
		if err == nil {
			if token.Valid() {
				return token, nil
			}
			fresh, refreshErr := oauthConfig(config).TokenSource(ctx, token).Token()
			if refreshErr != nil {
				return nil, fmt.Errorf("failed to refresh token: %w", refreshErr)
			}
			if saveErr := saveToken(config.TokenFile, fresh); saveErr != nil {
				logger.Warn("failed to save refreshed token", "error", saveErr)
			}
			return fresh, nil
		}
		logger.Info("no saved token, starting authorization flow")
	}

	return AuthenticateOAuth2Interactive(ctx, config, logger)
}
