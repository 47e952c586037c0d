package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/semmidev/cloudvault/internal/adapter/storage"
	"github.com/semmidev/cloudvault/internal/infrastructure/logger"
	"golang.org/x/oauth2"
)

const (
	consentPath  = "/auth/google/drive"
	callbackPath = "/auth/google/callback"
)

// DriveConsent runs the one-off browser flow that produces the refresh token
// the gdrive backend authenticates with.
type DriveConsent struct {
	config     *oauth2.Config
	logger     *logger.Logger
	state      string
	tokens     chan *oauth2.Token
	authServer *http.Server
}

// NewDriveConsent loads the OAuth client secret and points its redirect URL
// at the local callback served on addr.
func NewDriveConsent(log *logger.Logger, clientSecretPath, addr string) (*DriveConsent, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if clientSecretPath == "" {
		return nil, errors.New("storage.oauth_client_secret is required for -gdrive-auth")
	}

	cfg, err := storage.DriveOAuthConfig(clientSecretPath)
	if err != nil {
		return nil, err
	}
	cfg.RedirectURL = "http://" + localHost(addr) + callbackPath

	return newDriveConsent(log, cfg)
}

func newDriveConsent(log *logger.Logger, cfg *oauth2.Config) (*DriveConsent, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	return &DriveConsent{
		config: cfg,
		logger: log,
		state:  state,
		tokens: make(chan *oauth2.Token, 1),
	}, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// localHost turns ":8085" into "localhost:8085" for the redirect URL.
func localHost(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func (s *DriveConsent) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get(consentPath, func(w http.ResponseWriter, r *http.Request) {
		authURL := s.config.AuthCodeURL(s.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	})

	r.Get(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != s.state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		token, err := s.config.Exchange(r.Context(), code)
		if err != nil {
			s.logger.Errorf("Token exchange failed: %v", err)
			http.Error(w, "token exchange failed", http.StatusBadGateway)
			return
		}

		if token.RefreshToken == "" {
			fmt.Fprintln(w, "⚠️ No refresh token returned. Revoke app access & re-authorize.")
			return
		}

		fmt.Fprintf(w, "✅ Refresh Token:\n%s\n\nSet it as storage.oauth_refresh_token (CLOUDVAULT_STORAGE_OAUTH_REFRESH_TOKEN).\n",
			token.RefreshToken)

		select {
		case s.tokens <- token:
		default:
		}
	})

	return r
}

// Run serves the consent flow on addr until a refresh token arrives or ctx
// is cancelled, and returns the token.
func (s *DriveConsent) Run(ctx context.Context, addr string) (string, error) {
	s.authServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Open http://%s%s to authorize Google Drive access", localHost(addr), consentPath)
		if err := s.authServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var (
		refresh string
		err     error
	)
	select {
	case token := <-s.tokens:
		refresh = token.RefreshToken
	case err = <-errCh:
		err = fmt.Errorf("oauth server error: %w", err)
	case <-ctx.Done():
		err = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := s.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	return refresh, err
}

// Shutdown gracefully stops the OAuth server.
func (s *DriveConsent) Shutdown(ctx context.Context) error {
	if s.authServer == nil {
		return nil
	}

	if err := s.authServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown OAuth server: %w", err)
	}
	s.logger.Infof("OAuth server stopped successfully")
	return nil
}
