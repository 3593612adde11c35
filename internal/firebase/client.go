// Package firebase talks to Firebase over its REST APIs: Identity Toolkit for
// sign-in/sign-up and the Realtime Database for the transaction mirror.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rovshanmuradov/cryptofolio/internal/identity"
	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"go.uber.org/zap"
)

// DefaultAuthURL is the Identity Toolkit v1 base URL.
const DefaultAuthURL = "https://identitytoolkit.googleapis.com/v1"

// Config holds the Firebase project settings.
type Config struct {
	APIKey      string
	AuthURL     string
	DatabaseURL string
	Timeout     time.Duration
}

// Client implements identity.Provider and portfolio.Mirror.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger

	mu      sync.RWMutex
	idToken string
}

var (
	_ identity.Provider = (*Client)(nil)
	_ portfolio.Mirror  = (*Client)(nil)
)

// NewClient creates a Firebase REST client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")
	cfg.DatabaseURL = strings.TrimRight(cfg.DatabaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("firebase"),
	}
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type authResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (identity.User, error) {
	return c.authenticate(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp registers a new email/password account.
func (c *Client) SignUp(ctx context.Context, email, password string) (identity.User, error) {
	return c.authenticate(ctx, "accounts:signUp", email, password)
}

func (c *Client) authenticate(ctx context.Context, method, email, password string) (identity.User, error) {
	endpoint := fmt.Sprintf("%s/%s?key=%s", c.cfg.AuthURL, method, url.QueryEscape(c.cfg.APIKey))
	payload := credentialsRequest{Email: strings.TrimSpace(email), Password: password, ReturnSecureToken: true}

	var out authResponse
	if err := c.post(ctx, endpoint, payload, &out); err != nil {
		c.logger.Warn("Authentication failed", zap.String("method", method), zap.Error(err))
		return identity.User{}, err
	}

	c.mu.Lock()
	c.idToken = out.IDToken
	c.mu.Unlock()

	return identity.User{UID: out.LocalID, Email: out.Email, Token: out.IDToken}, nil
}

// AppendTransaction pushes rec under portfolio_transactions. Configuration and 4xx
// failures are marked permanent so the mirror does not retry them.
func (c *Client) AppendTransaction(ctx context.Context, rec portfolio.MirrorRecord) error {
	if c.cfg.DatabaseURL == "" {
		return backoff.Permanent(errors.New("firebase database url not configured"))
	}
	endpoint := c.cfg.DatabaseURL + "/portfolio_transactions.json"

	c.mu.RLock()
	token := c.idToken
	c.mu.RUnlock()
	if token != "" {
		endpoint += "?auth=" + url.QueryEscape(token)
	}

	var out struct {
		Name string `json:"name"`
	}
	if err := c.post(ctx, endpoint, rec, &out); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code/100 == 4 {
			return backoff.Permanent(fmt.Errorf("mirror transaction: %w", err))
		}
		return fmt.Errorf("mirror transaction: %w", err)
	}
	c.logger.Debug("Transaction mirrored", zap.String("key", out.Name), zap.String("email", rec.Email))
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", identity.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", identity.ErrNetwork, err)
	}

	if resp.StatusCode/100 != 2 {
		var e errorResponse
		if jsonErr := json.Unmarshal(raw, &e); jsonErr == nil && e.Error.Message != "" {
			return classify(e.Error.Message)
		}
		return &statusError{code: resp.StatusCode}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// classify maps Firebase error codes onto the identity taxonomy. Messages may carry
// a suffix, e.g. "WEAK_PASSWORD : Password should be at least 6 characters".
func classify(message string) error {
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "EMAIL_NOT_FOUND":
		return fmt.Errorf("%s: %w", code, identity.ErrUserNotFound)
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return fmt.Errorf("%s: %w", code, identity.ErrWrongPassword)
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return fmt.Errorf("%s: %w", code, identity.ErrInvalidEmail)
	case "EMAIL_EXISTS":
		return fmt.Errorf("%s: %w", code, identity.ErrEmailInUse)
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		return fmt.Errorf("%s: %w", code, identity.ErrWeakPassword)
	default:
		return errors.New(message)
	}
}
