package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength matches the remote provider's weak-password threshold.
const MinPasswordLength = 6

type account struct {
	UID       string    `json:"uid"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
}

// LocalProvider stores bcrypt password hashes in a JSON file. It lets the
// application run without a remote identity service.
type LocalProvider struct {
	mu       sync.Mutex
	path     string
	accounts map[string]account
	validate *validator.Validate
	logger   *zap.Logger
}

// NewLocalProvider loads the account file at path. A missing file is an empty
// account set.
func NewLocalProvider(path string, logger *zap.Logger) (*LocalProvider, error) {
	p := &LocalProvider{
		path:     path,
		accounts: make(map[string]account),
		validate: validator.New(),
		logger:   logger.Named("local_identity"),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return p, nil
	case err != nil:
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	if err := json.Unmarshal(data, &p.accounts); err != nil {
		return nil, fmt.Errorf("decode accounts %s: %w", path, err)
	}

	p.logger.Debug("Accounts loaded", zap.Int("count", len(p.accounts)))
	return p, nil
}

// SignUp registers a new account.
func (p *LocalProvider) SignUp(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if err := p.checkEmail(email); err != nil {
		return User{}, err
	}
	if len(password) < MinPasswordLength {
		return User{}, ErrWeakPassword
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return User{}, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	acc := account{UID: uuid.New().String(), Hash: string(hash), CreatedAt: time.Now().UTC()}
	p.accounts[email] = acc
	if err := p.save(); err != nil {
		delete(p.accounts, email)
		return User{}, err
	}

	p.logger.Info("Account created", zap.String("email", email))
	return User{UID: acc.UID, Email: email}, nil
}

// SignIn verifies credentials of an existing account.
func (p *LocalProvider) SignIn(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if err := p.checkEmail(email); err != nil {
		return User{}, err
	}

	p.mu.Lock()
	acc, exists := p.accounts[email]
	p.mu.Unlock()

	if !exists {
		return User{}, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.Hash), []byte(password)); err != nil {
		return User{}, ErrWrongPassword
	}
	return User{UID: acc.UID, Email: email}, nil
}

func (p *LocalProvider) checkEmail(email string) error {
	if err := p.validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// save must be called with p.mu held.
func (p *LocalProvider) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create accounts dir: %w", err)
	}
	data, err := json.MarshalIndent(p.accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replace accounts: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
