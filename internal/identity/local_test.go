package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalProviderSignUpThenSignIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	p, err := NewLocalProvider(path, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	u, err := p.SignUp(ctx, " A@X.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.NotEmpty(t, u.UID)

	// A fresh provider reads the persisted account.
	reloaded, err := NewLocalProvider(path, zap.NewNop())
	require.NoError(t, err)

	got, err := reloaded.SignIn(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.UID, got.UID)
}

func TestLocalProviderErrors(t *testing.T) {
	p, err := NewLocalProvider(filepath.Join(t.TempDir(), "users.json"), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = p.SignUp(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"invalid email", func() error { _, err := p.SignUp(ctx, "not-an-email", "secret1"); return err }, ErrInvalidEmail},
		{"weak password", func() error { _, err := p.SignUp(ctx, "b@x.com", "123"); return err }, ErrWeakPassword},
		{"email in use", func() error { _, err := p.SignUp(ctx, "a@x.com", "another1"); return err }, ErrEmailInUse},
		{"not found", func() error { _, err := p.SignIn(ctx, "c@x.com", "secret1"); return err }, ErrUserNotFound},
		{"wrong password", func() error { _, err := p.SignIn(ctx, "a@x.com", "nope123"); return err }, ErrWrongPassword},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.call(), tc.want)
		})
	}
}

func TestLocalProviderCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	_, err := NewLocalProvider(path, zap.NewNop())
	assert.Error(t, err)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Incorrect password.", Message(ErrWrongPassword))
	assert.Equal(t, "Email already registered.", Message(errors.Join(errors.New("x"), ErrEmailInUse)))
	assert.Equal(t, "Password should be at least 6 characters.", Message(ErrWeakPassword))
	assert.Equal(t, "Error: boom", Message(errors.New("boom")))
}

func TestCall(t *testing.T) {
	p, err := NewLocalProvider(filepath.Join(t.TempDir(), "users.json"), zap.NewNop())
	require.NoError(t, err)

	_, err = Call(context.Background(), p, SignUp, "d@x.com", "secret1")
	require.NoError(t, err)
	_, err = Call(context.Background(), p, SignIn, "d@x.com", "secret1")
	require.NoError(t, err)
	_, err = Call(context.Background(), p, Mode(7), "d@x.com", "secret1")
	assert.Error(t, err)
}
