// Package identity defines the sign-in/sign-up contract and its error taxonomy.
package identity

import (
	"context"
	"errors"
	"fmt"
)

// Mode selects between signing in and registering.
type Mode int

const (
	SignIn Mode = iota
	SignUp
)

func (m Mode) String() string {
	switch m {
	case SignIn:
		return "Sign In"
	case SignUp:
		return "Sign Up"
	default:
		return "unknown"
	}
}

// User is the identity returned by a provider. Email is the stable key for all
// ledger state.
type User struct {
	UID   string
	Email string
	Token string
}

// Provider authenticates or registers users.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (User, error)
	SignUp(ctx context.Context, email, password string) (User, error)
}

var (
	ErrNetwork       = errors.New("network error")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrEmailInUse    = errors.New("email already in use")
	ErrWeakPassword  = errors.New("weak password")
)

// Call dispatches to SignIn or SignUp.
func Call(ctx context.Context, p Provider, mode Mode, email, password string) (User, error) {
	switch mode {
	case SignIn:
		return p.SignIn(ctx, email, password)
	case SignUp:
		return p.SignUp(ctx, email, password)
	default:
		return User{}, fmt.Errorf("unknown auth mode %d", mode)
	}
}

// Message classifies err into the message shown on the auth screen.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your internet connection and configuration."
	case errors.Is(err, ErrUserNotFound):
		return "No user found with this email."
	case errors.Is(err, ErrWrongPassword):
		return "Incorrect password."
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email format."
	case errors.Is(err, ErrEmailInUse):
		return "Email already registered."
	case errors.Is(err, ErrWeakPassword):
		return "Password should be at least 6 characters."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
