package authstate

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/storefront-dev/storefront/internal/client"
)

// ErrNotAuthenticated is returned by CheckAuth when the server definitely
// rejected the session, as opposed to failing to answer
var ErrNotAuthenticated = errors.New("not authenticated")

// API is the part of *client.Client the actions use
type API interface {
	Register(ctx context.Context, creds client.Credentials) (*client.AuthResponse, error)
	Login(ctx context.Context, creds client.Credentials) (*client.AuthResponse, error)
	CheckAuth(ctx context.Context) (*client.AuthResponse, error)
	Logout(ctx context.Context) (*client.AuthResponse, error)
}

// Result is what an action hands back to its caller: the server's body on a
// completed exchange, or a synthesised failure
type Result struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    *client.User    `json:"user,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// Actions runs auth requests and records their outcome in a Store. Each call
// is a single attempt bounded by ctx.
type Actions struct {
	api   API
	store *Store
}

// NewActions binds an API client to a store
func NewActions(api API, store *Store) *Actions {
	return &Actions{api: api, store: store}
}

// Store returns the store the actions dispatch to
func (a *Actions) Store() *Store {
	return a.store
}

// RegisterUser creates an account. It never authenticates: a completed
// exchange leaves the user signed out with no error, whatever the body says.
func (a *Actions) RegisterUser(ctx context.Context, creds client.Credentials) Result {
	a.store.Dispatch(AuthStart{})

	resp, err := a.api.Register(ctx, creds)
	if err != nil {
		message := client.MessageOr(err, "Registration failed")
		a.store.Dispatch(AuthFail{Message: &message})
		return Result{Success: false, Message: message}
	}

	a.store.Dispatch(AuthFail{})
	return resultFrom(resp)
}

// LoginUser signs in and stores the returned user on success
func (a *Actions) LoginUser(ctx context.Context, creds client.Credentials) Result {
	a.store.Dispatch(AuthStart{})

	resp, err := a.api.Login(ctx, creds)
	if err != nil {
		message := client.MessageOr(err, "Login failed")
		a.store.Dispatch(AuthFail{Message: &message})
		return Result{Success: false, Message: message}
	}

	if resp.Success {
		a.store.Dispatch(AuthSuccess{User: resp.User})
	} else {
		a.store.Dispatch(AuthFail{Message: messagePtr(resp.Message)})
	}
	return resultFrom(resp)
}

// CheckAuth validates the current session. Any failure signs the user out
// without an error message in state; the returned error is
// ErrNotAuthenticated when the server said no and the *client.APIError
// otherwise.
func (a *Actions) CheckAuth(ctx context.Context) (Result, error) {
	a.store.Dispatch(AuthStart{})

	resp, err := a.api.CheckAuth(ctx)
	if err != nil {
		a.store.Dispatch(AuthFail{})

		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			return Result{Success: false, Message: apiErr.Message}, ErrNotAuthenticated
		}
		return Result{Success: false}, err
	}

	if !resp.Success {
		a.store.Dispatch(AuthFail{})
		return resultFrom(resp), ErrNotAuthenticated
	}

	a.store.Dispatch(AuthSuccess{User: resp.User})
	return resultFrom(resp), nil
}

// LogoutUser ends the session. The local state is reset even when the
// request fails; the error is returned for reporting only.
func (a *Actions) LogoutUser(ctx context.Context) error {
	defer a.store.Dispatch(LogoutSuccess{})

	_, err := a.api.Logout(ctx)
	return err
}

func resultFrom(resp *client.AuthResponse) Result {
	return Result{
		Success: resp.Success,
		Message: resp.Message,
		User:    resp.User,
		Raw:     resp.Raw,
	}
}

func messagePtr(message string) *string {
	if message == "" {
		return nil
	}
	return &message
}
