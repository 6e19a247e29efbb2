package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// TokenKey is the storage key the token is written under.
const TokenKey = "token"

// HomePath is where a successful login navigates to.
const HomePath = "/"

// TokenStore persists the token. It is only written on success, with the
// ctx of the submit that obtained it.
type TokenStore interface {
	SaveToken(ctx context.Context, key, token string) error
}

// Navigator moves the client to another route.
type Navigator interface {
	Navigate(path string)
}

// Result is the outcome of one submit: a token on success, an error
// matching ErrRequestFailed or ErrInFlight otherwise.
type Result struct {
	Token string
	Err   error
}

// OK reports whether the submit succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Flow turns a form submit into exactly one authentication attempt. A Flow
// belongs to one form; at most one attempt is in flight at a time.
type Flow struct {
	auth     Authenticator
	store    TokenStore
	nav      Navigator
	logger   zerolog.Logger
	inFlight atomic.Bool
}

// NewFlow wires a Flow to its collaborators.
func NewFlow(a Authenticator, store TokenStore, nav Navigator, logger zerolog.Logger) *Flow {
	return &Flow{auth: a, store: store, nav: nav, logger: logger}
}

// InFlight reports whether an attempt is pending.
func (f *Flow) InFlight() bool {
	return f.inFlight.Load()
}

// Submit authenticates creds. On success the token is saved under TokenKey
// and the client is sent to HomePath. On failure the error is logged and
// returned; storage and route are left alone.
func (f *Flow) Submit(ctx context.Context, creds Credentials) Result {
	if !f.inFlight.CompareAndSwap(false, true) {
		f.logger.Debug().Msg("login submit ignored: previous attempt still in flight")
		return Result{Err: ErrInFlight}
	}
	defer f.inFlight.Store(false)

	token, err := f.auth.Authenticate(ctx, creds)
	if err != nil {
		if !errors.Is(err, ErrRequestFailed) {
			err = &RequestError{Err: err}
		}
		f.logFailure(err)
		return Result{Err: err}
	}

	if err := f.store.SaveToken(ctx, TokenKey, token); err != nil {
		err = &RequestError{Err: fmt.Errorf("save token: %w", err)}
		f.logFailure(err)
		return Result{Err: err}
	}
	f.nav.Navigate(HomePath)
	f.logger.Info().Msg("login succeeded")
	return Result{Token: token}
}

func (f *Flow) logFailure(err error) {
	evt := f.logger.Error().Err(err)
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
		evt = evt.Int("status", reqErr.StatusCode)
	}
	evt.Msg("login failed")
}
