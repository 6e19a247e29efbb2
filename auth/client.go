// Package auth implements the login submission flow: one authentication
// request per submit, with the returned token persisted and the user sent
// home on success.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultEndpoint is the authentication endpoint the shell posts to when
// none is configured.
const DefaultEndpoint = "http://localhost:8080/api/auth/login"

// maxTokenBytes bounds how much of a response body is read as a token.
const maxTokenBytes = 64 << 10

var (
	// ErrRequestFailed is the single failure class of an authentication
	// attempt. Transport errors and rejected credentials both match it.
	ErrRequestFailed = errors.New("auth: authentication request failed")

	// ErrInFlight is returned when a submit arrives while a previous one
	// from the same form has not settled.
	ErrInFlight = errors.New("auth: authentication already in flight")
)

// Credentials is what the login form collects. Nothing is validated.
type Credentials struct {
	Username string
	Password string
}

// loginRequest is the wire body. The endpoint keys users by email, so the
// username field is sent as "email".
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RequestError describes a failed authentication request. StatusCode is
// zero when no response was received.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: status %d", ErrRequestFailed, e.StatusCode)
	}
	return fmt.Sprintf("%v: %v", ErrRequestFailed, e.Err)
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequestFailed}
	}
	return []error{ErrRequestFailed, e.Err}
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (string, error)
}

// Client posts credentials to a remote endpoint. A single attempt is made;
// there is no retry and no timeout beyond ctx.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewClient returns a Client for endpoint, or DefaultEndpoint when empty.
func NewClient(endpoint string, hc *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{Endpoint: endpoint, HTTPClient: hc}
}

// Authenticate issues one POST with {"email","password"} and returns the
// token carried by a 2xx response.
func (cl *Client) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	body, err := json.Marshal(loginRequest{Email: creds.Username, Password: creds.Password})
	if err != nil {
		return "", &RequestError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &RequestError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := cl.HTTPClient.Do(req)
	if err != nil {
		return "", &RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenBytes))
		return "", &RequestError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBytes))
	if err != nil {
		return "", &RequestError{Err: fmt.Errorf("read body: %w", err)}
	}
	token, err := parseToken(raw)
	if err != nil {
		return "", &RequestError{Err: err}
	}
	return token, nil
}

// parseToken accepts a bare token, a JSON string, or a JSON object with a
// "token" field.
func parseToken(raw []byte) (string, error) {
	s := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(s, "{"):
		var obj struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return "", fmt.Errorf("decode token object: %w", err)
		}
		s = obj.Token
	case strings.HasPrefix(s, `"`):
		if err := json.Unmarshal([]byte(s), &s); err != nil {
			return "", fmt.Errorf("decode token string: %w", err)
		}
	}
	if s == "" {
		return "", errors.New("empty token")
	}
	return s, nil
}
