package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPostsEmailAndPassword(t *testing.T) {
	var got map[string]string
	var method, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("abc123"))
	}))
	defer srv.Close()

	token, err := NewClient(srv.URL, srv.Client()).Authenticate(context.Background(), Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, map[string]string{"email": "alice", "password": "pw"}, got)
}

func TestClientSendsEmptyCredentials(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("t"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Authenticate(context.Background(), Credentials{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": "", "password": ""}, got)
}

func TestClientNon2xxIsRequestFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Authenticate(context.Background(), Credentials{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusForbidden, reqErr.StatusCode)
}

func TestClientTransportErrorIsRequestFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Authenticate(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrRequestFailed)
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Zero(t, reqErr.StatusCode)
}

func TestNewClientDefaults(t *testing.T) {
	cl := NewClient("", nil)
	assert.Equal(t, DefaultEndpoint, cl.Endpoint)
	assert.Same(t, http.DefaultClient, cl.HTTPClient)
}

func TestParseToken(t *testing.T) {
	testcases := []struct {
		desc  string
		raw   string
		token string
		err   bool
	}{
		{"bare", "abc123", "abc123", false},
		{"bare with newline", "abc123\n", "abc123", false},
		{"json string", `"abc123"`, "abc123", false},
		{"json object", `{"token":"abc123"}`, "abc123", false},
		{"object without token", `{"jwt":"x"}`, "", true},
		{"empty", "", "", true},
		{"broken json", `{"token":`, "", true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			token, err := parseToken([]byte(tc.raw))
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.token, token)
		})
	}
}
