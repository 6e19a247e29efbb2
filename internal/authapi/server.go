// Package authapi is a small authentication service that issues signed
// tokens for registered users. It backs the login shell during local
// development.
package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by both endpoints on success.
type TokenResponse struct {
	Token string `json:"token"`
}

// Profile is returned by GET /api/auth/me.
type Profile struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server handles the /api/auth routes.
type Server struct {
	users     UserStore
	tokens    *TokenService
	passwords Passwords
	logger    zerolog.Logger
}

func NewServer(users UserStore, tokens *TokenService, passwords Passwords, logger zerolog.Logger) *Server {
	return &Server{users: users, tokens: tokens, passwords: passwords, logger: logger}
}

// Handler returns the routes wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("GET /api/auth/me", s.RequireBearer(http.HandlerFunc(s.handleMe)))
	return s.logRequests(mux)
}

type subjectKey struct{}

// SubjectFrom returns the email of the verified bearer token on ctx.
func SubjectFrom(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok && sub != ""
}

// RequireBearer answers 401 unless the request carries a valid
// "Authorization: Bearer <token>" header. The token subject is available
// to next through SubjectFrom.
func (s *Server) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
			s.unauthorized(w, "missing bearer token")
			return
		}
		sub, err := s.tokens.Parse(header)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected")
			s.unauthorized(w, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, sub)))
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	email, _ := SubjectFrom(r.Context())
	u, err := s.users.FindByEmail(r.Context(), email)
	if errors.Is(err, ErrUserNotFound) {
		s.unauthorized(w, "unknown user")
		return
	}
	if err != nil {
		s.internalError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, Profile{
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Role:      u.Role,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{"email and password are required"})
		return
	}
	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		s.internalError(w, r.Context(), err)
		return
	}
	u := &User{
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "USER",
	}
	if err := s.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeJSON(w, http.StatusConflict, errorResponse{"email already registered"})
			return
		}
		s.internalError(w, r.Context(), err)
		return
	}
	s.issue(w, r.Context(), u.Email)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	u, err := s.users.FindByEmail(r.Context(), req.Email)
	if errors.Is(err, ErrUserNotFound) {
		s.forbidden(w, req.Email)
		return
	}
	if err != nil {
		s.internalError(w, r.Context(), err)
		return
	}
	ok, err := s.passwords.Verify(req.Password, u.PasswordHash)
	if err != nil {
		s.internalError(w, r.Context(), err)
		return
	}
	if !ok {
		s.forbidden(w, req.Email)
		return
	}
	s.issue(w, r.Context(), u.Email)
}

func (s *Server) issue(w http.ResponseWriter, ctx context.Context, email string) {
	token, err := s.tokens.Generate(email)
	if err != nil {
		s.internalError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("bad request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid request body"})
		return false
	}
	return true
}

// forbidden answers a failed login. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *Server) forbidden(w http.ResponseWriter, email string) {
	s.logger.Info().Str("email", email).Msg("login rejected")
	writeJSON(w, http.StatusForbidden, errorResponse{"bad credentials"})
}

func (s *Server) unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, errorResponse{msg})
}

func (s *Server) internalError(w http.ResponseWriter, ctx context.Context, err error) {
	s.logger.Error().Ctx(ctx).Err(err).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}
