// Package portal is the login shell: a Home page, a Login page, and the
// route gate between them.
package portal

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sait-khanh/gate"
	"github.com/sait-khanh/gate/auth"
	"github.com/sait-khanh/gate/h"
)

//go:embed assets
var assets embed.FS

// Routes served by the shell.
const (
	HomeRoute  = "/"
	LoginRoute = "/login"
)

// AuthState decides, per page request, whether the visitor counts as
// authenticated for route gating.
type AuthState func(c *gate.Context) bool

// StaticAuth gates on a fixed value.
func StaticAuth(authenticated bool) AuthState {
	return func(*gate.Context) bool { return authenticated }
}

// TokenAuth treats a visitor with a stored token as authenticated.
func TokenAuth(c *gate.Context) bool {
	return c.Session().GetString(auth.TokenKey) != ""
}

// Config wires the shell to its collaborators.
type Config struct {
	// Endpoint is the authentication URL. Defaults to auth.DefaultEndpoint.
	Endpoint string

	// HTTPClient is used for the authentication request. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// AuthState gates /login. Defaults to StaticAuth(false).
	AuthState AuthState

	// Logger defaults to the application logger.
	Logger *zerolog.Logger

	// History returns retained messages on a subject, oldest first. When
	// set, Home seeds its recent sign-ins from LoginSubject.
	History func(subject string, limit int) ([][]byte, error)
}

type shell struct {
	client    *auth.Client
	authState AuthState
	history   func(subject string, limit int) ([][]byte, error)
	logger    zerolog.Logger
}

// Register mounts the shell's pages and stylesheet on app.
func Register(app *gate.App, cfg Config) {
	s := &shell{
		client:    auth.NewClient(cfg.Endpoint, cfg.HTTPClient),
		authState: cfg.AuthState,
		history:   cfg.History,
		logger:    app.Logger(),
	}
	if s.authState == nil {
		s.authState = StaticAuth(false)
	}
	if cfg.Logger != nil {
		s.logger = *cfg.Logger
	}

	css, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}
	app.StaticFS("/assets/", css)
	app.AppendToHead(h.Stylesheet("/assets/login.css"))

	app.Page(HomeRoute, s.homePage)
	app.Page(LoginRoute, s.loginPage)
}
