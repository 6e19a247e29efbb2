package gate

import (
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog"
)

func ptr(l zerolog.Level) *zerolog.Level { return &l }

var (
	LogLevelDebug = ptr(zerolog.DebugLevel)
	LogLevelInfo  = ptr(zerolog.InfoLevel)
	LogLevelWarn  = ptr(zerolog.WarnLevel)
	LogLevelError = ptr(zerolog.ErrorLevel)
)

// Plugin is a func that can mutate the given *App at configuration time,
// e.g. to mount stylesheets or extra handlers.
type Plugin func(a *App)

// Options defines configuration options for the application.
type Options struct {
	// DevMode switches logging to a human readable console writer.
	DevMode bool

	// The http server address. e.g. ':3000'
	ServerAddress string

	// LogLevel sets the minimum log level. nil keeps the default (Info).
	LogLevel *zerolog.Level

	// Logger overrides the default logger entirely. When set, LogLevel and
	// DevMode have no effect on logging.
	Logger *zerolog.Logger

	// The title of the HTML document.
	DocumentTitle string

	Plugins []Plugin

	// SessionManager replaces the default in-memory scs session manager.
	// Configure it (lifetime, cookie settings, store) before passing it.
	SessionManager *scs.SessionManager

	// DatastarContent is served at DatastarPath when set. Otherwise pages
	// load Datastar from the public CDN.
	DatastarContent []byte

	// DatastarPath defaults to "/_datastar.js".
	DatastarPath string

	// PubSub enables publish/subscribe messaging. See package gatenats.
	PubSub PubSub

	// ContextTTL is how long a rendered page may wait for its SSE stream
	// before being reaped. Zero means 30s, negative disables reaping.
	ContextTTL time.Duration

	// ActionRateLimit bounds how fast each page may fire actions.
	ActionRateLimit RateLimitConfig
}
