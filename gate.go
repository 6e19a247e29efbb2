// Package gate is the server-driven UI runtime behind the login shell.
//
// Pages are rendered in Go and kept live in the browser over an SSE stream
// driven by Datastar. Form state lives in browser signals that are injected
// into the page Context before each action runs; navigation is pushed from
// the server as a redirect patch.
package gate

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog"
	"github.com/sait-khanh/gate/h"
	"github.com/starfederation/datastar-go/datastar"
)

const datastarCDN = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"

// App is the root application.
// It manages page routing, user sessions, and SSE connections for live updates.
type App struct {
	cfg             Options
	mux             *http.ServeMux
	server          *http.Server
	logger          zerolog.Logger
	registry        map[string]*Context
	registryMu      sync.RWMutex
	headIncludes    []h.H
	sessionManager  *scs.SessionManager
	pubsub          PubSub
	actionRateLimit RateLimitConfig
	datastarPath    string
	datastarContent []byte
	datastarOnce    sync.Once
	reaperStop      chan struct{}
}

func (a *App) logEvent(evt *zerolog.Event, c *Context) *zerolog.Event {
	if c != nil && c.id != "" {
		evt = evt.Str("gate-ctx", c.id)
	}
	return evt
}

func (a *App) logFatal(format string, v ...any) {
	a.logEvent(a.logger.WithLevel(zerolog.FatalLevel), nil).Msgf(format, v...)
}

func (a *App) logErr(c *Context, format string, v ...any) {
	a.logEvent(a.logger.Error(), c).Msgf(format, v...)
}

func (a *App) logWarn(c *Context, format string, v ...any) {
	a.logEvent(a.logger.Warn(), c).Msgf(format, v...)
}

func (a *App) logInfo(c *Context, format string, v ...any) {
	a.logEvent(a.logger.Info(), c).Msgf(format, v...)
}

func (a *App) logDebug(c *Context, format string, v ...any) {
	a.logEvent(a.logger.Debug(), c).Msgf(format, v...)
}

func newConsoleLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(level)
}

// Logger returns the application logger so that page code can log through
// the same sink as the runtime.
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// Config overrides the default configuration with the given options.
func (a *App) Config(cfg Options) {
	if cfg.Logger != nil {
		a.logger = *cfg.Logger
	} else if cfg.LogLevel != nil || cfg.DevMode != a.cfg.DevMode {
		level := zerolog.InfoLevel
		if cfg.LogLevel != nil {
			level = *cfg.LogLevel
		}
		if cfg.DevMode {
			a.logger = newConsoleLogger(level)
		} else {
			a.logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
		}
	}
	if cfg.DocumentTitle != "" {
		a.cfg.DocumentTitle = cfg.DocumentTitle
	}
	for _, plugin := range cfg.Plugins {
		if plugin != nil {
			plugin(a)
		}
	}
	a.cfg.DevMode = cfg.DevMode
	if cfg.ServerAddress != "" {
		a.cfg.ServerAddress = cfg.ServerAddress
	}
	if cfg.SessionManager != nil {
		a.sessionManager = cfg.SessionManager
	}
	if cfg.DatastarContent != nil {
		a.datastarContent = cfg.DatastarContent
	}
	if cfg.DatastarPath != "" {
		a.datastarPath = cfg.DatastarPath
	}
	if cfg.PubSub != nil {
		a.pubsub = cfg.PubSub
	}
	if cfg.ContextTTL != 0 {
		a.cfg.ContextTTL = cfg.ContextTTL
	}
	if cfg.ActionRateLimit.Rate != 0 || cfg.ActionRateLimit.Burst != 0 {
		a.actionRateLimit = cfg.ActionRateLimit
	}
}

// AppendToHead appends the given nodes to the head of the base HTML document.
// Useful for including css stylesheets and JS scripts.
func (a *App) AppendToHead(elements ...h.H) {
	for _, el := range elements {
		if el != nil {
			a.headIncludes = append(a.headIncludes, el)
		}
	}
}

// Page registers a route and its associated page handler. The handler receives a *Context
// that defines state, UI, signals, and actions.
//
// Calling Context.Redirect while the page is being initialised or rendered
// answers the GET with a 303 instead of rendering the view.
//
// Example:
//
//	app.Page("/", func(c *gate.Context) {
//		c.View(func() h.H {
//			return h.H1(h.Text("Home"))
//		})
//	})
func (a *App) Page(route string, initContextFn func(c *Context)) {
	a.ensureDatastarHandler()
	// check for panics
	func() {
		defer func() {
			if err := recover(); err != nil {
				a.logFatal("failed to register page with init func that panics: %v", err)
				panic(err)
			}
		}()
		c := newContext("", a)
		c.mounting = true
		initContextFn(c)
		c.view()
		c.dispose()
	}()

	pattern := route
	if route == "/" {
		pattern = "/{$}"
	}
	a.mux.HandleFunc("GET "+pattern, func(w http.ResponseWriter, r *http.Request) {
		a.logDebug(nil, "GET %s", r.URL.String())
		id := fmt.Sprintf("%s_/%s", route, genRandID())
		c := newContext(id, a)
		c.reqCtx = r.Context()
		c.mounting = true
		initContextFn(c)

		var body bytes.Buffer
		renderErr := h.Document(a.cfg.DocumentTitle, a.documentHead(c), c.view()).Render(&body)
		c.mounting = false

		if c.pendingRedirect != "" {
			a.logDebug(c, "redirecting page request to %s", c.pendingRedirect)
			c.dispose()
			http.Redirect(w, r, c.pendingRedirect, http.StatusSeeOther)
			return
		}
		if renderErr != nil {
			a.logErr(c, "render page failed: %v", renderErr)
			c.dispose()
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		a.registerCtx(c)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body.Bytes())
	})
}

func (a *App) documentHead(c *Context) []h.H {
	head := []h.H{h.ModuleScript(a.datastarSrc())}
	head = append(head, a.headIncludes...)
	return append(head,
		h.Meta(h.Data("signals", fmt.Sprintf("{'gate-ctx':'%s','gate-csrf':'%s'}", c.id, c.csrfToken))),
		h.Meta(h.Data("init", "@get('/_sse')")),
		h.Meta(h.Data("init", fmt.Sprintf(`window.addEventListener('beforeunload', (evt) => {
			navigator.sendBeacon('/_session/close', '%s');});`, c.id))),
	)
}

func (a *App) datastarSrc() string {
	if a.datastarContent == nil {
		return datastarCDN
	}
	return a.datastarPath
}

func (a *App) registerCtx(c *Context) {
	if c == nil {
		a.logErr(c, "failed to add nil context to registry")
		return
	}
	a.registryMu.Lock()
	a.registry[c.id] = c
	n := len(a.registry)
	a.registryMu.Unlock()
	a.logDebug(c, "new context added to registry (%d live)", n)
}

func (a *App) cleanupCtx(c *Context) {
	c.dispose()
	a.unregisterCtx(c)
}

func (a *App) unregisterCtx(c *Context) {
	if c.id == "" {
		a.logErr(c, "unregister ctx failed: ctx contains empty id")
		return
	}
	a.registryMu.Lock()
	delete(a.registry, c.id)
	n := len(a.registry)
	a.registryMu.Unlock()
	a.logDebug(c, "ctx removed from registry (%d live)", n)
}

func (a *App) getCtx(id string) (*Context, error) {
	a.registryMu.RLock()
	defer a.registryMu.RUnlock()
	if c, ok := a.registry[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("ctx '%s' not found", id)
}

func (a *App) startReaper() {
	ttl := a.cfg.ContextTTL
	if ttl < 0 {
		return
	}
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	interval := ttl / 3
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	a.reaperStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.reaperStop:
				return
			case <-ticker.C:
				a.reapOrphanedContexts(ttl)
			}
		}
	}()
}

func (a *App) reapOrphanedContexts(ttl time.Duration) {
	now := time.Now()
	a.registryMu.RLock()
	var orphans []*Context
	for _, c := range a.registry {
		if !c.sseConnected.Load() && now.Sub(c.createdAt) > ttl {
			orphans = append(orphans, c)
		}
	}
	a.registryMu.RUnlock()

	for _, c := range orphans {
		a.logInfo(c, "reaping orphaned context (no SSE connection after %s)", ttl)
		a.cleanupCtx(c)
	}
}

// Handler returns the application as an http.Handler, wrapped with the
// session middleware when a SessionManager is configured.
func (a *App) Handler() http.Handler {
	if a.sessionManager != nil {
		return a.sessionManager.LoadAndSave(a.mux)
	}
	return a.mux
}

// Start starts the HTTP server and blocks until a SIGINT or SIGTERM
// signal is received, then performs a graceful shutdown.
func (a *App) Start() {
	a.server = &http.Server{
		Addr:    a.cfg.ServerAddress,
		Handler: a.Handler(),
	}

	a.startReaper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	a.logInfo(nil, "gate started at [%s]", a.cfg.ServerAddress)

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logInfo(nil, "received signal %v, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	a.shutdown()
}

// Shutdown gracefully shuts down the server and all contexts.
// Safe for programmatic or test use.
func (a *App) Shutdown() {
	a.shutdown()
}

func (a *App) shutdown() {
	if a.reaperStop != nil {
		close(a.reaperStop)
		a.reaperStop = nil
	}
	a.logInfo(nil, "draining all contexts")
	a.drainAllContexts()

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logErr(nil, "http server shutdown error: %v", err)
		}
	}

	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logErr(nil, "pubsub close error: %v", err)
		}
	}

	a.logInfo(nil, "shutdown complete")
}

func (a *App) drainAllContexts() {
	a.registryMu.Lock()
	contexts := make([]*Context, 0, len(a.registry))
	for _, c := range a.registry {
		contexts = append(contexts, c)
	}
	a.registry = make(map[string]*Context)
	a.registryMu.Unlock()

	for _, c := range contexts {
		a.logDebug(c, "disposing context")
		c.dispose()
	}
	a.logInfo(nil, "drained %d context(s)", len(contexts))
}

func (a *App) ensureDatastarHandler() {
	a.datastarOnce.Do(func() {
		if a.datastarContent == nil {
			return
		}
		a.mux.HandleFunc("GET "+a.datastarPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/javascript")
			_, _ = w.Write(a.datastarContent)
		})
	})
}

type patchType int

const (
	patchTypeElements patchType = iota
	patchTypeSignals
	patchTypeScript
	patchTypeRedirect
)

type patch struct {
	typ     patchType
	content string
}

// New creates a new *App with default configuration.
func New() *App {
	a := &App{
		mux:            http.NewServeMux(),
		logger:         newConsoleLogger(zerolog.InfoLevel),
		registry:       make(map[string]*Context),
		sessionManager: scs.New(),
		datastarPath:   "/_datastar.js",
		cfg: Options{
			ServerAddress: ":3000",
			DocumentTitle: "Gate",
		},
	}

	a.mux.HandleFunc("GET /_sse", a.handleSSE)
	a.mux.HandleFunc("POST /_action/{id}", a.handleAction)
	a.mux.HandleFunc("POST /_session/close", a.handleSessionClose)
	return a
}

func (a *App) handleSSE(w http.ResponseWriter, r *http.Request) {
	var sigs map[string]any
	_ = datastar.ReadSignals(r, &sigs)
	cID, _ := sigs["gate-ctx"].(string)

	c, err := a.getCtx(cID)
	if err != nil {
		a.logErr(nil, "sse stream failed to start: %v", err)
		http.Error(w, "unknown context", http.StatusNotFound)
		return
	}
	c.setRequestContext(r.Context())

	sse := datastar.NewSSE(w, r, datastar.WithCompression(datastar.WithBrotli(datastar.WithBrotliLevel(5))))

	// last-event-id tells a reconnect apart from a first connect
	sse.Send(datastar.EventTypePatchElements, []string{}, datastar.WithSSEEventId("gate"))

	c.sseConnected.Store(true)
	a.logDebug(c, "SSE connection established")

	go c.Sync()

	for {
		select {
		case <-sse.Context().Done():
			a.logDebug(c, "SSE connection ended")
			a.cleanupCtx(c)
			return
		case <-c.disposed:
			a.logDebug(c, "context disposed, closing SSE")
			return
		case p := <-c.patchChan:
			if err := a.writePatch(sse, p); err != nil && sse.Context().Err() == nil {
				a.logErr(c, "patch %d failed: %v", p.typ, err)
			}
		}
	}
}

func (a *App) writePatch(sse *datastar.ServerSentEventGenerator, p patch) error {
	switch p.typ {
	case patchTypeElements:
		return sse.PatchElements(p.content)
	case patchTypeSignals:
		return sse.PatchSignals([]byte(p.content))
	case patchTypeScript:
		return sse.ExecuteScript(p.content, datastar.WithExecuteScriptAutoRemove(true))
	case patchTypeRedirect:
		return sse.Redirect(p.content)
	}
	return fmt.Errorf("unknown patch type %d", p.typ)
}

func (a *App) handleAction(w http.ResponseWriter, r *http.Request) {
	actionID := r.PathValue("id")
	var sigs map[string]any
	if err := datastar.ReadSignals(r, &sigs); err != nil {
		a.logWarn(nil, "action '%s' rejected: unreadable signals: %v", actionID, err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cID, _ := sigs["gate-ctx"].(string)
	c, err := a.getCtx(cID)
	if err != nil {
		a.logErr(nil, "action '%s' failed: %v", actionID, err)
		http.Error(w, "unknown context", http.StatusNotFound)
		return
	}
	csrfToken, _ := sigs["gate-csrf"].(string)
	if subtle.ConstantTimeCompare([]byte(csrfToken), []byte(c.csrfToken)) != 1 {
		a.logWarn(c, "action '%s' rejected: invalid CSRF token", actionID)
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}
	if !c.allowAction() {
		a.logWarn(c, "action '%s' rate limited", actionID)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	fn, err := c.getAction(actionID)
	if err != nil {
		a.logDebug(c, "action '%s' failed: %v", actionID, err)
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	c.setRequestContext(r.Context())
	defer func() {
		if rec := recover(); rec != nil {
			a.logErr(c, "action '%s' failed: %v", actionID, rec)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}()

	c.injectSignals(sigs)
	fn(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.logErr(nil, "error reading body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	c, err := a.getCtx(string(body))
	if err != nil {
		a.logDebug(nil, "failed to handle session close: %v", err)
		return
	}
	a.logDebug(c, "session close event triggered")
	a.cleanupCtx(c)
}

func genRandID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func genCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
