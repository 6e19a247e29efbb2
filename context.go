package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sait-khanh/gate/h"
	"golang.org/x/time/rate"
)

const patchQueueSize = 16

var errNoPubSub = errors.New("gate: pubsub not configured")

// Context is the server side of one rendered page.
//
// It holds runtime state, defines actions, manages reactive signals, and defines UI through View.
// A Context lives from the page GET until its SSE stream closes or it is reaped.
type Context struct {
	id              string
	app             *App
	view            func() h.H
	patchChan       chan patch
	actionRegistry  map[string]func(ctx context.Context)
	actionLimiter   *rate.Limiter
	signals         *sync.Map
	mu              sync.RWMutex
	reqCtx          context.Context
	csrfToken       string
	createdAt       time.Time
	sseConnected    atomic.Bool
	disposed        chan struct{}
	disposeOnce     sync.Once
	subscriptions   []Subscription
	subsMu          sync.Mutex
	mounting        bool
	pendingRedirect string
}

// View defines the UI rendered by this context.
//
// Changes to signals or state can be pushed live with Sync().
func (c *Context) View(f func() h.H) {
	if f == nil {
		panic("nil viewfn")
	}
	c.view = func() h.H { return h.Div(h.ID(c.id), f()) }
}

// ID returns the context id. It is empty while a page is being validated at
// registration time.
func (c *Context) ID() string {
	return c.id
}

// Action registers an event handler and returns a trigger to that event
// that can be added to the view fn as any other h element.
//
// f receives the context of the action request. Work that outlives other
// requests to the same page, such as writing the session, must use it
// rather than Context().
//
// Example:
//
//	save := c.Action(func(ctx context.Context) {
//		c.SessionFor(ctx).Set("name", name.String())
//		c.Redirect("/")
//	})
//
//	c.View(func() h.H {
//		return h.Form(save.OnSubmit(), h.Input(name.Bind()))
//	})
func (c *Context) Action(f func(ctx context.Context)) *ActionTrigger {
	id := genRandID()
	if f == nil {
		c.app.logErr(c, "failed to bind action '%s' to context: nil func", id)
		return nil
	}
	c.mu.Lock()
	c.actionRegistry[id] = f
	c.mu.Unlock()
	return &ActionTrigger{id: id}
}

func (c *Context) getAction(id string) (func(ctx context.Context), error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f, ok := c.actionRegistry[id]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("action '%s' not found", id)
}

// Signal creates a reactive signal and initializes it with the given value.
// Use Bind() to link the value of input elements to the signal.
//
// Signals are alive in the browser; their current values are injected into
// the Context before each action call. Server-side updates are sent back with
// Sync() or SyncSignals().
func (c *Context) Signal(v any) *Signal {
	sigID := "s" + genRandID()
	if v == nil {
		c.app.logErr(c, "failed to bind signal: nil signal value")
		return &Signal{
			id:  sigID,
			val: "error",
			err: fmt.Errorf("context '%s' failed to bind signal '%s': nil signal value", c.id, sigID),
		}
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Struct, reflect.Map:
		if j, err := json.Marshal(v); err == nil {
			v = string(j)
		}
	}
	sig := &Signal{
		id:      sigID,
		val:     v,
		changed: true,
	}
	c.signals.Store(sigID, sig)
	return sig
}

func (c *Context) injectSignals(sigs map[string]any) {
	if sigs == nil {
		c.app.logErr(c, "signal injection failed: nil signals")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for sigID, val := range sigs {
		item, ok := c.signals.Load(sigID)
		if !ok {
			c.signals.Store(sigID, &Signal{id: sigID, val: val})
			continue
		}
		if sig, ok := item.(*Signal); ok {
			sig.inject(val)
		}
	}
}

func (c *Context) prepareSignalsForPatch() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	updated := make(map[string]any)
	c.signals.Range(func(sigID, value any) bool {
		sig, ok := value.(*Signal)
		if !ok {
			return true
		}
		if err := sig.Err(); err != nil {
			c.app.logWarn(c, "signal '%s' is out of sync: %v", sig.id, err)
			return true
		}
		if v, changed := sig.takeChange(); changed {
			updated[sigID.(string)] = v
		}
		return true
	})
	return updated
}

// sendPatch queues a patch on the SSE stream. If the queue is full the patch
// is dropped rather than blocking the caller.
func (c *Context) sendPatch(p patch) {
	select {
	case c.patchChan <- p:
	default:
		c.app.logDebug(c, "patch queue full, dropping patch %d", p.typ)
	}
}

// Sync pushes the current view and signal changes to the browser over the
// live SSE stream.
func (c *Context) Sync() {
	elems := bytes.NewBuffer(nil)
	if err := c.view().Render(elems); err != nil {
		c.app.logErr(c, "sync view failed: %v", err)
		return
	}
	c.sendPatch(patch{patchTypeElements, elems.String()})
	c.SyncSignals()
}

// SyncSignals pushes only the changed signals to the browser.
func (c *Context) SyncSignals() {
	updated := c.prepareSignalsForPatch()
	if len(updated) == 0 {
		return
	}
	out, err := json.Marshal(updated)
	if err != nil {
		c.app.logErr(c, "sync signals failed: %v", err)
		return
	}
	c.sendPatch(patch{patchTypeSignals, string(out)})
}

// ExecScript runs s in the browser once.
func (c *Context) ExecScript(s string) {
	if s == "" {
		c.app.logWarn(c, "exec script failed: empty script")
		return
	}
	c.sendPatch(patch{patchTypeScript, s})
}

// Redirect navigates the browser to url. While the page is still being
// initialised or rendered the GET is answered with 303 See Other instead.
func (c *Context) Redirect(url string) {
	if url == "" {
		c.app.logWarn(c, "redirect failed: empty url")
		return
	}
	if c.mounting {
		c.pendingRedirect = url
		return
	}
	c.sendPatch(patch{patchTypeRedirect, url})
}

func (c *Context) setRequestContext(ctx context.Context) {
	c.mu.Lock()
	c.reqCtx = ctx
	c.mu.Unlock()
}

// Context returns the context of the latest request served for this page.
// Actions on the same page may overlap, so an action should use the ctx it
// is given instead. It is never nil.
func (c *Context) Context() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.reqCtx == nil {
		return context.Background()
	}
	return c.reqCtx
}

// Session returns the session of the latest request served for this page.
// It is a no-op session while the page is validated at registration time.
func (c *Context) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SessionFor(c.reqCtx)
}

// SessionFor returns the session loaded for the request behind ctx. Values
// set on it are committed with that request's response.
func (c *Context) SessionFor(ctx context.Context) *Session {
	return &Session{
		ctx:     ctx,
		manager: c.app.sessionManager,
	}
}

// Publish sends data on subject through the configured PubSub.
func (c *Context) Publish(subject string, data []byte) error {
	if c.id == "" {
		return nil
	}
	if c.app.pubsub == nil {
		return errNoPubSub
	}
	return c.app.pubsub.Publish(subject, data)
}

// Subscribe registers handler for subject. The subscription is released
// when the context is disposed.
func (c *Context) Subscribe(subject string, handler func(data []byte)) (Subscription, error) {
	if c.id == "" {
		return nil, nil
	}
	if c.app.pubsub == nil {
		return nil, errNoPubSub
	}
	sub, err := c.app.pubsub.Subscribe(subject, handler)
	if err != nil {
		return nil, err
	}
	c.subsMu.Lock()
	c.subscriptions = append(c.subscriptions, sub)
	c.subsMu.Unlock()
	return sub, nil
}

func (c *Context) unsubscribeAll() {
	c.subsMu.Lock()
	subs := c.subscriptions
	c.subscriptions = nil
	c.subsMu.Unlock()
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			c.app.logWarn(c, "unsubscribe failed: %v", err)
		}
	}
}

func (c *Context) dispose() {
	c.disposeOnce.Do(func() {
		close(c.disposed)
		c.unsubscribeAll()
	})
}

func newContext(id string, a *App) *Context {
	if a == nil {
		panic("create context failed: app pointer is nil")
	}

	return &Context{
		id:             id,
		app:            a,
		actionRegistry: make(map[string]func(ctx context.Context)),
		actionLimiter:  a.actionRateLimit.limiter(),
		signals:        new(sync.Map),
		patchChan:      make(chan patch, patchQueueSize),
		disposed:       make(chan struct{}),
		csrfToken:      genCSRFToken(),
		createdAt:      time.Now(),
	}
}
