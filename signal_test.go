package gate

import (
	"testing"

	"github.com/sait-khanh/gate/h"
	"github.com/stretchr/testify/assert"
)

func TestSignalReturnAsString(t *testing.T) {
	testcases := []struct {
		desc     string
		given    any
		expected string
	}{
		{"string", "test", "test"},
		{"empty string", "", ""},
		{"int", 1, "1"},
		{"negative float", -34.345, "-34.345"},
		{"positive bool", true, "true"},
		{"struct", struct{ Val string }{"test"}, `{"Val":"test"}`},
	}

	for _, testcase := range testcases {
		t.Run(testcase.desc, func(t *testing.T) {
			t.Parallel()
			var sig *Signal
			a := New()
			a.Page("/", func(c *Context) {
				sig = c.Signal(testcase.given)
				c.View(func() h.H { return h.Div() })
			})
			assert.Equal(t, testcase.expected, sig.String())
		})
	}
}

func TestSignalNilValue(t *testing.T) {
	c := newContext("nil-sig", New())
	sig := c.Signal(nil)
	assert.Error(t, sig.Err())
	assert.Empty(t, c.prepareSignalsForPatch())
}

func TestInjectSignalsUpdatesOnlyGivenSignals(t *testing.T) {
	c := newContext("inject", New())
	user := c.Signal("")
	pass := c.Signal("")
	c.prepareSignalsForPatch()

	c.injectSignals(map[string]any{user.ID(): "alice"})
	assert.Equal(t, "alice", user.String())
	assert.Equal(t, "", pass.String())

	c.injectSignals(map[string]any{pass.ID(): "s3cret"})
	assert.Equal(t, "alice", user.String())
	assert.Equal(t, "s3cret", pass.String())
}

func TestChangedSignalsAreSentOnce(t *testing.T) {
	c := newContext("changes", New())
	sig := c.Signal("a")

	assert.Equal(t, map[string]any{sig.ID(): "a"}, c.prepareSignalsForPatch())
	assert.Empty(t, c.prepareSignalsForPatch())

	sig.SetValue(3)
	assert.Equal(t, map[string]any{sig.ID(): "3"}, c.prepareSignalsForPatch())

	c.injectSignals(map[string]any{sig.ID(): "from browser"})
	assert.Empty(t, c.prepareSignalsForPatch(), "injected values are already in the browser")
}
