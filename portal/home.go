package portal

import (
	"encoding/json"
	"sync"

	"github.com/sait-khanh/gate"
	"github.com/sait-khanh/gate/h"
)

const recentSignIns = 5

// recentLogins returns the usernames of the last successful logins the
// history still holds, oldest first.
func (s *shell) recentLogins() []string {
	if s.history == nil {
		return nil
	}
	msgs, err := s.history(LoginSubject, 100)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login history unavailable")
		return nil
	}
	var names []string
	for _, m := range msgs {
		var ev LoginEvent
		if json.Unmarshal(m, &ev) != nil || !ev.OK {
			continue
		}
		names = append(names, ev.Username)
	}
	return lastN(names, recentSignIns)
}

func lastN(s []string, n int) []string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func (s *shell) homePage(c *gate.Context) {
	var mu sync.Mutex
	signIns := 0
	recent := s.recentLogins()

	// live only when a PubSub backend is configured
	_, _ = gate.Subscribe(c, LoginSubject, func(ev LoginEvent) {
		if !ev.OK {
			return
		}
		mu.Lock()
		signIns++
		recent = lastN(append(recent, ev.Username), recentSignIns)
		mu.Unlock()
		c.Sync()
	})

	c.View(func() h.H {
		mu.Lock()
		n := signIns
		names := append([]string(nil), recent...)
		mu.Unlock()

		items := make([]h.H, 0, len(names))
		for _, name := range names {
			items = append(items, h.Li(h.Text(name)))
		}
		return h.Main(h.Class("home"),
			h.H1(h.Text("Home")),
			h.P(h.ID("sign-ins"), h.Textf("Sign-ins since you opened this page: %d", n)),
			h.If(len(items) > 0, h.Ul(append([]h.H{h.ID("recent-sign-ins")}, items...)...)),
			h.Nav(h.A(h.Href(LoginRoute), h.Text("Login"))),
		)
	})
}
