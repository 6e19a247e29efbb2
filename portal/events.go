package portal

import (
	"errors"
	"time"

	"github.com/sait-khanh/gate"
	"github.com/sait-khanh/gate/auth"
)

// LoginSubject carries one LoginEvent per settled login attempt.
const LoginSubject = "auth.login"

// LoginEvent describes a login attempt. Credentials other than the
// username are never included.
type LoginEvent struct {
	Username string    `json:"username"`
	OK       bool      `json:"ok"`
	Status   int       `json:"status,omitempty"`
	At       time.Time `json:"at"`
}

func newLoginEvent(username string, res auth.Result) LoginEvent {
	ev := LoginEvent{Username: username, OK: res.OK(), At: time.Now().UTC()}
	var reqErr *auth.RequestError
	if errors.As(res.Err, &reqErr) {
		ev.Status = reqErr.StatusCode
	}
	return ev
}

func (s *shell) publishAttempt(c *gate.Context, username string, res auth.Result) {
	if errors.Is(res.Err, auth.ErrInFlight) {
		return
	}
	if err := gate.Publish(c, LoginSubject, newLoginEvent(username, res)); err != nil {
		s.logger.Debug().Err(err).Msg("login event not published")
	}
}
