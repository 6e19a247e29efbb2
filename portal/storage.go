package portal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sait-khanh/gate"
)

// sessionStore persists the token in the session of the submitting request
// and mirrors it into the browser's localStorage under the same key.
type sessionStore struct {
	c *gate.Context
}

func (s sessionStore) SaveToken(ctx context.Context, key, token string) error {
	sess := s.c.SessionFor(ctx)
	if err := sess.RenewToken(); err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	sess.Set(key, token)

	k, _ := json.Marshal(key)
	v, _ := json.Marshal(token)
	s.c.ExecScript(fmt.Sprintf("localStorage.setItem(%s, %s)", k, v))
	return nil
}

type contextNavigator struct {
	c *gate.Context
}

func (n contextNavigator) Navigate(path string) {
	n.c.Redirect(path)
}
