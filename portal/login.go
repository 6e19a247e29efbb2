package portal

import (
	"context"

	"github.com/sait-khanh/gate"
	"github.com/sait-khanh/gate/auth"
	"github.com/sait-khanh/gate/h"
)

func (s *shell) loginPage(c *gate.Context) {
	if s.authState(c) {
		c.Redirect(HomeRoute)
		c.View(func() h.H { return h.Div() })
		return
	}

	form := newCredentialForm(c)
	busy := c.Signal(false)
	flow := auth.NewFlow(s.client, sessionStore{c}, contextNavigator{c},
		s.logger.With().Str("gate-ctx", c.ID()).Str("endpoint", s.client.Endpoint).Logger())

	submit := c.Action(func(ctx context.Context) {
		creds := form.Credentials()
		res := flow.Submit(ctx, creds)
		s.publishAttempt(c, creds.Username, res)
	})

	c.View(func() h.H {
		return h.Div(h.Class("login_container"),
			h.Form(h.Class("login_form"), busy.Indicator(), submit.OnSubmit(),
				h.H1(h.Class("login_header"), h.Text("Login")),
				h.Div(h.Class("login_info"),
					h.Label(h.For("username"), h.Text("Username:")),
					h.Input(h.Type("text"), h.ID("username"), h.Name("username"),
						h.AutoComplete("username"), form.username.Bind()),
				),
				h.Div(h.Class("login_info"),
					h.Label(h.For("password"), h.Text("Password:")),
					h.Input(h.Type("password"), h.ID("password"), h.Name("password"),
						h.AutoComplete("current-password"), form.password.Bind()),
				),
				h.Div(h.Class("login_button"),
					h.Button(h.Type("submit"), busy.DisabledWhile(), h.Text("Submit")),
				),
			),
		)
	})
}
