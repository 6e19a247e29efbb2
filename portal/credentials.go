package portal

import (
	"github.com/sait-khanh/gate"
	"github.com/sait-khanh/gate/auth"
)

// credentialForm holds the two login fields for the life of one form.
// Each field is its own signal so the browser updates them independently.
type credentialForm struct {
	username *gate.Signal
	password *gate.Signal
}

func newCredentialForm(c *gate.Context) *credentialForm {
	return &credentialForm{
		username: c.Signal(""),
		password: c.Signal(""),
	}
}

func (f *credentialForm) SetUsername(v string) { f.username.SetValue(v) }
func (f *credentialForm) SetPassword(v string) { f.password.SetValue(v) }

// Credentials snapshots the current field values.
func (f *credentialForm) Credentials() auth.Credentials {
	return auth.Credentials{
		Username: f.username.String(),
		Password: f.password.String(),
	}
}
