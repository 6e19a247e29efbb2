package gate

import (
	"fmt"

	"github.com/sait-khanh/gate/h"
)

// ActionTrigger renders the DOM attributes that call a registered action.
type ActionTrigger struct {
	id string
}

func (a *ActionTrigger) post() string {
	return fmt.Sprintf("@post('/_action/%s')", a.id)
}

// OnSubmit returns an attribute for a <form> that posts the page's signals
// to the action on submit. The browser's own form submission never runs.
func (a *ActionTrigger) OnSubmit() h.H {
	return h.Data("on:submit", "evt.preventDefault();"+a.post())
}
