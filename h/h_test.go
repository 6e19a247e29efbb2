package h

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, n H) string {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, n.Render(&b))
	return b.String()
}

func TestElementsWithAttributes(t *testing.T) {
	out := render(t, Form(Class("login_form"),
		Label(For("username"), Text("Username:")),
		Input(Type("text"), ID("username"), Data("bind", "abc")),
	))
	assert.Equal(t, `<form class="login_form"><label for="username">Username:</label><input type="text" id="username" data-bind="abc"></form>`, out)
}

func TestIfSkipsNilNodes(t *testing.T) {
	out := render(t, Div(If(false, P(Text("hidden"))), If(true, P(Text("shown")))))
	assert.Equal(t, "<div><p>shown</p></div>", out)
}

func TestTextEscapes(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;", render(t, Text("<b>")))
	assert.Equal(t, "3 sign-ins", render(t, Textf("%d sign-ins", 3)))
}

func TestDocument(t *testing.T) {
	out := render(t, Document("Login",
		[]H{nil, ModuleScript("/_datastar.js"), Stylesheet("/assets/login.css")},
		Div(ID("root")), nil,
	))
	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, `<html lang="en">`)
	assert.Contains(t, out, "<title>Login</title>")
	assert.Contains(t, out, `<script type="module" src="/_datastar.js"></script>`)
	assert.Contains(t, out, `<link rel="stylesheet" href="/assets/login.css">`)
	assert.Contains(t, out, `<div id="root"></div>`)
}
