// Package h builds the HTML of gate pages. Every element, attribute and
// text node is a function returning an [H], rendered by gomponents.
//
// Example:
//
//	h.Form(h.Class("login_form"),
//		h.H1(h.Text("Login")),
//		h.Input(h.Type("text"), h.ID("username")),
//	)
package h

import (
	"io"

	g "maragu.dev/gomponents"
	gc "maragu.dev/gomponents/components"
)

// H is a renderable DOM node.
type H interface {
	Render(w io.Writer) error
}

// Text renders t escaped.
func Text(t string) H { return g.Text(t) }

// Textf renders the formatted string escaped.
func Textf(format string, a ...any) H { return g.Textf(format, a...) }

// If returns n when condition holds. A nil node renders nothing.
func If(condition bool, n H) H {
	if condition {
		return n
	}
	return nil
}

// Document wraps body in an English HTML5 page titled title.
func Document(title string, head []H, body ...H) H {
	return gc.HTML5(gc.HTML5Props{
		Title:    title,
		Language: "en",
		Head:     nodes(head),
		Body:     nodes(body),
	})
}

// Stylesheet links the stylesheet at href.
func Stylesheet(href string) H {
	return Link(Rel("stylesheet"), Href(href))
}

// ModuleScript loads the ES module at src.
func ModuleScript(src string) H {
	return Script(Type("module"), Src(src))
}

func nodes(hs []H) []g.Node {
	out := make([]g.Node, 0, len(hs))
	for _, n := range hs {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
