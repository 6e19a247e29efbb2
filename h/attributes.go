package h

import "maragu.dev/gomponents/html"

func AutoComplete(v string) H { return html.AutoComplete(v) }
func Class(v string) H        { return html.Class(v) }
func For(v string) H          { return html.For(v) }
func Href(v string) H         { return html.Href(v) }
func ID(v string) H           { return html.ID(v) }
func Name(v string) H         { return html.Name(v) }
func Rel(v string) H          { return html.Rel(v) }
func Src(v string) H          { return html.Src(v) }
func Type(v string) H         { return html.Type(v) }

// Data creates a data-* attribute. Datastar reads its bindings from these,
// e.g. Data("bind", "username") renders data-bind="username".
func Data(name, v string) H { return html.Data(name, v) }
