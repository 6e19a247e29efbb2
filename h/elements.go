package h

import "maragu.dev/gomponents/html"

func A(children ...H) H      { return html.A(nodes(children)...) }
func Button(children ...H) H { return html.Button(nodes(children)...) }
func Div(children ...H) H    { return html.Div(nodes(children)...) }
func Form(children ...H) H   { return html.Form(nodes(children)...) }
func H1(children ...H) H     { return html.H1(nodes(children)...) }
func Input(children ...H) H  { return html.Input(nodes(children)...) }
func Label(children ...H) H  { return html.Label(nodes(children)...) }
func Li(children ...H) H     { return html.Li(nodes(children)...) }
func Link(children ...H) H   { return html.Link(nodes(children)...) }
func Main(children ...H) H   { return html.Main(nodes(children)...) }
func Meta(children ...H) H   { return html.Meta(nodes(children)...) }
func Nav(children ...H) H    { return html.Nav(nodes(children)...) }
func P(children ...H) H      { return html.P(nodes(children)...) }
func Script(children ...H) H { return html.Script(nodes(children)...) }
func Ul(children ...H) H     { return html.Ul(nodes(children)...) }
