package htmldom

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Element wraps a single element node of a Page.
type Element struct {
	node *html.Node

	mu      sync.Mutex
	onClick []func()
}

func (e *Element) Attr(name string) (string, bool) {
	return getAttr(e.node, name)
}

func (e *Element) SetAttr(name, value string) {
	setAttr(e.node, name, value)
}

// Hide sets display: none, keeping any other inline style.
func (e *Element) Hide() {
	style, _ := getAttr(e.node, "style")
	var decls []string
	for _, d := range strings.Split(style, ";") {
		d = strings.TrimSpace(d)
		if d == "" || strings.HasPrefix(strings.ReplaceAll(d, " ", ""), "display:") {
			continue
		}
		decls = append(decls, d)
	}
	decls = append(decls, "display: none")
	setAttr(e.node, "style", strings.Join(decls, "; "))
}

// Hidden reports whether the element carries an inline display: none.
func (e *Element) Hidden() bool {
	style, _ := getAttr(e.node, "style")
	return strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none")
}

// Text returns the concatenated text content of the element.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return b.String()
}

func (e *Element) OnClick(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClick = append(e.onClick, fn)
}

// Click runs the element's click listeners in registration order.
func (e *Element) Click() {
	e.mu.Lock()
	fns := append([]func(){}, e.onClick...)
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}
