// Package htmldom provides a headless page: an HTML document parsed with
// golang.org/x/net/html plus a simulated window that can be clicked,
// scrolled and unloaded.
package htmldom

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/emiliopalmerini/abcta/internal/ports"
)

const (
	defaultWidth     = 1280
	defaultHeight    = 720
	defaultUserAgent = "abcta-headless/1.0"
)

// Option configures a Page.
type Option func(*Page)

func WithURL(url string) Option { return func(p *Page) { p.url = url } }

func WithUserAgent(ua string) Option { return func(p *Page) { p.userAgent = ua } }

func WithViewport(width, height int) Option {
	return func(p *Page) { p.width, p.height = width, height }
}

// WithScrollHeight sets the total document height in pixels. There is no
// layout engine, so the caller decides how tall the page is.
func WithScrollHeight(h float64) Option { return func(p *Page) { p.scrollHeight = h } }

// Page is a parsed HTML document and the window hosting it.
type Page struct {
	root *html.Node
	body *html.Node

	url          string
	userAgent    string
	width        int
	height       int
	scrollHeight float64

	mu       sync.Mutex
	elements map[*html.Node]*Element
	onScroll []func(ports.ScrollMetrics)
	onUnload []func()
	reloads  int
}

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	p := &Page{
		root:      root,
		url:       "about:blank",
		userAgent: defaultUserAgent,
		width:     defaultWidth,
		height:    defaultHeight,
		elements:  make(map[*html.Node]*Element),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.scrollHeight == 0 {
		p.scrollHeight = float64(p.height) * 3
	}

	p.body = findFirst(root, atom.Body)
	if p.body == nil {
		return nil, fmt.Errorf("page has no body")
	}
	return p, nil
}

// QueryAll returns every element whose attribute name equals value, in
// document order.
func (p *Page) QueryAll(name, value string) []ports.Element {
	var out []ports.Element
	for _, el := range p.Elements(name, value) {
		out = append(out, el)
	}
	return out
}

// Elements is QueryAll with the concrete element type.
func (p *Page) Elements(name, value string) []*Element {
	var out []*Element
	walk(p.root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if v, ok := getAttr(n, name); ok && v == value {
			out = append(out, p.wrap(n))
		}
	})
	return out
}

func (p *Page) AddRootClass(class string) {
	class = strings.TrimSpace(class)
	if class == "" {
		return
	}
	existing, _ := getAttr(p.body, "class")
	classes := strings.Fields(existing)
	if slices.Contains(classes, class) {
		return
	}
	setAttr(p.body, "class", strings.Join(append(classes, class), " "))
}

// RootClasses returns the classes on the document body.
func (p *Page) RootClasses() []string {
	existing, _ := getAttr(p.body, "class")
	return strings.Fields(existing)
}

func (p *Page) URL() string       { return p.url }
func (p *Page) UserAgent() string { return p.userAgent }

func (p *Page) Viewport() (int, int) { return p.width, p.height }

func (p *Page) OnScroll(fn func(ports.ScrollMetrics)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onScroll = append(p.onScroll, fn)
}

func (p *Page) OnUnload(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUnload = append(p.onUnload, fn)
}

// Reload records a reload request; the host decides when to load the page again.
func (p *Page) Reload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads++
}

// Reloads reports how many reloads were requested.
func (p *Page) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// ScrollTo moves the window to y pixels from the top and notifies listeners.
func (p *Page) ScrollTo(y float64) {
	maxY := p.scrollHeight - float64(p.height)
	y = min(max(y, 0), max(maxY, 0))

	m := ports.ScrollMetrics{
		ScrollY:      y,
		ScrollHeight: p.scrollHeight,
		InnerHeight:  float64(p.height),
	}
	for _, fn := range p.scrollListeners() {
		fn(m)
	}
}

// ScrollToPercent scrolls to percent of the scrollable distance.
func (p *Page) ScrollToPercent(percent float64) {
	p.ScrollTo((p.scrollHeight - float64(p.height)) * percent / 100)
}

// Unload notifies unload listeners, as when the visitor leaves the page.
func (p *Page) Unload() {
	p.mu.Lock()
	fns := slices.Clone(p.onUnload)
	p.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Click clicks every visible element whose attribute name equals value
// and returns how many were clicked.
func (p *Page) Click(name, value string) int {
	clicked := 0
	for _, el := range p.Elements(name, value) {
		if el.Hidden() {
			continue
		}
		el.Click()
		clicked++
	}
	return clicked
}

// Render writes the current document as HTML.
func (p *Page) Render(w io.Writer) error {
	return html.Render(w, p.root)
}

func (p *Page) scrollListeners() []func(ports.ScrollMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.onScroll)
}

func (p *Page) wrap(n *html.Node) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.elements[n]; ok {
		return el
	}
	el := &Element{node: n}
	p.elements[n] = el
	return el
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.DataAtom == a {
			found = n
		}
	})
	return found
}
