package htmldom

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/abcta/internal/ports"
)

const samplePage = `<!doctype html>
<html><head><title>Framework</title></head>
<body class="md-typeset">
  <nav>
    <a href="/docs/" data-ab-test="navigation-cta-button" data-ab-variant="control">Docs</a>
    <a href="https://github.com/org/repo" style="color: red"
       data-ab-test="navigation-cta-button" data-ab-variant="treatment"
       data-tracking="contribute-cta-click" data-tracking-location="header-navigation">
       <span>Contribute</span> on GitHub
    </a>
  </nav>
</body></html>`

func parseSample(t *testing.T, opts ...Option) *Page {
	t.Helper()
	p, err := Parse(strings.NewReader(samplePage), opts...)
	require.NoError(t, err)
	return p
}

func TestPage_QueryAll(t *testing.T) {
	p := parseSample(t)

	els := p.QueryAll("data-ab-test", "navigation-cta-button")
	require.Len(t, els, 2)

	v, ok := els[1].Attr("data-ab-variant")
	assert.True(t, ok)
	assert.Equal(t, "treatment", v)
	assert.Equal(t, "Contribute on GitHub", strings.Join(strings.Fields(els[1].Text()), " "))

	assert.Empty(t, p.QueryAll("data-ab-test", "other"))
}

func TestPage_QueryAllReturnsStableElements(t *testing.T) {
	p := parseSample(t)

	clicks := 0
	p.Elements("data-tracking", "contribute-cta-click")[0].OnClick(func() { clicks++ })

	assert.Equal(t, 1, p.Click("data-tracking", "contribute-cta-click"))
	assert.Equal(t, 1, clicks)
}

func TestElement_HideKeepsOtherStyles(t *testing.T) {
	p := parseSample(t)
	el := p.Elements("data-ab-variant", "treatment")[0]

	el.Hide()
	el.Hide()

	style, _ := el.Attr("style")
	assert.Equal(t, "color: red; display: none", style)
	assert.True(t, el.Hidden())
}

func TestPage_ClickSkipsHiddenElements(t *testing.T) {
	p := parseSample(t)
	el := p.Elements("data-tracking", "contribute-cta-click")[0]
	clicks := 0
	el.OnClick(func() { clicks++ })

	el.Hide()

	assert.Zero(t, p.Click("data-tracking", "contribute-cta-click"))
	assert.Zero(t, clicks)
}

func TestPage_AddRootClass(t *testing.T) {
	p := parseSample(t)

	p.AddRootClass("ab-test-control")
	p.AddRootClass("ab-test-control")

	assert.Equal(t, []string{"md-typeset", "ab-test-control"}, p.RootClasses())
}

func TestPage_ScrollToPercent(t *testing.T) {
	p := parseSample(t, WithViewport(800, 600), WithScrollHeight(2600))

	var got []ports.ScrollMetrics
	p.OnScroll(func(m ports.ScrollMetrics) { got = append(got, m) })

	p.ScrollToPercent(50)
	p.ScrollToPercent(150)

	require.Len(t, got, 2)
	assert.Equal(t, ports.ScrollMetrics{ScrollY: 1000, ScrollHeight: 2600, InnerHeight: 600}, got[0])
	assert.Equal(t, 2000.0, got[1].ScrollY, "scroll is clamped to the bottom of the page")
}

func TestPage_WindowProperties(t *testing.T) {
	p := parseSample(t, WithURL("https://example.org/?debug=true"), WithUserAgent("ua"), WithViewport(390, 844))

	assert.Equal(t, "https://example.org/?debug=true", p.URL())
	assert.Equal(t, "ua", p.UserAgent())
	w, h := p.Viewport()
	assert.Equal(t, 390, w)
	assert.Equal(t, 844, h)

	p.Reload()
	assert.Equal(t, 1, p.Reloads())

	unloads := 0
	p.OnUnload(func() { unloads++ })
	p.Unload()
	assert.Equal(t, 1, unloads)
}

func TestPage_Render(t *testing.T) {
	p := parseSample(t)
	p.Elements("data-ab-variant", "treatment")[0].SetAttr("data-variant-active", "false")
	p.AddRootClass("ab-test-control")

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf))

	out := buf.String()
	assert.Contains(t, out, `data-variant-active="false"`)
	assert.Contains(t, out, `class="md-typeset ab-test-control"`)
}
