package ports

// Element is a node of the current document.
type Element interface {
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	// Hide removes the element from layout (display: none).
	Hide()
	Text() string
	OnClick(fn func())
}

// Document is the page currently loaded in the window.
type Document interface {
	// QueryAll returns every element whose attribute name equals value.
	QueryAll(name, value string) []Element
	// AddRootClass adds class to the document body. Adding an existing class is a no-op.
	AddRootClass(class string)
}

// ScrollMetrics is a snapshot of the scroll position of the window.
type ScrollMetrics struct {
	ScrollY      float64
	ScrollHeight float64
	InnerHeight  float64
}

// Window is the host environment the document lives in.
type Window interface {
	URL() string
	UserAgent() string
	Viewport() (width, height int)
	OnScroll(fn func(ScrollMetrics))
	OnUnload(fn func())
	Reload()
}
