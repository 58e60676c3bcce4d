package experiment

import "github.com/emiliopalmerini/abcta/internal/domain"

const (
	attrTest          = "data-ab-test"
	attrVariant       = "data-ab-variant"
	attrVariantActive = "data-variant-active"
)

// apply shows or hides the experiment's treatment elements and marks the
// document root with the active variant. Safe to call repeatedly.
func (c *Controller) apply(v domain.Variant) {
	treatment := c.cfg.Label(domain.Treatment)

	for _, el := range c.document.QueryAll(attrTest, c.cfg.TestName) {
		label, _ := el.Attr(attrVariant)
		if v == domain.Control && label == treatment {
			el.Hide()
			el.SetAttr(attrVariantActive, "false")
			continue
		}
		el.SetAttr(attrVariantActive, "true")
	}

	c.document.AddRootClass("ab-test-" + c.cfg.Label(v))
}
