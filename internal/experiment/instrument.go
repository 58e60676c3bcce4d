package experiment

import (
	"math"
	"strings"
	"time"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

const (
	attrTracking         = "data-tracking"
	attrTrackingLocation = "data-tracking-location"
	attrHref             = "href"
)

func (c *Controller) trackButtonClicks() {
	for _, el := range c.document.QueryAll(attrTracking, c.cfg.TrackingAttributes.Button) {
		el.OnClick(func() {
			c.Dispatch(domain.EventCTAClick, domain.Properties{
				"button_text":       strings.TrimSpace(el.Text()),
				"button_href":       optionalAttr(el, attrHref),
				domain.KeyVariant:   c.VariantLabel(),
				"location":          optionalAttr(el, attrTrackingLocation),
				domain.KeyTimestamp: domain.Timestamp(c.clock.Now()),
				domain.KeySessionID: c.sessionID,
			})
		})
	}
}

// optionalAttr returns the attribute value, or nil when it is absent so
// the record carries a JSON null.
func optionalAttr(el ports.Element, name string) any {
	if v, ok := el.Attr(name); ok {
		return v
	}
	return nil
}

func (c *Controller) trackImpression() {
	width, height := c.window.Viewport()
	c.Dispatch(domain.EventImpression, domain.Properties{
		domain.KeyVariant:   c.VariantLabel(),
		domain.KeyTestName:  c.cfg.TestName,
		domain.KeyTimestamp: domain.Timestamp(c.clock.Now()),
		domain.KeySessionID: c.sessionID,
		"page_url":          c.window.URL(),
		"user_agent":        c.window.UserAgent(),
		"viewport_width":    width,
		"viewport_height":   height,
	})
}

// trackEngagement counts whole seconds on page with a one second ticker
// and reports them once, when the window unloads.
func (c *Controller) trackEngagement() {
	ticker := c.clock.NewTicker(time.Second)
	stop := make(chan struct{})
	done := make(chan int, 1)

	go func() {
		seconds := 0
		for {
			select {
			case <-ticker.C():
				seconds++
			case <-stop:
				ticker.Stop()
				done <- seconds
				return
			}
		}
	}()

	c.stopEngagement = func(emit bool) {
		close(stop)
		seconds := <-done
		if !emit {
			return
		}
		c.Dispatch(domain.EventPageEngagement, domain.Properties{
			domain.KeyVariant:   c.VariantLabel(),
			"time_on_page":      seconds,
			domain.KeySessionID: c.sessionID,
		})
	}

	c.window.OnUnload(func() {
		c.engagementOnce.Do(func() { c.stopEngagement(true) })
	})
}

func (c *Controller) trackScrollDepth() {
	c.window.OnScroll(c.onScroll)
}

func (c *Controller) onScroll(m ports.ScrollMetrics) {
	scrollable := m.ScrollHeight - m.InnerHeight
	if scrollable <= 0 {
		return
	}
	raw := m.ScrollY * 100 / scrollable
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return
	}
	percent := int(math.Floor(raw))

	c.scrollMu.Lock()
	if percent <= c.maxScroll {
		c.scrollMu.Unlock()
		return
	}
	prev := c.maxScroll
	c.maxScroll = percent
	c.scrollMu.Unlock()

	for _, milestone := range crossedMilestones(prev, percent) {
		c.Dispatch(domain.EventScrollDepth, domain.Properties{
			domain.KeyVariant:   c.VariantLabel(),
			"depth":             milestone,
			domain.KeySessionID: c.sessionID,
		})
	}
}

// crossedMilestones returns, in ascending order, the milestones m with
// prev < m <= next.
func crossedMilestones(prev, next int) []int {
	var crossed []int
	for _, m := range domain.ScrollMilestones {
		if prev < m && m <= next {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// trackStarStatus reports whether the visitor starred the project's
// repository. It only runs when a checker is configured; failures are
// logged and never retried.
func (c *Controller) trackStarStatus() {
	if c.starChecker == nil || c.cfg.GitHubRepo == "" {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("star status check panicked", "panic", r)
			}
		}()

		starred, err := c.starChecker.HasStarred(c.ctx, c.cfg.GitHubRepo)
		if err != nil {
			c.logger.Error("failed to check star status", "repo", c.cfg.GitHubRepo, "error", err)
			return
		}
		c.Dispatch(domain.EventGitHubStar, domain.Properties{
			domain.KeyVariant:   c.VariantLabel(),
			"has_starred":       starred,
			domain.KeySessionID: c.sessionID,
		})
	}()
}
