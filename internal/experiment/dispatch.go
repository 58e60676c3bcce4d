package experiment

import (
	"context"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

// Dispatch tags the event with the experiment, fans it out to every
// registered sink and hands the merged record to the transport exactly
// once. It never blocks on delivery and never fails.
func (c *Controller) Dispatch(name string, props domain.Properties) {
	e := domain.Event{
		Name:       name,
		TestID:     c.cfg.TestID,
		TestName:   c.cfg.TestName,
		Properties: props,
	}

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.logger.Debug("experiment event", "event", name, "properties", map[string]any(props))

	for _, s := range c.sinks {
		c.track(s, e)
	}
	c.transport.Send(e.Record())
}

func (c *Controller) track(s ports.Sink, e domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("sink panicked", "sink", s.Name(), "event", e.Name, "panic", r)
		}
	}()

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Track(ctx, e); err != nil {
		c.logger.Error("sink failed", "sink", s.Name(), "event", e.Name, "error", err)
	}
}
