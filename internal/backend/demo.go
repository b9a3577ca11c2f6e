package backend

import (
	"context"
	"time"

	"levelup/internal/engine"
)

// DemoGenerator serves the built-in four-quest tree. Ids derive from the
// goal id, so a refresh returns the same nodes and merges as a no-op.
type DemoGenerator struct {
	now func() time.Time
}

// NewDemoGenerator returns a demo generator; a nil clock means time.Now.
func NewDemoGenerator(now func() time.Time) *DemoGenerator {
	if now == nil {
		now = time.Now
	}
	return &DemoGenerator{now: now}
}

func (d *DemoGenerator) GenerateTree(ctx context.Context, req engine.GenerateRequest) (*engine.TreePayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return engine.DemoTree(req.Goal, d.now().UTC()), nil
}

func (d *DemoGenerator) RefreshTree(ctx context.Context, req engine.RefreshRequest) (*engine.TreePayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := engine.DemoTree(req.Goal, d.now().UTC())
	if req.TreeID != "" {
		p.ID = req.TreeID
	}
	return p, nil
}
