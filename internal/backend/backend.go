// Package backend holds the skill tree generators the engine can be wired to.
package backend

import (
	"fmt"

	"go.uber.org/zap"

	"levelup/internal/config"
	"levelup/internal/engine"
)

// New builds the generator selected by cfg.Backend.Kind.
func New(cfg *config.Config, log *zap.Logger) (engine.Generator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Backend.Kind {
	case "", config.BackendDemo:
		return NewDemoGenerator(nil), nil
	case config.BackendHTTP:
		c, err := NewHTTPClient(cfg.Backend.URL, WithTimeout(cfg.Backend.Timeout), WithHTTPLogger(log))
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendOpenAI:
		g, err := NewOpenAIGenerator(cfg.OpenAI, log)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}
