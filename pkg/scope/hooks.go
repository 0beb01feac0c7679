package scope

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// OnLoadHandler is called for each component loaded from the scope
type OnLoadHandler func(context.Context, *Component) error

type hooks struct {
	mx       sync.RWMutex
	handlers []OnLoadHandler
	l        *zap.Logger
}

func (h *hooks) register(handler OnLoadHandler) {
	h.mx.Lock()
	defer h.mx.Unlock()
	h.handlers = append(h.handlers, handler)
}

// run calls every handler in registration order. A failing handler is logged and does not stop the others.
func (h *hooks) run(ctx context.Context, c *Component) error {
	h.mx.RLock()
	handlers := make([]OnLoadHandler, len(h.handlers))
	copy(handlers, h.handlers)
	h.mx.RUnlock()

	var errs error
	for i, handler := range handlers {
		if err := handler(ctx, c); err != nil {
			h.l.Warn("on-load handler failed",
				zap.Int("handler", i),
				zap.Stringer("id", c.ID),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
