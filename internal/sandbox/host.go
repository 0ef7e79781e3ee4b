package sandbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/vizlet/vizlet/internal/logging"
	"github.com/vizlet/vizlet/internal/types"
)

// Host executes widget programs in pooled sandboxes and feeds their outcome
// messages through the dispatcher. Each execution advances the widget's
// generation first, so anything still in flight for the old content is
// retroactively orphaned.
type Host struct {
	pool       *Pool
	dispatcher *Dispatcher
	logger     *logging.Logger
}

// NewHost creates an execution host.
func NewHost(config Config, poolSize int, dispatcher *Dispatcher, logger *logging.Logger) (*Host, error) {
	pool, err := NewPool(config, poolSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Host{
		pool:       pool,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// Dispatcher exposes the host's message channel.
func (h *Host) Dispatcher() *Dispatcher {
	return h.dispatcher
}

// Execute runs one program. The execution error (if any) is already
// reflected in the result's messages; callers that only care about the
// outcome can consume the dispatcher instead.
func (h *Host) Execute(ctx context.Context, program Program) (*Result, error) {
	h.dispatcher.Advance(program.WidgetID, program.Fingerprint)

	result, err := h.pool.Execute(ctx, program)
	if err != nil && result == nil {
		// Pool-level failure: no sandbox ever ran. Surface it as an
		// error outcome so the widget does not hang in loading.
		h.logger.Warn("sandbox acquisition failed",
			zap.String("widget_id", program.WidgetID),
			zap.Error(err))
		h.dispatcher.Dispatch(types.Message{
			Type:        types.MessageError,
			Error:       err.Error(),
			WidgetID:    program.WidgetID,
			Fingerprint: program.Fingerprint,
		})
		return nil, err
	}

	for _, msg := range result.Messages {
		h.dispatcher.Dispatch(msg)
	}

	if err != nil {
		h.logger.Debug("widget execution failed",
			zap.String("widget_id", program.WidgetID),
			zap.Uint64("fingerprint", program.Fingerprint),
			zap.Error(err))
	}
	return result, err
}

// Stats reports pool utilization.
func (h *Host) Stats() map[string]any {
	return h.pool.Stats()
}

// Close releases all sandboxes.
func (h *Host) Close() error {
	return h.pool.Close()
}
