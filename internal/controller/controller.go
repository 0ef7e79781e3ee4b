package controller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vizlet/vizlet/internal/document"
	"github.com/vizlet/vizlet/internal/fetch"
	"github.com/vizlet/vizlet/internal/logging"
	"github.com/vizlet/vizlet/internal/normalize"
	"github.com/vizlet/vizlet/internal/sandbox"
	"github.com/vizlet/vizlet/internal/theme"
	"github.com/vizlet/vizlet/internal/types"
)

// Config bounds how long a render waits for an outcome signal.
type Config struct {
	// ReadyTimeout is the hard ceiling on waiting for a ready or error
	// message. Expiry is treated as success so a silently-succeeded
	// render does not hang in loading forever.
	ReadyTimeout time.Duration
	// Grace auto-clears loading shortly after execution finishes even
	// if no outcome message arrived at all.
	Grace time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ReadyTimeout: 10 * time.Second,
		Grace:        3 * time.Second,
	}
}

// Controller resolves widget data, builds documents, and drives sandbox
// execution to a render outcome. Every failure stays contained to the
// one widget it belongs to.
type Controller struct {
	fetcher fetch.Fetcher
	builder *document.Builder
	host    *sandbox.Host
	config  Config
	logger  *logging.Logger
}

// New creates a controller.
func New(fetcher fetch.Fetcher, builder *document.Builder, host *sandbox.Host, config Config, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Controller{
		fetcher: fetcher,
		builder: builder,
		host:    host,
		config:  config,
		logger:  logger.Component("controller"),
	}
}

// Resolve produces the normalized data value for a widget.
//
// Cached data wins when present, so a live source with a warm cache never
// touches the network on load. Static sources use their inline payload.
// Live sources fetch through the proxy; on failure any statically
// configured default is used instead, and only when there is no default
// does the widget surface a data error.
func (c *Controller) Resolve(ctx context.Context, spec types.WidgetSpec) (any, error) {
	if spec.CachedData != nil {
		return normalize.Normalize(spec.CachedData), nil
	}

	src := spec.DataSource
	if src.Kind != types.SourceLive {
		return normalize.Normalize(src.Config.Data), nil
	}

	raw, err := c.fetcher.Fetch(ctx, src.Config)
	if err != nil {
		if src.Config.Data != nil {
			c.logger.Debug("live fetch failed, using static default",
				zap.String("widget_id", spec.ID),
				zap.String("source_id", src.Config.SourceID),
				zap.Error(err))
			return normalize.Normalize(src.Config.Data), nil
		}
		return nil, fmt.Errorf("resolve %s: %w", spec.ID, err)
	}
	return normalize.Normalize(raw), nil
}

// Document resolves the widget's data and builds the sandbox document
// around it. The returned HTML is self-contained and ready to host in an
// isolated frame.
func (c *Controller) Document(ctx context.Context, spec types.WidgetSpec) (string, error) {
	data, err := c.Resolve(ctx, spec)
	if err != nil {
		return "", err
	}
	return c.builder.Build(buildSpec(spec, data))
}

// Render resolves, builds, and executes a widget end to end, waiting for
// the outcome signal with timeout-as-success semantics.
func (c *Controller) Render(ctx context.Context, spec types.WidgetSpec) *types.RenderOutcome {
	start := time.Now()

	data, err := c.Resolve(ctx, spec)
	if err != nil {
		// Data failures get their own panel and a retry affordance,
		// distinct from sandbox errors.
		return &types.RenderOutcome{
			State:     types.StateError,
			DataError: err.Error(),
			Retryable: true,
			Duration:  time.Since(start),
		}
	}

	source, fingerprint, err := c.builder.Program(buildSpec(spec, data))
	if err != nil {
		return &types.RenderOutcome{
			State:       types.StateError,
			Error:       err.Error(),
			Fingerprint: fingerprint,
			Duration:    time.Since(start),
		}
	}

	dispatcher := c.host.Dispatcher()
	messages, cancel := dispatcher.Subscribe(spec.ID)
	defer cancel()

	done := make(chan *sandbox.Result, 1)
	go func() {
		result, _ := c.host.Execute(ctx, sandbox.Program{
			WidgetID:    spec.ID,
			Fingerprint: fingerprint,
			Source:      source,
			Data:        data,
		})
		done <- result
	}()

	outcome := c.await(ctx, spec.ID, fingerprint, messages, done)
	outcome.Fingerprint = fingerprint
	outcome.Duration = time.Since(start)
	return outcome
}

// Retry re-runs a widget, forcing a fresh fetch for live sources by
// dropping any cached value.
func (c *Controller) Retry(ctx context.Context, spec types.WidgetSpec) *types.RenderOutcome {
	spec.CachedData = nil
	return c.Render(ctx, spec)
}

// await waits for the widget's outcome message. Execution results fill
// in HTML and console output once available; the message decides the
// state. Stale messages for other fingerprints never arrive here, the
// dispatcher drops them.
func (c *Controller) await(ctx context.Context, widgetID string, fingerprint uint64, messages <-chan types.Message, done chan *sandbox.Result) *types.RenderOutcome {
	ceiling := time.NewTimer(c.config.ReadyTimeout)
	defer ceiling.Stop()

	var result *sandbox.Result
	var grace <-chan time.Time

	for {
		select {
		case msg := <-messages:
			if msg.Fingerprint != fingerprint {
				continue
			}
			outcome := &types.RenderOutcome{State: types.StateReady}
			if msg.Type == types.MessageError {
				outcome.State = types.StateError
				outcome.Error = msg.Error
			}
			c.attach(outcome, result, done)
			return outcome

		case result = <-done:
			done = nil
			if result == nil {
				// Pool failure already dispatched an error message.
				continue
			}
			// Execution finished without us seeing an outcome yet.
			// Give the message a short grace window, then clear
			// loading optimistically.
			timer := time.NewTimer(c.config.Grace)
			defer timer.Stop()
			grace = timer.C

		case <-grace:
			outcome := &types.RenderOutcome{State: types.StateReady, TimedOut: true}
			c.attach(outcome, result, nil)
			return outcome

		case <-ceiling.C:
			c.logger.Warn("widget never signaled an outcome",
				zap.String("widget_id", widgetID),
				zap.Uint64("fingerprint", fingerprint))
			outcome := &types.RenderOutcome{State: types.StateReady, TimedOut: true}
			c.attach(outcome, result, nil)
			return outcome

		case <-ctx.Done():
			return &types.RenderOutcome{
				State: types.StateError,
				Error: ctx.Err().Error(),
			}
		}
	}
}

// attach copies execution artifacts onto the outcome, draining the done
// channel if the execution has not been collected yet.
func (c *Controller) attach(outcome *types.RenderOutcome, result *sandbox.Result, done chan *sandbox.Result) {
	if result == nil && done != nil {
		select {
		case result = <-done:
		case <-time.After(c.config.Grace):
		}
	}
	if result == nil {
		return
	}
	outcome.HTML = result.HTML
	for _, entry := range result.Console {
		outcome.Console = append(outcome.Console, entry.Level+": "+entry.Message)
	}
}

func buildSpec(spec types.WidgetSpec, data any) document.BuildSpec {
	return document.BuildSpec{
		ComponentSource: spec.ComponentSource,
		ComponentKind:   spec.ComponentKind,
		Data:            data,
		Theme:           theme.Normalize(spec.Theme),
		Title:           spec.Title,
		WidgetIndex:     spec.WidgetIndex,
		Overrides:       spec.ThemeOverrides,
	}
}
