// Package agent resolves agent profiles to model bindings and tool sets,
// drives the reasoning loop, classifies provider failures into user-safe
// messages and performs best-effort conversation naming.
package agent

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Tool is an externally-resolved callable capability made available to the
// reasoning loop for a given turn.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema of the tool input.
	Parameters() string
	Run(ctx context.Context, input string) (string, error)
}

// ToolCatalog discovers the executable capabilities available to agents.
type ToolCatalog interface {
	Discover(ctx context.Context) ([]Tool, error)
}

type catalogState int

const (
	catalogUninitialized catalogState = iota
	catalogReady
)

// StaticCatalog serves a fixed set of registered tools. Discovery is
// idempotent: the first call initializes the catalog under a single-flight
// guard and flips the state to ready; later calls reuse the result.
type StaticCatalog struct {
	build func(ctx context.Context) ([]Tool, error)

	group singleflight.Group
	// state is stored only after tools is published, so a reader that
	// observes catalogReady may read tools without further locking.
	state atomic.Int32
	tools []Tool
}

// NewStaticCatalog creates a catalog whose tool set is produced once by the
// given build function.
func NewStaticCatalog(build func(ctx context.Context) ([]Tool, error)) *StaticCatalog {
	return &StaticCatalog{build: build}
}

// NewBuiltinCatalog returns the catalog of tools shipped with the server.
func NewBuiltinCatalog() *StaticCatalog {
	return NewStaticCatalog(func(_ context.Context) ([]Tool, error) {
		return []Tool{&clockTool{}}, nil
	})
}

func (c *StaticCatalog) Discover(ctx context.Context) ([]Tool, error) {
	if catalogState(c.state.Load()) == catalogReady {
		return c.tools, nil
	}

	_, err, _ := c.group.Do("init", func() (interface{}, error) {
		if catalogState(c.state.Load()) == catalogReady {
			return nil, nil
		}
		tools, err := c.build(ctx)
		if err != nil {
			return nil, err
		}
		c.tools = tools
		c.state.Store(int32(catalogReady))
		slog.Info("tool catalog initialized", "tools", len(tools))
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return c.tools, nil
}

// clockTool reports the current server time. It exists so agents with no
// domain tools still exercise the tool-call path end to end.
type clockTool struct{}

func (t *clockTool) Name() string        { return "current_time" }
func (t *clockTool) Description() string { return "Returns the current date and time on the server." }
func (t *clockTool) Parameters() string {
	return `{"type":"object","properties":{},"additionalProperties":false}`
}

func (t *clockTool) Run(_ context.Context, _ string) (string, error) {
	return time.Now().Format(time.RFC1123), nil
}
