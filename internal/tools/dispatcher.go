package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/metrics"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, args Args) (any, error)

type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`
}

// Result is what every tool call returns: Data on success, Error otherwise.
type Result struct {
	Success bool                  `json:"success"`
	Data    any                   `json:"data,omitempty"`
	Error   *appErrors.Descriptor `json:"error,omitempty"`
}

// Dispatcher routes named tool calls to their handlers. Register all tools
// before serving; Call is safe for concurrent use afterwards.
type Dispatcher struct {
	tools  map[string]Tool
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

func (d *Dispatcher) Register(tool Tool) error {
	if tool.Name == "" || tool.Handler == nil {
		return fmt.Errorf("tool needs a name and a handler")
	}
	if _, exists := d.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	d.tools[tool.Name] = tool
	return nil
}

// Definitions lists the registered tools sorted by name.
func (d *Dispatcher) Definitions() []Definition {
	defs := make([]Definition, 0, len(d.tools))
	for _, t := range d.tools {
		params := t.Params
		if params == nil {
			params = []Param{}
		}
		defs = append(defs, Definition{Name: t.Name, Description: t.Description, Params: params})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (result Result) {
	start := time.Now()
	kind := "ok"
	defer func() {
		metrics.ObserveToolCall(name, kind, time.Since(start))
	}()

	tool, ok := d.tools[name]
	if !ok {
		kind = appErrors.ErrCodeValidation
		return failure(appErrors.ValidationError(fmt.Sprintf("Unknown tool '%s'", name)))
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked", zap.String("tool", name), zap.Any("panic", r))
			kind = appErrors.ErrCodeInternal
			result = failure(appErrors.InternalError("Internal error"))
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	data, err := tool.Handler(ctx, Args(args))
	if err != nil {
		desc := appErrors.Describe(err)
		kind = desc.Kind

		fields := []zap.Field{zap.String("tool", name), zap.String("kind", desc.Kind), zap.Error(err)}
		if desc.Kind == appErrors.ErrCodeInternal || desc.Kind == appErrors.ErrCodeStoreUnavailable {
			d.logger.Error("tool call failed", fields...)
		} else {
			d.logger.Info("tool call rejected", fields...)
		}

		return Result{Success: false, Error: desc}
	}

	d.logger.Debug("tool call succeeded", zap.String("tool", name), zap.Duration("elapsed", time.Since(start)))

	return Result{Success: true, Data: data}
}

func failure(err error) Result {
	return Result{Success: false, Error: appErrors.Describe(err)}
}
