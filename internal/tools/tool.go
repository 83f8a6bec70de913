// Package tools defines the callable-action contract exposed to the
// model and the registry that dispatches requested actions.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/tidybook/tidybook/internal/domain"
	"github.com/tidybook/tidybook/internal/llm"
	"github.com/tidybook/tidybook/internal/logging"
)

// ExecContext carries the identity a tool executes under.
type ExecContext struct {
	TenantID   string
	CustomerID string
}

// Tool is a capability the model can invoke during a conversation.
// Tools are stateless with respect to the conversation; anything they
// persist lives behind the storage boundary.
type Tool interface {
	// Name returns the tool's stable identifier.
	Name() string

	// Description returns a description for the model.
	Description() string

	// Schema returns the JSON Schema for the tool's arguments.
	Schema() map[string]any

	// Execute runs the tool and returns its result payload.
	Execute(ctx context.Context, args map[string]any, exec ExecContext) (any, error)
}

// Finalizer marks tools whose successful execution completes the
// conversation's business flow.
type Finalizer interface {
	Finalizes() bool
}

// Registry holds the available tools.
type Registry struct {
	tools map[string]Tool
	log   *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		log:   log.Sub("tools"),
	}
}

// Register adds a tool. Registering a second tool under the same name
// replaces the first.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Declarations returns the declared tools sorted by name, for a stable
// request shape.
func (r *Registry) Declarations() []llm.ToolDecl {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)

	decls := make([]llm.ToolDecl, 0, len(names))
	for _, n := range names {
		t := r.tools[n]
		decls = append(decls, llm.ToolDecl{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	return decls
}

// Dispatch executes one requested action and returns a uniform result
// envelope. Unknown names and panicking tools both become failure
// results; nothing escapes to the caller.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCall, exec ExecContext) (result domain.ToolResult) {
	result = domain.ToolResult{CallID: call.ID, Name: call.Name}

	t, ok := r.tools[call.Name]
	if !ok {
		result.Error = fmt.Sprintf("unknown tool %q", call.Name)
		r.log.Warn().Str("tool", call.Name).Msg("dispatch of unregistered tool")
		return result
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Str("tool", call.Name).Any("panic", p).Msg("tool panicked")
			result = domain.ToolResult{
				CallID: call.ID,
				Name:   call.Name,
				Error:  fmt.Sprintf("tool %q failed: %v", call.Name, p),
			}
		}
	}()

	data, err := t.Execute(ctx, call.Args, exec)
	if err != nil {
		result.Error = err.Error()
		if result.Error == "" {
			result.Error = fmt.Sprintf("tool %q failed", call.Name)
		}
		r.log.Debug().Str("tool", call.Name).Err(err).Msg("tool returned error")
		return result
	}

	result.Success = true
	result.Data = data
	if f, ok := t.(Finalizer); ok && f.Finalizes() {
		result.Final = true
	}
	return result
}
