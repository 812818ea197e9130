package capability

import (
	"context"

	"github.com/hupe1980/costmesh/internal/util"
)

// Function is a generic adapter that exposes a plain Go function as a Capability.
//
// It holds a lightweight JSON-Schema-like parameter specification and invokes
// the wrapped function with the decoded argument map. Validation happens in the
// Registry before Call is reached, so the function body may assume the schema's
// required fields are present with the declared types.
//
// A Function has no internal mutable state after construction and is safe for
// concurrent use by multiple goroutines.
type Function struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunction constructs a Function from an explicit schema and implementation.
//
// Example:
//
//	sum := capability.NewFunction(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(_ context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunction(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *Function {
	return &Function{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionFromStruct derives the parameter schema from a struct using
// reflection. Convenience for simple argument containers.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
func NewFunctionFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *Function {
	return NewFunction(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique capability name used in function call declarations and routing.
func (f *Function) Name() string { return f.name }

// Description returns the short natural language description exposed to models.
func (f *Function) Description() string { return f.description }

// Parameters returns the JSON schema describing expected arguments.
func (f *Function) Parameters() map[string]any { return f.parameters }

// Call invokes the underlying function.
func (f *Function) Call(ctx context.Context, args map[string]any) (any, error) {
	return f.fn(ctx, args)
}
