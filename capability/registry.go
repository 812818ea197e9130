package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/costmesh/internal/util"
	"github.com/hupe1980/costmesh/logging"
)

// Registry maps capability names to implementations and dispatches validated
// invocations. The name map is fixed after construction time registration, so
// Invoke is safe from any number of concurrent runs without locking.
//
// Error semantics of Invoke:
//
//	name not registered        -> ErrUnknownCapability (wrapped with the name)
//	undecodable / bad args     -> *InvalidArgumentsError
//	handler error or panic     -> *ExecutionError carrying the original cause
//
// Invoke never lets a handler fault escape as a panic; the run loop relies on
// this to convert every failure into a model-visible error payload.
type Registry struct {
	capabilities map[string]Capability
	logger       logging.Logger
}

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// NewRegistry constructs a Registry holding the given capabilities.
// Registration after construction is intentionally not supported: the
// capability set of an agent is configuration, fixed for its lifetime.
func NewRegistry(caps []Capability, optFns ...func(o *RegistryOptions)) (*Registry, error) {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	m := make(map[string]Capability, len(caps))
	for _, c := range caps {
		if c.Name() == "" {
			return nil, fmt.Errorf("capability with empty name")
		}
		if _, exists := m[c.Name()]; exists {
			return nil, fmt.Errorf("duplicate capability name %q", c.Name())
		}
		m[c.Name()] = c
	}

	return &Registry{capabilities: m, logger: opts.Logger}, nil
}

// Definitions exports the declarative capability set for a model request.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.capabilities))
	for _, c := range r.capabilities {
		defs = append(defs, Definition{
			Name:        c.Name(),
			Description: c.Description(),
			Parameters:  c.Parameters(),
		})
	}
	return defs
}

// Names returns the registered capability names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	return names
}

// Invoke looks up the named capability, validates the raw JSON arguments
// against its schema and executes it.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs string) (result any, err error) {
	impl, ok := r.capabilities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}

	args := map[string]any{}
	if rawArgs != "" {
		if jsonErr := json.Unmarshal([]byte(rawArgs), &args); jsonErr != nil {
			return nil, &InvalidArgumentsError{Capability: name, Cause: jsonErr}
		}
	}

	if valErr := util.ValidateParameters(args, impl.Parameters()); valErr != nil {
		r.logger.Warn("capability.invoke.validation_failed", "capability", name, "error", valErr.Error())
		return nil, &InvalidArgumentsError{Capability: name, Cause: valErr}
	}

	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("capability.invoke.panic", "capability", name, "recover", rec)
			err = &ExecutionError{Capability: name, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()

	result, err = impl.Call(ctx, args)
	if err != nil {
		r.logger.Error("capability.invoke.error", "capability", name, "error", err.Error())
		return nil, &ExecutionError{Capability: name, Cause: err}
	}

	r.logger.Info("capability.invoke.success", "capability", name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
