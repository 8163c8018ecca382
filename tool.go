package resolva

import (
	"context"
	"fmt"
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// Names of the capabilities the loop may invoke. The set is closed: tools
// are declared at process start and resolved by name through the Registry.
const (
	ToolSearchIncidents   = "search_incidents"
	ToolSearchResolutions = "search_resolutions"
	ToolAnalyzeTrace      = "analyze_trace"
	ToolSuggestResolution = "suggest_resolution"
	ToolGetServiceHealth  = "get_service_health"
)

// ToolSpec is the contract of a tool: its name, the typed parameters it
// accepts, and whether it is safe to retry.
type ToolSpec struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description tells the reasoning strategy what the tool is for.
	Description string

	// Parameters defines the input parameters the tool accepts.
	Parameters map[string]*Parameter

	// Required is the list of required parameter names.
	Required []string

	// Idempotent marks the tool as safe to retry without side effects.
	// All tools defined by this engine are read-only and idempotent.
	Idempotent bool
}

// Validate validates the tool specification.
func (s *ToolSpec) Validate() error {
	eb := goerr.NewBuilder(goerr.V("tool", s.Name))
	if s.Name == "" {
		return eb.Wrap(ErrInvalidTool, "name is required")
	}
	for name, param := range s.Parameters {
		if param == nil || param.Type == "" {
			return eb.Wrap(ErrInvalidTool, "parameter type is required", goerr.V("parameter", name))
		}
	}
	for _, req := range s.Required {
		if _, ok := s.Parameters[req]; !ok {
			return eb.Wrap(ErrInvalidTool, "required parameter not declared", goerr.V("parameter", req))
		}
	}
	return nil
}

// ParameterType is the type of a tool parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Parameter describes a single tool argument.
type Parameter struct {
	Type        ParameterType
	Description string

	// Enum restricts the parameter to the listed values.
	Enum []string

	// Items describes array elements when Type is TypeArray.
	Items *Parameter

	// Default is used when an optional parameter is omitted.
	Default any
}

// Tool is a read-only capability the loop may invoke.
type Tool interface {
	// Spec returns the contract of the tool.
	Spec() ToolSpec

	// Run executes the tool against its collaborator. A returned error is
	// absorbed by the Executor as a ToolFailure, never a session abort.
	// Errors wrapped with Transient are retried.
	Run(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ValidateArgs checks args against the tool contract. It rejects missing
// required parameters, undeclared parameters, type mismatches, and values
// outside a declared enum. The check runs before any collaborator call.
func ValidateArgs(spec ToolSpec, args map[string]any) error {
	eb := goerr.NewBuilder(goerr.V("tool", spec.Name))

	for _, req := range spec.Required {
		if _, ok := args[req]; !ok {
			return eb.Wrap(ErrInvalidArgument, "missing required parameter", goerr.V("parameter", req))
		}
	}

	for name, value := range args {
		param, ok := spec.Parameters[name]
		if !ok {
			return eb.Wrap(ErrInvalidArgument, "undeclared parameter", goerr.V("parameter", name))
		}
		if err := checkType(param, value); err != nil {
			return eb.Wrap(ErrInvalidArgument, err.Error(), goerr.V("parameter", name), goerr.V("value", value))
		}
	}

	return nil
}

func checkType(param *Parameter, value any) error {
	if value == nil {
		return nil
	}

	switch param.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		if len(param.Enum) > 0 && !contains(param.Enum, s) {
			return fmt.Errorf("value %q not in enum %v", s, param.Enum)
		}

	case TypeNumber:
		if _, ok := toFloat(value); !ok {
			return fmt.Errorf("expected number, got %T", value)
		}

	case TypeInteger:
		f, ok := toFloat(value)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("expected integer, got %v (%T)", value, value)
		}

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}

	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
		if param.Items != nil {
			for _, item := range items {
				if err := checkType(param.Items, item); err != nil {
					return err
				}
			}
		}

	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	}

	return nil
}

// toFloat accepts the numeric shapes produced by JSON decoding and by
// strategies building args in Go code.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
