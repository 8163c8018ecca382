package resolva

import (
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// Registry is the catalog of invocable tools. It is built at process start
// and read-only afterwards; Lookup is safe for concurrent use across
// sessions.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry with the given tools. Registration fails
// fast on an invalid spec or a duplicated name.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]Tool, len(tools)),
	}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the catalog.
func (r *Registry) Register(tool Tool) error {
	spec := tool.Spec()
	if err := spec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[spec.Name]; ok {
		return goerr.Wrap(ErrDuplicateTool, "tool already registered", goerr.V("tool", spec.Name))
	}
	r.tools[spec.Name] = tool
	return nil
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, goerr.Wrap(ErrUnknownTool, "tool not found", goerr.V("tool", name))
	}
	return tool, nil
}

// Specs returns the contracts of all registered tools, sorted by name.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
