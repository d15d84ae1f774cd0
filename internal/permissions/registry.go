package permissions

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Definition describes a capability registered for a back-office module.
// The canonical identifier is "module.action".
type Definition struct {
	Module      string
	Action      string
	Resource    string
	DependsOn   []string
	Description string
}

// ID returns the canonical "module.action" identifier.
func (d *Definition) ID() string {
	return d.Module + "." + d.Action
}

type definitionRegistry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

var globalRegistry = &definitionRegistry{
	definitions: make(map[string]*Definition),
}

var (
	errNilDefinition  = errors.New("permission: nil definition")
	errEmptyModule    = errors.New("permission: module is required")
	errEmptyAction    = errors.New("permission: action is required")
	errDuplicateID    = errors.New("permission: already registered")
	errSelfDependency = errors.New("permission: cannot depend on itself")

	// ErrUnknownPermission is returned for IDs not present in the registry.
	ErrUnknownPermission = errors.New("permission: unknown permission")
)

// Register adds a capability definition to the global registry.
func Register(def *Definition) error {
	if def == nil {
		return errNilDefinition
	}

	cp := cloneDefinition(def)
	cp.Module = strings.TrimSpace(cp.Module)
	cp.Action = strings.TrimSpace(cp.Action)
	cp.Resource = strings.TrimSpace(cp.Resource)
	if cp.Module == "" {
		return errEmptyModule
	}
	if cp.Action == "" {
		return errEmptyAction
	}
	if cp.Resource == "" {
		cp.Resource = "*"
	}

	id := cp.ID()
	depends, err := normaliseIDs(cp.DependsOn, id)
	if err != nil {
		return err
	}
	cp.DependsOn = depends

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.definitions[id]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, id)
	}

	globalRegistry.definitions[id] = cp
	return nil
}

// Get returns a copy of the definition when registered.
func Get(id string) (*Definition, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	def, ok := globalRegistry.definitions[id]
	if !ok {
		return nil, false
	}
	return cloneDefinition(def), true
}

// GetAll returns a copy of all registered definitions keyed by ID.
func GetAll() map[string]*Definition {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make(map[string]*Definition, len(globalRegistry.definitions))
	for id, def := range globalRegistry.definitions {
		out[id] = cloneDefinition(def)
	}
	return out
}

// GetByModule gathers definitions registered under the specified module.
func GetByModule(module string) []*Definition {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	module = strings.TrimSpace(module)
	var defs []*Definition
	for _, def := range globalRegistry.definitions {
		if def.Module == module {
			defs = append(defs, cloneDefinition(def))
		}
	}
	return defs
}

// Modules returns the distinct module names present in the registry.
func Modules() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	seen := make(map[string]struct{})
	var modules []string
	for _, def := range globalRegistry.definitions {
		if _, ok := seen[def.Module]; ok {
			continue
		}
		seen[def.Module] = struct{}{}
		modules = append(modules, def.Module)
	}
	return modules
}

// ValidateDependencies ensures that all dependencies reference known definitions.
func ValidateDependencies() error {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	for id, def := range globalRegistry.definitions {
		for _, dep := range def.DependsOn {
			if _, ok := globalRegistry.definitions[dep]; !ok {
				return fmt.Errorf("permission: %s depends on unknown permission %s", id, dep)
			}
		}
	}
	return nil
}

func cloneDefinition(def *Definition) *Definition {
	if def == nil {
		return nil
	}

	cp := *def
	if len(def.DependsOn) > 0 {
		cp.DependsOn = append([]string(nil), def.DependsOn...)
	}
	return &cp
}

func normaliseIDs(values []string, self string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(values))
	var result []string

	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if value == self {
			return nil, errSelfDependency
		}
		if _, exists := seen[value]; exists {
			continue
		}

		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result, nil
}

// reset clears registry entries. Intended for testing only.
func reset() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.definitions = make(map[string]*Definition)
}
