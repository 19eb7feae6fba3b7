package tools

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultAliases maps names the model is known to invent onto real tools.
var DefaultAliases = map[string]ToolID{
	"Fakta":         SearchWeb,
	"edit_document": ImproveActiveDocument,
	"open_app":      OpenApplication,
}

// Aliases is an alias table bound to a registry.
type Aliases struct {
	reg   *Registry
	table map[string]ToolID
}

// NewAliases merges the default table with extra entries and checks every
// target against reg.
func NewAliases(reg *Registry, extra map[string]ToolID) (*Aliases, error) {
	table := make(map[string]ToolID, len(DefaultAliases)+len(extra))
	for k, v := range DefaultAliases {
		table[k] = v
	}
	for k, v := range extra {
		table[k] = v
	}

	if err := CheckAliases(reg, table); err != nil {
		return nil, err
	}

	return &Aliases{reg: reg, table: table}, nil
}

// Resolve returns the registered tool a model-produced name refers to.
// Registered names win over aliases.
func (a *Aliases) Resolve(name string) (ToolID, bool) {
	id := ToolID(name)
	if a.reg.Has(id) {
		return id, true
	}

	target, ok := a.table[name]
	if !ok {
		return "", false
	}

	return target, a.reg.Has(target)
}

// CheckAliases reports every alias whose target is not registered.
func CheckAliases(reg *Registry, table map[string]ToolID) error {
	var bad []string
	for alias, target := range table {
		if !reg.Has(target) {
			bad = append(bad, fmt.Sprintf("%s->%s", alias, target))
		}
	}
	if len(bad) == 0 {
		return nil
	}

	sort.Strings(bad)
	return fmt.Errorf("aliases point at unregistered tools: %s", strings.Join(bad, ", "))
}
