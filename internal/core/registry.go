package core

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultReportKey names the report used when a request does not pick one.
const DefaultReportKey = "monthly"

var (
	registry   = make(map[string]ReportDefinition)
	registryMu sync.RWMutex
)

// Register adds a report definition to the registry.
// Panics if the definition is incomplete or its key is already registered.
func Register(def ReportDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if def.Key == "" {
		panic("report definition missing key")
	}
	if def.GroupColumn == "" {
		panic(fmt.Sprintf("report %s missing group column", def.Key))
	}
	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("report already registered: %s", def.Key))
	}

	if def.Label == "" {
		def.Label = def.Key
	}

	registry[def.Key] = def
}

// Get returns a report definition by key.
// Returns false if not found.
func Get(key string) (ReportDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered report definitions.
// Sorted by key for consistent ordering.
func All() []ReportDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ReportDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// ReportCount returns the number of registered reports.
func ReportCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered reports.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ReportDefinition)
}
