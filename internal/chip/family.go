package chip

import (
	"sort"
	"sync"
)

// The family registry maps a family token (for example "STM32F1") to the
// chip identifiers belonging to it. It is process-wide, set once from
// configuration before any ingest. Families are assumed disjoint;
// overlapping definitions resolve in family-name order.
var (
	famMu    sync.RWMutex
	families = map[string][]string{}
)

// SetFamilies replaces the whole family registry.
func SetFamilies(reg map[string][]string) {
	famMu.Lock()
	defer famMu.Unlock()
	families = make(map[string][]string, len(reg))
	for name, members := range reg {
		ms := make([]string, len(members))
		copy(ms, members)
		sort.Strings(ms)
		families[name] = ms
	}
}

// RegisterFamily adds or replaces a single family definition.
func RegisterFamily(name string, members ...string) {
	famMu.Lock()
	defer famMu.Unlock()
	ms := make([]string, len(members))
	copy(ms, members)
	sort.Strings(ms)
	families[name] = ms
}

// ClearFamilies empties the registry. Mainly for tests.
func ClearFamilies() {
	famMu.Lock()
	defer famMu.Unlock()
	families = map[string][]string{}
}

func familyNames() []string {
	famMu.RLock()
	defer famMu.RUnlock()
	names := make([]string, 0, len(families))
	for n := range families {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func familyMembers(name string) []string {
	famMu.RLock()
	defer famMu.RUnlock()
	members, ok := families[name]
	if !ok {
		return nil
	}
	out := make([]string, len(members))
	copy(out, members)
	return out
}
