package hub

import "github.com/gophpeek/mlxhub/internal/config"

// selectEvictionCandidate implements the Group Policy (spec §4.D): a pure
// function of the target model's group, the group's capacity, and the set
// of currently-running peers in that group (excluding the target itself).
// Returns the name of the peer to evict, or "" if none must be evicted.
//
// If the target has no group, the group has no max_loaded, or the running
// peer count is strictly below max_loaded, no eviction is needed. Otherwise
// the running peer with the oldest start_timestamp is selected, ties
// broken by name for determinism.
func selectEvictionCandidate(group *config.GroupSpec, running []*ModelState) string {
	if group == nil || group.MaxLoaded == nil {
		return ""
	}
	if len(running) < *group.MaxLoaded {
		return ""
	}

	oldest := running[0]
	for _, s := range running[1:] {
		if s.StartTimestamp.Before(oldest.StartTimestamp) ||
			(s.StartTimestamp.Equal(oldest.StartTimestamp) && s.Spec.Name < oldest.Spec.Name) {
			oldest = s
		}
	}
	return oldest.Spec.Name
}
