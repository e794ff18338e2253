package assign

import (
	"slices"

	"go.sotto.dev/sotto/internal/types"
)

// effectiveSet mirrors the host's merge/replace contract for display.
// merge: globally-enabled entities plus the explicitly assigned ones,
// deduplicated by id. replace: exactly the assigned entities.
func effectiveSet[T any](mode types.OverrideMode, all []T, assigned []string, id func(T) string, enabled func(T) bool) []T {
	var out []T
	if mode == types.OverrideReplace {
		for _, e := range all {
			if slices.Contains(assigned, id(e)) {
				out = append(out, e)
			}
		}
		return out
	}

	seen := make(map[string]bool)
	for _, e := range all {
		if enabled(e) || slices.Contains(assigned, id(e)) {
			if !seen[id(e)] {
				seen[id(e)] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// EffectiveCommands returns the commands a matched context would expose,
// for badges and counts. The host performs the real matching.
func EffectiveCommands(wc types.WindowContext, all []types.Command) []types.Command {
	return effectiveSet(wc.CommandMode, all, wc.CommandIDs,
		func(c types.Command) string { return c.ID },
		func(c types.Command) bool { return c.Enabled })
}

// EffectiveDictionaryEntries returns the dictionary entries a matched
// context would expose.
func EffectiveDictionaryEntries(wc types.WindowContext, all []types.DictionaryEntry) []types.DictionaryEntry {
	return effectiveSet(wc.DictionaryMode, all, wc.DictionaryEntryIDs,
		func(e types.DictionaryEntry) string { return e.ID },
		func(e types.DictionaryEntry) bool { return e.Enabled })
}
