package levelid

import (
	"sort"
	"strconv"
	"strings"
)

// Key returns the grouping key of a level id: the trimmed id, with the
// "3.0" rendering pandas writes for integer columns reduced to "3". Keys
// compare exactly; "Forest" and "forest" are different levels.
func Key(id string) string {
	key := strings.TrimSpace(id)
	whole, fraction, ok := strings.Cut(key, ".")
	if !ok || fraction == "" || strings.Trim(fraction, "0") != "" {
		return key
	}
	if _, err := strconv.Atoi(whole); err != nil {
		return key
	}
	return whole
}

// alias folds the spellings a level is commonly written with: "Level 3",
// "level_3", "lvl-3" and "03" all become "3". It is only used to look up
// display names.
func alias(id string) string {
	normalized := strings.TrimSpace(strings.ToLower(id))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if number, ok := canonicalNumber(candidate); ok {
			return number
		}
	}
	return normalized
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	for _, prefix := range []string{"level", "lvl"} {
		candidate := strings.Trim(strings.TrimPrefix(normalized, prefix), "-")
		if candidate != "" && candidate != normalized {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// canonicalNumber accepts integral numbers, including the "3.0" form pandas
// writes for integer columns that contain NaN.
func canonicalNumber(value string) (string, bool) {
	if n, err := strconv.Atoi(value); err == nil {
		return strconv.Itoa(n), true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != float64(int64(f)) {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// Names maps level keys to display names.
type Names map[string]string

// DefaultNames are the levels of the TGM experiments.
func DefaultNames() Names {
	return Names{
		"3": "Wall",
		"4": "Wall + Elevation",
		"5": "Ceiling",
		"6": "Chasm",
	}
}

// With returns a copy of n overlaid by overrides.
func (n Names) With(overrides map[string]string) Names {
	out := make(Names, len(n)+len(overrides))
	for id, name := range n {
		out[Key(id)] = name
	}
	for id, name := range overrides {
		if name = strings.TrimSpace(name); name != "" {
			out[Key(id)] = name
		}
	}
	return out
}

// Display returns the display name of id, or "Level <id>" when unknown.
// An exact key match wins; otherwise spellings such as "Level 3" find the
// name registered for "3".
func (n Names) Display(id string) string {
	key := Key(id)
	if name, ok := n[key]; ok {
		return name
	}
	if folded := alias(key); folded != "" {
		for _, candidate := range Sorted(n.keys()) {
			if alias(candidate) == folded {
				return n[candidate]
			}
		}
	}
	if key == "" {
		return "Level ?"
	}
	return "Level " + key
}

func (n Names) keys() []string {
	keys := make([]string, 0, len(n))
	for key := range n {
		keys = append(keys, key)
	}
	return keys
}

// Less orders level ids numerically when both are numbers, lexically
// otherwise; numbers sort first.
func Less(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	}
	return a < b
}

// Sorted returns ids sorted with Less.
func Sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}
