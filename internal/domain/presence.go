package domain

import "sort"

// SortByPresence orders cast for prompts and reference work: leads first,
// then supporting, then extras, each tier by descending impact. The input is
// not modified.
func SortByPresence(cast []CastMember) []CastMember {
	out := make([]CastMember, len(cast))
	copy(out, cast)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Role.SortWeight() != out[j].Role.SortWeight() {
			return out[i].Role.SortWeight() < out[j].Role.SortWeight()
		}
		return out[i].Impact > out[j].Impact
	})
	return out
}

// PrimaryLeadID picks the lead with the highest impact; ties keep cast order.
func PrimaryLeadID(cast []CastMember) string {
	bestID := ""
	bestImpact := -1.0
	for _, c := range cast {
		if c.Role == RoleLead && c.Impact > bestImpact {
			bestID = c.CastID
			bestImpact = c.Impact
		}
	}
	return bestID
}

// UsageString seeds the screen-presence instruction for one cast member in
// planning prompts.
func UsageString(c CastMember, isPrimary bool) string {
	switch c.Role {
	case RoleLead:
		if isPrimary {
			return "PRIMARY PROTAGONIST - the story follows them, appears in 80%+ of shots"
		}
		if c.Impact >= 0.6 {
			return "CO-LEAD - appears in 60%+ of shots"
		}
		return "SECONDARY LEAD - appears in about half the shots"
	case RoleSupporting:
		if c.Impact >= 0.5 {
			return "MEDIUM PRESENCE - appears in about half the shots, interacts with the lead"
		}
		return "LOW PRESENCE - occasional appearances"
	default:
		if c.Impact >= 0.5 {
			return "LOW PRESENCE - 5-6 shots, must have purpose"
		}
		return "MINIMAL PRESENCE - 1-2 shots, must have purpose"
	}
}
