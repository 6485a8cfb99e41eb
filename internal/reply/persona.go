package reply

import "strings"

// Persona describes the departed loved one a soulcast reply speaks as.
type Persona struct {
	Name         string
	Traits       string
	Relationship string
}

// RelationshipOrDefault resolves the relationship label, deriving it from
// the traits text when not explicitly supplied.
func (p *Persona) RelationshipOrDefault() string {
	if p == nil {
		return "loved one"
	}
	if rel := strings.TrimSpace(p.Relationship); rel != "" {
		return rel
	}
	return ExtractRelationship(p.Traits)
}

// ExtractRelationship derives a relationship label from free-form trait
// text. Checked in a fixed order; "loved one" when nothing matches.
func ExtractRelationship(traits string) string {
	lower := strings.ToLower(traits)

	has := func(markers ...string) bool {
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return true
			}
		}
		return false
	}

	switch {
	case has("grandmother", "grandma"):
		return "grandmother"
	case has("grandfather", "grandpa"):
		return "grandfather"
	case has("mother", "mom"):
		return "mother"
	case has("father", "dad"):
		return "father"
	case has("sister"):
		return "sister"
	case has("brother"):
		return "brother"
	case has("friend"):
		return "friend"
	case has("partner", "spouse"):
		return "partner"
	case has("child", "son", "daughter"):
		return "child"
	}
	return "loved one"
}
