package tone

import "strings"

// Themes flags the subject areas mentioned in an input.
type Themes struct {
	Work         bool
	Relationship bool
	Family       bool
	Health       bool
	Money        bool
	Future       bool
	Past         bool
	Achievement  bool
	Failure      bool
	Social       bool
	School       bool
	Creative     bool
}

// TimeContext flags when the input situates itself.
type TimeContext struct {
	Today    bool
	Recently bool
	Future   bool
	Past     bool
}

// Intensity flags how charged the input reads.
type Intensity struct {
	High        bool
	Urgent      bool
	Questioning bool
}

// Context is the deterministic signal extracted from an input alongside its
// tone category. It feeds prompt construction and template selection.
type Context struct {
	Themes    Themes
	Time      TimeContext
	Intensity Intensity
}

func anyOf(lower string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// AnalyzeContext extracts theme, time, and intensity flags from free text.
// Pure: same input, same flags.
func AnalyzeContext(text string) Context {
	lower := strings.ToLower(text)
	return Context{
		Themes: Themes{
			Work:         anyOf(lower, "work", "job", "career", "boss", "office", "meeting"),
			Relationship: anyOf(lower, "relationship", "partner", "boyfriend", "girlfriend", "husband", "wife", "dating"),
			Family:       anyOf(lower, "family", "mom", "dad", "parent", "child", "sibling", "brother", "sister"),
			Health:       anyOf(lower, "health", "sick", "pain", "doctor", "hospital", "medicine"),
			Money:        anyOf(lower, "money", "financial", "debt", "bills", "expensive", "budget", "salary"),
			Future:       anyOf(lower, "future", "tomorrow", "plan", "goal", "dream", "next"),
			Past:         anyOf(lower, "past", "yesterday", "before", "used to", "remember", "regret"),
			Achievement:  anyOf(lower, "accomplished", "achieved", "success", "proud", "won", "completed", "promoted", "promotion"),
			Failure:      anyOf(lower, "failed", "mistake", "wrong", "messed up", "regret", "disappointed"),
			Social:       anyOf(lower, "friends", "social", "party", "people", "lonely", "isolated"),
			School:       anyOf(lower, "school", "college", "university", "study", "exam", "grade"),
			Creative:     anyOf(lower, "art", "music", "write", "create", "design", "paint"),
		},
		Time: TimeContext{
			Today:    anyOf(lower, "today", "right now"),
			Recently: anyOf(lower, "recently", "lately", "this week"),
			Future:   anyOf(lower, "tomorrow", "next", "will", "going to"),
			Past:     anyOf(lower, "yesterday", "last", "ago", "before"),
		},
		Intensity: Intensity{
			High:        anyOf(lower, "extremely", "really", "so much", "very", "incredibly"),
			Urgent:      anyOf(lower, "urgent", "emergency", "crisis", "help", "desperate"),
			Questioning: anyOf(lower, "?", "why", "how", "what", "should i"),
		},
	}
}

// PrimaryTheme returns the first matched theme in a fixed order, or "" when
// the input matched none. Used to keep prompt hints stable.
func (t Themes) PrimaryTheme() string {
	switch {
	case t.Work:
		return "work"
	case t.Relationship:
		return "relationship"
	case t.Family:
		return "family"
	case t.Health:
		return "health"
	case t.Money:
		return "money"
	case t.Future:
		return "future"
	case t.Past:
		return "past"
	case t.Achievement:
		return "achievement"
	case t.Failure:
		return "failure"
	case t.Social:
		return "social"
	case t.School:
		return "school"
	case t.Creative:
		return "creative"
	}
	return ""
}
