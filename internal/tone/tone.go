package tone

import "strings"

// Category is one of the eight fixed emotional categories assigned to a
// user's free-text input.
type Category string

const (
	Happy    Category = "happy"
	Sad      Category = "sad"
	Excited  Category = "excited"
	Stressed Category = "stressed"
	Hopeful  Category = "hopeful"
	Angry    Category = "angry"
	Fearful  Category = "fearful"
	Calm     Category = "calm"
)

// Categories lists every category in detection priority order, Calm last.
var Categories = []Category{Happy, Sad, Excited, Stressed, Hopeful, Angry, Fearful, Calm}

// categoryMarkers is checked in order; the first category with a matching
// marker wins. Order matters for reproducible classification.
var categoryMarkers = []struct {
	category Category
	markers  []string
}{
	{Happy, []string{
		"happy", "joy", "great", "amazing", "wonderful", "excited", "love",
		"fantastic", "awesome", "celebrate", "achieved", "success", "proud",
		"accomplished", "thrilled", "promoted", "promotion",
	}},
	{Sad, []string{
		"sad", "down", "upset", "depressed", "hurt", "crying", "lonely",
		"miss", "lost", "broken", "disappointed", "grief", "devastated",
		"heartbroken",
	}},
	{Excited, []string{
		"excited", "thrilled", "pumped", "can't wait", "looking forward",
		"energy", "motivated", "inspired", "passionate", "eager",
		"enthusiastic",
	}},
	{Stressed, []string{
		"stressed", "overwhelmed", "anxious", "worried", "panic", "pressure",
		"exhausted", "tired", "burnout", "difficult", "struggling", "hard",
		"chaos", "frantic", "swamped",
	}},
	{Hopeful, []string{
		"hope", "better", "positive", "optimistic", "future", "dream",
		"goal", "believe", "faith", "improve", "grow", "change",
		"possibility", "potential",
	}},
	{Angry, []string{
		"angry", "mad", "furious", "frustrated", "annoyed", "irritated",
		"hate", "unfair", "stupid", "rage", "pissed", "outraged",
	}},
	{Fearful, []string{
		"scared", "afraid", "fear", "nervous", "terrified", "worried",
		"uncertain", "doubt", "anxious", "paranoid", "insecure",
	}},
}

// Detect classifies free text into exactly one category. Pure and total:
// every input maps to a category, no match yields Calm.
func Detect(text string) Category {
	lower := strings.ToLower(text)
	for _, entry := range categoryMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(lower, marker) {
				return entry.category
			}
		}
	}
	return Calm
}
