package assistant

import "strings"

// Category is the intent bucket a user message falls into.
type Category string

const (
	CategoryFactual   Category = "factual"
	CategoryOpinion   Category = "opinion"
	CategoryCreative  Category = "creative"
	CategoryTechnical Category = "technical"
	CategoryUnclear   Category = "unclear"
)

// The classifier is an ordered decision table: the first rule whose keyword
// appears in the lower-cased message wins. Order matters: "what do you
// think" must hit opinion before "what" could drag it into factual.
var rules = []struct {
	category Category
	keywords []string
}{
	{CategoryOpinion, []string{
		"do you think", "your opinion", "what do you feel", "should i",
		"which is better", "best", "worst", "prefer", "favorite",
	}},
	{CategoryCreative, []string{
		"write", "poem", "story", "imagine", "compose", "song", "invent",
		"draw", "brainstorm", "idea for",
	}},
	{CategoryTechnical, []string{
		"code", "bug", "debug", "error", "function", "algorithm", "api",
		"install", "compile", "stack trace", "crash",
	}},
	{CategoryFactual, []string{
		"what is", "what are", "who", "when", "where", "why", "how many",
		"capital", "define", "explain", "history of", "meaning of",
	}},
}

// Classify maps a message to its intent category. Pure: the same input
// always yields the same category.
func Classify(message string) Category {
	text := strings.ToLower(strings.TrimSpace(message))

	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}

	// Nothing matched: very short or trailing-question messages are
	// unclear, everything else is treated as a factual prompt.
	if len(strings.Fields(text)) < 3 || strings.HasSuffix(text, "?") {
		return CategoryUnclear
	}
	return CategoryFactual
}
