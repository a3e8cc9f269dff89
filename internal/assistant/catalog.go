// Package assistant holds the scripted chat personas and the rule-based
// reply synthesizer. There is no model behind it: replies are composed from
// an intent classifier, canned templates, and persona flavor, which keeps
// the output plausible and fully deterministic under a seeded RNG.
package assistant

// Persona is one catalog entry. Style and Strengths only flavor generated
// text; Capabilities is what the catalog endpoint advertises.
type Persona struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Avatar       string   `json:"avatar"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Provider     string   `json:"provider"`
	IsAvailable  bool     `json:"is_available"`

	Style     string `json:"-"`
	Strengths string `json:"-"`
}

var catalog = []Persona{
	{
		ID:           "sage-ai",
		Name:         "Sage",
		Avatar:       "/avatars/sage.png",
		Description:  "A thoughtful generalist for everyday questions.",
		Capabilities: []string{"general knowledge", "summaries", "recommendations"},
		Provider:     "whisper",
		IsAvailable:  true,
		Style:        "calm and considered",
		Strengths:    "breaking big questions into small ones",
	},
	{
		ID:           "nova-ai",
		Name:         "Nova",
		Avatar:       "/avatars/nova.png",
		Description:  "A creative companion for writing and brainstorming.",
		Capabilities: []string{"storytelling", "brainstorming", "wordplay"},
		Provider:     "whisper",
		IsAvailable:  true,
		Style:        "playful and vivid",
		Strengths:    "finding unexpected angles",
	},
	{
		ID:           "forge-ai",
		Name:         "Forge",
		Avatar:       "/avatars/forge.png",
		Description:  "A practical helper for technical problems.",
		Capabilities: []string{"debugging", "code review", "explanations"},
		Provider:     "whisper",
		IsAvailable:  true,
		Style:        "direct and precise",
		Strengths:    "getting to a working answer fast",
	},
	{
		ID:           "atlas-ai",
		Name:         "Atlas",
		Avatar:       "/avatars/atlas.png",
		Description:  "An archived research assistant.",
		Capabilities: []string{"research", "citations"},
		Provider:     "whisper",
		IsAvailable:  false,
		Style:        "formal and thorough",
		Strengths:    "tracking down details",
	},
}

var welcomes = map[string]string{
	"Sage":  "Hello! I'm Sage. Ask me anything; I like taking questions apart piece by piece.",
	"Nova":  "Hey, I'm Nova! Got something to write, invent, or daydream about? Let's go.",
	"Forge": "Forge here. Describe the problem and I'll help you work through it.",
}

const genericWelcome = "Hello! I'm your assistant. What would you like to talk about?"

// Catalog returns the full persona list, archived entries included.
func Catalog() []Persona {
	return append([]Persona(nil), catalog...)
}

// ByID finds a persona by catalog id.
func ByID(id string) (Persona, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// Resolve adapts the catalog to the conversation store's sender resolver.
func Resolve(senderID string) (name, avatar string, ok bool) {
	p, found := ByID(senderID)
	if !found {
		return "", "", false
	}
	return p.Name, p.Avatar, true
}

// WelcomeText returns the persona-specific greeting, falling back to a
// generic one for unrecognized names.
func WelcomeText(name string) string {
	if w, ok := welcomes[name]; ok {
		return w
	}
	return genericWelcome
}
