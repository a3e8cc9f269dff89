package assistant

import (
	"math/rand"
	"strings"
)

// Three fixed templates per category. {slot} is filled by the category's
// slot filler before the persona epilogue is appended.
var templates = map[Category][]string{
	CategoryFactual: {
		"Good question. {slot} Happy to dig into any part of that.",
		"Here's what I can tell you: {slot}",
		"Let me share what I know. {slot} Does that cover what you were after?",
	},
	CategoryOpinion: {
		"If you're asking me, {slot}",
		"Honestly? {slot} Though reasonable people disagree on this one.",
		"My take: {slot}",
	},
	CategoryCreative: {
		"I love this kind of prompt. How about this: {slot}",
		"Let's play with that. {slot}",
		"Here's a spark to start from: {slot}",
	},
	CategoryTechnical: {
		"Let's work through it. {slot}",
		"From a practical angle: {slot}",
		"A few things to check first. {slot}",
	},
	CategoryUnclear: {
		"I want to make sure I understand. Could you say a bit more about what you're looking for?",
		"I'm not quite sure what you're asking. Could you rephrase or add some detail?",
		"Tell me a little more and I'll give you a proper answer.",
	},
}

type topicBucket struct {
	name     string
	keywords []string
	fills    []string
}

// Topic buckets for factual slots, picked by keyword with technology as
// the default.
var factualTopics = []topicBucket{
	{
		name:     "science",
		keywords: []string{"science", "physics", "chemistry", "biology", "space", "planet", "atom", "cell"},
		fills: []string{
			"The sciences tend to answer this in layers: the everyday explanation and the deeper mechanism underneath it.",
			"Scientifically speaking, the interesting part is usually the mechanism, not just the headline fact.",
		},
	},
	{
		name:     "history",
		keywords: []string{"history", "war", "ancient", "century", "empire", "king", "queen", "revolution"},
		fills: []string{
			"Historically, the short answer hides a much messier story, and context changes a lot here.",
			"The historical record on this is richer than the one-line version people usually hear.",
		},
	},
	{
		name:     "arts",
		keywords: []string{"art", "music", "painting", "film", "novel", "literature", "poetry", "culture"},
		fills: []string{
			"In the arts this is less about a single right answer and more about traditions talking to each other.",
			"Artistically, the fun part is how many movements claimed this idea as their own.",
		},
	},
	{
		name:     "technology",
		keywords: nil, // default bucket
		fills: []string{
			"In technology terms, this comes down to a trade-off people have been arguing about for decades.",
			"The technical answer is simpler than it sounds once you strip away the jargon.",
		},
	},
}

var opinionFills = []string{
	"I'd lean toward the simpler option, since complexity has a way of costing more than it promises.",
	"I think the honest answer is 'it depends', but if pushed, go with what you can sustain.",
	"I'd pick the one you'll actually enjoy; motivation beats optimization.",
}

var creativeFills = []string{
	"picture the scene at the exact moment everything changes, and start the story there.",
	"take the most ordinary object in the room and make it the hero.",
	"flip the perspective and tell it from the point of view of whoever is usually ignored.",
}

var technicalFills = []string{
	"Reproduce it in the smallest possible setup, then add pieces back until it breaks again.",
	"Read the error from the bottom up; the first cause is usually buried under the noise.",
	"Check the boundaries: inputs, versions, and assumptions are where most of these live.",
}

var connectors = []string{"excel at", "specialize in"}

// Respond composes a full reply: classified template, filled slot, persona
// epilogue. Deterministic for a given message and seeded rng.
func Respond(persona Persona, message string, rng *rand.Rand) string {
	category := Classify(message)

	set := templates[category]
	body := set[rng.Intn(len(set))]

	if strings.Contains(body, "{slot}") {
		body = strings.Replace(body, "{slot}", fillSlot(category, message, rng), 1)
	}

	return body + " " + epilogue(persona, rng)
}

func fillSlot(category Category, message string, rng *rand.Rand) string {
	switch category {
	case CategoryFactual:
		bucket := factualTopic(message)
		return bucket.fills[rng.Intn(len(bucket.fills))]
	case CategoryOpinion:
		return opinionFills[rng.Intn(len(opinionFills))]
	case CategoryCreative:
		return creativeFills[rng.Intn(len(creativeFills))]
	case CategoryTechnical:
		return technicalFills[rng.Intn(len(technicalFills))]
	default:
		return ""
	}
}

func factualTopic(message string) topicBucket {
	text := strings.ToLower(message)
	for _, bucket := range factualTopics {
		for _, kw := range bucket.keywords {
			if strings.Contains(text, kw) {
				return bucket
			}
		}
	}
	// last entry is the technology default
	return factualTopics[len(factualTopics)-1]
}

func epilogue(persona Persona, rng *rand.Rand) string {
	connector := connectors[rng.Intn(len(connectors))]
	return "As a " + persona.Style + " assistant, I " + connector + " " + persona.Strengths + "."
}
