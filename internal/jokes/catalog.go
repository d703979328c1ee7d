package jokes

import (
	"slices"
	"strings"
	"unicode"
)

var categories = []string{
	"dad developer",
	"chuck norris developer",
	"ai philosopher",
	"bug whisperer",
	"old-school coder",
	"frontend philosopher",
	"backend barbarian",
	"cloud comedian",
	"data scientist monk",
	"cybersecurity cynic",
	"devops therapist",
	"agentic ai joker",
	"prompt poet",
	"math & logic nerd",
	"general",
}

var categoryEmojis = map[string]string{
	"dad developer":          "👨‍💻",
	"chuck norris developer": "🥋",
	"ai philosopher":         "🧠",
	"bug whisperer":          "🐛",
	"old-school coder":       "💾",
	"frontend philosopher":   "🎨",
	"backend barbarian":      "⚙️",
	"cloud comedian":         "☁️",
	"data scientist monk":    "📊",
	"cybersecurity cynic":    "🔒",
	"devops therapist":       "🧘‍♂️",
	"agentic ai joker":       "🤖",
	"prompt poet":            "🪶",
	"math & logic nerd":      "🧮",
	"general":                "🎯",
}

var languages = []string{"English", "Hindi", "Spanish", "French", "German"}

// DefaultEmoji is shown for categories without an emoji of their own.
const DefaultEmoji = "📂"

// Categories returns the built-in joke categories in display order.
func Categories() []string {
	return slices.Clone(categories)
}

// Languages returns the supported joke languages.
func Languages() []string {
	return slices.Clone(languages)
}

// Emoji returns the emoji for category, or DefaultEmoji.
func Emoji(category string) string {
	if e, ok := categoryEmojis[category]; ok {
		return e
	}
	return DefaultEmoji
}

// Label is the display form of a category, e.g. "🐛 Bug Whisperer".
func Label(category string) string {
	return Emoji(category) + " " + TitleCase(category)
}

// TitleCase upper-cases the first letter of every word. Letters following a
// hyphen start a new word ("old-school" becomes "Old-School").
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		if start {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		start = !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	return b.String()
}
