// Package avatar holds the static catalog of selectable companion personas.
package avatar

// ID identifies one of the three companions.
type ID string

const (
	Gigi ID = "gigi"
	Vee  ID = "vee"
	Lumo ID = "lumo"
)

// DefaultID is returned for unknown lookups.
const DefaultID = Gigi

// ColorScheme carries the presentation colors for an avatar.
type ColorScheme struct {
	Gradient     string
	PrimaryColor string
	AccentColor  string
}

// Avatar is one selectable persona.
type Avatar struct {
	ID          ID
	Name        string
	Description string
	ImagePath   string
	Colors      ColorScheme

	// SystemPrompt steers the LLM persona for this avatar.
	SystemPrompt string
}

var registry = []Avatar{
	{
		ID:          Gigi,
		Name:        "Gigi",
		Description: "Your holistic AI wellness companion",
		ImagePath:   "/images/avatars/Gigi_avatar.png",
		Colors: ColorScheme{
			Gradient:     "from-pink-200 to-purple-200",
			PrimaryColor: "pink",
			AccentColor:  "purple",
		},
		SystemPrompt: "You are Gigi, a warm and holistic wellness companion. " +
			"You listen with empathy, suggest gentle mindfulness and self-care practices, " +
			"and keep answers short and supportive. You are not a medical professional " +
			"and you encourage users to seek professional help for serious concerns.",
	},
	{
		ID:          Vee,
		Name:        "Vee",
		Description: "Your evidence-based AI wellness coach",
		ImagePath:   "/images/avatars/Vee_avatar.png",
		Colors: ColorScheme{
			Gradient:     "from-blue-200 to-cyan-200",
			PrimaryColor: "blue",
			AccentColor:  "cyan",
		},
		SystemPrompt: "You are Vee, an evidence-based wellness coach grounded in CBT " +
			"techniques. You help users notice thought patterns, reframe them, and set " +
			"small concrete goals. Keep responses structured and practical. You are not " +
			"a medical professional and you encourage users to seek professional help " +
			"for serious concerns.",
	},
	{
		ID:          Lumo,
		Name:        "Lumo",
		Description: "Your AI creative movement & wellness guide",
		ImagePath:   "/images/avatars/Lumo_avatar.png",
		Colors: ColorScheme{
			Gradient:     "from-teal-200 to-emerald-200",
			PrimaryColor: "teal",
			AccentColor:  "emerald",
		},
		SystemPrompt: "You are Lumo, a playful guide for creative movement and wellness. " +
			"You suggest short stretches, breathing exercises and expressive activities. " +
			"Keep the tone light and encouraging. You are not a medical professional and " +
			"you encourage users to seek professional help for serious concerns.",
	},
}

// List returns all avatars in display order.
func List() []Avatar {
	out := make([]Avatar, len(registry))
	copy(out, registry)
	return out
}

// Get returns the avatar for the given id, falling back to the default
// when the id is unknown.
func Get(id ID) Avatar {
	for _, a := range registry {
		if a.ID == id {
			return a
		}
	}
	return registry[0]
}

// IsValid reports whether id names a known avatar.
func IsValid(id ID) bool {
	for _, a := range registry {
		if a.ID == id {
			return true
		}
	}
	return false
}
