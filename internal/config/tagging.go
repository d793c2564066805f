package config

// TaggingConfig holds the pattern tables used to derive additional tags.
// Keywords match as substrings of the lowercased file name; Segments match
// whole path segments; Categories match the first path segment.
type TaggingConfig struct {
	Keywords   map[string][]string `yaml:"keywords,omitempty"`
	Segments   map[string][]string `yaml:"segments,omitempty"`
	Categories map[string][]string `yaml:"categories,omitempty"`
}

// DefaultTagging returns the built-in tag tables applied when the tagging
// section is omitted.
func DefaultTagging() *TaggingConfig {
	return &TaggingConfig{
		Keywords: map[string][]string{
			"button": {"ui", "interactive", "clickable"},
			"menu":   {"ui", "navigation", "interface"},
			"sky":    {"nature", "background", "outdoor"},
			"grass":  {"nature", "ground", "green"},
			"room":   {"interior", "indoor", "architecture"},
			"castle": {"building", "medieval", "architecture"},
			"cute":   {"kawaii", "adorable", "lovely"},
			"red":    {"red", "warm-color"},
			"blue":   {"blue", "cool-color"},
			"green":  {"green", "nature-color"},
			"yellow": {"yellow", "bright-color"},
			"purple": {"purple", "mystical"},
			"black":  {"black", "dark"},
			"white":  {"white", "light"},
		},
		Segments: map[string][]string{
			"ui":        {"interface"},
			"landscape": {"background", "scenery"},
			"character": {"sprite"},
			"effects":   {"vfx", "animation"},
		},
		Categories: map[string][]string{
			"ui":        {"user-interface", "gui"},
			"landscape": {"environment", "world"},
			"character": {"avatar"},
			"item":      {"object", "prop"},
		},
	}
}
