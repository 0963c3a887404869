package connector

import "strings"

// weakPhrases maps low-specificity requirement phrasings to richer rewrites.
// The rewritten text, not the original, is what downstream capabilities and
// the persisted artifact reference.
var weakPhrases = map[string]string{
	"make a webpage": "Create a modern, responsive webpage with HTML5, CSS3, and JavaScript",
	"build a site":   "Develop a complete website with modern UI/UX design",
	"make a graphic": "Create a visual graphic using web technologies (SVG or Canvas)",
	"draw":           "Create a drawing/illustration using HTML5 Canvas or SVG",
	"make an app":    "Build a web application with user interface and functionality",
	"create api":     "Develop a RESTful API with proper endpoints, authentication, and documentation",
}

// graphicsWords signal a visual/graphical deliverable.
var graphicsWords = []string{"graphic", "image", "picture", "draw", "visual", "display"}

// EnhanceRequirement rewrites weak or vague requirement text into a more
// detailed requirement before it enters the pipeline. Strong requirements
// pass through unchanged.
func EnhanceRequirement(requirement string) string {
	lower := strings.ToLower(requirement)

	// Very short requirements get matched against the known weak phrasings.
	if len(strings.Fields(requirement)) < 5 {
		for phrase, enhancement := range weakPhrases {
			if strings.Contains(lower, phrase) {
				specifics := strings.TrimSpace(strings.Replace(lower, phrase, "", 1))
				if specifics != "" {
					return enhancement + " " + specifics
				}
				return enhancement
			}
		}
	}

	// Graphics requests get steered toward web-native rendering.
	if IsGraphicsRequirement(requirement) {
		if idx := strings.Index(lower, " of "); idx >= 0 {
			subject := strings.TrimSpace(lower[idx+4:])
			if subject != "" {
				return "Create an interactive web-based graphic visualization of " + subject +
					" using modern HTML5/CSS3/SVG technologies with animations and proper styling"
			}
		}
	}

	return requirement
}

// IsGraphicsRequirement reports whether the requirement describes a
// visual/graphical deliverable. The implementer uses this to produce a markup
// artifact instead of a general-purpose source file.
func IsGraphicsRequirement(requirement string) bool {
	lower := strings.ToLower(requirement)
	for _, w := range graphicsWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// ArtifactFilename picks a filename for an implementation artifact from the
// requirement text and the generated content. HTML content always gets an
// .html name; everything else defaults to a Python-style script name to match
// the general-purpose prompt the implementer uses.
func ArtifactFilename(requirement, content string) string {
	desc := strings.ToLower(requirement)
	trimmed := strings.TrimSpace(content)

	if strings.HasPrefix(trimmed, "<!DOCTYPE html") || strings.Contains(trimmed, "<html") {
		switch {
		case strings.Contains(desc, "hello world"):
			return "hello_world.html"
		case strings.Contains(desc, "webpage"):
			return "webpage.html"
		default:
			return "index.html"
		}
	}

	switch {
	case strings.Contains(desc, "hello world"):
		return "hello_world.py"
	case strings.Contains(desc, "calculator"):
		return "calculator.py"
	case strings.Contains(desc, "api"), strings.Contains(desc, "server"):
		return "server.py"
	default:
		return "app.py"
	}
}
