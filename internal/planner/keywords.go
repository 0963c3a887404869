// Package planner maps a requirement to an ordered set of capability tasks.
package planner

import "strings"

// ComplexityKeywords is the single source of truth for the requirement
// phrases that trigger deep reasoning stages. Matching is case-insensitive
// substring matching, so the list can stay short and stemmed.
var ComplexityKeywords = []string{
	"optimize",
	"performance",
	"algorithm",
	"complex",
	"architecture",
	"scale",
	"security",
	"analyze",
	"efficient",
	"bottleneck",
}

// Classification holds the planner-relevant flags derived from a
// requirement's text. It is a pure function of the text, kept separate from
// scheduling so the keyword list can change without touching the
// orchestrator.
type Classification struct {
	// NeedsDeepReasoning is true when the text matches a complexity keyword.
	NeedsDeepReasoning bool
	// MatchedKeyword is the keyword that triggered deep reasoning, if any.
	MatchedKeyword string
}

// Classify scans the requirement text against the complexity keyword set.
func Classify(requirement string) Classification {
	lower := strings.ToLower(requirement)
	for _, kw := range ComplexityKeywords {
		if strings.Contains(lower, kw) {
			return Classification{NeedsDeepReasoning: true, MatchedKeyword: kw}
		}
	}
	return Classification{}
}
