// Package style scores generated text against a fixed reference behavioral
// profile: how closely a reply's structure, wording, code hygiene and length
// match the assistant style the model is being aligned to.
package style

import (
	"regexp"
	"strings"
)

// Sub-score weights. They sum to 1 so the composite stays in [0, 1].
const (
	structureWeight    = 0.3
	languageWeight     = 0.3
	codeStyleWeight    = 0.2
	completenessWeight = 0.2
)

var (
	// Structure: one fixed increment per detected pattern
	sectionHeaderRegex = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	codeBlockRegex     = regexp.MustCompile("(?s)```\\w*\\n(.*?)```")
	bulletListRegex    = regexp.MustCompile(`(?m)^\s*[-*]\s+\S`)
	numberedListRegex  = regexp.MustCompile(`(?m)^\s*\d+\.\s+\S`)

	// Language: density-scored
	firstPersonRegex = regexp.MustCompile(`(?i)\b(i'll|i will|let me|i'm going to|i can|i've)\b`)
	technicalRegex   = regexp.MustCompile(`(?i)\b(function|method|class|variable|parameter|return value|struct|interface|argument)\b`)
	explanationRegex = regexp.MustCompile(`(?i)\b(this is|this means|which means|in other words|note that|because)\b`)

	// Code style: evaluated inside fenced blocks only
	commentRegex    = regexp.MustCompile(`(?m)(#|//).*\S`)
	indentRegex     = regexp.MustCompile(`(?m)^( {4}|\t)`)
	funcNamingRegex = regexp.MustCompile(`(?:def|func)\s+[a-z_][a-zA-Z0-9_]*`)
)

// Breakdown holds the four normalized sub-scores
type Breakdown struct {
	Structure    float64
	Language     float64
	CodeStyle    float64
	Completeness float64
}

// Composite returns the weighted sum of the sub-scores
func (b Breakdown) Composite() float64 {
	return b.Structure*structureWeight +
		b.Language*languageWeight +
		b.CodeStyle*codeStyleWeight +
		b.Completeness*completenessWeight
}

// Evaluator scores text against the reference style profile. It is
// stateless after construction: identical input always yields identical
// output.
type Evaluator struct{}

// NewEvaluator creates a style evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Score returns the composite similarity in [0, 1]
func (e *Evaluator) Score(text string) float64 {
	return e.Breakdown(text).Composite()
}

// Breakdown returns the individual sub-scores, each normalized to [0, 1]
func (e *Evaluator) Breakdown(text string) Breakdown {
	return Breakdown{
		Structure:    scoreStructure(text),
		Language:     scoreLanguage(text),
		CodeStyle:    scoreCodeStyle(text),
		Completeness: scoreCompleteness(text),
	}
}

// scoreStructure awards a fixed increment per structural pattern present
func scoreStructure(text string) float64 {
	score := 0.0
	for _, pattern := range []*regexp.Regexp{sectionHeaderRegex, codeBlockRegex, bulletListRegex, numberedListRegex} {
		if pattern.MatchString(text) {
			score += 0.25
		}
	}
	return clamp(score)
}

// scoreLanguage scores the density of first-person phrasing, technical
// vocabulary and explanatory connectives
func scoreLanguage(text string) float64 {
	score := 0.0
	for _, pattern := range []*regexp.Regexp{firstPersonRegex, technicalRegex, explanationRegex} {
		matches := len(pattern.FindAllString(text, -1))
		if matches > 0 {
			contribution := float64(matches) * 0.1
			if contribution > 0.33 {
				contribution = 0.33
			}
			score += contribution
		}
	}
	return clamp(score)
}

// scoreCodeStyle averages per-block hygiene over the fenced code blocks.
// No code blocks means no code to judge: 0.
func scoreCodeStyle(text string) float64 {
	blocks := codeBlockRegex.FindAllStringSubmatch(text, -1)
	if len(blocks) == 0 {
		return 0
	}

	score := 0.0
	for _, block := range blocks {
		code := block[1]
		if commentRegex.MatchString(code) {
			score += 0.3
		}
		if indentRegex.MatchString(code) {
			score += 0.3
		}
		if funcNamingRegex.MatchString(code) {
			score += 0.4
		}
	}

	return clamp(score / float64(len(blocks)))
}

// scoreCompleteness is a word-count curve peaking in the reasonable-length
// band and degrading gracefully on either side
func scoreCompleteness(text string) float64 {
	words := len(strings.Fields(text))

	switch {
	case words >= 100 && words <= 500:
		return 1.0
	case words >= 50 && words < 100:
		return 0.7
	case words > 500 && words <= 1000:
		return 0.8
	default:
		return 0.5
	}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
