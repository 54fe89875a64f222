package services

import (
	"fmt"
	"strings"

	"github.com/yoockh/sightline/internal/models"
)

// Classifier decides whether a query needs the image pair. Implementations must be pure.
type Classifier interface {
	Classify(text string) models.Decision
}

type ClassifierFunc func(text string) models.Decision

func (f ClassifierFunc) Classify(text string) models.Decision { return f(text) }

// AlwaysVisual attaches the pair to every query and leaves relevance to the guide instruction.
var AlwaysVisual = ClassifierFunc(func(string) models.Decision {
	return models.DecisionVisualContext
})

var defaultGeneralMarkers = []string{
	// factual question forms
	"who is", "who was", "who are", "who invented", "who wrote", "who discovered",
	"define ", "definition of", "meaning of", "history of", "invented",
	// named entities
	"capital of", "country", "prime minister", "president", "currency of", "language of", "population of",
	// temporal
	"when was", "when did", "when is", "what year", "what day is", "today's date", "what is the date",
	// quantitative
	"how far is", "distance between", "how old is", "how tall is", "how many people", "square root",
}

// KeywordClassifier routes a query to the general-knowledge branch when it contains any marker.
type KeywordClassifier struct {
	markers []string
}

func NewKeywordClassifier(extra ...string) *KeywordClassifier {
	markers := make([]string, 0, len(defaultGeneralMarkers)+len(extra))
	markers = append(markers, defaultGeneralMarkers...)
	for _, m := range extra {
		if m = normalizeQuery(m); m != "" {
			markers = append(markers, m)
		}
	}
	return &KeywordClassifier{markers: markers}
}

func (k *KeywordClassifier) Classify(text string) models.Decision {
	q := normalizeQuery(text)
	for _, m := range k.markers {
		if strings.Contains(q, m) {
			return models.DecisionGeneralKnowledge
		}
	}
	return models.DecisionVisualContext
}

// normalizeQuery lowercases and collapses whitespace. A trailing space is kept so
// markers like "define " still match at the end of a word.
func normalizeQuery(s string) string {
	trailing := strings.HasSuffix(s, " ")
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if trailing && s != "" {
		s += " "
	}
	return s
}

// NewClassifier resolves a TALK_CLASSIFIER policy name.
func NewClassifier(policy string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", "keyword":
		return NewKeywordClassifier(), nil
	case "always_visual":
		return AlwaysVisual, nil
	default:
		return nil, fmt.Errorf("unknown classifier policy %q", policy)
	}
}
