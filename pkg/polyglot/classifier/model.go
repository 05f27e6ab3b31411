// Package classifier implements the naive Bayes stage of detection: a
// tokenizer, per-language token models, and a trainer that builds them from
// labelled samples.
package classifier

import (
	"math"
)

// Model holds the trained weights of one language. It is read-only once built.
type Model struct {
	Language       string             `json:"language"`
	LogPrior       float64            `json:"log_prior"`
	DefaultLogProb float64            `json:"default_log_prob"`
	TokenLogProb   map[string]float64 `json:"tokens"`
}

// Score returns LogPrior plus the log-probability of every token. Tokens the
// model never saw contribute DefaultLogProb.
func (m *Model) Score(tokens []string) float64 {
	score := m.LogPrior
	for _, tok := range tokens {
		if p, ok := m.TokenLogProb[tok]; ok {
			score += p
		} else {
			score += m.DefaultLogProb
		}
	}
	return score
}

// Prediction is the winning model of a classification.
type Prediction struct {
	Language string
	Index    int
	Score    float64
}

// Classifier scores content against a set of models.
type Classifier struct {
	maxBytes int
}

// New returns a classifier that reads at most maxBytes of content.
// A non-positive maxBytes selects MaxTokenBytes.
func New(maxBytes int) *Classifier {
	if maxBytes <= 0 || maxBytes > MaxTokenBytes {
		maxBytes = MaxTokenBytes
	}
	return &Classifier{maxBytes: maxBytes}
}

// Classify returns the highest scoring model. Models are expected in priority
// order: on equal scores the earlier one wins. Empty content, or no usable
// model, abstains.
func (c *Classifier) Classify(content []byte, models []*Model) (Prediction, bool) {
	if len(content) == 0 {
		return Prediction{}, false
	}
	if len(content) > c.maxBytes {
		content = content[:c.maxBytes]
	}
	tokens := Tokenize(content)

	best := Prediction{Index: -1, Score: math.Inf(-1)}
	for i, m := range models {
		if m == nil {
			continue
		}
		score := m.Score(tokens)
		if math.IsNaN(score) {
			continue
		}
		if best.Index < 0 || score > best.Score {
			best = Prediction{Language: m.Language, Index: i, Score: score}
		}
	}
	if best.Index < 0 {
		return Prediction{}, false
	}
	return best, true
}
