// Package sentiment scores ingested text for emotional valence, adapted
// from the teacher's pkg/sentiment so the ingest pipeline (component G)
// can stamp a neuron's metadata with an affect label alongside its
// embedding — useful for downstream ranking (query pipeline can boost
// same-valence matches) without touching the embedding space itself.
package sentiment

import (
	"math"
	"sync"

	"github.com/jonreiter/govader"
)

// Label is one of the six Ekman basic emotions, or Neutral.
type Label string

const (
	LabelHappiness Label = "happiness"
	LabelSadness   Label = "sadness"
	LabelFear      Label = "fear"
	LabelAnger     Label = "anger"
	LabelDisgust   Label = "disgust"
	LabelSurprise  Label = "surprise"
	LabelNeutral   Label = "neutral"
)

// Result is the sentiment score attached to one neuron's metadata.Extra
// under the "sentiment" key.
type Result struct {
	Label    Label   `msgpack:"label" json:"label"`
	Compound float64 `msgpack:"compound" json:"compound"`
	Positive float64 `msgpack:"positive" json:"positive"`
	Negative float64 `msgpack:"negative" json:"negative"`
	Neutral  float64 `msgpack:"neutral" json:"neutral"`
}

// Analyzer wraps govader's VADER scorer. Safe for concurrent use; govader's
// analyzer itself isn't documented as goroutine-safe so calls are
// serialized behind a mutex.
type Analyzer struct {
	sia *govader.SentimentIntensityAnalyzer
	mu  sync.Mutex
}

var (
	defaultAnalyzer *Analyzer
	once            sync.Once
)

// Default returns the package-level singleton, lazily constructed.
func Default() *Analyzer {
	once.Do(func() { defaultAnalyzer = New() })
	return defaultAnalyzer
}

// New constructs an Analyzer.
func New() *Analyzer {
	return &Analyzer{sia: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze scores text and maps the VADER polarity scores onto one of the
// six basic emotions plus neutral.
func (a *Analyzer) Analyze(text string) Result {
	a.mu.Lock()
	scores := a.sia.PolarityScores(text)
	a.mu.Unlock()

	r := Result{
		Compound: scores.Compound,
		Positive: scores.Positive,
		Negative: scores.Negative,
		Neutral:  scores.Neutral,
	}
	r.Label = mapToLabel(scores.Compound, scores.Positive, scores.Negative, scores.Neutral)
	return r
}

// mapToLabel applies fixed compound-score bands; the strong-negative band
// is further disambiguated by strongNegativeLabel.
func mapToLabel(compound, pos, neg, neu float64) Label {
	switch {
	case compound >= 0.60:
		return LabelHappiness
	case compound >= 0.20:
		return LabelSurprise
	case compound <= -0.60:
		return strongNegativeLabel(pos, neg, neu)
	case compound <= -0.20:
		return LabelSadness
	default:
		return LabelNeutral
	}
}

// strongNegativeLabel picks anger/fear/disgust from the relative weight
// of VADER's neg/neu sub-scores; there's no word-level emotion lexicon
// backing this, so it's a heuristic, not a classifier.
func strongNegativeLabel(_, neg, neu float64) Label {
	ratio := math.MaxFloat64
	if neu > 0 {
		ratio = neg / neu
	}
	switch {
	case ratio > 1.5:
		return LabelAnger
	case neu > neg:
		return LabelFear
	default:
		return LabelDisgust
	}
}

// Boost returns a [0.8, 1.2] multiplier the query pipeline applies to a
// result's score: same valence as the query nudges it up, opposite
// valence nudges it down, neutral on either side leaves it alone.
func Boost(queryLabel, resultLabel Label) float64 {
	if queryLabel == LabelNeutral || resultLabel == LabelNeutral {
		return 1.0
	}
	if queryLabel == resultLabel {
		return 1.2
	}
	if oppositeValence(queryLabel, resultLabel) {
		return 0.8
	}
	return 1.0
}

// ExtractLabel reads the "sentiment" entry a neuron's metadata.Extra map
// may carry and returns its Label. Handles both the in-process Result
// value ingest attaches and the map[string]any shape a msgpack/JSON
// round-trip decodes it into; returns LabelNeutral if absent or
// unrecognized.
func ExtractLabel(extra map[string]any) Label {
	raw, ok := extra["sentiment"]
	if !ok {
		return LabelNeutral
	}
	switch v := raw.(type) {
	case Result:
		return v.Label
	case map[string]any:
		if l, ok := v["label"].(string); ok {
			return Label(l)
		}
	}
	return LabelNeutral
}

func oppositeValence(a, b Label) bool {
	positive := map[Label]bool{LabelHappiness: true, LabelSurprise: true}
	negative := map[Label]bool{LabelSadness: true, LabelFear: true, LabelAnger: true, LabelDisgust: true}
	return (positive[a] && negative[b]) || (negative[a] && positive[b])
}
