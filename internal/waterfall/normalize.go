package waterfall

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/waterfall/provider"
)

// RuleKind selects how a provider payload maps to a confidence.
type RuleKind int

const (
	// RuleScore reads a 0-100 number at Path and divides by 100.
	RuleScore RuleKind = iota
	// RuleFixed yields Fixed when the result carries an email, else 0.
	RuleFixed
	// RuleQualification reads a number (0-100) or a category string at Path.
	RuleQualification
)

// Rule is one row of the normalization table.
type Rule struct {
	Kind  RuleKind
	Path  string
	Fixed float64
}

// defaultPath is read when a provider has no rule, or its path is absent.
const defaultPath = "confidence"

// DefaultRules maps provider names to their normalization rule.
var DefaultRules = map[string]Rule{
	"icypeas":     {Kind: RuleScore, Path: "item.results.confidence"},
	"hunter":      {Kind: RuleScore, Path: "data.score"},
	"kaspr":       {Kind: RuleScore, Path: "profile.confidence"},
	"apollo":      {Kind: RuleFixed, Fixed: 0.85},
	"dropcontact": {Kind: RuleQualification, Path: "data.0.qualification"},
}

// qualificationScores maps categorical qualifications to confidences.
var qualificationScores = map[string]float64{
	"high":   0.9,
	"medium": 0.7,
	"low":    0.4,
}

const unknownQualification = 0.3

// unscoredWithValue is the confidence of a provider with no rule and no
// numeric confidence that still returned a value.
const unscoredWithValue = 0.5

// Normalizer converts provider payloads into [0,1] confidences.
type Normalizer struct {
	rules map[string]Rule
}

// NewNormalizer creates a normalizer. A nil table uses DefaultRules.
func NewNormalizer(rules map[string]Rule) *Normalizer {
	if rules == nil {
		rules = DefaultRules
	}
	return &Normalizer{rules: rules}
}

// Normalize returns the raw confidence as read from the payload and the
// normalized value clamped to [0,1]. It is defined for every provider name.
// A payload that is not valid JSON returns ErrMalformed.
func (n *Normalizer) Normalize(raw *provider.RawResult) (float64, float64, error) {
	if raw == nil {
		return 0, 0, nil
	}
	payload := raw.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if !gjson.ValidBytes(payload) {
		return 0, 0, eris.Wrapf(resilience.ErrMalformed, "normalize: %s payload is not valid JSON", raw.Provider)
	}
	doc := gjson.ParseBytes(payload)

	rule, ok := n.rules[raw.Provider]
	if !ok {
		return n.fallback(doc, raw)
	}

	switch rule.Kind {
	case RuleFixed:
		if raw.Email == "" {
			return 0, 0, nil
		}
		return rule.Fixed, clamp(rule.Fixed), nil

	case RuleQualification:
		q := doc.Get(rule.Path)
		switch q.Type {
		case gjson.Number:
			return q.Float(), clamp(q.Float() / 100), nil
		case gjson.String:
			v, known := qualificationScores[strings.ToLower(strings.TrimSpace(q.String()))]
			if !known {
				v = unknownQualification
			}
			return v, v, nil
		}
		return n.fallback(doc, raw)

	default:
		v := doc.Get(rule.Path)
		if v.Type != gjson.Number {
			return n.fallback(doc, raw)
		}
		return v.Float(), clamp(v.Float() / 100), nil
	}
}

// fallback reads a top-level 0-100 confidence, else scores by presence.
func (n *Normalizer) fallback(doc gjson.Result, raw *provider.RawResult) (float64, float64, error) {
	if v := doc.Get(defaultPath); v.Type == gjson.Number {
		return v.Float(), clamp(v.Float() / 100), nil
	}
	if raw.HasValue() {
		return unscoredWithValue, unscoredWithValue, nil
	}
	return 0, 0, nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
