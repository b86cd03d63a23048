package extract

import (
	"regexp"
	"strings"
)

// BrandModel is a best-guess vehicle make and model recovered from text.
type BrandModel struct {
	Brand string
	Model string
}

// Strategy is one named brand/model heuristic. Match must be pure.
type Strategy struct {
	Name  string
	Match func(text string) (BrandModel, bool)
}

var (
	pipeFragment = regexp.MustCompile(
		`\b([A-Z][a-zA-Z]+)\s*\|\s*([A-Za-z0-9\- ]{2,40}?)\s*\|\s*(?:19|20)\d{2}`)
	triggerPhrase = regexp.MustCompile(
		`\b(?i:compatible\s+(?:for|with)|fits|for)\s+([A-Z][a-zA-Z]+)\s+([A-Za-z0-9\- ]{2,40}?)\s*(?:19|20)\d{2}`)
	leadingWords = regexp.MustCompile(
		`^\s*([A-Za-z][A-Za-z0-9'&.\-]*)\s+([A-Za-z0-9][A-Za-z0-9.\-]*(?:\s+[A-Za-z0-9][A-Za-z0-9.\-]*)?)`)
	bodyStyleSuffix = regexp.MustCompile(
		`(?i)(?:[\s\-]+(?:sedan|wagon|series|coupe|hatchback|convertible|\d\s*-?\s*doors?|\d+dr))+$`)
)

// PipeStrategy matches tabular text such as "Subaru | Outback | 2006-2009".
var PipeStrategy = Strategy{
	Name: "pipe",
	Match: func(text string) (BrandModel, bool) {
		m := pipeFragment.FindStringSubmatch(text)
		if m == nil {
			return BrandModel{}, false
		}
		return BrandModel{Brand: strings.TrimSpace(m[1]), Model: strings.TrimSpace(m[2])}, true
	},
}

// TriggerStrategy matches phrases such as "fits Honda Accord 2010" or
// "compatible for Subaru Outback Wagon 2006-2009".
var TriggerStrategy = Strategy{
	Name: "trigger",
	Match: func(text string) (BrandModel, bool) {
		m := triggerPhrase.FindStringSubmatch(text)
		if m == nil {
			return BrandModel{}, false
		}
		return BrandModel{Brand: strings.TrimSpace(m[1]), Model: trimBodyStyle(m[2])}, true
	},
}

// LeadingWordsStrategy treats the first word as the brand and the next one or
// two words as the model. It is a low-confidence last resort.
var LeadingWordsStrategy = Strategy{
	Name: "leading_words",
	Match: func(text string) (BrandModel, bool) {
		m := leadingWords.FindStringSubmatch(text)
		if m == nil {
			return BrandModel{}, false
		}
		return BrandModel{Brand: m[1], Model: strings.TrimSpace(m[2])}, true
	},
}

// DefaultStrategies returns the ordered heuristic chain.
func DefaultStrategies(lowConfidence bool) []Strategy {
	strategies := []Strategy{PipeStrategy, TriggerStrategy}
	if lowConfidence {
		strategies = append(strategies, LeadingWordsStrategy)
	}
	return strategies
}

// MatchBrandModel tries each strategy in order and returns the first match
// along with the name of the strategy that produced it.
func MatchBrandModel(text string, strategies []Strategy) (BrandModel, string, bool) {
	for _, s := range strategies {
		if bm, ok := s.Match(text); ok && bm.Brand != "" {
			return bm, s.Name, true
		}
	}
	return BrandModel{}, "", false
}

func trimBodyStyle(model string) string {
	model = strings.TrimSpace(model)
	model = bodyStyleSuffix.ReplaceAllString(model, "")
	return strings.Trim(model, " -")
}
