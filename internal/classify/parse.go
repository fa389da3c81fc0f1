package classify

import (
	"encoding/json"

	"sitewatch/internal/model"
)

// rawResult mirrors the JSON shape the model is instructed to emit. Fields
// are loosely typed on purpose: the response is model-generated free text
// and every piece of it is suspect.
type rawResult struct {
	Summary        string             `json:"summary"`
	KeyPoints      []string           `json:"keyPoints"`
	Classification *rawClassification `json:"classification"`
	Reasoning      string             `json:"reasoning"`
}

type rawClassification struct {
	Tier      string   `json:"tier"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	Sentiment string   `json:"sentiment"`
	Urgency   string   `json:"urgency"`
}

// parseResponse finds the first balanced JSON object inside raw and decodes
// it into a classification result. ok is false when no object is found or
// the required summary/classification fields are missing; the caller then
// substitutes the fallback result. Individual classification sub-fields are
// defaulted one by one rather than rejecting the whole response.
func parseResponse(raw string) (result rawResult, ok bool) {
	obj, found := firstJSONObject(raw)
	if !found {
		return rawResult{}, false
	}

	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return rawResult{}, false
	}
	if result.Summary == "" || result.Classification == nil {
		return rawResult{}, false
	}
	return result, true
}

// firstJSONObject scans text for the first balanced top-level JSON object,
// tracking string literals and escapes so braces inside values don't break
// the balance count.
func firstJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// classification converts the raw sub-object into the closed enumerations,
// defaulting each absent or invalid field individually.
func (r rawClassification) classification() model.Classification {
	c := model.Classification{
		Tier:      model.Tier2,
		Category:  model.CategoryOther,
		Tags:      []string{},
		Sentiment: model.SentimentNeutral,
		Urgency:   model.UrgencyMedium,
	}

	if r.Tier == string(model.Tier1) || r.Tier == string(model.Tier2) {
		c.Tier = model.Tier(r.Tier)
	}
	if model.ValidCategory(model.Category(r.Category)) {
		c.Category = model.Category(r.Category)
	}
	if len(r.Tags) > 0 {
		c.Tags = r.Tags
	}
	switch model.Sentiment(r.Sentiment) {
	case model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral:
		c.Sentiment = model.Sentiment(r.Sentiment)
	}
	switch model.Urgency(r.Urgency) {
	case model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh, model.UrgencyCritical:
		c.Urgency = model.Urgency(r.Urgency)
	}

	return c
}
