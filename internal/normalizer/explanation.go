package normalizer

import "github.com/stemsi/exstem-prep/internal/model"

// Fallback texts for explanations the source did not supply.
const (
	DefaultExplanationCore = "No explanation available for this question."
	DefaultExpertNote      = "No expert note available."
)

// explanation builds the uniform explanation record of a raw item.
func explanation(item map[string]any) model.Explanation {
	notes := optionalString(lookup(item, notesKeys))

	raw, ok := lookup(item, explanationKeys)
	if !ok {
		return defaultExplanation(notes)
	}

	if sub, isObj := asObject(raw); isObj {
		return explanationFromObject(sub, notes)
	}

	core, isScalar := toString(raw)
	if !isScalar || core == "" {
		return defaultExplanation(notes)
	}
	return model.Explanation{Core: core, ExpertNote: notes}
}

func explanationFromObject(sub map[string]any, notes *string) model.Explanation {
	exp := model.Explanation{Core: lookupString(sub, coreKeys)}
	if exp.Core == "" {
		exp.Core = DefaultExplanationCore
	}

	// An explicit null means "no note" and survives a round trip.
	if v, present := find(sub, expertNoteKeys); present {
		exp.ExpertNote = optionalString(v, v != nil)
	} else if notes != nil {
		exp.ExpertNote = notes
	} else {
		exp.ExpertNote = strPtr(DefaultExpertNote)
	}

	if v, present := find(sub, eliminationKeys); present {
		exp.Elimination = optionalString(v, v != nil)
	}
	return exp
}

func defaultExplanation(notes *string) model.Explanation {
	if notes == nil {
		notes = strPtr(DefaultExpertNote)
	}
	return model.Explanation{Core: DefaultExplanationCore, ExpertNote: notes}
}

func optionalString(v any, ok bool) *string {
	if !ok {
		return nil
	}
	s, isScalar := toString(v)
	if !isScalar || s == "" {
		return nil
	}
	return &s
}

func strPtr(s string) *string { return &s }
