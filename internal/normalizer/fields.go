package normalizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Canonical question fields and the source keys accepted for each, in
// priority order. Lookup is exact first, then case-insensitive.
var (
	idKeys          = []string{"id", "_id", "qid", "question_id", "questionId", "uid"}
	textKeys        = []string{"question", "text", "q", "title", "statement", "prompt"}
	optionsKeys     = []string{"options", "choices", "answers", "alternatives"}
	answerKeys      = []string{"answer", "correct", "correctIndex", "correct_index", "ans", "correctAnswer", "correct_answer", "key"}
	topicKeys       = []string{"topic", "subject", "category", "section"}
	difficultyKeys  = []string{"difficulty", "level", "complexity"}
	tagsKeys        = []string{"tags", "tag", "labels", "keywords"}
	explanationKeys = []string{"explanation", "explain", "solution", "rationale", "analysis"}
	notesKeys       = []string{"notes", "note", "expertNote", "expert_note", "expert"}

	// Keys inside an explanation object.
	coreKeys        = []string{"core", "text", "explanation", "summary", "main", "detail"}
	expertNoteKeys  = []string{"expertNote", "expert_note", "expert", "note", "notes"}
	eliminationKeys = []string{"elimination", "eliminations", "elimination_logic", "eliminationLogic", "eliminate"}

	// Keys of option objects such as {"text": "Delhi"}.
	optionTextKeys = []string{"text", "label", "value", "option", "content"}

	// Wrapper keys tried before any other array-valued field.
	wrapperKeys = []string{"questions", "data"}
)

// find returns the value stored under the first matching key, including an
// explicit null. Exact-case matches win over case-insensitive ones.
func find(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	names := sortedKeys(obj)
	for _, k := range keys {
		for _, name := range names {
			if strings.EqualFold(name, k) {
				return obj[name], true
			}
		}
	}
	return nil, false
}

// lookup is find that treats null as absent.
func lookup(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	names := sortedKeys(obj)
	for _, k := range keys {
		for _, name := range names {
			if strings.EqualFold(name, k) && obj[name] != nil {
				return obj[name], true
			}
		}
	}
	return nil, false
}

func lookupString(obj map[string]any, keys []string) string {
	v, ok := lookup(obj, keys)
	if !ok {
		return ""
	}
	s, _ := toString(v)
	return s
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asObject accepts the map shapes produced by encoding/json and yaml.v3.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, t != nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, t != nil
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, t != nil
	case []string:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, t != nil
	}
	return nil, false
}

// toString renders scalar values; composite values are rejected.
func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// toInt accepts integral numbers only.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil || f != float64(int(f)) {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case uint64:
		return int(t), true
	}
	return 0, false
}
