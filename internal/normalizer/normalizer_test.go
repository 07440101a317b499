package normalizer

import (
	"encoding/json"
	"reflect"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
)

func newTestNormalizer(opts ...Option) *Normalizer {
	return New(zerolog.Nop(), opts...)
}

var synthesizedID = regexp.MustCompile(`^q_\d+_[0-9a-f]{8}$`)

func TestNormalizeArrayInput(t *testing.T) {
	raw := []any{
		map[string]any{"question": "2+2?", "options": []any{"3", "4", "5"}, "answer": float64(1), "tags": []any{"math"}},
	}
	qs := newTestNormalizer().Normalize(raw)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	q := qs[0]
	if q.CorrectIndex != 1 {
		t.Fatalf("expected correct index 1, got %d", q.CorrectIndex)
	}
	if !q.HasTag("math") {
		t.Fatalf("expected math tag, got %v", q.Tags)
	}
	if q.Topic != "General" || q.Difficulty != "Moderate" {
		t.Fatalf("unexpected defaults: %q %q", q.Topic, q.Difficulty)
	}
	if !synthesizedID.MatchString(q.ID) || q.ID[:4] != "q_0_" {
		t.Fatalf("unexpected synthesized id %q", q.ID)
	}
}

func TestNormalizeDataWrapperAndAliases(t *testing.T) {
	payload := `{"data":[{"text":"Capital of India?","choices":["Mumbai","Delhi"],"correct":"B"}]}`
	qs := newTestNormalizer().NormalizeJSON([]byte(payload))
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	if !reflect.DeepEqual(qs[0].Options, []string{"Mumbai", "Delhi"}) {
		t.Fatalf("unexpected options %v", qs[0].Options)
	}
	if qs[0].CorrectIndex != 1 {
		t.Fatalf("expected correct index 1, got %d", qs[0].CorrectIndex)
	}
}

func TestNormalizeLocatesArrays(t *testing.T) {
	item := map[string]any{"q": "Pick one", "options": []any{"x", "y"}}
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{name: "questions wrapper", raw: map[string]any{"questions": []any{item}}, want: 1},
		{name: "capitalised wrapper", raw: map[string]any{"Questions": []any{item}, "meta": "v1"}, want: 1},
		{name: "arbitrary field", raw: map[string]any{"bank": []any{item, item}}, want: 2},
		{name: "no array", raw: map[string]any{"title": "empty"}, want: 0},
		{name: "scalar", raw: "nope", want: 0},
		{name: "nil", raw: nil, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			qs := newTestNormalizer().Normalize(tc.raw)
			if len(qs) != tc.want {
				t.Fatalf("expected %d questions, got %d", tc.want, len(qs))
			}
			if qs == nil {
				t.Fatalf("expected non-nil slice")
			}
		})
	}
}

func TestNormalizeCaseInsensitiveKeys(t *testing.T) {
	raw := []any{map[string]any{"Question": "Who?", "OPTIONS": []any{"a", "b"}, "Answer": "b", "Topic": "Polity"}}
	qs := newTestNormalizer().Normalize(raw)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	if qs[0].Text != "Who?" || qs[0].CorrectIndex != 1 || qs[0].Topic != "Polity" {
		t.Fatalf("unexpected question %+v", qs[0])
	}
}

func TestNormalizeDropsInvalidItems(t *testing.T) {
	raw := []any{
		map[string]any{"question": "", "options": []any{"a", "b"}},
		map[string]any{"question": "one option", "options": []any{"a"}},
		map[string]any{"question": "no options"},
		map[string]any{"question": "options not a list", "options": "a,b"},
		"not an object",
		map[string]any{"question": "valid", "options": []any{"a", "b"}},
	}
	rep := newTestNormalizer().Inspect(raw)
	if len(rep.Questions) != 1 || rep.Questions[0].Text != "valid" {
		t.Fatalf("expected only the valid item, got %+v", rep.Questions)
	}
	if rep.Dropped != 5 || rep.Received != 6 {
		t.Fatalf("unexpected counts: received=%d dropped=%d", rep.Received, rep.Dropped)
	}
	if len(rep.Diagnostics) != 0 {
		t.Fatalf("per-item drops must not produce diagnostics: %+v", rep.Diagnostics)
	}
}

func TestNormalizeAnswerMapping(t *testing.T) {
	opts := []any{"alpha", "beta", "gamma", "delta"}
	tests := []struct {
		name   string
		answer any
		want   int
	}{
		{name: "upper letter", answer: "B", want: 1},
		{name: "lower letter", answer: "b", want: 1},
		{name: "option prefix", answer: "Option B", want: 1},
		{name: "ans prefix", answer: "Ans: d", want: 3},
		{name: "parenthesised", answer: "(c)", want: 2},
		{name: "numeric", answer: float64(2), want: 2},
		{name: "json number", answer: json.Number("3"), want: 3},
		{name: "numeric string", answer: "1", want: 0},
		{name: "option text", answer: "Gamma", want: 0},
		{name: "option text starting with a letter code", answer: "Delta", want: 3},
		{name: "letter past D", answer: "E", want: 0},
		{name: "first character", answer: "b) beta", want: 1},
		{name: "unrecognised", answer: "zzz", want: 0},
		{name: "out of range", answer: float64(9), want: 0},
		{name: "fractional", answer: 1.5, want: 0},
		{name: "negative", answer: float64(-1), want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := []any{map[string]any{"question": "Q", "options": opts, "answer": tc.answer}}
			qs := newTestNormalizer().Normalize(raw)
			if len(qs) != 1 {
				t.Fatalf("expected 1 question, got %d", len(qs))
			}
			if qs[0].CorrectIndex != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, qs[0].CorrectIndex)
			}
		})
	}
}

func TestNormalizeStrictAnswersDrops(t *testing.T) {
	raw := []any{
		map[string]any{"question": "missing", "options": []any{"a", "b"}},
		map[string]any{"question": "garbage", "options": []any{"a", "b"}, "answer": "zzz"},
		map[string]any{"question": "ok", "options": []any{"a", "b"}, "answer": "A"},
	}
	qs := newTestNormalizer(WithStrictAnswers(true)).Normalize(raw)
	if len(qs) != 1 || qs[0].Text != "ok" {
		t.Fatalf("expected only the answered item, got %+v", qs)
	}
	lenient := newTestNormalizer().Normalize(raw)
	if len(lenient) != 3 {
		t.Fatalf("expected lenient mode to keep all items, got %d", len(lenient))
	}
}

func TestNormalizeExplanationShapes(t *testing.T) {
	base := func(extra map[string]any) []any {
		item := map[string]any{"question": "Q", "options": []any{"a", "b"}}
		for k, v := range extra {
			item[k] = v
		}
		return []any{item}
	}

	t.Run("string with notes", func(t *testing.T) {
		q := newTestNormalizer().Normalize(base(map[string]any{"explanation": "Because.", "notes": "Remember Art. 21"}))[0]
		if q.Explanation.Core != "Because." {
			t.Fatalf("unexpected core %q", q.Explanation.Core)
		}
		if q.Explanation.ExpertNote == nil || *q.Explanation.ExpertNote != "Remember Art. 21" {
			t.Fatalf("expected notes as expert note, got %v", q.Explanation.ExpertNote)
		}
		if q.Explanation.Elimination != nil {
			t.Fatalf("expected nil elimination")
		}
	})

	t.Run("string without notes", func(t *testing.T) {
		q := newTestNormalizer().Normalize(base(map[string]any{"explanation": "Because."}))[0]
		if q.Explanation.ExpertNote != nil {
			t.Fatalf("expected nil expert note, got %q", *q.Explanation.ExpertNote)
		}
	})

	t.Run("object", func(t *testing.T) {
		q := newTestNormalizer().Normalize(base(map[string]any{"explanation": map[string]any{
			"Core":        "Main reason",
			"elimination": "Option A is a trap",
		}}))[0]
		if q.Explanation.Core != "Main reason" {
			t.Fatalf("unexpected core %q", q.Explanation.Core)
		}
		if q.Explanation.ExpertNote == nil || *q.Explanation.ExpertNote != DefaultExpertNote {
			t.Fatalf("expected default expert note")
		}
		if q.Explanation.Elimination == nil || *q.Explanation.Elimination != "Option A is a trap" {
			t.Fatalf("unexpected elimination %v", q.Explanation.Elimination)
		}
	})

	t.Run("object without core", func(t *testing.T) {
		q := newTestNormalizer().Normalize(base(map[string]any{"explanation": map[string]any{"expert": "tip"}}))[0]
		if q.Explanation.Core != DefaultExplanationCore {
			t.Fatalf("expected default core, got %q", q.Explanation.Core)
		}
		if q.Explanation.ExpertNote == nil || *q.Explanation.ExpertNote != "tip" {
			t.Fatalf("unexpected expert note %v", q.Explanation.ExpertNote)
		}
	})

	t.Run("absent", func(t *testing.T) {
		q := newTestNormalizer().Normalize(base(nil))[0]
		if q.Explanation.Core != DefaultExplanationCore || q.Explanation.ExpertNote == nil {
			t.Fatalf("expected full default record, got %+v", q.Explanation)
		}
	})
}

func TestNormalizeIDs(t *testing.T) {
	raw := []any{
		map[string]any{"id": "p1", "question": "A", "options": []any{"a", "b"}},
		map[string]any{"id": "p1", "question": "B", "options": []any{"a", "b"}},
		map[string]any{"id": float64(7), "question": "C", "options": []any{"a", "b"}},
		map[string]any{"question": "D", "options": []any{"a", "b"}},
	}
	qs := newTestNormalizer().Normalize(raw)
	got := []string{qs[0].ID, qs[1].ID, qs[2].ID}
	want := []string{"p1", "p1_1", "7"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	if !synthesizedID.MatchString(qs[3].ID) || qs[3].ID[:4] != "q_3_" {
		t.Fatalf("unexpected synthesized id %q", qs[3].ID)
	}
}

func TestNormalizeSynthesizedIDsSurviveReload(t *testing.T) {
	payload := []byte(`[
		{"question":"Which article protects life?","options":["21","19"]},
		{"question":"Which article covers equality?","options":["21","14"]}
	]`)

	first := newTestNormalizer().NormalizeJSON(payload)
	second := newTestNormalizer().NormalizeJSON(payload)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 questions per load, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("id of item %d changed across loads: %q then %q", i, first[i].ID, second[i].ID)
		}
	}
	if first[0].ID == first[1].ID {
		t.Fatalf("distinct items share id %q", first[0].ID)
	}

	edited := newTestNormalizer().NormalizeJSON([]byte(`[{"question":"Which article protects life?","options":["21","32"]}]`))
	if edited[0].ID == first[0].ID {
		t.Fatalf("edited options kept id %q", edited[0].ID)
	}
}

func TestNormalizeLenientAnswers(t *testing.T) {
	opts := []any{"Mumbai", "Delhi", "Chennai", "Kolkata", "Pune"}
	tests := []struct {
		name   string
		answer any
		want   int
	}{
		{name: "numeric string", answer: "1", want: 1},
		{name: "option text", answer: "delhi", want: 1},
		{name: "letter past D", answer: "E", want: 4},
		{name: "letter code still wins", answer: "Option C", want: 2},
		{name: "numeric string out of range", answer: "7", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := []any{map[string]any{"question": "Q", "options": opts, "answer": tc.answer}}
			qs := newTestNormalizer(WithLenientAnswers(true)).Normalize(raw)
			if len(qs) != 1 {
				t.Fatalf("expected 1 question, got %d", len(qs))
			}
			if qs[0].CorrectIndex != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, qs[0].CorrectIndex)
			}
		})
	}
}

func TestNormalizeTagsAndOptionShapes(t *testing.T) {
	raw := []any{map[string]any{
		"question": "Q",
		"options":  map[string]any{"B": "second", "A": "first"},
		"answer":   "A",
		"tags":     "Math, aptitude, math",
	}}
	q := newTestNormalizer().Normalize(raw)[0]
	if !reflect.DeepEqual(q.Options, []string{"first", "second"}) {
		t.Fatalf("unexpected options %v", q.Options)
	}
	if !reflect.DeepEqual(q.Tags, []string{"Math", "aptitude"}) {
		t.Fatalf("unexpected tags %v", q.Tags)
	}

	objects := []any{map[string]any{"question": "Q", "options": []any{map[string]any{"text": "x"}, map[string]any{"label": "y"}}}}
	q = newTestNormalizer().Normalize(objects)[0]
	if !reflect.DeepEqual(q.Options, []string{"x", "y"}) {
		t.Fatalf("unexpected object options %v", q.Options)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	payload := `[
		{"question":"2+2?","options":["3","4"],"answer":1,"tags":["math"],"explanation":"Arithmetic."},
		{"Q":"Capital?","choices":["Mumbai","Delhi"],"correct":"B","topic":"Geo","explanation":{"core":"Delhi","elimination":"Mumbai is financial"}},
		{"title":"Plain","answers":["yes","no"]}
	]`
	n := newTestNormalizer()
	first := n.NormalizeJSON([]byte(payload))
	if len(first) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(first))
	}

	wrapped, err := json.Marshal(map[string]any{"questions": first})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second := n.NormalizeJSON(wrapped)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalizeDiagnostics(t *testing.T) {
	var got []Diagnostic
	n := newTestNormalizer(WithDiagnostics(func(d Diagnostic) { got = append(got, d) }))

	n.NormalizeJSON([]byte(`{not json`))
	n.Normalize(nil)
	n.Normalize(map[string]any{"title": "x"})
	n.Normalize([]any{map[string]any{"question": "bad"}})

	want := []DiagnosticKind{KindDecodeFailed, KindNilInput, KindNoArray, KindNoValidItems}
	if len(got) != len(want) {
		t.Fatalf("expected %d diagnostics, got %+v", len(want), got)
	}
	for i, kind := range want {
		if got[i].Kind != kind {
			t.Fatalf("diagnostic %d: expected %s, got %s", i, kind, got[i].Kind)
		}
	}
}

func TestNormalizeYAML(t *testing.T) {
	payload := `questions:
  - question: "Largest planet?"
    options: [Earth, Jupiter]
    answer: 1
    difficulty: Easy
`
	qs := newTestNormalizer().NormalizeYAML([]byte(payload))
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	if qs[0].CorrectIndex != 1 || qs[0].Difficulty != "Easy" {
		t.Fatalf("unexpected question %+v", qs[0])
	}
}
