// Package normalizer turns heterogeneous question-bank JSON/YAML into
// model.Question records. It never fails: unusable items are dropped and
// batch-level problems are reported as diagnostics.
package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/model"
	"gopkg.in/yaml.v3"
)

// DiagnosticKind classifies a batch-level normalization problem.
type DiagnosticKind string

const (
	KindNilInput     DiagnosticKind = "nil_input"
	KindNoArray      DiagnosticKind = "no_array"
	KindDecodeFailed DiagnosticKind = "decode_failed"
	KindNoValidItems DiagnosticKind = "no_valid_items"
)

// Diagnostic is reported once per batch, never per item.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// Report is the full outcome of one normalization batch.
type Report struct {
	Questions   []model.Question `json:"questions"`
	Received    int              `json:"received"`
	Dropped     int              `json:"dropped"`
	Diagnostics []Diagnostic     `json:"diagnostics"`
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStrictAnswers drops items whose answer is missing or unparseable
// instead of defaulting them to the first option.
func WithStrictAnswers(strict bool) Option {
	return func(n *Normalizer) { n.strict = strict }
}

// WithDiagnostics registers a callback for batch-level diagnostics.
func WithDiagnostics(fn func(Diagnostic)) Option {
	return func(n *Normalizer) { n.onDiagnostic = fn }
}

// WithLenientAnswers also accepts numeric strings, answers spelling out the
// option text, and letters past D. The default maps letters A to D only.
func WithLenientAnswers(lenient bool) Option {
	return func(n *Normalizer) { n.lenient = lenient }
}

// Normalizer is safe for concurrent use; it holds no per-batch state.
type Normalizer struct {
	log          zerolog.Logger
	strict       bool
	lenient      bool
	onDiagnostic func(Diagnostic)
}

// New creates a Normalizer.
func New(log zerolog.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		log: log.With().Str("component", "normalizer").Logger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize extracts the questions of raw, which is any value produced by
// decoding JSON or YAML into an interface.
func (n *Normalizer) Normalize(raw any) []model.Question {
	return n.Inspect(raw).Questions
}

// NormalizeJSON decodes data and normalizes it.
func (n *Normalizer) NormalizeJSON(data []byte) []model.Question {
	return n.InspectJSON(data).Questions
}

// NormalizeYAML decodes data and normalizes it.
func (n *Normalizer) NormalizeYAML(data []byte) []model.Question {
	return n.InspectYAML(data).Questions
}

// InspectJSON is NormalizeJSON returning the whole report.
func (n *Normalizer) InspectJSON(data []byte) Report {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return n.fail(KindDecodeFailed, fmt.Sprintf("decode json: %v", err))
	}
	return n.Inspect(raw)
}

// InspectYAML is NormalizeYAML returning the whole report.
func (n *Normalizer) InspectYAML(data []byte) Report {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return n.fail(KindDecodeFailed, fmt.Sprintf("decode yaml: %v", err))
	}
	return n.Inspect(raw)
}

// Inspect is Normalize returning drop counts and diagnostics as well.
func (n *Normalizer) Inspect(raw any) Report {
	if raw == nil {
		return n.fail(KindNilInput, "input is empty")
	}

	items, ok := locateItems(raw)
	if !ok {
		return n.fail(KindNoArray, "no question array found in input")
	}

	rep := Report{
		Questions:   make([]model.Question, 0, len(items)),
		Received:    len(items),
		Diagnostics: []Diagnostic{},
	}
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		q, ok := n.question(item)
		if !ok {
			rep.Dropped++
			continue
		}
		q.ID = uniqueID(q.ID, q, i, seen)
		rep.Questions = append(rep.Questions, q)
	}

	if rep.Dropped > 0 {
		n.log.Debug().
			Int("received", rep.Received).
			Int("dropped", rep.Dropped).
			Msg("Dropped unusable question items")
	}

	if len(rep.Questions) == 0 {
		d := Diagnostic{Kind: KindNoValidItems, Message: fmt.Sprintf("none of %d items is a usable question", len(items))}
		n.emit(d)
		rep.Diagnostics = append(rep.Diagnostics, d)
	}
	return rep
}

func (n *Normalizer) fail(kind DiagnosticKind, msg string) Report {
	d := Diagnostic{Kind: kind, Message: msg}
	n.emit(d)
	return Report{Questions: []model.Question{}, Diagnostics: []Diagnostic{d}}
}

func (n *Normalizer) emit(d Diagnostic) {
	n.log.Warn().Str("kind", string(d.Kind)).Msg(d.Message)
	if n.onDiagnostic != nil {
		n.onDiagnostic(d)
	}
}

// locateItems finds the raw question array: the input itself, a
// questions/data wrapper, or the first array-valued top-level field.
func locateItems(raw any) ([]any, bool) {
	if arr, ok := asArray(raw); ok {
		return arr, true
	}
	obj, ok := asObject(raw)
	if !ok {
		return nil, false
	}
	for _, key := range wrapperKeys {
		if arr, ok := asArray(obj[key]); ok {
			return arr, true
		}
	}
	names := sortedKeys(obj)
	for _, key := range wrapperKeys {
		for _, name := range names {
			if strings.EqualFold(name, key) {
				if arr, ok := asArray(obj[name]); ok {
					return arr, true
				}
			}
		}
	}
	for _, name := range names {
		if arr, ok := asArray(obj[name]); ok {
			return arr, true
		}
	}
	return nil, false
}

// question maps one raw item. It reports false for items without text or
// with fewer than two options.
func (n *Normalizer) question(raw any) (model.Question, bool) {
	item, ok := asObject(raw)
	if !ok {
		return model.Question{}, false
	}

	text := lookupString(item, textKeys)
	if text == "" {
		return model.Question{}, false
	}

	options, ok := optionList(item)
	if !ok || len(options) < 2 {
		return model.Question{}, false
	}

	correct := 0
	if v, present := lookup(item, answerKeys); present {
		idx, parsed := parseAnswer(v, options, n.lenient)
		if !parsed && n.strict {
			return model.Question{}, false
		}
		correct = idx
	} else if n.strict {
		return model.Question{}, false
	}

	q := model.Question{
		ID:           lookupString(item, idKeys),
		Text:         text,
		Options:      options,
		CorrectIndex: correct,
		Topic:        orDefault(lookupString(item, topicKeys), model.DefaultTopic),
		Difficulty:   orDefault(lookupString(item, difficultyKeys), model.DefaultDifficulty),
		Tags:         tagList(item),
		Explanation:  explanation(item),
	}
	return q, true
}

// optionList accepts an array of scalars or option objects, or an object
// keyed by letter ({"A": "...", "B": "..."}) which is ordered by key.
func optionList(item map[string]any) ([]string, bool) {
	v, ok := lookup(item, optionsKeys)
	if !ok {
		return nil, false
	}

	if arr, isArr := asArray(v); isArr {
		options := make([]string, 0, len(arr))
		for _, o := range arr {
			options = append(options, optionText(o))
		}
		return options, true
	}

	if obj, isObj := asObject(v); isObj {
		keys := sortedKeys(obj)
		options := make([]string, 0, len(keys))
		for _, k := range keys {
			options = append(options, optionText(obj[k]))
		}
		return options, true
	}
	return nil, false
}

func optionText(v any) string {
	if s, ok := toString(v); ok {
		return s
	}
	if obj, ok := asObject(v); ok {
		return lookupString(obj, optionTextKeys)
	}
	return ""
}

// tagList accepts an array or a comma-separated string.
func tagList(item map[string]any) []string {
	tags := []string{}
	v, ok := lookup(item, tagsKeys)
	if !ok {
		return tags
	}

	var parts []string
	if arr, isArr := asArray(v); isArr {
		for _, t := range arr {
			if s, ok := toString(t); ok {
				parts = append(parts, s)
			}
		}
	} else if s, ok := toString(v); ok {
		parts = strings.Split(s, ",")
	}

	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if p == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, p)
	}
	return tags
}

// uniqueID keeps the source id when it is new in this batch. A missing id is
// derived from the item position and its content, so reloading an unchanged
// bank yields the same ids.
func uniqueID(id string, q model.Question, index int, seen map[string]struct{}) string {
	if id == "" {
		id = fmt.Sprintf("q_%d_%08x", index, uint32(contentHash(q)))
	}
	candidate := id
	for n := 0; ; n++ {
		if _, dup := seen[candidate]; !dup {
			break
		}
		candidate = id + "_" + strconv.Itoa(index)
		if n > 0 {
			candidate += "_" + strconv.Itoa(n)
		}
	}
	seen[candidate] = struct{}{}
	return candidate
}

func contentHash(q model.Question) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(q.Text)
	for _, opt := range q.Options {
		_, _ = d.WriteString("\x1f")
		_, _ = d.WriteString(opt)
	}
	return d.Sum64()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
