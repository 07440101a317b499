package model

import "strings"

// Default classification values for questions whose source omits them.
const (
	DefaultTopic      = "General"
	DefaultDifficulty = "Moderate"
)

// Question is a normalized multiple-choice question. Every Question produced
// by the normalizer has at least two options and a CorrectIndex inside them.
type Question struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	Options      []string    `json:"options"`
	CorrectIndex int         `json:"correct_index"`
	Topic        string      `json:"topic"`
	Difficulty   string      `json:"difficulty"`
	Tags         []string    `json:"tags"`
	Explanation  Explanation `json:"explanation"`
}

// Explanation is always populated in this shape, whatever the source supplied.
type Explanation struct {
	Core        string  `json:"core"`
	ExpertNote  *string `json:"expert_note"`
	Elimination *string `json:"elimination"`
}

// HasTag reports whether the question carries tag, ignoring case.
func (q Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// QuestionForCandidate is a question without its answer key, sent to the
// candidate while a test is running.
type QuestionForCandidate struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Topic      string   `json:"topic"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
}

// ForCandidate strips the answer key and explanation.
func (q Question) ForCandidate() QuestionForCandidate {
	return QuestionForCandidate{
		ID:         q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Topic:      q.Topic,
		Difficulty: q.Difficulty,
		Tags:       q.Tags,
	}
}

// Clone returns a copy that shares no slices or pointers with q.
func (q Question) Clone() Question {
	c := q
	c.Options = cloneStrings(q.Options)
	c.Tags = cloneStrings(q.Tags)
	if q.Explanation.ExpertNote != nil {
		v := *q.Explanation.ExpertNote
		c.Explanation.ExpertNote = &v
	}
	if q.Explanation.Elimination != nil {
		v := *q.Explanation.Elimination
		c.Explanation.Elimination = &v
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
