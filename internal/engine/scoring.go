package engine

import (
	"math"

	"github.com/stemsi/exstem-prep/internal/model"
)

// Scheme is a marking scheme. Both values are positive; WrongMarks is the
// penalty deducted per wrong answer.
type Scheme struct {
	CorrectMarks float64 `json:"correct_marks"`
	WrongMarks   float64 `json:"wrong_marks"`
}

// Tally is the outcome of scoring an answer log.
type Tally struct {
	Correct            int
	Wrong              int
	Skipped            int
	Score              float64
	TotalPossibleMarks float64
	AccuracyPercent    float64
	ActiveSeconds      float64
	Missed             []model.MissedQuestion
}

// Score applies scheme to the answers recorded against questions. Answers are
// matched by position. Time is only accumulated for attempted questions.
func Score(questions []model.Question, answers []model.AnswerRecord, scheme Scheme) Tally {
	t := Tally{Missed: []model.MissedQuestion{}}
	var active float64

	for i, q := range questions {
		if i >= len(answers) || !answers[i].Answered() {
			t.Skipped++
			continue
		}
		a := answers[i]
		active += a.TimeSpentSeconds
		if a.SelectedIndex == q.CorrectIndex {
			t.Correct++
			continue
		}
		t.Wrong++
		t.Missed = append(t.Missed, model.MissedQuestion{
			Question:      q.Clone(),
			SelectedIndex: a.SelectedIndex,
		})
	}

	raw := float64(t.Correct)*scheme.CorrectMarks - float64(t.Wrong)*scheme.WrongMarks
	t.Score = math.Max(0, round(raw, 2))
	t.TotalPossibleMarks = round(float64(len(questions))*scheme.CorrectMarks, 2)
	if attempted := t.Correct + t.Wrong; attempted > 0 {
		t.AccuracyPercent = round(float64(t.Correct)/float64(attempted)*100, 1)
	}
	t.ActiveSeconds = round(active, 2)
	return t
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
