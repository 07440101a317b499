package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/timer"
)

var epoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func question(id string, correct int, tags ...string) model.Question {
	if tags == nil {
		tags = []string{}
	}
	return model.Question{
		ID:           id,
		Text:         "Question " + id,
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: correct,
		Topic:        model.DefaultTopic,
		Difficulty:   model.DefaultDifficulty,
		Tags:         tags,
		Explanation:  model.Explanation{Core: "core " + id},
	}
}

func newSession(t *testing.T) (*Session, *timer.ManualClock) {
	t.Helper()
	clock := timer.NewManualClock(epoch)
	return New(DefaultOptions(), clock, zerolog.Nop()), clock
}

func TestInitRejectsEmptyAndInvalid(t *testing.T) {
	s, _ := newSession(t)

	if err := s.Init(nil, model.ModeTest); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle after failed init, got %s", s.State())
	}
	if err := s.Init([]model.Question{question("1", 0)}, "exam"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if _, err := s.CalculateResult("polity"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := s.CurrentQuestion(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestInitSelectsTiming(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want int
	}{
		{name: "general studies", tags: []string{"polity"}, want: 3 * 72},
		{name: "math tag", tags: []string{"Math"}, want: 3 * 90},
		{name: "aptitude tag", tags: []string{"aptitude"}, want: 3 * 90},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newSession(t)
			qs := []model.Question{question("1", 0, tc.tags...), question("2", 0), question("3", 0)}
			if err := s.Init(qs, model.ModeTest); err != nil {
				t.Fatalf("init: %v", err)
			}
			if s.TotalSeconds() != tc.want {
				t.Fatalf("expected %d seconds, got %d", tc.want, s.TotalSeconds())
			}
		})
	}
}

func TestNavigationBounds(t *testing.T) {
	s, _ := newSession(t)
	if s.Next() {
		t.Fatalf("next must fail on an idle session")
	}
	if err := s.Init([]model.Question{question("1", 0), question("2", 1)}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}

	if s.Previous() {
		t.Fatalf("previous at first question must fail")
	}
	if !s.Next() || s.CurrentIndex() != 1 {
		t.Fatalf("expected to move to index 1")
	}
	if s.Next() {
		t.Fatalf("next at last question must fail")
	}
	if s.JumpTo(5) || s.JumpTo(-1) {
		t.Fatalf("out of range jump must fail")
	}
	if !s.JumpTo(0) || s.CurrentIndex() != 0 {
		t.Fatalf("expected jump to index 0")
	}

	p := s.Progress()
	if p.Current != 1 || p.Total != 2 || p.Percent != 50 {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestTimeAccumulatesAcrossRevisits(t *testing.T) {
	s, clock := newSession(t)
	if err := s.Init([]model.Question{question("1", 0), question("2", 0)}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}

	clock.Advance(4 * time.Second)
	if _, err := s.SubmitAnswer(2); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock.Advance(1 * time.Second)
	s.Next()
	clock.Advance(7 * time.Second)
	s.Previous()
	clock.Advance(3 * time.Second)
	if _, err := s.SubmitAnswer(0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, _ := s.Answer(0)
	if first.TimeSpentSeconds != 8 {
		t.Fatalf("expected 4+1+3 seconds on the first question, got %v", first.TimeSpentSeconds)
	}
	if first.SelectedIndex != 0 {
		t.Fatalf("expected the latest choice to win, got %d", first.SelectedIndex)
	}
	second, _ := s.Answer(1)
	if second.TimeSpentSeconds != 7 || second.Answered() {
		t.Fatalf("expected 7 seconds of skipped thinking time, got %+v", second)
	}
}

func TestSubmitAnswerErrorsAndFeedback(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.SubmitAnswer(0); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}

	if err := s.Init([]model.Question{question("1", 2)}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := s.SubmitAnswer(4); !errors.Is(err, ErrChoiceOutOfRange) {
		t.Fatalf("expected ErrChoiceOutOfRange, got %v", err)
	}
	fb, err := s.SubmitAnswer(1)
	if err != nil || fb.Revealed {
		t.Fatalf("test mode must not reveal answers: %+v %v", fb, err)
	}

	if err := s.Init([]model.Question{question("1", 2)}, model.ModeLearning); err != nil {
		t.Fatalf("init: %v", err)
	}
	fb, err = s.SubmitAnswer(2)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !fb.Revealed || !fb.Correct || fb.CorrectIndex == nil || *fb.CorrectIndex != 2 {
		t.Fatalf("unexpected learning feedback %+v", fb)
	}
	if fb.Explanation == nil || fb.Explanation.Core != "core 1" {
		t.Fatalf("expected explanation in feedback")
	}
}

func TestClearAnswer(t *testing.T) {
	s, _ := newSession(t)
	if err := s.Init([]model.Question{question("1", 0)}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := s.SubmitAnswer(1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.ClearAnswer(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	res, err := s.CalculateResult("polity")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if res.SkippedCount != 1 || res.WrongCount != 0 {
		t.Fatalf("expected cleared answer to count as skipped, got %+v", res)
	}
}

func TestCalculateResultScenario(t *testing.T) {
	s, _ := newSession(t)
	if err := s.Init([]model.Question{question("1", 1, "math")}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}
	if s.TotalSeconds() != 90 {
		t.Fatalf("expected CSAT timing, got %d", s.TotalSeconds())
	}
	if _, err := s.SubmitAnswer(1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := s.CalculateResult("quant")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if res.CorrectCount != 1 || res.WrongCount != 0 || res.Score != 2.5 || res.AccuracyPercent != 100 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.TotalPossibleMarks != 2.5 || res.TotalQuestions != 1 {
		t.Fatalf("unexpected totals %+v", res)
	}
	if res.CreatedAtEpochMillis != epoch.UnixMilli() {
		t.Fatalf("unexpected timestamp %d", res.CreatedAtEpochMillis)
	}
	if s.State() != StateFinished {
		t.Fatalf("expected finished state, got %s", s.State())
	}
	if _, err := s.CalculateResult("quant"); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if s.Next() {
		t.Fatalf("finished session must be inert")
	}
}

func TestCalculateResultMissedQuestionsAndScheme(t *testing.T) {
	s, clock := newSession(t)
	qs := []model.Question{question("1", 0), question("2", 1), question("3", 2)}
	if err := s.Init(qs, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}

	clock.Advance(10 * time.Second)
	s.SubmitAnswer(0)
	s.Next()
	clock.Advance(5 * time.Second)
	s.SubmitAnswer(3)
	s.Next()
	clock.Advance(20 * time.Second)

	res, err := s.CalculateResult("history")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if res.CorrectCount != 1 || res.WrongCount != 1 || res.SkippedCount != 1 {
		t.Fatalf("unexpected tally %+v", res)
	}
	if res.Score != 1.34 {
		t.Fatalf("expected 2 - 0.66 = 1.34, got %v", res.Score)
	}
	if res.AccuracyPercent != 50 {
		t.Fatalf("expected 50%% accuracy, got %v", res.AccuracyPercent)
	}
	if res.TotalActiveDurationSeconds != 15 {
		t.Fatalf("expected only attempted time, got %v", res.TotalActiveDurationSeconds)
	}
	if len(res.MissedQuestions) != 1 || res.MissedQuestions[0].Question.ID != "2" || res.MissedQuestions[0].SelectedIndex != 3 {
		t.Fatalf("unexpected missed questions %+v", res.MissedQuestions)
	}
	res.MissedQuestions[0].Question.Options[0] = "mutated"
	if qs[1].Options[0] != "a" {
		t.Fatalf("missed question must be a copy")
	}
}

func TestCalculateResultCSATBySubject(t *testing.T) {
	s, _ := newSession(t)
	if err := s.Init([]model.Question{question("1", 0), question("2", 0)}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}
	s.SubmitAnswer(0)
	res, err := s.CalculateResult("Reasoning")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if res.Score != 2.5 || res.TotalPossibleMarks != 5 {
		t.Fatalf("expected CSAT marking, got %+v", res)
	}
}

func TestSessionTimerLifecycle(t *testing.T) {
	s, clock := newSession(t)
	if err := s.StartTimer(nil, nil); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if err := s.Init([]model.Question{question("1", 0)}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}

	var first, second int
	if err := s.StartTimer(func(int) { first++ }, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(3 * time.Second)

	// Re-initializing must kill the old countdown.
	if err := s.Init([]model.Question{question("1", 0)}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.StartTimer(func(int) { second++ }, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(2 * time.Second)

	if first != 3 || second != 2 {
		t.Fatalf("expected 3 then 2 ticks, got %d and %d", first, second)
	}
	if s.Remaining() != 70 {
		t.Fatalf("expected 70 seconds left, got %d", s.Remaining())
	}
	s.StopTimer()
	s.StopTimer()
	if clock.Pending() != 0 {
		t.Fatalf("expected no pending ticks after stop")
	}
}

func TestExpiryCanFinishSession(t *testing.T) {
	opts := DefaultOptions()
	opts.Timing.GSSecondsPerQuestion = 2
	clock := timer.NewManualClock(epoch)
	s := New(opts, clock, zerolog.Nop())
	if err := s.Init([]model.Question{question("1", 0), question("2", 0)}, model.ModeTest); err != nil {
		t.Fatalf("init: %v", err)
	}

	var result *model.Result
	ticks := 0
	err := s.StartTimer(func(int) { ticks++ }, func() {
		var err error
		result, err = s.CalculateResult("polity")
		if err != nil {
			t.Errorf("calculate on expiry: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(10 * time.Second)

	if ticks != 4 || result == nil {
		t.Fatalf("expected 4 ticks and a result, got %d ticks result=%v", ticks, result)
	}
	if result.SkippedCount != 2 || result.Score != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}
