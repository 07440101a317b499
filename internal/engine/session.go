// Package engine runs a single quiz attempt: question navigation, per-question
// answer and time tracking, the countdown and scoring.
package engine

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/timer"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateActive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Timing holds per-question time allowances in seconds.
type Timing struct {
	GSSecondsPerQuestion   int `json:"gs_seconds_per_question"`
	CSATSecondsPerQuestion int `json:"csat_seconds_per_question"`
}

// Options configures timing and marking for sessions.
type Options struct {
	Timing Timing
	GS     Scheme
	CSAT   Scheme
	// CSATSubjects are subject ids scored with the CSAT scheme.
	CSATSubjects []string
}

// DefaultOptions returns the standard general-studies and CSAT settings.
func DefaultOptions() Options {
	return Options{
		Timing:       Timing{GSSecondsPerQuestion: 72, CSATSecondsPerQuestion: 90},
		GS:           Scheme{CorrectMarks: 2, WrongMarks: 0.66},
		CSAT:         Scheme{CorrectMarks: 2.5, WrongMarks: 0.83},
		CSATSubjects: []string{"csat", "quant", "reasoning", "aptitude", "math"},
	}
}

// Tags on the first question that select the CSAT time allowance.
var csatTimingTags = []string{"math", "aptitude"}

// Session is one quiz attempt. All methods are safe for concurrent use; the
// countdown calls back from its own goroutine when driven by a real clock.
type Session struct {
	opts  Options
	clock timer.Clock
	log   zerolog.Logger

	mu           sync.Mutex
	state        State
	mode         model.Mode
	questions    []model.Question
	answers      []model.AnswerRecord
	current      int
	displayedAt  time.Time
	totalSeconds int
	countdown    *timer.Countdown
}

// New returns an idle session.
func New(opts Options, clock timer.Clock, log zerolog.Logger) *Session {
	if clock == nil {
		clock = timer.RealClock{}
	}
	return &Session{
		opts:  opts,
		clock: clock,
		log:   log.With().Str("component", "session").Logger(),
	}
}

// Init loads questions and makes the session active. Any previous attempt,
// including its countdown, is discarded. On error the session is unchanged.
func (s *Session) Init(questions []model.Question, mode model.Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countdown != nil {
		s.countdown.Stop()
	}

	s.questions = append([]model.Question(nil), questions...)
	s.answers = make([]model.AnswerRecord, len(questions))
	for i, q := range questions {
		s.answers[i] = model.AnswerRecord{QuestionID: q.ID, SelectedIndex: model.Unanswered}
	}

	perQuestion := s.opts.Timing.GSSecondsPerQuestion
	for _, tag := range csatTimingTags {
		if questions[0].HasTag(tag) {
			perQuestion = s.opts.Timing.CSATSecondsPerQuestion
			break
		}
	}
	s.totalSeconds = len(questions) * perQuestion
	s.countdown = timer.New(s.clock, s.totalSeconds, s.log)

	s.mode = mode
	s.current = 0
	s.displayedAt = s.clock.Now()
	s.state = StateActive

	s.log.Debug().
		Int("questions", len(questions)).
		Str("mode", string(mode)).
		Int("total_seconds", s.totalSeconds).
		Msg("session initialized")
	return nil
}

// StartTimer starts the countdown, replacing any run in progress.
func (s *Session) StartTimer(onTick func(remaining int), onExpire func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ErrNotActive
	}
	s.countdown.Start(onTick, onExpire)
	return nil
}

// StopTimer cancels the countdown. Safe in any state.
func (s *Session) StopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown != nil {
		s.countdown.Stop()
	}
}

// SubmitAnswer records choice for the current question and adds the time
// since it was displayed. In learning mode the feedback reveals the answer.
func (s *Session) SubmitAnswer(choice int) (model.AnswerFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return model.AnswerFeedback{}, ErrNotActive
	}
	q := s.questions[s.current]
	if choice < 0 || choice >= len(q.Options) {
		return model.AnswerFeedback{}, ErrChoiceOutOfRange
	}

	s.flushLocked()
	s.answers[s.current].SelectedIndex = choice

	if s.mode != model.ModeLearning {
		return model.AnswerFeedback{}, nil
	}
	correct := q.CorrectIndex
	explanation := q.Clone().Explanation
	return model.AnswerFeedback{
		Revealed:     true,
		Correct:      choice == q.CorrectIndex,
		CorrectIndex: &correct,
		Explanation:  &explanation,
	}, nil
}

// ClearAnswer marks the current question unanswered again. Time spent so far
// stays on the question.
func (s *Session) ClearAnswer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrNotActive
	}
	s.flushLocked()
	s.answers[s.current].SelectedIndex = model.Unanswered
	return nil
}

// Next moves to the following question.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(s.current + 1)
}

// Previous moves to the preceding question.
func (s *Session) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(s.current - 1)
}

// JumpTo moves to the question at index.
func (s *Session) JumpTo(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(index)
}

func (s *Session) moveLocked(index int) bool {
	if s.state != StateActive || index < 0 || index >= len(s.questions) {
		return false
	}
	s.flushLocked()
	s.current = index
	return true
}

// flushLocked charges the time since the last anchor to the current question
// and re-anchors. Every interval is charged exactly once.
func (s *Session) flushLocked() {
	now := s.clock.Now()
	if elapsed := now.Sub(s.displayedAt).Seconds(); elapsed > 0 {
		s.answers[s.current].TimeSpentSeconds += elapsed
	}
	s.displayedAt = now
}

// CurrentQuestion returns the question being displayed.
func (s *Session) CurrentQuestion() (model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return model.Question{}, ErrNotActive
	}
	return s.questions[s.current], nil
}

// CurrentIndex returns the 0-based position of the current question.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Answer returns the answer record at index.
func (s *Session) Answer(index int) (model.AnswerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.answers) {
		return model.AnswerRecord{}, false
	}
	return s.answers[index], true
}

// Progress reports the position, answered count and time left.
func (s *Session) Progress() model.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.questions)
	if s.state != StateActive || total == 0 {
		return model.Progress{}
	}
	answered := 0
	for _, a := range s.answers {
		if a.Answered() {
			answered++
		}
	}
	current := s.current + 1
	return model.Progress{
		Current:          current,
		Total:            total,
		Percent:          math.Round(float64(current)/float64(total)*1000) / 10,
		Answered:         answered,
		RemainingSeconds: s.countdown.Remaining(),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mode() model.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// TotalSeconds is the time allowed for the attempt.
func (s *Session) TotalSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSeconds
}

// Remaining is the countdown's seconds left, or 0 when no attempt exists.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown == nil {
		return 0
	}
	return s.countdown.Remaining()
}

// CalculateResult stops the countdown, scores the attempt and finishes the
// session. The answer log is discarded; the session cannot be scored twice.
func (s *Session) CalculateResult(subjectID string) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return nil, ErrNotInitialized
	case StateFinished:
		return nil, ErrAlreadyFinished
	}

	s.countdown.Stop()
	s.flushLocked()

	scheme := s.opts.GS
	if s.isCSATLocked(subjectID) {
		scheme = s.opts.CSAT
	}
	t := Score(s.questions, s.answers, scheme)

	result := &model.Result{
		SubjectID:                  subjectID,
		Mode:                       s.mode,
		Score:                      t.Score,
		TotalPossibleMarks:         t.TotalPossibleMarks,
		CorrectCount:               t.Correct,
		WrongCount:                 t.Wrong,
		SkippedCount:               t.Skipped,
		TotalQuestions:             len(s.questions),
		AccuracyPercent:            t.AccuracyPercent,
		TotalActiveDurationSeconds: t.ActiveSeconds,
		MissedQuestions:            t.Missed,
		CreatedAtEpochMillis:       s.clock.Now().UnixMilli(),
	}

	s.answers = nil
	s.questions = nil
	s.state = StateFinished

	s.log.Info().
		Str("subject_id", subjectID).
		Float64("score", result.Score).
		Int("correct", result.CorrectCount).
		Int("wrong", result.WrongCount).
		Int("skipped", result.SkippedCount).
		Msg("session finished")
	return result, nil
}

func (s *Session) isCSATLocked(subjectID string) bool {
	for _, id := range s.opts.CSATSubjects {
		if strings.EqualFold(strings.TrimSpace(id), subjectID) {
			return true
		}
	}
	for _, q := range s.questions {
		if q.HasTag("math") {
			return true
		}
	}
	return false
}
