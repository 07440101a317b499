package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/timer"
)

// Domain Errors
var (
	ErrQuizNotFound  = errors.New("quiz not found")
	ErrOutOfRange    = errors.New("no question at that position")
	ErrPersistFailed = errors.New("result could not be persisted")
)

// QuestionSource loads the questions of a subject.
type QuestionSource interface {
	Load(ctx context.Context, subjectID string) ([]model.Question, error)
}

// EventType identifies a quiz stream event.
type EventType string

const (
	EventTick    EventType = "tick"
	EventExpired EventType = "expired"
	EventResult  EventType = "result"
)

// Event is pushed to quiz subscribers.
type Event struct {
	Type             EventType
	RemainingSeconds int
	Result           *model.Result
}

const subscriberBuffer = 16

// QuizService owns the live quiz sessions of the process.
type QuizService struct {
	source QuestionSource
	sink   ResultSink
	opts   engine.Options
	clock  timer.Clock
	log    zerolog.Logger

	mu      sync.Mutex
	quizzes map[string]*quiz
}

type quiz struct {
	id        string
	subjectID string
	session   *engine.Session

	finishMu sync.Mutex
	result   *model.Result

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// NewQuizService creates a new QuizService. clock may be nil for the real clock.
func NewQuizService(source QuestionSource, sink ResultSink, opts engine.Options, clock timer.Clock, log zerolog.Logger) *QuizService {
	if clock == nil {
		clock = timer.RealClock{}
	}
	return &QuizService{
		source:  source,
		sink:    sink,
		opts:    opts,
		clock:   clock,
		log:     log.With().Str("component", "quiz_service").Logger(),
		quizzes: make(map[string]*quiz),
	}
}

// Start loads a bank and opens a new attempt. Test mode starts the countdown;
// learning mode is untimed.
func (s *QuizService) Start(ctx context.Context, req model.StartQuizRequest) (*model.QuizState, error) {
	mode := req.Mode
	if mode == "" {
		mode = model.ModeTest
	}

	questions, err := s.source.Load(ctx, req.SubjectID)
	if err != nil {
		return nil, err
	}
	questions = append([]model.Question(nil), questions...)
	if req.Shuffle {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	if req.Limit > 0 && req.Limit < len(questions) {
		questions = questions[:req.Limit]
	}

	q := &quiz{
		id:        uuid.New().String(),
		subjectID: req.SubjectID,
		session:   engine.New(s.opts, s.clock, s.log),
		subs:      make(map[int]chan Event),
	}
	if err := q.session.Init(questions, mode); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.quizzes[q.id] = q
	s.mu.Unlock()

	if mode == model.ModeTest {
		err := q.session.StartTimer(
			func(remaining int) { q.publish(Event{Type: EventTick, RemainingSeconds: remaining}) },
			func() { s.expire(q) },
		)
		if err != nil {
			s.remove(q.id)
			return nil, fmt.Errorf("start timer: %w", err)
		}
	}

	s.log.Info().
		Str("quiz_id", q.id).
		Str("subject_id", q.subjectID).
		Str("mode", string(mode)).
		Int("questions", len(questions)).
		Msg("quiz started")

	return q.snapshot()
}

// Current returns the state of a live quiz.
func (s *QuizService) Current(id string) (*model.QuizState, error) {
	q, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if q.session.State() != engine.StateActive {
		return nil, engine.ErrNotActive
	}
	return q.snapshot()
}

// Answer records a choice for the current question.
func (s *QuizService) Answer(id string, choice int) (model.AnswerFeedback, error) {
	q, err := s.get(id)
	if err != nil {
		return model.AnswerFeedback{}, err
	}
	return q.session.SubmitAnswer(choice)
}

// Clear resets the current question to unanswered.
func (s *QuizService) Clear(id string) (*model.QuizState, error) {
	q, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := q.session.ClearAnswer(); err != nil {
		return nil, err
	}
	return q.snapshot()
}

func (s *QuizService) Next(id string) (*model.QuizState, error) {
	return s.navigate(id, func(sess *engine.Session) bool { return sess.Next() })
}

func (s *QuizService) Previous(id string) (*model.QuizState, error) {
	return s.navigate(id, func(sess *engine.Session) bool { return sess.Previous() })
}

// Jump moves to the 0-based question index.
func (s *QuizService) Jump(id string, index int) (*model.QuizState, error) {
	return s.navigate(id, func(sess *engine.Session) bool { return sess.JumpTo(index) })
}

func (s *QuizService) navigate(id string, move func(*engine.Session) bool) (*model.QuizState, error) {
	q, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if !move(q.session) {
		if q.session.State() != engine.StateActive {
			return nil, engine.ErrNotActive
		}
		return nil, ErrOutOfRange
	}
	return q.snapshot()
}

// Submit scores and persists the attempt, then closes it. A result that was
// scored but could not be stored is returned with ErrPersistFailed.
func (s *QuizService) Submit(ctx context.Context, id string) (*model.Result, error) {
	q, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, q)
}

// Abandon discards a live quiz without scoring it.
func (s *QuizService) Abandon(id string) error {
	q, err := s.get(id)
	if err != nil {
		return err
	}
	q.session.StopTimer()
	s.remove(id)
	q.closeSubscribers()
	s.log.Info().Str("quiz_id", id).Msg("quiz abandoned")
	return nil
}

// Subscribe streams tick, expiry and result events of a quiz. Slow
// subscribers miss ticks. The channel is closed when the quiz ends or
// cancel is called.
func (s *QuizService) Subscribe(id string) (<-chan Event, func(), error) {
	q, err := s.get(id)
	if err != nil {
		return nil, nil, err
	}

	q.subMu.Lock()
	defer q.subMu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if q.closed {
		close(ch)
		return ch, func() {}, nil
	}
	key := q.nextSub
	q.nextSub++
	q.subs[key] = ch

	cancel := func() {
		q.subMu.Lock()
		defer q.subMu.Unlock()
		if c, ok := q.subs[key]; ok {
			delete(q.subs, key)
			close(c)
		}
	}
	return ch, cancel, nil
}

// Active returns the number of live quizzes.
func (s *QuizService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quizzes)
}

// Close stops every countdown. Live quizzes are dropped unscored.
func (s *QuizService) Close() {
	s.mu.Lock()
	quizzes := s.quizzes
	s.quizzes = make(map[string]*quiz)
	s.mu.Unlock()

	for _, q := range quizzes {
		q.session.StopTimer()
		q.closeSubscribers()
	}
}

func (s *QuizService) expire(q *quiz) {
	q.publish(Event{Type: EventExpired})
	if _, err := s.finish(context.Background(), q); err != nil && !errors.Is(err, ErrPersistFailed) {
		s.log.Error().Err(err).Str("quiz_id", q.id).Msg("finishing expired quiz failed")
	}
}

func (s *QuizService) finish(ctx context.Context, q *quiz) (*model.Result, error) {
	q.finishMu.Lock()
	defer q.finishMu.Unlock()

	if q.result != nil {
		return q.result, nil
	}

	res, err := q.session.CalculateResult(q.subjectID)
	if err != nil {
		return nil, err
	}
	res.ID = uuid.New().String()
	q.result = res

	s.remove(q.id)
	q.publish(Event{Type: EventResult, Result: res})
	q.closeSubscribers()

	if _, err := s.sink.Deliver(context.WithoutCancel(ctx), res); err != nil {
		s.log.Error().Err(err).Str("quiz_id", q.id).Str("result_id", res.ID).Msg("persist result failed")
		return res, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return res, nil
}

func (s *QuizService) get(id string) (*quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return nil, ErrQuizNotFound
	}
	return q, nil
}

func (s *QuizService) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, id)
}

func (q *quiz) state() *model.QuizState {
	current, err := q.session.CurrentQuestion()
	if err != nil {
		return nil
	}
	selected := model.Unanswered
	if a, ok := q.session.Answer(q.session.CurrentIndex()); ok {
		selected = a.SelectedIndex
	}
	return &model.QuizState{
		QuizID:        q.id,
		SubjectID:     q.subjectID,
		Mode:          q.session.Mode(),
		TotalSeconds:  q.session.TotalSeconds(),
		Progress:      q.session.Progress(),
		Question:      current.ForCandidate(),
		SelectedIndex: selected,
	}
}

// snapshot is state for callers that need an active quiz.
func (q *quiz) snapshot() (*model.QuizState, error) {
	st := q.state()
	if st == nil {
		return nil, engine.ErrNotActive
	}
	return st, nil
}

func (q *quiz) publish(ev Event) {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		if ev.Type == EventTick {
			continue
		}
		// Make room for events that must not be lost.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func (q *quiz) closeSubscribers() {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for key, ch := range q.subs {
		delete(q.subs, key)
		close(ch)
	}
}
