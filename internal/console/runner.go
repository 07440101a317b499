package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/service"
)

// Remaining-time marks at which a warning is printed.
var warnAt = map[int]bool{300: true, 60: true, 10: true}

const helpText = "Commands: a-h or 1-9 answer, n next, p previous, j N jump, x clear, s submit, q quit, ? help"

// Runner plays one quiz attempt against a QuizService.
type Runner struct {
	quiz  *service.QuizService
	in    io.Reader
	out   io.Writer
	style styles

	state  *model.QuizState
	events <-chan service.Event
	cancel func()
}

type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	chosen  lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	warning lipgloss.Style
	color   bool
}

func newStyles(color bool) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		chosen:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		good:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		bad:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		color:   color,
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return st.Render(text)
}

// NewRunner creates a Runner reading commands from in. color enables ANSI
// styling.
func NewRunner(quiz *service.QuizService, in io.Reader, out io.Writer, color bool) *Runner {
	return &Runner{quiz: quiz, in: in, out: out, style: newStyles(color)}
}

// Start opens the attempt and subscribes to its events.
func (r *Runner) Start(ctx context.Context, req model.StartQuizRequest) (*model.QuizState, error) {
	state, err := r.quiz.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	events, cancel, err := r.quiz.Subscribe(state.QuizID)
	if err != nil {
		return nil, err
	}
	r.state, r.events, r.cancel = state, events, cancel
	return state, nil
}

// Play runs the command loop until the attempt is submitted, expires or is
// quit. A quit attempt returns a nil result.
func (r *Runner) Play(ctx context.Context) (*model.Result, error) {
	if r.state == nil {
		return nil, errors.New("console: quiz not started")
	}
	defer r.cancel()

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
	}()

	r.println(r.style.render(r.style.muted, helpText))
	r.renderState(r.state)

	for {
		// Timer events win over pending input.
		select {
		case ev, ok := <-r.events:
			if res, done := r.handleEvent(ev, ok); done {
				return res, nil
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			_ = r.quiz.Abandon(r.state.QuizID)
			return nil, ctx.Err()

		case ev, ok := <-r.events:
			if res, done := r.handleEvent(ev, ok); done {
				return res, nil
			}

		case line, ok := <-lines:
			if !ok {
				r.println("input closed, quitting")
				_ = r.quiz.Abandon(r.state.QuizID)
				return nil, nil
			}
			res, done, err := r.handleLine(ctx, line)
			if done || err != nil {
				return res, err
			}
		}
	}
}

func (r *Runner) handleEvent(ev service.Event, ok bool) (*model.Result, bool) {
	if !ok {
		// Closed without a result: the quiz was dropped.
		return nil, true
	}
	switch ev.Type {
	case service.EventTick:
		if warnAt[ev.RemainingSeconds] {
			r.println(r.style.render(r.style.warning, fmt.Sprintf("%s left", clock(ev.RemainingSeconds))))
		}
	case service.EventExpired:
		r.println(r.style.render(r.style.bad, "Time is up. Submitting your answers."))
	case service.EventResult:
		r.renderResult(ev.Result)
		return ev.Result, true
	}
	return nil, false
}

func (r *Runner) handleLine(ctx context.Context, line string) (*model.Result, bool, error) {
	cmd, err := ParseCommand(line)
	if errors.Is(err, errEmptyCommand) {
		return nil, false, nil
	}
	if err != nil {
		r.println(r.style.render(r.style.warning, err.Error()))
		return nil, false, nil
	}

	id := r.state.QuizID
	var state *model.QuizState
	switch cmd.Kind {
	case CmdHelp:
		r.println(helpText)
		return nil, false, nil

	case CmdQuit:
		if err := r.quiz.Abandon(id); err != nil && !errors.Is(err, service.ErrQuizNotFound) {
			return nil, true, err
		}
		r.println("Attempt discarded.")
		return nil, true, nil

	case CmdSubmit:
		res, err := r.quiz.Submit(ctx, id)
		if errors.Is(err, service.ErrPersistFailed) && res != nil {
			r.println(r.style.render(r.style.bad, "Warning: the result could not be saved."))
			err = nil
		}
		if err != nil {
			return nil, false, r.report(err)
		}
		r.renderResult(res)
		return res, true, nil

	case CmdAnswer:
		fb, err := r.quiz.Answer(id, cmd.Index)
		if err != nil {
			return nil, false, r.report(err)
		}
		r.renderFeedback(fb)
		state, err = r.quiz.Current(id)
		if err != nil {
			return nil, false, r.report(err)
		}

	case CmdClear:
		state, err = r.quiz.Clear(id)
	case CmdNext:
		state, err = r.quiz.Next(id)
	case CmdPrevious:
		state, err = r.quiz.Previous(id)
	case CmdJump:
		state, err = r.quiz.Jump(id, cmd.Index)
	}
	if err != nil {
		return nil, false, r.report(err)
	}
	r.state = state
	r.renderState(state)
	return nil, false, nil
}

// report prints recoverable errors and returns nil for them. The loop keeps
// waiting for the result event when the quiz finished underneath it.
func (r *Runner) report(err error) error {
	switch {
	case errors.Is(err, engine.ErrChoiceOutOfRange):
		r.println(r.style.render(r.style.warning, "No such option."))
	case errors.Is(err, service.ErrOutOfRange):
		r.println(r.style.render(r.style.warning, "No question there."))
	case errors.Is(err, service.ErrQuizNotFound), errors.Is(err, engine.ErrNotActive), errors.Is(err, engine.ErrAlreadyFinished):
		// Expired while typing; the result event follows.
	default:
		return err
	}
	return nil
}

func (r *Runner) renderState(st *model.QuizState) {
	p := st.Progress
	header := fmt.Sprintf("Question %d/%d", p.Current, p.Total)
	meta := fmt.Sprintf("%s · %s · answered %d", st.Question.Topic, st.Question.Difficulty, p.Answered)
	if st.Mode == model.ModeTest {
		meta += " · " + clock(p.RemainingSeconds) + " left"
	}

	r.println("")
	r.println(r.style.render(r.style.title, header) + "  " + r.style.render(r.style.muted, meta))
	r.println(st.Question.Text)
	for i, opt := range st.Question.Options {
		line := fmt.Sprintf("  %s) %s", OptionLabel(i), opt)
		if i == st.SelectedIndex {
			line = r.style.render(r.style.chosen, "* "+strings.TrimPrefix(line, "  "))
		}
		r.println(line)
	}
}

func (r *Runner) renderFeedback(fb model.AnswerFeedback) {
	if !fb.Revealed {
		r.println(r.style.render(r.style.muted, "Answer recorded."))
		return
	}
	if fb.Correct {
		r.println(r.style.render(r.style.good, "Correct."))
	} else if fb.CorrectIndex != nil {
		r.println(r.style.render(r.style.bad, "Wrong. The answer is "+OptionLabel(*fb.CorrectIndex)+"."))
	}
	if fb.Explanation != nil {
		r.println(fb.Explanation.Core)
		if fb.Explanation.Elimination != nil {
			r.println(r.style.render(r.style.muted, *fb.Explanation.Elimination))
		}
	}
}

func (r *Runner) renderResult(res *model.Result) {
	r.println("")
	r.println(r.style.render(r.style.title, fmt.Sprintf("Score %.2f / %.2f", res.Score, res.TotalPossibleMarks)))
	r.println(fmt.Sprintf("Correct %d · Wrong %d · Skipped %d · Accuracy %.1f%% · Active %s",
		res.CorrectCount, res.WrongCount, res.SkippedCount, res.AccuracyPercent, clock(int(res.TotalActiveDurationSeconds))))

	if len(res.MissedQuestions) == 0 {
		return
	}
	r.println(r.style.render(r.style.warning, "Review:"))
	for _, m := range res.MissedQuestions {
		q := m.Question
		r.println("- " + q.Text)
		r.println(fmt.Sprintf("  yours %s, answer %s) %s",
			OptionLabel(m.SelectedIndex), OptionLabel(q.CorrectIndex), q.Options[q.CorrectIndex]))
		r.println(r.style.render(r.style.muted, "  "+q.Explanation.Core))
	}
}

func (r *Runner) println(s string) {
	fmt.Fprintln(r.out, s)
}

// clock formats seconds as m:ss.
func clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
