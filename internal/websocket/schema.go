package websocket

import "github.com/stemsi/exstem-prep/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionClear    Action = "clear"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionJump     Action = "jump"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope carries every client action. Choice is used by answer,
// Index by jump.
type RequestEnvelope struct {
	Action Action `json:"action"`
	Choice *int   `json:"choice_index,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState    Event = "state"
	EventTick     Event = "tick"
	EventFeedback Event = "feedback"
	EventExpired  Event = "expired"
	EventResult   Event = "result"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

type StateResponse struct {
	Event Event           `json:"event"`
	State model.QuizState `json:"state"`
}

type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

type FeedbackResponse struct {
	Event    Event                `json:"event"`
	Feedback model.AnswerFeedback `json:"feedback"`
}

type ExpiredResponse struct {
	Event Event `json:"event"`
}

type ResultResponse struct {
	Event  Event         `json:"event"`
	Result *model.Result `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
