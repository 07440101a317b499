package model

// Mode selects how a quiz session behaves.
type Mode string

const (
	// ModeTest is a timed attempt; answers are revealed only in the result.
	ModeTest Mode = "test"
	// ModeLearning is untimed and reveals each answer as it is submitted.
	ModeLearning Mode = "learning"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeTest || m == ModeLearning
}

// Unanswered is the SelectedIndex of a question with no recorded choice.
const Unanswered = -1

// AnswerRecord is the per-question answer and timing slot of a session.
type AnswerRecord struct {
	QuestionID       string  `json:"question_id"`
	SelectedIndex    int     `json:"selected_index"`
	TimeSpentSeconds float64 `json:"time_spent_seconds"`
}

// Answered reports whether a choice has been recorded.
func (a AnswerRecord) Answered() bool {
	return a.SelectedIndex != Unanswered
}

// Progress describes the position of a session.
type Progress struct {
	Current          int     `json:"current"`
	Total            int     `json:"total"`
	Percent          float64 `json:"percent"`
	Answered         int     `json:"answered"`
	RemainingSeconds int     `json:"remaining_seconds"`
}

// AnswerFeedback is returned after an answer is recorded. In test mode only
// Revealed=false is set.
type AnswerFeedback struct {
	Revealed     bool         `json:"revealed"`
	Correct      bool         `json:"correct,omitempty"`
	CorrectIndex *int         `json:"correct_index,omitempty"`
	Explanation  *Explanation `json:"explanation,omitempty"`
}

// StartQuizRequest is the payload for starting a quiz attempt.
type StartQuizRequest struct {
	SubjectID string `json:"subject_id" binding:"required,min=1,max=100"`
	Mode      Mode   `json:"mode" binding:"omitempty,quizmode"`
	Limit     int    `json:"limit" binding:"omitempty,min=1,max=500"`
	Shuffle   bool   `json:"shuffle"`
}

// SubmitAnswerRequest is the payload for answering the current question.
type SubmitAnswerRequest struct {
	ChoiceIndex *int `json:"choice_index" binding:"required,min=0"`
}

// JumpRequest is the payload for jumping to a question by position.
type JumpRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// QuizState is the view of an active quiz returned by the API.
type QuizState struct {
	QuizID       string               `json:"quiz_id"`
	SubjectID    string               `json:"subject_id"`
	Mode         Mode                 `json:"mode"`
	TotalSeconds int                  `json:"total_seconds"`
	Progress     Progress             `json:"progress"`
	Question     QuestionForCandidate `json:"question"`
	// SelectedIndex is the recorded choice for the current question, or -1.
	SelectedIndex int `json:"selected_index"`
}
