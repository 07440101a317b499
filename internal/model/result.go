package model

// MissedQuestion is a question answered wrongly, kept with the wrong choice
// for revision.
type MissedQuestion struct {
	Question      Question `json:"question"`
	SelectedIndex int      `json:"selected_index"`
}

// RevisionItem is a missed question as stored for revision.
type RevisionItem struct {
	MissedQuestion
	SubjectID    string `json:"subject_id"`
	MissCount    int    `json:"miss_count"`
	LastMissedAt int64  `json:"last_missed_at"`
}

// Result is the summary of a finished attempt.
type Result struct {
	ID                         string           `json:"id"`
	SubjectID                  string           `json:"subject_id"`
	Mode                       Mode             `json:"mode"`
	Score                      float64          `json:"score"`
	TotalPossibleMarks         float64          `json:"total_possible_marks"`
	CorrectCount               int              `json:"correct_count"`
	WrongCount                 int              `json:"wrong_count"`
	SkippedCount               int              `json:"skipped_count"`
	TotalQuestions             int              `json:"total_questions"`
	AccuracyPercent            float64          `json:"accuracy_percent"`
	TotalActiveDurationSeconds float64          `json:"total_active_duration_seconds"`
	MissedQuestions            []MissedQuestion `json:"missed_questions"`
	CreatedAtEpochMillis       int64            `json:"created_at_epoch_millis"`
}

// ResultSummary is a result without its missed-question list, used in
// history listings.
type ResultSummary struct {
	ID                         string  `json:"id"`
	SubjectID                  string  `json:"subject_id"`
	Mode                       Mode    `json:"mode"`
	Score                      float64 `json:"score"`
	TotalPossibleMarks         float64 `json:"total_possible_marks"`
	CorrectCount               int     `json:"correct_count"`
	WrongCount                 int     `json:"wrong_count"`
	SkippedCount               int     `json:"skipped_count"`
	AccuracyPercent            float64 `json:"accuracy_percent"`
	TotalActiveDurationSeconds float64 `json:"total_active_duration_seconds"`
	CreatedAtEpochMillis       int64   `json:"created_at_epoch_millis"`
}

// Summary drops the missed-question list.
func (r *Result) Summary() ResultSummary {
	return ResultSummary{
		ID:                         r.ID,
		SubjectID:                  r.SubjectID,
		Mode:                       r.Mode,
		Score:                      r.Score,
		TotalPossibleMarks:         r.TotalPossibleMarks,
		CorrectCount:               r.CorrectCount,
		WrongCount:                 r.WrongCount,
		SkippedCount:               r.SkippedCount,
		AccuracyPercent:            r.AccuracyPercent,
		TotalActiveDurationSeconds: r.TotalActiveDurationSeconds,
		CreatedAtEpochMillis:       r.CreatedAtEpochMillis,
	}
}

// ListResultsQuery filters the result history. Absent parameters take
// defaults; present ones must be at least 1.
type ListResultsQuery struct {
	Subject string `form:"subject" json:"subject" binding:"omitempty,max=100"`
	Page    *int   `form:"page" json:"page" binding:"omitempty,min=1"`
	PerPage *int   `form:"per_page" json:"per_page" binding:"omitempty,min=1,max=100"`
}

// RevisionQuery filters the revision list.
type RevisionQuery struct {
	Subject string `form:"subject" json:"subject" binding:"omitempty,max=100"`
	Limit   *int   `form:"limit" json:"limit" binding:"omitempty,min=1,max=500"`
}

// IntOr returns *p, or fallback when the parameter was absent.
func IntOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}
