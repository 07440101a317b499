package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrUnknownSubject  ErrCode = "UNKNOWN_SUBJECT"
	ErrBankUnavailable ErrCode = "BANK_UNAVAILABLE"

	// ─── Quiz-specific ─────────────────────────────────────────────────
	ErrQuizNotFound     ErrCode = "QUIZ_NOT_FOUND"
	ErrNoQuestions      ErrCode = "NO_VALID_QUESTIONS"
	ErrQuizNotActive    ErrCode = "QUIZ_NOT_ACTIVE"
	ErrChoiceOutOfRange ErrCode = "CHOICE_OUT_OF_RANGE"
	ErrNavigation       ErrCode = "NAVIGATION_OUT_OF_RANGE"
	ErrQuizFinished     ErrCode = "QUIZ_ALREADY_FINISHED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrUnknownSubject:
		return "No question bank is configured for this subject."
	case ErrBankUnavailable:
		return "The question bank could not be loaded."

	// ─── Quiz-specific ─────────────────────────────────────────────────
	case ErrQuizNotFound:
		return "Quiz not found or already closed."
	case ErrNoQuestions:
		return "The question bank has no valid questions."
	case ErrQuizNotActive:
		return "This quiz is no longer active."
	case ErrChoiceOutOfRange:
		return "The selected option does not exist for this question."
	case ErrNavigation:
		return "There is no question at that position."
	case ErrQuizFinished:
		return "This quiz has already been submitted."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
