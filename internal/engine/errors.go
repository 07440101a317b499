package engine

import "errors"

var (
	ErrNoQuestions      = errors.New("engine: no questions to start a session with")
	ErrInvalidMode      = errors.New("engine: unknown quiz mode")
	ErrNotActive        = errors.New("engine: session is not active")
	ErrChoiceOutOfRange = errors.New("engine: choice index out of range")
	ErrNotInitialized   = errors.New("engine: session was never initialized")
	ErrAlreadyFinished  = errors.New("engine: session already finished")
)
