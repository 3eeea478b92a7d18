package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizUnavailable covers both a missing and an unpublished quiz; callers must not tell them apart.
	ErrQuizUnavailable = errors.New("quiz is not available")
	// ErrProjectNotFound is returned by project lookups by id.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidShareToken indicates a share token that could not be decoded.
	ErrInvalidShareToken = errors.New("invalid share token")
	// ErrVisitNotFound is returned when a visit id is unknown or expired.
	ErrVisitNotFound = errors.New("visit not found")

	// ErrNoRespondentSelected is the validation error for starting without a name.
	ErrNoRespondentSelected = errors.New("respondent must be selected")
	// ErrRespondentNotSelectable means the id is not on the roster or has already submitted.
	ErrRespondentNotSelectable = errors.New("respondent is not selectable for this quiz")
	// ErrQuestionNotFound indicates an answer for a question not in the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionOutOfRange indicates an option index outside 1..4.
	ErrOptionOutOfRange = errors.New("option out of range")
	// ErrIncompleteAnswers is returned when grading before every question is answered.
	ErrIncompleteAnswers = errors.New("all questions must be answered before grading")
	// ErrNotPerfect is returned when submitting without a perfect score.
	ErrNotPerfect = errors.New("a perfect score is required to submit")
	// ErrRetryAfterPerfect is returned when retrying a perfect result.
	ErrRetryAfterPerfect = errors.New("perfect score can only be submitted")
	// ErrInvalidTransition is returned for an operation not allowed in the current state.
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	// ErrSessionClosed is returned for any operation after submission.
	ErrSessionClosed = errors.New("quiz already submitted")
	// ErrDuplicateSubmission is returned when the respondent already submitted the project.
	ErrDuplicateSubmission = errors.New("submission already recorded for respondent")

	// ErrNameRequired is returned when saving a project without a name.
	ErrNameRequired = errors.New("project name is required")
	// ErrInvalidQuestion indicates a question without 4 options or with an out-of-range answer.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidRoster indicates a roster CSV without the expected header.
	ErrInvalidRoster = errors.New("roster csv must have a single name header")
	// ErrTranscriptRequired is returned when generating without a transcript.
	ErrTranscriptRequired = errors.New("transcript is required to generate questions")

	// ErrGeneration indicates the question generator failed or returned an unusable payload.
	ErrGeneration = errors.New("question generation failed")
	// ErrGeneratorNotConfigured indicates no generator credentials are configured.
	ErrGeneratorNotConfigured = fmt.Errorf("%w: no generator api key configured", ErrGeneration)
)

// IsValidation reports whether err is a recoverable input error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrNoRespondentSelected,
		ErrRespondentNotSelectable,
		ErrQuestionNotFound,
		ErrOptionOutOfRange,
		ErrIncompleteAnswers,
		ErrNameRequired,
		ErrInvalidQuestion,
		ErrInvalidRoster,
		ErrTranscriptRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
