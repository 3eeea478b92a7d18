package domain

import "time"

// OptionCount is the fixed number of choices every question carries.
const OptionCount = 4

// Question models an MCQ question with exactly one correct option.
// CorrectAnswer is 1-based.
type Question struct {
	ID            string   `json:"id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// Validate checks the option count and that the correct answer points at an option.
func (q Question) Validate() error {
	if len(q.Options) != OptionCount {
		return ErrInvalidQuestion
	}
	if !ValidOption(q.CorrectAnswer) {
		return ErrInvalidQuestion
	}
	return nil
}

// ValidOption reports whether a 1-based option index is in range.
func ValidOption(option int) bool {
	return option >= 1 && option <= OptionCount
}

// Project is an authored quiz definition.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Transcript  string     `json:"transcript"`
	URLSlug     string     `json:"url_slug"`
	IsPublished bool       `json:"is_published"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Respondent is a roster entry that may take quizzes.
type Respondent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attempt is one graded pass at a quiz. Attempts are never mutated.
type Attempt struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	UserID      string    `json:"userId"`
	Score       int       `json:"score"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// Submission is the single perfect-score completion for a (project, respondent) pair.
type Submission struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	UserID       string    `json:"userId"`
	SubmittedAt  time.Time `json:"submittedAt"`
	AttemptCount int       `json:"attempt_count"`
}

// GeneratedQuestion is a candidate question returned by a generator, before an id is assigned.
type GeneratedQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// RejectedQuestion records a generated item that failed shape checks.
type RejectedQuestion struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// GenerationResult carries accepted candidates together with what was dropped.
type GenerationResult struct {
	Accepted []GeneratedQuestion `json:"accepted"`
	Rejected []RejectedQuestion  `json:"rejected"`
}

// SubmittedEntry is one row of the submission status report.
type SubmittedEntry struct {
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	SubmittedAt  time.Time `json:"submittedAt"`
	AttemptCount int       `json:"attemptCount"`
}

// SubmissionStatus splits the roster by whether each respondent has submitted.
type SubmissionStatus struct {
	ProjectID    string           `json:"projectId"`
	ProjectName  string           `json:"projectName"`
	Submitted    []SubmittedEntry `json:"submitted"`
	NotSubmitted []Respondent     `json:"notSubmitted"`
}
