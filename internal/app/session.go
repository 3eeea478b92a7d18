package app

import (
	"context"
	"errors"
	"sync"

	"quizloop-service/internal/domain"
)

// State names a step of the quiz-taking flow.
type State string

const (
	StateUnavailable         State = "unavailable"
	StateSelectingRespondent State = "selecting-respondent"
	StateAnswering           State = "answering"
	StateGraded              State = "graded"
	StateSubmitted           State = "submitted"
)

// QuestionView is a question as shown to a respondent, without the answer key.
type QuestionView struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
}

// Snapshot is the render state returned after every session operation.
type Snapshot struct {
	State        State               `json:"state"`
	ProjectID    string              `json:"projectId,omitempty"`
	ProjectName  string              `json:"projectName,omitempty"`
	RespondentID string              `json:"respondentId,omitempty"`
	Selectable   []domain.Respondent `json:"selectable,omitempty"`
	Questions    []QuestionView      `json:"questions,omitempty"`
	Answers      map[string]int      `json:"answers,omitempty"`
	Score        int                 `json:"score"`
	Total        int                 `json:"total"`
	Perfect      bool                `json:"perfect"`
	Submission   *domain.Submission  `json:"submission,omitempty"`
}

// UnavailableSnapshot is the single render state for a quiz that cannot be taken,
// whether it is missing or unpublished.
func UnavailableSnapshot() Snapshot {
	return Snapshot{State: StateUnavailable}
}

// Action is a visitor event addressed to a session.
type Action struct {
	Type         string `json:"type"`
	RespondentID string `json:"respondentId,omitempty"`
	QuestionID   string `json:"questionId,omitempty"`
	Option       int    `json:"option,omitempty"`
}

// Action types accepted by Session.Apply.
const (
	ActionSelectRespondent = "selectRespondent"
	ActionSetAnswer        = "setAnswer"
	ActionGrade            = "grade"
	ActionRetry            = "retry"
	ActionSubmit           = "submit"
)

// ErrUnknownAction is returned by Apply for an unsupported action type.
var ErrUnknownAction = errors.New("unsupported action type")

// Session drives one respondent through answering, grading and retrying until a
// perfect score, then records the submission exactly once.
// Every failed operation leaves the session unchanged.
type Session struct {
	mu         sync.Mutex
	project    domain.Project
	ledger     *Ledger
	selectable []domain.Respondent

	state        State
	respondentID string
	answers      map[string]int
	score        int
	submission   *domain.Submission
}

func newSession(project domain.Project, ledger *Ledger, selectable []domain.Respondent) *Session {
	return &Session{
		project:    project,
		ledger:     ledger,
		selectable: selectable,
		state:      StateSelectingRespondent,
		answers:    make(map[string]int),
	}
}

// newSessionFor starts a session for a known respondent: submitted if they already
// submitted, answering otherwise.
func newSessionFor(project domain.Project, ledger *Ledger, respondentID string, existing *domain.Submission) *Session {
	s := newSession(project, ledger, nil)
	s.respondentID = respondentID
	if existing != nil {
		s.state = StateSubmitted
		s.submission = existing
		return s
	}
	s.state = StateAnswering
	return s
}

// Snapshot returns the current render state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SelectRespondent moves from respondent selection to answering.
func (s *Session) SelectRespondent(ctx context.Context, respondentID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(StateSelectingRespondent); err != nil {
		return s.snapshotLocked(), err
	}
	if respondentID == "" {
		return s.snapshotLocked(), domain.ErrNoRespondentSelected
	}
	if !s.isSelectableLocked(respondentID) {
		return s.snapshotLocked(), domain.ErrRespondentNotSelectable
	}

	// Another visit may have submitted since the selectable set was computed.
	existing, ok, err := s.ledger.SubmissionFor(ctx, s.project.ID, respondentID)
	if err != nil {
		return s.snapshotLocked(), err
	}
	s.respondentID = respondentID
	if ok {
		s.submission = &existing
		s.state = StateSubmitted
		return s.snapshotLocked(), nil
	}
	s.state = StateAnswering
	return s.snapshotLocked(), nil
}

// SetAnswer stores or overwrites the chosen option for a question.
func (s *Session) SetAnswer(questionID string, option int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(StateAnswering); err != nil {
		return s.snapshotLocked(), err
	}
	if !s.hasQuestionLocked(questionID) {
		return s.snapshotLocked(), domain.ErrQuestionNotFound
	}
	if !domain.ValidOption(option) {
		return s.snapshotLocked(), domain.ErrOptionOutOfRange
	}
	s.answers[questionID] = option
	return s.snapshotLocked(), nil
}

// Grade scores the full answer map and records an attempt. Grading again from the
// graded state re-scores the same answers and records another attempt.
func (s *Session) Grade(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(StateAnswering, StateGraded); err != nil {
		return s.snapshotLocked(), err
	}
	if len(s.answers) != len(s.project.Questions) {
		return s.snapshotLocked(), domain.ErrIncompleteAnswers
	}

	score := scoreAnswers(s.project.Questions, s.answers)
	if _, err := s.ledger.RecordAttempt(ctx, s.project.ID, s.respondentID, score); err != nil {
		return s.snapshotLocked(), err
	}
	s.score = score
	s.state = StateGraded
	return s.snapshotLocked(), nil
}

// Retry clears every answer and returns to answering. Only a non-perfect result can be retried.
func (s *Session) Retry() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(StateGraded); err != nil {
		return s.snapshotLocked(), err
	}
	if s.perfectLocked() {
		return s.snapshotLocked(), domain.ErrRetryAfterPerfect
	}
	s.answers = make(map[string]int)
	s.score = 0
	s.state = StateAnswering
	return s.snapshotLocked(), nil
}

// Submit records the submission after a perfect score. This is the only call site
// of Ledger.RecordSubmission. If the respondent already submitted elsewhere the
// session moves to submitted and domain.ErrDuplicateSubmission is still returned.
func (s *Session) Submit(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLocked(StateGraded); err != nil {
		return s.snapshotLocked(), err
	}
	if !s.perfectLocked() {
		return s.snapshotLocked(), domain.ErrNotPerfect
	}
	submission, err := s.ledger.RecordSubmission(ctx, s.project.ID, s.respondentID)
	if errors.Is(err, domain.ErrDuplicateSubmission) {
		// Submitted from another visit meanwhile; show that submission.
		if existing, ok, lerr := s.ledger.SubmissionFor(ctx, s.project.ID, s.respondentID); lerr == nil && ok {
			s.submission = &existing
			s.state = StateSubmitted
		}
		return s.snapshotLocked(), err
	}
	if err != nil {
		return s.snapshotLocked(), err
	}
	s.submission = &submission
	s.state = StateSubmitted
	return s.snapshotLocked(), nil
}

// Apply dispatches a visitor action to the matching operation.
func (s *Session) Apply(ctx context.Context, action Action) (Snapshot, error) {
	switch action.Type {
	case ActionSelectRespondent:
		return s.SelectRespondent(ctx, action.RespondentID)
	case ActionSetAnswer:
		return s.SetAnswer(action.QuestionID, action.Option)
	case ActionGrade:
		return s.Grade(ctx)
	case ActionRetry:
		return s.Retry()
	case ActionSubmit:
		return s.Submit(ctx)
	default:
		return s.Snapshot(), ErrUnknownAction
	}
}

func (s *Session) requireLocked(allowed ...State) error {
	if s.state == StateSubmitted {
		return domain.ErrSessionClosed
	}
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return domain.ErrInvalidTransition
}

func (s *Session) perfectLocked() bool {
	return s.score == len(s.project.Questions)
}

func (s *Session) isSelectableLocked(respondentID string) bool {
	for _, r := range s.selectable {
		if r.ID == respondentID {
			return true
		}
	}
	return false
}

func (s *Session) hasQuestionLocked(questionID string) bool {
	for _, q := range s.project.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        s.state,
		ProjectID:    s.project.ID,
		ProjectName:  s.project.Name,
		RespondentID: s.respondentID,
		Total:        len(s.project.Questions),
	}

	switch s.state {
	case StateSelectingRespondent:
		snap.Selectable = append([]domain.Respondent(nil), s.selectable...)
	case StateAnswering, StateGraded:
		snap.Questions = questionViews(s.project.Questions)
		snap.Answers = make(map[string]int, len(s.answers))
		for k, v := range s.answers {
			snap.Answers[k] = v
		}
		if s.state == StateGraded {
			snap.Score = s.score
			snap.Perfect = s.perfectLocked()
		}
	case StateSubmitted:
		if s.submission != nil {
			sub := *s.submission
			snap.Submission = &sub
		}
	}
	return snap
}

// scoreAnswers counts questions whose stored answer equals the correct option.
func scoreAnswers(questions []domain.Question, answers map[string]int) int {
	correct := 0
	for _, q := range questions {
		if answer, ok := answers[q.ID]; ok && answer == q.CorrectAnswer {
			correct++
		}
	}
	return correct
}

func questionViews(questions []domain.Question) []QuestionView {
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, QuestionView{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      append([]string(nil), q.Options...),
		})
	}
	return views
}
