// Package review implements the in-memory review session: a state machine
// that walks a fixed queue of due questions through question, answer,
// grading and feedback, committing one scheduling update per graded answer.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/retainhq/retain/internal/scheduler"
	"github.com/retainhq/retain/internal/storage"
	"github.com/retainhq/retain/pkg/types"
)

var (
	// ErrBadTransition is returned when an operation is not valid in the
	// session's current state.
	ErrBadTransition = errors.New("invalid session transition")

	// ErrSessionDone is returned for operations on a completed or exited
	// session.
	ErrSessionDone = errors.New("session is finished")

	// ErrEmptyQueue is returned when a session is started with no items.
	ErrEmptyQueue = errors.New("nothing is due for review")
)

// SessionState is the phase the session is in for the current item.
type SessionState int

const (
	StateQuestion SessionState = iota
	StateAnswering
	StateEvaluating
	StateFeedback
	StateComplete
)

var sessionStateNames = [...]string{
	StateQuestion:   "question",
	StateAnswering:  "answering",
	StateEvaluating: "evaluating",
	StateFeedback:   "feedback",
	StateComplete:   "complete",
}

func (s SessionState) String() string {
	if s < StateQuestion || s > StateComplete {
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
	return sessionStateNames[s]
}

// Grader turns a free-text answer into a rating with feedback text.
// Implementations call out to an AI provider and may fail.
type Grader interface {
	Grade(ctx context.Context, question, referenceAnswer, userAnswer string) (types.Rating, string, error)
}

// GraderFunc adapts a function to the Grader interface.
type GraderFunc func(ctx context.Context, question, referenceAnswer, userAnswer string) (types.Rating, string, error)

func (f GraderFunc) Grade(ctx context.Context, question, referenceAnswer, userAnswer string) (types.Rating, string, error) {
	return f(ctx, question, referenceAnswer, userAnswer)
}

// Store is the subset of the persistence surface a session writes through.
type Store interface {
	Save(ctx context.Context, q *types.Question) error
	RecordReview(ctx context.Context, rec *storage.ReviewLog) error
}

// Result is one graded item, appended in review order.
type Result struct {
	QuestionID string        `json:"question_id"`
	Rating     types.Rating  `json:"rating"`
	Feedback   string        `json:"feedback"`
	NextDue    time.Time     `json:"next_due"`
	TimeSpent  time.Duration `json:"time_spent"`
}

// Summary aggregates a finished session.
type Summary struct {
	Reviewed    int           `json:"reviewed"`
	Skipped     int           `json:"skipped"`
	Accuracy    float64       `json:"accuracy"`
	AverageTime time.Duration `json:"average_time"`
}

// Session drives one learner through a queue of due questions. It is not
// safe for concurrent use beyond the internal guard that discards grader
// results arriving after Exit; one goroutine owns the session.
type Session struct {
	sched  *scheduler.Scheduler
	grader Grader
	store  Store
	clock  func() time.Time

	mu       sync.Mutex
	queue    []*types.Question
	index    int
	state    SessionState
	results  []Result
	skipped  int
	answer   string
	started  time.Time
	itemFrom time.Time
	exited   bool
	// epoch invalidates in-flight grader calls on exit or revert.
	epoch int
}

// Option configures a Session.
type Option func(*Session)

// WithClock injects a deterministic time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// Start creates a session over the given queue. The queue is fixed for the
// session's lifetime; items becoming due later are not pulled in.
func Start(sched *scheduler.Scheduler, grader Grader, store Store, queue []*types.Question, opts ...Option) (*Session, error) {
	if sched == nil || grader == nil || store == nil {
		return nil, fmt.Errorf("scheduler, grader and store are required")
	}
	if len(queue) == 0 {
		return nil, ErrEmptyQueue
	}

	s := &Session{
		sched:  sched,
		grader: grader,
		store:  store,
		clock:  time.Now,
		queue:  queue,
		state:  StateQuestion,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.clock()
	s.itemFrom = s.started
	return s, nil
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the question under review, or nil once complete.
func (s *Session) Current() *types.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete || s.index >= len(s.queue) {
		return nil
	}
	return s.queue[s.index]
}

// Progress reports the fraction of the queue consumed, 0 to 100.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() int {
	done := s.index
	if s.state == StateFeedback {
		// The current item has been graded; it counts as consumed.
		done++
	}
	if s.state == StateComplete {
		done = len(s.queue)
	}
	return done * 100 / len(s.queue)
}

// Results returns the graded results accumulated so far, in review order.
func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// BeginAnswering moves the current item from Question to Answering.
func (s *Session) BeginAnswering() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited || s.state == StateComplete {
		return ErrSessionDone
	}
	if s.state != StateQuestion {
		return fmt.Errorf("%w: begin answering from %s", ErrBadTransition, s.state)
	}
	s.state = StateAnswering
	s.itemFrom = s.clock()
	return nil
}

// SubmitAnswer grades the given answer for the current item and, on
// success, commits the scheduling update and moves to Feedback. On grader
// failure the session returns to Answering with the card untouched and the
// error is surfaced; the caller may retry. The call blocks on the grader;
// Exit from another goroutine causes any late result to be discarded.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) error {
	s.mu.Lock()
	if s.exited || s.state == StateComplete {
		s.mu.Unlock()
		return ErrSessionDone
	}
	if s.state != StateAnswering {
		s.mu.Unlock()
		return fmt.Errorf("%w: submit from %s", ErrBadTransition, s.state)
	}
	s.state = StateEvaluating
	s.answer = answer
	q := s.queue[s.index]
	epoch := s.epoch
	s.mu.Unlock()

	rating, feedback, gerr := s.grader.Grade(ctx, q.Prompt, q.Answer, answer)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The session may have been exited while the grader was running; the
	// verdict must not mutate anything in that case.
	if s.exited || s.epoch != epoch {
		return ErrSessionDone
	}

	if gerr != nil {
		s.state = StateAnswering
		return fmt.Errorf("grading failed: %w", gerr)
	}

	now := s.clock()
	newCard, err := s.sched.Commit(q.Card, rating, now)
	if err != nil {
		s.state = StateAnswering
		return fmt.Errorf("scheduling failed: %w", err)
	}

	// Persist before touching the in-memory card so a store failure leaves
	// the item exactly as it was.
	updated := *q
	updated.Card = newCard
	if err := s.store.Save(ctx, &updated); err != nil {
		s.state = StateAnswering
		return fmt.Errorf("saving review: %w", err)
	}
	q.Card = newCard
	q.Version = updated.Version

	timeSpent := now.Sub(s.itemFrom)
	if err := s.store.RecordReview(ctx, &storage.ReviewLog{
		QuestionID: q.ID,
		Rating:     rating,
		ReviewedAt: now,
		TimeSpent:  timeSpent,
	}); err != nil {
		// The scheduling commit stands; only the log entry was lost.
		return fmt.Errorf("recording review: %w", err)
	}

	s.results = append(s.results, Result{
		QuestionID: q.ID,
		Rating:     rating,
		Feedback:   feedback,
		NextDue:    newCard.Due,
		TimeSpent:  timeSpent,
	})
	s.state = StateFeedback
	return nil
}

// Skip advances past the current item without grading or any scheduling
// change. Allowed from Question and Answering.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited || s.state == StateComplete {
		return ErrSessionDone
	}
	if s.state != StateQuestion && s.state != StateAnswering {
		return fmt.Errorf("%w: skip from %s", ErrBadTransition, s.state)
	}
	s.skipped++
	s.epoch++
	s.advanceLocked()
	return nil
}

// Next moves from Feedback to the next item's Question, or to Complete
// when the queue is exhausted.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited || s.state == StateComplete {
		return ErrSessionDone
	}
	if s.state != StateFeedback {
		return fmt.Errorf("%w: next from %s", ErrBadTransition, s.state)
	}
	s.advanceLocked()
	return nil
}

func (s *Session) advanceLocked() {
	s.index++
	s.answer = ""
	if s.index >= len(s.queue) {
		s.state = StateComplete
		return
	}
	s.state = StateQuestion
	s.itemFrom = s.clock()
}

// Exit ends the session immediately from any state. Commits already made
// stay committed; a grader call still in flight is discarded when it
// returns. Exit is idempotent.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exited = true
	s.epoch++
	if s.state != StateComplete {
		s.state = StateComplete
	}
}

// Summary computes the aggregate view of the finished session. It is valid
// at any time but usually read once the state is Complete.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		Reviewed: len(s.results),
		Skipped:  s.skipped,
	}
	if len(s.results) == 0 {
		return sum
	}

	var correct int
	var total time.Duration
	for _, r := range s.results {
		if r.Rating > types.Again {
			correct++
		}
		total += r.TimeSpent
	}
	sum.Accuracy = float64(correct) / float64(len(s.results))
	sum.AverageTime = total / time.Duration(len(s.results))
	return sum
}
