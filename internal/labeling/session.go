package labeling

import (
	"errors"

	"github.com/socialshields/mhdash/internal/models"
)

// State is the labeling session phase.
type State int

// Session states. A session walks Loading -> Ready -> Submitting ->
// Submitted and back to Loading only through an explicit next-batch action,
// so completed work is never silently discarded.
const (
	StateLoading State = iota
	StateReady
	StateSubmitting
	StateSubmitted
	StateDrained // selector returned no posts: end of work, retry allowed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateDrained:
		return "drained"
	default:
		return "unknown"
	}
}

// Record holds the two label fields for one post in the batch.
type Record struct {
	Box1 string
	Box2 string
}

// Complete reports whether both fields are filled.
func (r Record) Complete() bool {
	return r.Box1 != "" && r.Box2 != ""
}

// SubmitItem is one element of a submission batch.
type SubmitItem struct {
	Hash string `json:"hash"`
	Box1 string `json:"box1"`
	Box2 string `json:"box2"`
}

// Session state machine errors.
var (
	ErrNotReady    = errors.New("no batch loaded")
	ErrIncomplete  = errors.New("batch is not fully labeled")
	ErrLocked      = errors.New("batch already submitted, fetch the next batch first")
	ErrNotFinished = errors.New("current batch must be submitted before fetching a new one")
	ErrOutOfRange  = errors.New("index out of range")
)

// Session drives one user through exactly one fetched batch at a time.
// Labels accumulate locally; submission is gated on every record being
// complete, and fetching a new batch is gated on a successful submission.
type Session struct {
	state  State
	posts  []*models.Post
	labels []Record
	cursor int
}

// NewSession creates a session awaiting its first batch.
func NewSession() *Session {
	return &Session{state: StateLoading}
}

// State returns the current phase.
func (s *Session) State() State {
	return s.state
}

// BeginBatch installs a freshly fetched batch. An empty batch moves the
// session to Drained, which is informational: the caller may retry later.
func (s *Session) BeginBatch(posts []*models.Post) error {
	if s.state != StateLoading {
		return ErrLocked
	}
	if len(posts) == 0 {
		s.state = StateDrained
		s.posts = nil
		s.labels = nil
		s.cursor = 0
		return nil
	}
	s.posts = posts
	s.labels = make([]Record, len(posts))
	s.cursor = 0
	s.state = StateReady
	return nil
}

// Posts returns the current batch.
func (s *Session) Posts() []*models.Post {
	return s.posts
}

// Len returns the batch size.
func (s *Session) Len() int {
	return len(s.posts)
}

// Cursor returns the current index.
func (s *Session) Cursor() int {
	return s.cursor
}

// Current returns the post and label record under the cursor.
func (s *Session) Current() (*models.Post, Record, error) {
	if s.state != StateReady && s.state != StateSubmitted {
		return nil, Record{}, ErrNotReady
	}
	return s.posts[s.cursor], s.labels[s.cursor], nil
}

// Next advances the cursor, stopping at the last post.
func (s *Session) Next() {
	if s.cursor < len(s.posts)-1 {
		s.cursor++
	}
}

// Prev moves the cursor back, stopping at the first post.
func (s *Session) Prev() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// Seek jumps the cursor to index i.
func (s *Session) Seek(i int) error {
	if i < 0 || i >= len(s.posts) {
		return ErrOutOfRange
	}
	s.cursor = i
	return nil
}

// SetBox1 sets the concern-type label of the post under the cursor.
func (s *Session) SetBox1(value string) error {
	if s.state != StateReady {
		return s.mutationError()
	}
	s.labels[s.cursor].Box1 = value
	return nil
}

// SetBox2 sets the risk-scale label of the post under the cursor.
func (s *Session) SetBox2(value string) error {
	if s.state != StateReady {
		return s.mutationError()
	}
	s.labels[s.cursor].Box2 = value
	return nil
}

func (s *Session) mutationError() error {
	if s.state == StateSubmitted || s.state == StateSubmitting {
		return ErrLocked
	}
	return ErrNotReady
}

// Complete reports whether every post in the batch has both fields set.
func (s *Session) Complete() bool {
	if s.state != StateReady || len(s.labels) == 0 {
		return false
	}
	for _, r := range s.labels {
		if !r.Complete() {
			return false
		}
	}
	return true
}

// LabeledCount returns how many posts have both fields set.
func (s *Session) LabeledCount() int {
	n := 0
	for _, r := range s.labels {
		if r.Complete() {
			n++
		}
	}
	return n
}

// BeginSubmit transitions to Submitting and returns the batch payload.
// Allowed only when every record is complete.
func (s *Session) BeginSubmit() ([]SubmitItem, error) {
	switch s.state {
	case StateSubmitted, StateSubmitting:
		return nil, ErrLocked
	case StateReady:
	default:
		return nil, ErrNotReady
	}
	if !s.Complete() {
		return nil, ErrIncomplete
	}
	items := make([]SubmitItem, len(s.posts))
	for i, p := range s.posts {
		items[i] = SubmitItem{
			Hash: p.PostHash,
			Box1: s.labels[i].Box1,
			Box2: s.labels[i].Box2,
		}
	}
	s.state = StateSubmitting
	return items, nil
}

// FinishSubmit records the submission outcome. Success locks the batch;
// failure returns to Ready so the user can retry manually.
func (s *Session) FinishSubmit(err error) {
	if s.state != StateSubmitting {
		return
	}
	if err != nil {
		s.state = StateReady
		return
	}
	s.state = StateSubmitted
}

// NextBatch unlocks the session for a new fetch. Allowed only after a
// successful submission, or from the drained state.
func (s *Session) NextBatch() error {
	switch s.state {
	case StateSubmitted, StateDrained:
		s.state = StateLoading
		s.posts = nil
		s.labels = nil
		s.cursor = 0
		return nil
	default:
		return ErrNotFinished
	}
}
