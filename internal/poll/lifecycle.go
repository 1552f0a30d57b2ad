package poll

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Lifecycle owns the single current poll and the archive of terminated ones.
//
// State machine: none -> active -> {completed, expired} -> none. The most
// recently terminated poll is kept (read-only) so Create can apply the
// pending-responses gate against it.
type Lifecycle struct {
	mu      sync.Mutex
	clock   clock.Clock
	current *state
	last    *state
	history []HistoryEntry
}

func NewLifecycle(clk clock.Clock) *Lifecycle {
	if clk == nil {
		clk = clock.New()
	}
	return &Lifecycle{clock: clk}
}

// Create validates the request, applies the gate against activeParticipants
// and opens a new poll.
func (l *Lifecycle) Create(question string, options []string, timeLimitSec int, activeParticipants int) (PublicView, error) {
	if err := validate(question, options, timeLimitSec); err != nil {
		return PublicView{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.current
	if prev == nil {
		prev = l.last
	}
	if prev != nil && len(prev.votes) < activeParticipants {
		return PublicView{}, &PendingError{Answered: len(prev.votes), Total: activeParticipants}
	}
	if l.current != nil {
		return PublicView{}, ErrPollAlreadyActive
	}

	now := l.clock.Now()
	s := &state{
		id:           uuid.NewString(),
		question:     strings.TrimSpace(question),
		options:      make([]*option, len(options)),
		timeLimitSec: timeLimitSec,
		status:       StatusActive,
		createdAt:    now,
		expiresAt:    now.Add(time.Duration(timeLimitSec) * time.Second),
		votes:        map[string]int{},
	}
	for i, text := range options {
		s.options[i] = &option{index: i, text: strings.TrimSpace(text), voters: map[string]struct{}{}}
	}
	l.current = s
	return s.publicView(), nil
}

// SubmitVote records the first and only vote of participantID.
func (l *Lifecycle) SubmitVote(participantID string, optionIndex int) (Results, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.current
	if s == nil {
		return Results{}, ErrNoActivePoll
	}
	if _, voted := s.votes[participantID]; voted {
		return Results{}, ErrAlreadyVoted
	}
	if optionIndex < 0 || optionIndex >= len(s.options) {
		return Results{}, ErrInvalidOption
	}

	s.votes[participantID] = optionIndex
	s.options[optionIndex].voters[participantID] = struct{}{}
	return s.results(), nil
}

// WithdrawVote drops participantID's vote from the active poll. Terminated
// polls are immutable and never touched.
func (l *Lifecycle) WithdrawVote(participantID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.current
	if s == nil {
		return
	}
	idx, ok := s.votes[participantID]
	if !ok {
		return
	}
	delete(s.votes, participantID)
	delete(s.options[idx].voters, participantID)
}

// Voted reports whether participantID has answered the active poll.
func (l *Lifecycle) Voted(participantID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return false
	}
	_, ok := l.current.votes[participantID]
	return ok
}

// End terminates the active poll. Only one caller ever gets ok == true for a
// given poll.
func (l *Lifecycle) End(cause Cause) (Results, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return Results{}, false
	}
	return l.terminate(cause), true
}

// EndPoll is End restricted to the poll with the given id.
func (l *Lifecycle) EndPoll(pollID string, cause Cause) (Results, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil || l.current.id != pollID {
		return Results{}, false
	}
	return l.terminate(cause), true
}

func (l *Lifecycle) terminate(cause Cause) Results {
	s := l.current
	s.status = cause.status()
	s.endedAt = l.clock.Now()

	l.history = append(l.history, s.historyEntry())
	l.last = s
	l.current = nil
	return s.results()
}

// Active returns the participant-facing view of the active poll.
func (l *Lifecycle) Active() (PublicView, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return PublicView{}, false
	}
	return l.current.publicView(), true
}

func (l *Lifecycle) CurrentResults() (Results, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return Results{}, false
	}
	return l.current.results(), true
}

// History returns terminated polls, most recent first.
func (l *Lifecycle) History() []HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]HistoryEntry, len(l.history))
	for i, e := range l.history {
		e.Options = slices.Clone(e.Options)
		out[len(l.history)-1-i] = e
	}
	return out
}

// LastEntry returns the most recently archived poll.
func (l *Lifecycle) LastEntry() (HistoryEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.history) == 0 {
		return HistoryEntry{}, false
	}
	e := l.history[len(l.history)-1]
	e.Options = slices.Clone(e.Options)
	return e, true
}
