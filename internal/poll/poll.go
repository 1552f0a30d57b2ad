package poll

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNoActivePoll = errors.New("no active poll")
var ErrAlreadyVoted = errors.New("you have already answered this poll")
var ErrInvalidOption = errors.New("invalid option selected")
var ErrPollAlreadyActive = errors.New("a poll is already active")
var ErrPendingResponses = errors.New("pending responses")
var ErrInvalidPollData = errors.New("invalid poll data")

const (
	DefaultTimeLimitSec = 60
	MinTimeLimitSec     = 10
	MaxTimeLimitSec     = 300
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Cause selects the terminal status of an ended poll.
type Cause string

const (
	CauseManual  Cause = "manual"
	CauseTimeout Cause = "timeout"
)

func (c Cause) status() Status {
	if c == CauseTimeout {
		return StatusExpired
	}
	return StatusCompleted
}

// PendingError is returned by Create while the previous poll still waits
// on answers from the current roster.
type PendingError struct {
	Answered int
	Total    int
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("Cannot create new poll. %d out of %d students have answered.", e.Answered, e.Total)
}

func (e *PendingError) Is(target error) bool { return target == ErrPendingResponses }

// ValidationError carries every violation found in a create request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidPollData.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPollData }

func (e *ValidationError) Details() []string { return e.Problems }

type option struct {
	index  int
	text   string
	voters map[string]struct{}
}

type state struct {
	id           string
	question     string
	options      []*option
	timeLimitSec int
	status       Status
	createdAt    time.Time
	expiresAt    time.Time
	endedAt      time.Time
	votes        map[string]int
}

// Exported views. None of them alias the lifecycle's internal maps.

type OptionView struct {
	Index int    `json:"optionIndex"`
	Text  string `json:"text"`
}

// PublicView is what participants see: no counts.
type PublicView struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	Options      []OptionView `json:"options"`
	TimeLimitSec int          `json:"timeLimit"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

type OptionResult struct {
	Index     int    `json:"optionIndex"`
	Text      string `json:"text"`
	VoteCount int    `json:"voteCount"`
}

type Results struct {
	PollID         string         `json:"id"`
	Question       string         `json:"question"`
	Status         Status         `json:"status"`
	Options        []OptionResult `json:"options"`
	TotalResponses int            `json:"totalResponses"`
	ExpiresAt      time.Time      `json:"expiresAt"`
}

// HistoryEntry is the frozen record of a terminated poll.
type HistoryEntry struct {
	ID             string         `json:"id"`
	Question       string         `json:"question"`
	Status         Status         `json:"status"`
	Options        []OptionResult `json:"options"`
	TotalResponses int            `json:"totalResponses"`
	TimeLimitSec   int            `json:"timeLimit"`
	CreatedAt      time.Time      `json:"createdAt"`
	EndedAt        time.Time      `json:"completedAt"`
}

func (s *state) publicView() PublicView {
	opts := make([]OptionView, len(s.options))
	for i, o := range s.options {
		opts[i] = OptionView{Index: o.index, Text: o.text}
	}
	return PublicView{
		ID:           s.id,
		Question:     s.question,
		Options:      opts,
		TimeLimitSec: s.timeLimitSec,
		ExpiresAt:    s.expiresAt,
	}
}

// tally counts voters per option; voters is authoritative, votes is only the ledger.
func (s *state) tally() []OptionResult {
	out := make([]OptionResult, len(s.options))
	for i, o := range s.options {
		out[i] = OptionResult{Index: o.index, Text: o.text, VoteCount: len(o.voters)}
	}
	return out
}

func (s *state) results() Results {
	return Results{
		PollID:         s.id,
		Question:       s.question,
		Status:         s.status,
		Options:        s.tally(),
		TotalResponses: len(s.votes),
		ExpiresAt:      s.expiresAt,
	}
}

func (s *state) historyEntry() HistoryEntry {
	return HistoryEntry{
		ID:             s.id,
		Question:       s.question,
		Status:         s.status,
		Options:        s.tally(),
		TotalResponses: len(s.votes),
		TimeLimitSec:   s.timeLimitSec,
		CreatedAt:      s.createdAt,
		EndedAt:        s.endedAt,
	}
}
