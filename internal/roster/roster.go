package roster

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
)

var ErrInvalidName = errors.New("invalid name")
var ErrNameConflict = errors.New("name already taken, please choose a different name")

const (
	MinNameLen = 2
	MaxNameLen = 50
)

type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	Active   bool      `json:"isActive"`
}

type entry struct {
	p   Participant
	seq uint64
}

// Roster tracks the participants of the session. Names are unique among
// active participants, compared case-insensitively.
type Roster struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string]entry
	seq     uint64
}

func New(clk clock.Clock) *Roster {
	if clk == nil {
		clk = clock.New()
	}
	return &Roster{clock: clk, entries: map[string]entry{}}
}

// ValidateName trims name and checks its length in characters.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	case n < MinNameLen:
		return "", fmt.Errorf("%w: name must be at least %d characters long", ErrInvalidName, MinNameLen)
	case n > MaxNameLen:
		return "", fmt.Errorf("%w: name must not exceed %d characters", ErrInvalidName, MaxNameLen)
	}
	return trimmed, nil
}

func (r *Roster) Register(id, name string) (Participant, error) {
	trimmed, err := ValidateName(name)
	if err != nil {
		return Participant{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for otherID, e := range r.entries {
		if otherID != id && strings.EqualFold(e.p.Name, trimmed) {
			return Participant{}, ErrNameConflict
		}
	}

	r.seq++
	p := Participant{ID: id, Name: trimmed, JoinedAt: r.clock.Now(), Active: true}
	r.entries[id] = entry{p: p, seq: r.seq}
	return p, nil
}

// Remove is idempotent: ok is false when id was not present.
func (r *Roster) Remove(id string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Participant{}, false
	}
	delete(r.entries, id)
	e.p.Active = false
	return e.p, true
}

func (r *Roster) Get(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	return e.p, ok
}

// ListActive returns participants in join order.
func (r *Roster) ListActive() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	es := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		es = append(es, e)
	}
	slices.SortFunc(es, func(a, b entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	out := make([]Participant, len(es))
	for i, e := range es {
		out[i] = e.p
	}
	return out
}

func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
