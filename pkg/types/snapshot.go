package types

import "time"

// Role is "presenter" or "participant".
type Role string

const (
	RolePresenter   Role = "presenter"
	RoleParticipant Role = "participant"
)

type Registration struct {
	ParticipantID string `json:"participantId,omitempty"`
	Name          string `json:"name,omitempty"`
	Role          Role   `json:"role"`
}

type RosterEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	Answered bool      `json:"answered"`
}

// RosterPayload is the data of participants_list. Answered counts refer to
// the active poll and are zero when none is active.
type RosterPayload struct {
	Participants []RosterEntry `json:"participants"`
	Total        int           `json:"total"`
	Answered     int           `json:"answered"`
}

type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	SenderRole string    `json:"senderRole"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}
