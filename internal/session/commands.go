package session

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/live-poll-backend/internal/expiry"
	"github.com/DoyleJ11/live-poll-backend/internal/hub"
	"github.com/DoyleJ11/live-poll-backend/internal/poll"
	"github.com/DoyleJ11/live-poll-backend/internal/types"
	pub "github.com/DoyleJ11/live-poll-backend/pkg/types"
)

const MaxChatLen = 500

func (s *Session) connect(connID string, outbox chan types.ServerMessage) {
	s.conns[connID] = &binding{}
	s.toHub(hub.Join{ConnID: connID, Outbox: outbox})
	s.log.Debug("connected", zap.String("conn", connID))
}

func (s *Session) disconnect(connID string) {
	b, ok := s.conns[connID]
	delete(s.conns, connID)
	s.toHub(hub.Leave{ConnID: connID})
	if !ok {
		return
	}

	switch b.role {
	case pub.RoleParticipant:
		p, removed := s.roster.Remove(connID)
		if !removed {
			return
		}
		s.polls.WithdrawVote(connID)
		s.commit()
		s.broadcastRoster()
		s.broadcastResults()
		s.log.Info("participant left", zap.String("conn", connID), zap.String("name", p.Name))

	case pub.RolePresenter:
		if s.presenter == connID {
			s.presenter = ""
			s.commit()
		}
		s.log.Info("presenter left", zap.String("conn", connID))
	}
}

func (s *Session) handle(connID string, cmd Command) error {
	b, ok := s.conns[connID]
	if !ok {
		return fmt.Errorf("%w: unknown connection", ErrBadRequest)
	}

	switch cmd.Type {
	case CmdRegisterPresenter:
		return s.registerPresenter(connID, b)
	case CmdRegisterParticipant:
		return s.registerParticipant(connID, b, cmd.Name)
	case CmdCreatePoll:
		return s.createPoll(b, cmd)
	case CmdSubmitVote:
		return s.submitVote(connID, b, cmd.OptionIndex)
	case CmdEndPoll:
		return s.endPoll(b)
	case CmdGetPollHistory:
		return s.history(connID, b)
	case CmdRemoveParticipant:
		return s.removeParticipant(connID, b, cmd.ParticipantID)
	case CmdSendMessage:
		return s.chat(connID, b, cmd.Text)
	default:
		return ErrUnsupportedCommand
	}
}

func (s *Session) registerPresenter(connID string, b *binding) error {
	if b.role != "" {
		return fmt.Errorf("%w: connection already registered as %s", ErrUnauthorized, b.role)
	}
	if s.presenter != "" {
		return fmt.Errorf("%w: a presenter is already connected", ErrUnauthorized)
	}
	b.role = pub.RolePresenter
	s.presenter = connID
	s.commit()

	s.send(connID, types.Success(pub.EventSuccess, "Registered as presenter", pub.Registration{Role: pub.RolePresenter}))
	s.send(connID, types.Success(pub.EventParticipantsList, "Participants list", s.rosterPayload()))
	if view, ok := s.polls.Active(); ok {
		s.send(connID, types.Success(pub.EventPollCreated, "Active poll", view))
	}
	if res, ok := s.polls.CurrentResults(); ok {
		s.send(connID, types.Success(pub.EventPollResults, "Current results", res))
	}
	s.log.Info("presenter registered", zap.String("conn", connID))
	return nil
}

func (s *Session) registerParticipant(connID string, b *binding, name string) error {
	if b.role != "" {
		return fmt.Errorf("%w: connection already registered as %s", ErrUnauthorized, b.role)
	}
	p, err := s.roster.Register(connID, name)
	if err != nil {
		return err
	}
	b.role = pub.RoleParticipant
	s.commit()

	s.send(connID, types.Success(pub.EventSuccess, "Registered successfully", pub.Registration{
		ParticipantID: p.ID,
		Name:          p.Name,
		Role:          pub.RoleParticipant,
	}))
	s.broadcastRoster()

	// Late joiners still get to vote on the running poll.
	if view, ok := s.polls.Active(); ok {
		s.send(connID, types.Success(pub.EventPollCreated, "Active poll", view))
	}
	s.log.Info("participant registered", zap.String("conn", connID), zap.String("name", p.Name))
	return nil
}

func (s *Session) createPoll(b *binding, cmd Command) error {
	if b.role != pub.RolePresenter {
		return fmt.Errorf("%w: only the presenter can create polls", ErrUnauthorized)
	}
	view, err := s.polls.Create(cmd.Question, cmd.Options, cmd.TimeLimitSec, s.roster.Count())
	if err != nil {
		return err
	}
	s.expiry.Arm(view.ID, view.ExpiresAt)
	s.commit()

	s.broadcast(types.Success(pub.EventPollCreated, "New poll created", view))
	s.log.Info("poll created",
		zap.String("poll", view.ID),
		zap.String("question", view.Question),
		zap.Int("options", len(view.Options)),
		zap.Int("time_limit_sec", view.TimeLimitSec))
	return nil
}

func (s *Session) submitVote(connID string, b *binding, optionIndex int) error {
	if b.role != pub.RoleParticipant {
		return fmt.Errorf("%w: only participants can submit answers", ErrUnauthorized)
	}
	if _, ok := s.roster.Get(connID); !ok {
		return fmt.Errorf("%w: participant not registered", ErrUnauthorized)
	}
	res, err := s.polls.SubmitVote(connID, optionIndex)
	if err != nil {
		return err
	}
	s.commit()

	s.send(connID, types.Success(pub.EventSuccess, "Answer submitted", map[string]int{"optionIndex": optionIndex}))
	s.broadcast(types.Success(pub.EventPollResults, "Results updated", res))
	s.broadcastRoster()
	s.log.Debug("vote recorded", zap.String("conn", connID), zap.Int("option", optionIndex))
	return nil
}

// endPoll disarms the timer before terminating, so an in-flight firing
// can only hit the stale-ticket path.
func (s *Session) endPoll(b *binding) error {
	if b.role != pub.RolePresenter {
		return fmt.Errorf("%w: only the presenter can end polls", ErrUnauthorized)
	}
	s.expiry.Disarm()
	res, ok := s.polls.End(poll.CauseManual)
	if !ok {
		return poll.ErrNoActivePoll
	}
	s.commit()

	s.broadcast(types.Success(pub.EventPollEnded, "Poll ended by presenter", res))
	s.archiveLast()
	s.log.Info("poll ended", zap.String("poll", res.PollID), zap.Int("responses", res.TotalResponses))
	return nil
}

func (s *Session) expire(t expiry.Ticket) {
	if !s.expiry.Claim(t) {
		s.log.Debug("stale expiry ignored", zap.String("poll", t.PollID), zap.Uint64("gen", t.Generation))
		return
	}
	res, ok := s.polls.EndPoll(t.PollID, poll.CauseTimeout)
	if !ok {
		return
	}
	s.commit()

	s.broadcast(types.Success(pub.EventPollEnded, "Poll time expired", res))
	s.archiveLast()
	s.log.Info("poll expired", zap.String("poll", res.PollID), zap.Int("responses", res.TotalResponses))
}

func (s *Session) history(connID string, b *binding) error {
	if b.role != pub.RolePresenter {
		return fmt.Errorf("%w: only the presenter can view poll history", ErrUnauthorized)
	}
	s.send(connID, types.Success(pub.EventPollHistory, "Poll history", s.polls.History()))
	return nil
}

func (s *Session) removeParticipant(connID string, b *binding, participantID string) error {
	if b.role != pub.RolePresenter {
		return fmt.Errorf("%w: only the presenter can remove participants", ErrUnauthorized)
	}
	p, ok := s.roster.Remove(participantID)
	if !ok {
		return ErrNotFound
	}
	s.polls.WithdrawVote(participantID)
	delete(s.conns, participantID)
	s.commit()

	s.toHub(hub.Evict{
		ConnID: participantID,
		Notice: types.Failure(pub.EventParticipantRemoved, pub.CodeRemoved, "You have been removed by the presenter", nil),
	})
	s.broadcastRoster()
	s.broadcastResults()
	s.send(connID, types.Success(pub.EventSuccess, fmt.Sprintf("Participant %s removed", p.Name), p))
	s.log.Info("participant removed", zap.String("conn", participantID), zap.String("name", p.Name))
	return nil
}

func (s *Session) chat(connID string, b *binding, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: message cannot be empty", ErrBadRequest)
	}
	if utf8.RuneCountInString(text) > MaxChatLen {
		return fmt.Errorf("%w: message must not exceed %d characters", ErrBadRequest, MaxChatLen)
	}

	name, role := "Anonymous", "unknown"
	switch b.role {
	case pub.RolePresenter:
		name, role = "Presenter", string(pub.RolePresenter)
	case pub.RoleParticipant:
		if p, ok := s.roster.Get(connID); ok {
			name, role = p.Name, string(pub.RoleParticipant)
		}
	}

	s.broadcast(types.Success(pub.EventReceiveMessage, "New message", pub.ChatMessage{
		ID:         uuid.NewString(),
		SenderID:   connID,
		SenderName: name,
		SenderRole: role,
		Text:       text,
		Timestamp:  s.clock.Now(),
	}))
	return nil
}

func (s *Session) rosterPayload() pub.RosterPayload {
	list := s.roster.ListActive()
	out := pub.RosterPayload{Participants: make([]pub.RosterEntry, len(list)), Total: len(list)}
	for i, p := range list {
		answered := s.polls.Voted(p.ID)
		if answered {
			out.Answered++
		}
		out.Participants[i] = pub.RosterEntry{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt, Answered: answered}
	}
	return out
}

func (s *Session) broadcastRoster() {
	s.broadcast(types.Success(pub.EventParticipantsList, "Participants list updated", s.rosterPayload()))
}

func (s *Session) broadcastResults() {
	if res, ok := s.polls.CurrentResults(); ok {
		s.broadcast(types.Success(pub.EventPollResults, "Results updated", res))
	}
}

func (s *Session) archiveLast() {
	if s.archive == nil {
		return
	}
	if e, ok := s.polls.LastEntry(); ok {
		s.archive.Submit(e)
	}
}
