package session

import (
	"context"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/DoyleJ11/live-poll-backend/internal/expiry"
	"github.com/DoyleJ11/live-poll-backend/internal/hub"
	"github.com/DoyleJ11/live-poll-backend/internal/poll"
	"github.com/DoyleJ11/live-poll-backend/internal/roster"
	"github.com/DoyleJ11/live-poll-backend/internal/types"
	pub "github.com/DoyleJ11/live-poll-backend/pkg/types"
)

type Msg interface{ isSessionMsg() }

// Connect adds a connection to the observer set. It has no role until it
// registers.
type Connect struct {
	ConnID string
	Outbox chan types.ServerMessage
}

func (Connect) isSessionMsg() {}

type Disconnect struct{ ConnID string }

func (Disconnect) isSessionMsg() {}

type FromClient struct {
	ConnID string
	Cmd    Command
}

func (FromClient) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type timerFired struct{ ticket expiry.Ticket }

func (timerFired) isSessionMsg() {}

type CommandType string

const (
	CmdRegisterPresenter   CommandType = pub.CmdRegisterPresenter
	CmdRegisterParticipant CommandType = pub.CmdRegisterParticipant
	CmdCreatePoll          CommandType = pub.CmdCreatePoll
	CmdSubmitVote          CommandType = pub.CmdSubmitVote
	CmdEndPoll             CommandType = pub.CmdEndPoll
	CmdGetPollHistory      CommandType = pub.CmdGetPollHistory
	CmdRemoveParticipant   CommandType = pub.CmdRemoveParticipant
	CmdSendMessage         CommandType = pub.CmdSendMessage
)

type Command struct {
	Type          CommandType
	Name          string
	Question      string
	Options       []string
	TimeLimitSec  int
	OptionIndex   int
	ParticipantID string
	Text          string
}

// View is the last committed state, readable without going through the loop.
type View struct {
	Version            int               `json:"version"`
	ActivePoll         *poll.PublicView  `json:"activePoll,omitempty"`
	Results            *poll.Results     `json:"results,omitempty"`
	Roster             pub.RosterPayload `json:"roster"`
	PresenterConnected bool              `json:"presenterConnected"`
	Connections        int               `json:"connections"`
}

// Archiver receives every terminated poll. Submit must not block.
type Archiver interface {
	Submit(poll.HistoryEntry)
}

type Options struct {
	Clock   clock.Clock
	Logger  *zap.Logger
	Archive Archiver
}

type binding struct {
	role pub.Role
}

// Session is the single writer over the roster, the poll lifecycle and the
// expiry timer. Commands are applied one at a time in arrival order.
type Session struct {
	inbox   chan Msg
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	log     *zap.Logger
	clock   clock.Clock
	hub     *hub.Hub
	roster  *roster.Roster
	polls   *poll.Lifecycle
	expiry  *expiry.Coordinator
	archive Archiver

	conns     map[string]*binding
	presenter string
	version   int
	view      atomic.Pointer[View]
}

func New(parent context.Context, h *hub.Hub, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:   make(chan Msg, 64),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     opts.Logger.Named("session"),
		clock:   opts.Clock,
		hub:     h,
		roster:  roster.New(opts.Clock),
		polls:   poll.NewLifecycle(opts.Clock),
		archive: opts.Archive,
		conns:   make(map[string]*binding),
	}
	s.expiry = expiry.New(opts.Clock, func(t expiry.Ticket) {
		s.Submit(s.ctx, timerFired{ticket: t})
	})
	s.publish()

	go s.loop()
	return s
}

// Expose the inbox so tests or the WS layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Submit delivers m unless ctx ends or the session has stopped first.
func (s *Session) Submit(ctx context.Context, m Msg) bool {
	select {
	case s.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

// Snapshot returns the latest committed view without blocking.
func (s *Session) Snapshot() View { return *s.view.Load() }

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Connect:
				s.connect(msg.ConnID, msg.Outbox)

			case Disconnect:
				s.disconnect(msg.ConnID)

			case FromClient:
				if err := s.handle(msg.ConnID, msg.Cmd); err != nil {
					s.log.Debug("command rejected",
						zap.String("conn", msg.ConnID),
						zap.String("cmd", string(msg.Cmd.Type)),
						zap.Error(err))
					s.send(msg.ConnID, ErrorMessage(err))
				}

			case timerFired:
				s.expire(msg.ticket)

			case GetState:
				msg.Reply <- s.Snapshot()

			case Shutdown:
				s.shutdown()
				return
			}
			s.publish()
		}
	}
}

func (s *Session) shutdown() {
	s.expiry.Disarm()
	s.cancel()
}

func (s *Session) publish() {
	v := &View{
		Version:            s.version,
		Roster:             s.rosterPayload(),
		PresenterConnected: s.presenter != "",
		Connections:        len(s.conns),
	}
	if pv, ok := s.polls.Active(); ok {
		v.ActivePoll = &pv
	}
	if res, ok := s.polls.CurrentResults(); ok {
		v.Results = &res
	}
	s.view.Store(v)
}

func (s *Session) commit() { s.version++ }

func (s *Session) toHub(m hub.HubMsg) {
	select {
	case s.hub.Inbox() <- m:
	case <-s.hub.Done():
	}
}

func (s *Session) send(connID string, m types.ServerMessage) {
	s.toHub(hub.Send{ConnID: connID, Msg: m})
}

func (s *Session) broadcast(m types.ServerMessage) {
	s.toHub(hub.Broadcast{Msg: m})
}
