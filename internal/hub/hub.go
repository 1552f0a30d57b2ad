package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/live-poll-backend/internal/types"
)

type HubMsg interface{ isHubMsg() }

type Join struct {
	ConnID string
	Outbox chan types.ServerMessage
}

type Leave struct {
	ConnID string
}

type Broadcast struct {
	Msg types.ServerMessage
}

type Send struct {
	ConnID string
	Msg    types.ServerMessage
}

// Evict delivers Notice to one connection and then closes its outbox.
type Evict struct {
	ConnID string
	Notice types.ServerMessage
}

type Count struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Join) isHubMsg()        {}
func (Leave) isHubMsg()       {}
func (Broadcast) isHubMsg()   {}
func (Send) isHubMsg()        {}
func (Evict) isHubMsg()       {}
func (Count) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

// Hub is the observer set: every connected websocket and its outbox. Its
// loop is the only goroutine that sends on or closes an outbox.
type Hub struct {
	inbox   chan HubMsg
	clients map[string]chan types.ServerMessage
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 256),
		clients: make(map[string]chan types.ServerMessage),
		log:     log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the loop has exited and every outbox is closed.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				if old, ok := h.clients[msg.ConnID]; ok {
					close(old)
				}
				h.clients[msg.ConnID] = msg.Outbox

			case Leave:
				h.drop(msg.ConnID)

			case Broadcast:
				for id := range h.clients {
					h.deliver(id, msg.Msg)
				}

			case Send:
				h.deliver(msg.ConnID, msg.Msg)

			case Evict:
				h.deliver(msg.ConnID, msg.Notice)
				h.drop(msg.ConnID)

			case Count:
				msg.Reply <- len(h.clients)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) deliver(id string, m types.ServerMessage) {
	ch, ok := h.clients[id]
	if !ok {
		return
	}
	select {
	case ch <- m:
	default:
		// Client is slow/full - drop them.
		h.log.Warn("dropping slow observer", zap.String("conn", id), zap.String("event", m.Type))
		h.drop(id)
	}
}

func (h *Hub) drop(id string) {
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}

func (h *Hub) shutdown() {
	for id := range h.clients {
		h.drop(id)
	}
	h.cancel()
}
