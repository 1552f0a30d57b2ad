package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/live-poll-backend/internal/poll"
	"github.com/DoyleJ11/live-poll-backend/internal/session"
	"github.com/DoyleJ11/live-poll-backend/internal/types"
	pub "github.com/DoyleJ11/live-poll-backend/pkg/types"
)

const writeTimeout = 3 * time.Second

type Options struct {
	// OriginPatterns is passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string
	OutboxSize     int
}

func Handler(s *session.Session, log *zap.Logger, opts Options) http.HandlerFunc {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 32
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan types.ServerMessage, opts.OutboxSize)
		if !s.Submit(r.Context(), session.Connect{ConnID: connID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		defer s.Submit(context.Background(), session.Disconnect{ConnID: connID})
		log.Debug("connected", zap.String("conn", connID), zap.String("remote", r.RemoteAddr))

		// Writer goroutine. The hub closes out on eviction, slow-client drop
		// or shutdown; that ends the connection.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("marshal outbound", zap.String("event", msg.Type), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
			conn.Close(websocket.StatusNormalClosure, "closed by server")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read ended", zap.String("conn", connID), zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, fmt.Errorf("%w: bad json", session.ErrBadRequest))
				continue
			}

			cmd, err := ToCommand(cm)
			if err != nil {
				writeError(r.Context(), conn, err)
				continue
			}

			if !s.Submit(r.Context(), session.FromClient{ConnID: connID, Cmd: cmd}) {
				return
			}
		}
	}
}

// ToCommand validates the payload shape of a client frame.
func ToCommand(m types.ClientMessage) (session.Command, error) {
	switch m.Type {
	case pub.CmdRegisterPresenter:
		return session.Command{Type: session.CmdRegisterPresenter}, nil

	case pub.CmdRegisterParticipant:
		return session.Command{Type: session.CmdRegisterParticipant, Name: m.Name}, nil

	case pub.CmdCreatePoll:
		limit := poll.DefaultTimeLimitSec
		if m.TimeLimit != nil {
			limit = *m.TimeLimit
		}
		return session.Command{
			Type:         session.CmdCreatePoll,
			Question:     m.Question,
			Options:      m.Options,
			TimeLimitSec: limit,
		}, nil

	case pub.CmdSubmitVote:
		if m.OptionIndex == nil {
			return session.Command{}, fmt.Errorf("%w: optionIndex is required", session.ErrBadRequest)
		}
		return session.Command{Type: session.CmdSubmitVote, OptionIndex: *m.OptionIndex}, nil

	case pub.CmdEndPoll:
		return session.Command{Type: session.CmdEndPoll}, nil

	case pub.CmdGetPollHistory:
		return session.Command{Type: session.CmdGetPollHistory}, nil

	case pub.CmdRemoveParticipant:
		if m.ParticipantID == "" {
			return session.Command{}, fmt.Errorf("%w: participantId is required", session.ErrBadRequest)
		}
		return session.Command{Type: session.CmdRemoveParticipant, ParticipantID: m.ParticipantID}, nil

	case pub.CmdSendMessage:
		return session.Command{Type: session.CmdSendMessage, Text: m.Text}, nil

	default:
		return session.Command{}, fmt.Errorf("%w: unknown type %q", session.ErrUnsupportedCommand, m.Type)
	}
}

// writeError answers a frame that never reached the session. Writes are
// safe to run alongside the writer goroutine.
func writeError(ctx context.Context, conn *websocket.Conn, err error) {
	payload, mErr := json.Marshal(session.ErrorMessage(err))
	if mErr != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
