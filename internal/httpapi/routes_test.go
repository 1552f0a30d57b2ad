package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/live-poll-backend/internal/hub"
	"github.com/DoyleJ11/live-poll-backend/internal/session"
	"github.com/DoyleJ11/live-poll-backend/internal/ws"
	pub "github.com/DoyleJ11/live-poll-backend/pkg/types"
)

type frame struct {
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Details []string        `json:"details"`
}

func newServer(t *testing.T) (*httptest.Server, *clock.Mock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))

	h := hub.NewHub(ctx, log)
	s := session.New(ctx, h, session.Options{Clock: mock, Logger: log})
	srv := httptest.NewServer(SetupRoutes(s, mock, log, ws.Options{OutboxSize: 64}))
	t.Cleanup(srv.Close)
	return srv, mock
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func sendJSON(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, b))
}

func sendRaw(t *testing.T, c *websocket.Conn, raw string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(raw)))
}

// readUntil skips frames until one of type event arrives.
func readUntil(t *testing.T, c *websocket.Conn, event string) frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err, "waiting for %s", event)
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		if f.Type == event {
			return f
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "2026-03-04T10:00:00.000Z", body.Timestamp)
}

func TestBanner(t *testing.T) {
	srv, _ := newServer(t)
	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestWebsocket_VoteRoundTrip(t *testing.T) {
	srv, _ := newServer(t)

	presenter := dial(t, srv)
	sendJSON(t, presenter, map[string]any{"type": pub.CmdRegisterPresenter})
	ack := readUntil(t, presenter, pub.EventSuccess)
	assert.True(t, ack.Success)

	student := dial(t, srv)
	sendJSON(t, student, map[string]any{"type": pub.CmdRegisterParticipant, "name": "Ana"})
	reg := readUntil(t, student, pub.EventSuccess)
	var registration pub.Registration
	require.NoError(t, json.Unmarshal(reg.Data, &registration))
	assert.Equal(t, "Ana", registration.Name)
	assert.NotEmpty(t, registration.ParticipantID)

	sendJSON(t, presenter, map[string]any{
		"type":     pub.CmdCreatePoll,
		"question": "Favorite color?",
		"options":  []string{"Red", "Blue"},
	})
	created := readUntil(t, student, pub.EventPollCreated)
	var view struct {
		ID        string `json:"id"`
		TimeLimit int    `json:"timeLimit"`
	}
	require.NoError(t, json.Unmarshal(created.Data, &view))
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, 60, view.TimeLimit)

	sendJSON(t, student, map[string]any{"type": pub.CmdSubmitVote, "optionIndex": 1})
	results := readUntil(t, presenter, pub.EventPollResults)
	var tally struct {
		TotalResponses int `json:"totalResponses"`
		Options        []struct {
			VoteCount int `json:"voteCount"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(results.Data, &tally))
	assert.Equal(t, 1, tally.TotalResponses)
	require.Len(t, tally.Options, 2)
	assert.Equal(t, 0, tally.Options[0].VoteCount)
	assert.Equal(t, 1, tally.Options[1].VoteCount)

	sendJSON(t, student, map[string]any{"type": pub.CmdSubmitVote, "optionIndex": 0})
	dup := readUntil(t, student, pub.EventError)
	assert.Equal(t, pub.CodeAlreadyVoted, dup.Code)

	res, err := http.Get(srv.URL + "/results")
	require.NoError(t, err)
	defer res.Body.Close()
	var snap session.View
	require.NoError(t, json.NewDecoder(res.Body).Decode(&snap))
	require.NotNil(t, snap.Results)
	assert.Equal(t, 1, snap.Results.TotalResponses)
	assert.Equal(t, 1, snap.Roster.Answered)
}

func TestWebsocket_MalformedFrames(t *testing.T) {
	srv, _ := newServer(t)
	c := dial(t, srv)

	sendRaw(t, c, "{not json")
	f := readUntil(t, c, pub.EventError)
	assert.False(t, f.Success)
	assert.Equal(t, pub.CodeBadRequest, f.Code)

	sendJSON(t, c, map[string]any{"type": "launch_rocket"})
	f = readUntil(t, c, pub.EventError)
	assert.Equal(t, pub.CodeBadRequest, f.Code)

	sendJSON(t, c, map[string]any{"type": pub.CmdSubmitVote})
	f = readUntil(t, c, pub.EventError)
	assert.Equal(t, pub.CodeBadRequest, f.Code)
}

func TestWebsocket_RemovedParticipantIsDisconnected(t *testing.T) {
	srv, _ := newServer(t)

	presenter := dial(t, srv)
	sendJSON(t, presenter, map[string]any{"type": pub.CmdRegisterPresenter})
	readUntil(t, presenter, pub.EventSuccess)

	student := dial(t, srv)
	sendJSON(t, student, map[string]any{"type": pub.CmdRegisterParticipant, "name": "Bo"})
	reg := readUntil(t, student, pub.EventSuccess)
	var registration pub.Registration
	require.NoError(t, json.Unmarshal(reg.Data, &registration))

	sendJSON(t, presenter, map[string]any{"type": pub.CmdRemoveParticipant, "participantId": registration.ParticipantID})

	notice := readUntil(t, student, pub.EventParticipantRemoved)
	assert.Equal(t, pub.CodeRemoved, notice.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := student.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}
