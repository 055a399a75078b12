package realtime_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swarooperla/Live-Polling-System/internal/models"
	"github.com/swarooperla/Live-Polling-System/internal/polls"
	"github.com/swarooperla/Live-Polling-System/internal/realtime"
	"github.com/swarooperla/Live-Polling-System/internal/students"
)

// In-memory stores backing the full socket stack under test.

type memPollStore struct {
	mu    sync.Mutex
	polls map[uuid.UUID]*models.Poll
}

func newMemPollStore() *memPollStore {
	return &memPollStore{polls: make(map[uuid.UUID]*models.Poll)}
}

func copyPoll(p *models.Poll) *models.Poll {
	cp := *p
	cp.Choices = append([]models.Choice(nil), p.Choices...)
	return &cp
}

func (s *memPollStore) Insert(_ context.Context, p *models.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.polls {
		if q.IsActive {
			return polls.ErrPollInProgress
		}
	}
	p.CreatedAt = time.Now()
	s.polls[p.ID] = copyPoll(p)
	return nil
}

func (s *memPollStore) GetByID(_ context.Context, id uuid.UUID) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok {
		return nil, polls.ErrPollNotFound
	}
	return copyPoll(p), nil
}

func (s *memPollStore) FindActive(_ context.Context) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.polls {
		if p.IsActive {
			return copyPoll(p), nil
		}
	}
	return nil, nil
}

func (s *memPollStore) IncrementVote(_ context.Context, id uuid.UUID, choice int) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok || !p.IsActive {
		return nil, polls.ErrPollNotActive
	}
	p.Choices[choice].Votes++
	return copyPoll(p), nil
}

func (s *memPollStore) End(_ context.Context, id uuid.UUID) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok || !p.IsActive {
		return nil, polls.ErrPollNotFound
	}
	p.IsActive = false
	return copyPoll(p), nil
}

func (s *memPollStore) ClearActive(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.polls {
		p.IsActive = false
	}
	return nil
}

type memStudentStore struct {
	mu      sync.Mutex
	records []models.Student
	nextID  int64
}

func (s *memStudentStore) Insert(_ context.Context, st *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Name == st.Name {
			return students.ErrNameTaken
		}
	}
	s.nextID++
	st.ID = s.nextID
	st.RegisteredAt = time.Now()
	s.records = append(s.records, *st)
	return nil
}

func (s *memStudentStore) DeleteByConnection(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, r := range s.records {
		if r.ConnectionID != connectionID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

func (s *memStudentStore) ListNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.records))
	for i, r := range s.records {
		names[i] = r.Name
	}
	return names, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	hub := realtime.NewHub(logger)
	registry := students.NewRegistry(&memStudentStore{}, hub, logger)
	manager := polls.NewManager(newMemPollStore(), nil, hub, registry, logger)
	events := realtime.NewEventHandler(registry, manager, logger)

	router := gin.New()
	router.GET("/ws", realtime.ServeWs(hub, events, logger))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event, id string, payload interface{}) {
	t.Helper()
	msg := realtime.WSMessage{Event: event, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Data = data
	}
	require.NoError(t, conn.WriteJSON(msg))
}

// awaitAck reads messages until the ack for the given request id arrives.
func awaitAck(t *testing.T, conn *websocket.Conn, id string) json.RawMessage {
	t.Helper()
	return awaitMessage(t, conn, func(m realtime.WSMessage) bool {
		return m.Event == "ack" && m.ID == id
	})
}

// awaitEvent reads messages until a broadcast with the given event arrives.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	return awaitMessage(t, conn, func(m realtime.WSMessage) bool {
		return m.Event == event
	})
}

func awaitMessage(t *testing.T, conn *websocket.Conn, match func(realtime.WSMessage) bool) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg realtime.WSMessage
		require.NoError(t, conn.ReadJSON(&msg), "timed out waiting for message")
		if match(msg) {
			return msg.Data
		}
	}
}

func TestRegisterOverSocket(t *testing.T) {
	srv := newTestServer(t)
	student := dial(t, srv)
	teacher := dial(t, srv)

	send(t, student, "register_student", "1", gin.H{"name": "alice"})

	var ack struct {
		Success bool           `json:"success"`
		Student models.Student `json:"student"`
	}
	require.NoError(t, json.Unmarshal(awaitAck(t, student, "1"), &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, "alice", ack.Student.Name)

	// Both connections see the roster update.
	var names []string
	require.NoError(t, json.Unmarshal(awaitEvent(t, teacher, students.EventParticipantNames), &names))
	assert.Equal(t, []string{"alice"}, names)
}

func TestDuplicateNameRejectedOverSocket(t *testing.T) {
	srv := newTestServer(t)
	first := dial(t, srv)
	second := dial(t, srv)

	send(t, first, "register_student", "1", gin.H{"name": "alice"})
	awaitAck(t, first, "1")

	send(t, second, "register_student", "1", gin.H{"name": "alice"})
	var ack struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(awaitAck(t, second, "1"), &ack))
	assert.Equal(t, "Name already taken", ack.Error)
}

func TestPollRoundTripOverSocket(t *testing.T) {
	srv := newTestServer(t)
	teacher := dial(t, srv)
	student := dial(t, srv)

	send(t, teacher, "create_poll", "10", gin.H{
		"question": "Color?",
		"choices":  []gin.H{{"text": "Red"}, {"text": "Blue"}},
		"timer":    30,
	})

	var created struct {
		Success bool        `json:"success"`
		Poll    models.Poll `json:"poll"`
	}
	require.NoError(t, json.Unmarshal(awaitAck(t, teacher, "10"), &created))
	require.True(t, created.Success)
	assert.True(t, created.Poll.IsActive)

	// The student sees the poll start.
	var started models.Poll
	require.NoError(t, json.Unmarshal(awaitEvent(t, student, polls.EventNewPoll), &started))
	assert.Equal(t, created.Poll.ID, started.ID)
	assert.Equal(t, "Color?", started.Question)

	// Vote and watch the tallies on the teacher side.
	send(t, student, "submit_answer", "11", gin.H{"pollId": started.ID.String(), "choiceIndex": 0})
	var voted struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(awaitAck(t, student, "11"), &voted))
	assert.True(t, voted.Success)

	var updated models.Poll
	require.NoError(t, json.Unmarshal(awaitEvent(t, teacher, polls.EventPollUpdate), &updated))
	assert.Equal(t, 1, updated.Choices[0].Votes)
	assert.Equal(t, 0, updated.Choices[1].Votes)

	// The broadcast tallies sum to the accepted submissions.
	total := 0
	for _, c := range updated.Choices {
		total += c.Votes
	}
	assert.Equal(t, 1, total)

	// End the poll; everyone gets the final tallies.
	send(t, teacher, "end_poll", "12", gin.H{"pollId": started.ID.String()})
	awaitAck(t, teacher, "12")

	var ended models.Poll
	require.NoError(t, json.Unmarshal(awaitEvent(t, student, polls.EventPollEnded), &ended))
	assert.False(t, ended.IsActive)
	assert.Equal(t, 1, ended.Choices[0].Votes)
}

func TestGetActivePollOverSocket(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	send(t, conn, "get_active_poll", "1", nil)
	var ack struct {
		Success bool         `json:"success"`
		Poll    *models.Poll `json:"poll"`
	}
	require.NoError(t, json.Unmarshal(awaitAck(t, conn, "1"), &ack))
	assert.True(t, ack.Success)
	assert.Nil(t, ack.Poll)

	send(t, conn, "create_poll", "2", gin.H{
		"question": "Q?",
		"choices":  []gin.H{{"text": "A"}, {"text": "B"}},
		"timer":    30,
	})
	awaitAck(t, conn, "2")

	send(t, conn, "get_active_poll", "3", nil)
	require.NoError(t, json.Unmarshal(awaitAck(t, conn, "3"), &ack))
	assert.True(t, ack.Success)
	require.NotNil(t, ack.Poll)
	assert.Equal(t, "Q?", ack.Poll.Question)
}

func TestSecondPollRejectedOverSocket(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	create := gin.H{
		"question": "Q?",
		"choices":  []gin.H{{"text": "A"}, {"text": "B"}},
		"timer":    30,
	}
	send(t, conn, "create_poll", "1", create)
	awaitAck(t, conn, "1")

	send(t, conn, "create_poll", "2", create)
	var ack struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(awaitAck(t, conn, "2"), &ack))
	assert.False(t, ack.Success)
	assert.Equal(t, "Wait till the current poll completes", ack.Error)
}

func TestDisconnectFreesName(t *testing.T) {
	srv := newTestServer(t)
	first := dial(t, srv)

	send(t, first, "register_student", "1", gin.H{"name": "alice"})
	awaitAck(t, first, "1")
	require.NoError(t, first.Close())

	// Registration is cleaned up asynchronously on disconnect; retry until
	// the name is free again.
	second := dial(t, srv)
	deadline := time.Now().Add(3 * time.Second)
	for {
		id := uuid.New().String()
		send(t, second, "register_student", id, gin.H{"name": "alice"})
		var ack struct {
			Success bool `json:"success"`
		}
		require.NoError(t, json.Unmarshal(awaitAck(t, second, id), &ack))
		if ack.Success {
			break
		}
		require.True(t, time.Now().Before(deadline), "name was never released after disconnect")
		time.Sleep(50 * time.Millisecond)
	}
}

func TestGetParticipantNamesOverSocket(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	send(t, conn, "register_student", "1", gin.H{"name": "alice"})
	awaitAck(t, conn, "1")

	send(t, conn, "get_participant_names", "2", nil)
	var names []string
	require.NoError(t, json.Unmarshal(awaitAck(t, conn, "2"), &names))
	assert.Equal(t, []string{"alice"}, names)
}
