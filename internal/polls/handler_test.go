package polls_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swarooperla/Live-Polling-System/internal/models"
	"github.com/swarooperla/Live-Polling-System/internal/polls"
)

type fakeAdminStore struct {
	polls   []models.Poll
	deleted bool
}

func (s *fakeAdminStore) ListAll(context.Context) ([]models.Poll, error) {
	return s.polls, nil
}

func (s *fakeAdminStore) DeleteAll(context.Context) error {
	s.deleted = true
	s.polls = nil
	return nil
}

func newRouter(store *fakeAdminStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := polls.NewHandler(store, nil, zap.NewNop())
	router := gin.New()
	router.GET("/api/polls", h.List)
	router.DELETE("/api/polls", h.DeleteAll)
	return router
}

func TestListPolls(t *testing.T) {
	now := time.Now()
	store := &fakeAdminStore{polls: []models.Poll{
		{ID: uuid.New(), Question: "Newest?", CreatedAt: now},
		{ID: uuid.New(), Question: "Oldest?", CreatedAt: now.Add(-time.Hour)},
	}}
	router := newRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/polls", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool          `json:"success"`
		Data    []models.Poll `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "Newest?", body.Data[0].Question)
}

func TestListPollsEmpty(t *testing.T) {
	router := newRouter(&fakeAdminStore{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/polls", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

func TestDeleteAllPolls(t *testing.T) {
	store := &fakeAdminStore{polls: []models.Poll{{ID: uuid.New(), Question: "Q?"}}}
	router := newRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/polls", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.deleted)
	var body struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
}
