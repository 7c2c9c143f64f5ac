package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRunLister is a mock implementation of RunLister
type MockRunLister struct {
	mock.Mock
}

func (m *MockRunLister) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RunRecord), args.Error(1)
}

func setupRunsRouter(runs RunLister) *chi.Mux {
	router := chi.NewRouter()
	router.Route("/api", NewRunHandlers(runs, zerolog.Nop()).RegisterRoutes)
	return router
}

type runsResponse struct {
	Data  []RunRecord `json:"data"`
	Count int         `json:"count"`
}

func TestHandleGetRuns_FromJournal(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := sampleRecord()
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		rec.EstimatedValue = float64(i)
		_, err := repo.Save(ctx, rec)
		require.NoError(t, err)
	}

	req := httptest.NewRequest("GET", "/api/runs?limit=2", nil)
	w := httptest.NewRecorder()
	setupRunsRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response runsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 2, response.Count)
	require.Len(t, response.Data, 2)
	assert.Equal(t, 2.0, response.Data[0].EstimatedValue)
	assert.Equal(t, 1.0, response.Data[1].EstimatedValue)
	assert.Equal(t, base.Add(2*time.Minute), response.Data[0].CreatedAt)
}

func TestHandleGetRuns_EmptyJournal(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	setupRunsRouter(setupTestRepository(t)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"count":0}`, w.Body.String())
}

func TestHandleGetRuns_Limit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		limit int
	}{
		{"default", "", DefaultRecentLimit},
		{"explicit", "?limit=5", 5},
		{"not a number", "?limit=ten", DefaultRecentLimit},
		{"negative", "?limit=-3", DefaultRecentLimit},
		{"capped", "?limit=100000", MaxRecentLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := &MockRunLister{}
			runs.On("Recent", tt.limit).Return([]RunRecord{}, nil).Once()

			req := httptest.NewRequest("GET", "/api/runs"+tt.query, nil)
			w := httptest.NewRecorder()
			setupRunsRouter(runs).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			runs.AssertExpectations(t)
		})
	}
}

func TestHandleGetRuns_RepositoryError(t *testing.T) {
	runs := &MockRunLister{}
	runs.On("Recent", DefaultRecentLimit).Return(nil, errors.New("database is locked"))

	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	setupRunsRouter(runs).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
