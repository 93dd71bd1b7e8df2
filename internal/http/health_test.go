package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifehub/authapi/internal/database"
	"github.com/lifehub/authapi/internal/database/users"
)

type brokenCounter struct{}

func (brokenCounter) Count(context.Context) (int, error) {
	return 0, errors.New("store unavailable")
}

func getHealth(t *testing.T, controller *HealthController) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()

	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy with a memory store", func(t *testing.T) {
		w, response := getHealth(t, NewHealthController(users.NewMemoryStore(), nil, "1.0.0"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["store"])
		assert.Equal(t, "0", response.Checks["users"])
		assert.NotContains(t, response.Checks, "database")
		assert.NotEmpty(t, response.Time)
	})

	t.Run("returns unhealthy when the store fails", func(t *testing.T) {
		w, response := getHealth(t, NewHealthController(brokenCounter{}, nil, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["store"], "store unavailable")
	})

	t.Run("returns unhealthy when no store is configured", func(t *testing.T) {
		w, response := getHealth(t, NewHealthController(nil, nil, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not configured", response.Checks["store"])
	})

	t.Run("checks the sqlite connection", func(t *testing.T) {
		db, err := database.NewDatabase("file:health_check?mode=memory&cache=shared")
		require.NoError(t, err)
		store := users.NewRepository(db.DB)

		w, response := getHealth(t, NewHealthController(store, db, "1.0.0"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", response.Checks["database"])

		require.NoError(t, db.Close())
		w, response = getHealth(t, NewHealthController(store, db, "1.0.0"))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", response.Status)
	})
}
