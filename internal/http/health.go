package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifehub/authapi/internal/database"
)

// UserCounter is the part of the credential store the health check needs.
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	store   UserCounter
	db      *database.Database
	version string
}

func NewHealthController(store UserCounter, db *database.Database, version string) *HealthController {
	return &HealthController{
		store:   store,
		db:      db,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.store != nil {
		if n, err := h.store.Count(c.Request.Context()); err != nil {
			checks["store"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["store"] = "ok"
			checks["users"] = strconv.Itoa(n)
		}
	} else {
		checks["store"] = "not configured"
		status = "unhealthy"
	}

	// The sqlite store also reports raw connectivity
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
