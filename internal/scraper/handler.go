package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cardhub/pkg/models"
)

// Handler exposes scrape runs over HTTP.
type Handler struct {
	Orch *Orchestrator
	Log  *logrus.Entry
}

func NewHandler(orch *Orchestrator, log *logrus.Logger) *Handler {
	return &Handler{Orch: orch, Log: log.WithField("component", "scrape-api")}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/scrape", h.startRun)
	r.GET("/scrape/report", h.report)
}

type startRunRequest struct {
	Types []string `json:"types"`
}

// startRun kicks off a run in the background and answers immediately
// with its id. An empty body runs every entity type; a body with
// "types" narrows the run. A run already in flight yields 409.
func (h *Handler) startRun(c *gin.Context) {
	var req startRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	types := make([]models.EntityType, 0, len(req.Types))
	for _, s := range req.Types {
		t, ok := models.ParseEntityType(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown entity type %q", s)})
			return
		}
		types = append(types, t)
	}

	// The run outlives the request; it is bounded by the
	// orchestrator's own timeout, not the request context.
	report, err := h.Orch.StartAsync(context.Background(), types...)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "started", "run_id": report.RunID})
}

func (h *Handler) report(c *gin.Context) {
	report := h.Orch.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scrape run yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}
