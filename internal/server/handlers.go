package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/driftwatch/driftwatch/internal/drift"
)

// RecordRequest is one inbound observation
type RecordRequest struct {
	Features  map[string]float64 `json:"features" binding:"required"`
	Timestamp *time.Time         `json:"timestamp,omitempty"`
}

// BatchRequest carries multiple observations in arrival order
type BatchRequest struct {
	Records []RecordRequest `json:"records" binding:"required"`
}

func (r RecordRequest) toRecord() drift.Record {
	ts := time.Now()
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return drift.Record{Features: r.Features, Timestamp: ts}
}

// ingestRecord pushes one record into the engine
func (s *Server) ingestRecord(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := s.eval.OnRecord(req.toRecord()); err != nil {
		s.rejectRecord(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted":  true,
		"timestamp": time.Now().Unix(),
	})
}

// ingestBatch pushes a batch of records into the engine, preserving order.
// Invalid records are skipped and reported; they do not fail the batch.
func (s *Server) ingestBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	accepted := 0
	rejected := make([]gin.H, 0)
	for i, rec := range req.Records {
		if err := s.eval.OnRecord(rec.toRecord()); err != nil {
			if errors.Is(err, drift.ErrClosed) {
				s.rejectRecord(c, err)
				return
			}
			rejected = append(rejected, gin.H{"index": i, "error": err.Error()})
			continue
		}
		accepted++
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted":  accepted,
		"rejected":  rejected,
		"timestamp": time.Now().Unix(),
	})
}

// rejectRecord maps engine errors onto HTTP statuses
func (s *Server) rejectRecord(c *gin.Context, err error) {
	switch {
	case errors.Is(err, drift.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine is shut down"})
	case errors.Is(err, drift.ErrBadRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// getResults returns recent drift results
func (s *Server) getResults(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		limit = 50
	}

	results := s.results.Recent(limit)
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"count":     len(results),
		"timestamp": time.Now().Unix(),
	})
}

// getStatus returns the engine state
func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.eval.Stats())
}

// getConfig returns the engine configuration
func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.eval.Config())
}
