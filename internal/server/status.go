package server

import (
	"errors"
	"net/http"

	"github.com/abduss/msc/internal/auth"
	"github.com/abduss/msc/internal/jobs"
	"github.com/abduss/msc/internal/objectstore"
	"github.com/abduss/msc/internal/quota"
	"github.com/abduss/msc/internal/state"
	"github.com/gin-gonic/gin"
)

type statusHandler struct {
	store   state.Store
	monitor quotaReporter
}

func registerStatusRoutes(group *gin.RouterGroup, store state.Store, monitor quotaReporter) {
	h := &statusHandler{store: store, monitor: monitor}
	group.GET("/buckets", h.listBuckets)
	group.GET("/buckets/:name/directories", h.listDirectories)
	group.GET("/buckets/:name/quota", h.bucketQuota)
}

func (h *statusHandler) listBuckets(c *gin.Context) {
	buckets, err := h.store.ListBuckets(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list buckets"})
		return
	}
	if buckets == nil {
		buckets = []state.Bucket{}
	}
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

func (h *statusHandler) listDirectories(c *gin.Context) {
	dirs, err := h.store.ListDirectories(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, state.ErrBucketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "bucket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list directories"})
		return
	}
	if dirs == nil {
		dirs = []state.Directory{}
	}
	c.JSON(http.StatusOK, gin.H{"directories": dirs})
}

func (h *statusHandler) bucketQuota(c *gin.Context) {
	st, err := h.monitor.Status(c.Request.Context(), c.Param("name"))
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrUnmanaged):
			c.JSON(http.StatusNotFound, gin.H{"error": "bucket has no quota"})
		case errors.Is(err, objectstore.ErrUsageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage statistics unavailable"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read quota"})
		}
		return
	}
	c.JSON(http.StatusOK, st)
}

type jobHandler struct {
	scheduler jobTrigger
}

func registerJobRoutes(group *gin.RouterGroup, scheduler jobTrigger, verifier *auth.Verifier) {
	h := &jobHandler{scheduler: scheduler}
	group.GET("/jobs", h.listJobs)

	if verifier == nil || !verifier.Enabled() {
		return
	}
	protected := group.Group("/jobs")
	protected.Use(auth.AdminMiddleware(verifier))
	protected.POST("/:name", h.triggerJob)
}

func (h *jobHandler) listJobs(c *gin.Context) {
	type jobState struct {
		Name    string `json:"name"`
		Running bool   `json:"running"`
	}
	names := h.scheduler.Jobs()
	out := make([]jobState, 0, len(names))
	for _, name := range names {
		out = append(out, jobState{Name: name, Running: h.scheduler.Running(name)})
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

func (h *jobHandler) triggerJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.scheduler.Trigger(name); err != nil {
		switch {
		case errors.Is(err, jobs.ErrUnknownJob):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		case errors.Is(err, jobs.ErrJobRunning):
			c.JSON(http.StatusConflict, gin.H{"error": "job already running"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start job"})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": name, "status": "started"})
}
