package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/event-booker/pkg/queue"
	"github.com/gin-gonic/gin"
)

// TaskMonitor exposes the state of the background task queue.
type TaskMonitor interface {
	GetQueueStats(ctx context.Context) (*queue.QueueStats, error)
	Requeue(ctx context.Context, taskID string) error
}

// FailedTaskLister reads the dead letter queue.
type FailedTaskLister interface {
	GetFailedTasks(ctx context.Context, limit int) ([]*queue.FailedTask, error)
}

// AdminHandler serves queue inspection endpoints. Both dependencies are nil
// when the task queue is disabled.
type AdminHandler struct {
	monitor TaskMonitor
	dlq     FailedTaskLister
}

func NewAdminHandler(monitor TaskMonitor, dlq FailedTaskLister) *AdminHandler {
	return &AdminHandler{monitor: monitor, dlq: dlq}
}

func (h *AdminHandler) GetQueueStats(c *gin.Context) {
	if h.monitor == nil {
		respondError(c, http.StatusServiceUnavailable, "Task queue is disabled")
		return
	}

	stats, err := h.monitor.GetQueueStats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) GetFailedTasks(c *gin.Context) {
	if h.dlq == nil {
		respondError(c, http.StatusServiceUnavailable, "Task queue is disabled")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	tasks, err := h.dlq.GetFailedTasks(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, tasks)
}

func (h *AdminHandler) RequeueTask(c *gin.Context) {
	if h.monitor == nil {
		respondError(c, http.StatusServiceUnavailable, "Task queue is disabled")
		return
	}

	if err := h.monitor.Requeue(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			respondError(c, http.StatusNotFound, "Task not found")
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Task requeued"})
}

// Health reports liveness and, when the queue is enabled, its backlog.
func (h *AdminHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}

	if h.monitor != nil {
		if stats, err := h.monitor.GetQueueStats(c.Request.Context()); err != nil {
			body["queue"] = gin.H{"status": "unavailable", "error": err.Error()}
		} else {
			body["queue"] = stats
		}
	}

	c.JSON(http.StatusOK, body)
}
