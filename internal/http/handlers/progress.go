package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/transcoderd/internal/events"
	"github.com/yungbote/transcoderd/internal/messages"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/progress"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/services"
	"github.com/yungbote/transcoderd/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy lives in the CORS middleware on the REST surface;
		// progress streams are open to watchers.
		return true
	},
}

// wsSubscriber adapts a websocket connection to the event manager. After
// registration every Send and Close happens under the manager's lock, which
// satisfies the single concurrent writer the connection allows.
type wsSubscriber struct {
	conn *websocket.Conn
}

func (s *wsSubscriber) Send(v any) error {
	return s.conn.WriteJSON(v)
}

func (s *wsSubscriber) Close() error {
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

type ProgressHandler struct {
	log     *logger.Logger
	jobs    services.JobService
	tracker *progress.Tracker
	events  *events.Manager
}

func NewProgressHandler(log *logger.Logger, jobs services.JobService, tracker *progress.Tracker, manager *events.Manager) *ProgressHandler {
	return &ProgressHandler{
		log:     log.With("component", "ProgressHandler"),
		jobs:    jobs,
		tracker: tracker,
		events:  manager,
	}
}

// GET /progress/:job_id
//
// Subscribes the client to a job's event stream. A job that has not been
// submitted yet gets an error frame but stays subscribed for when it
// arrives; a finished job gets its stored result and an immediate close.
func (h *ProgressHandler) Progress(c *gin.Context) {
	jobID := c.Param("job_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Could not upgrade progress subscriber", "error", err)
		return
	}
	h.log.Info("Client is now watching job", "remote", conn.RemoteAddr().String(), "job_id", jobID)

	sub := &wsSubscriber{conn: conn}

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	switch {
	case errors.Is(err, repos.ErrNotFound):
		if err := sub.Send(gin.H{"error": "job not yet submitted"}); err != nil {
			_ = conn.Close()
			return
		}
	case err != nil:
		h.log.Error("Could not look up watched job", "error", err, "job_id", jobID)
		_ = conn.Close()
		return
	case types.IsTerminalJobState(job.State):
		result := messages.JobResultMessage{
			JobID:        job.JobID,
			Status:       job.State,
			OutputS3Path: &job.OutputS3Path,
			Error:        job.Error,
			ErrorType:    job.ErrorType,
		}
		if err := sub.Send(result); err != nil {
			h.log.Warn("Could not deliver stored result", "error", err, "job_id", jobID)
		}
		_ = sub.Close()
		return
	}

	if entry, ok := h.tracker.Get(jobID); ok {
		if err := sub.Send(entry.Message); err != nil {
			_ = conn.Close()
			return
		}
	}

	h.events.Add(jobID, sub)

	// Inbound frames carry nothing; reading only notices disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.events.Remove(jobID, sub)
	h.log.Info("Client disconnected from watching job", "remote", conn.RemoteAddr().String(), "job_id", jobID)
}
