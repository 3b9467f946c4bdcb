package handler

import (
	"net/http"
	"strconv"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/response"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultHeartbeat = 25 * time.Second

// EventHandler streams committed ledger events over server-sent events.
type EventHandler struct {
	subscriber ports.EventSubscriber
	heartbeat  time.Duration
	log        zerolog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(subscriber ports.EventSubscriber, log zerolog.Logger) *EventHandler {
	return &EventHandler{subscriber: subscriber, heartbeat: defaultHeartbeat, log: log}
}

// Stream handles GET /api/v1/events. Sessions only see events naming their
// account plus economy updates; the authority sees everything.
func (h *EventHandler) Stream(c *gin.Context) {
	actor, ok := actorFor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	events, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("event subscription failed")
		response.Error(c, apperror.InternalError(err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !visibleTo(&event, actor) {
				continue
			}
			c.Render(-1, sse.Event{
				Id:    event.ID,
				Event: string(event.Type),
				Data:  event,
			})
		case now := <-ticker.C:
			c.Render(-1, sse.Event{
				Event: "ping",
				Data:  strconv.FormatInt(now.Unix(), 10),
			})
		}
		c.Writer.Flush()
	}
}

func visibleTo(event *domain.LedgerEvent, actor ports.Actor) bool {
	return actor.Authority || event.Type == domain.EventEconomySynced || event.Concerns(actor.ID)
}
