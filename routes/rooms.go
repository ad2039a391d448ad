package routes

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"debatearena/internal/debate"
	"debatearena/middlewares"
	"debatearena/models"
	"debatearena/services"
	"debatearena/structs"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const requestTimeout = 10 * time.Second

// EventReader replays a room's recent events
type EventReader interface {
	Since(ctx context.Context, roomID, afterID string, count int64) ([]*debate.Event, error)
}

// RoomRoutes serves the player facing room API
type RoomRoutes struct {
	rooms  *services.RoomService
	events EventReader
	now    func() time.Time
}

// SetupRoomRoutes registers the room endpoints on r. events may be nil when no event
// stream is configured.
func SetupRoomRoutes(r gin.IRouter, rooms *services.RoomService, events EventReader) {
	h := &RoomRoutes{rooms: rooms, events: events, now: time.Now}

	group := r.Group("/rooms")
	group.Use(middlewares.SessionMiddleware())
	{
		group.POST("", h.CreateRoomHandler)
		group.GET("/:id", h.GetRoomHandler)
		group.GET("/:id/turn", h.GetTurnHandler)
		group.GET("/:id/events", h.GetEventsHandler)
		group.POST("/:id/messages", h.PostMessageHandler)

		seated := group.Group("")
		seated.Use(middlewares.RequirePlayer())
		seated.POST("/:id/join", h.JoinRoomHandler)
		seated.POST("/:id/ready", h.ReadyHandler)
		seated.POST("/:id/vote", h.VoteHandler)
		seated.POST("/:id/leave", h.LeaveHandler)
	}
}

func sessionFrom(c *gin.Context) services.Session {
	return services.Session{
		RoomID:     c.Param("id"),
		PlayerID:   c.GetString(middlewares.PlayerIDKey),
		PlayerName: c.GetString(middlewares.PlayerNameKey),
	}
}

// CreateRoomHandler handles POST /rooms
func (h *RoomRoutes) CreateRoomHandler(c *gin.Context) {
	var input structs.CreateRoomRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	room, err := h.rooms.CreateRoom(ctx, input.Topic)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, roomResponse(room, c.GetString(middlewares.PlayerIDKey)))
}

// GetRoomHandler handles GET /rooms/:id
func (h *RoomRoutes) GetRoomHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	room, err := h.rooms.GetRoom(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomResponse(room, c.GetString(middlewares.PlayerIDKey)))
}

// GetTurnHandler handles GET /rooms/:id/turn
func (h *RoomRoutes) GetTurnHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	room, turn, err := h.rooms.CurrentTurn(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := structs.TurnResponse{
		RoomID:   room.ID,
		Phase:    string(room.CurrentPhase),
		Speaker:  string(turn.Speaker),
		TimeLeft: turn.Seconds(),
	}
	if slot := room.SlotOf(c.GetString(middlewares.PlayerIDKey)); slot != models.SlotNone {
		resp.YourTurn = string(slot) == string(turn.Speaker)
	}
	if deadline, ok := room.Deadline(); ok {
		resp.PhaseTimeLeft = services.Turn{TimeLeft: max(0, deadline.Sub(h.now()))}.Seconds()
	}
	c.JSON(http.StatusOK, resp)
}

// GetEventsHandler handles GET /rooms/:id/events?after=<id>&count=<n>
func (h *RoomRoutes) GetEventsHandler(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusOK, gin.H{"events": []*debate.Event{}})
		return
	}
	count, err := strconv.ParseInt(c.DefaultQuery("count", "100"), 10, 64)
	if err != nil || count <= 0 || count > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid count"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	events, err := h.events.Since(ctx, c.Param("id"), c.Query("after"), count)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// JoinRoomHandler handles POST /rooms/:id/join
func (h *RoomRoutes) JoinRoomHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	sess := sessionFrom(c)
	room, err := h.rooms.JoinRoom(ctx, sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomResponse(room, sess.PlayerID))
}

// ReadyHandler handles POST /rooms/:id/ready
func (h *RoomRoutes) ReadyHandler(c *gin.Context) {
	var input structs.ReadyRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	sess := sessionFrom(c)
	room, err := h.rooms.SetReady(ctx, sess, *input.Ready)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomResponse(room, sess.PlayerID))
}

// VoteHandler handles POST /rooms/:id/vote
func (h *RoomRoutes) VoteHandler(c *gin.Context) {
	var input structs.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Side must be pro or con"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	sess := sessionFrom(c)
	room, err := h.rooms.CastVote(ctx, sess, models.Side(input.Side))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomResponse(room, sess.PlayerID))
}

// LeaveHandler handles POST /rooms/:id/leave
func (h *RoomRoutes) LeaveHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	sess := sessionFrom(c)
	room, err := h.rooms.Leave(ctx, sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomResponse(room, sess.PlayerID))
}

// PostMessageHandler handles POST /rooms/:id/messages
func (h *RoomRoutes) PostMessageHandler(c *gin.Context) {
	var input structs.MessageRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	msg, err := h.rooms.PostMessage(ctx, sessionFrom(c), input.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, structs.MessageResponse{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		AuthorName: msg.AuthorName,
		AuthorSlot: string(msg.AuthorSlot),
		Phase:      string(msg.Phase),
		Side:       string(msg.Side),
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	})
}

func roomResponse(r *models.Room, playerID string) structs.RoomResponse {
	resp := structs.RoomResponse{
		ID:             r.ID,
		Topic:          r.Topic,
		Status:         string(r.Status),
		CurrentPhase:   string(r.CurrentPhase),
		PhaseStartTime: r.PhaseStartTime,
		PhaseDuration:  r.PhaseDuration,
		JudgingPhase:   string(r.JudgingPhase),
		JudgingFailed:  r.JudgingFailed,
		WinnerID:       r.WinnerID,
		WinnerName:     r.WinnerName,
		YourSlot:       string(r.SlotOf(playerID)),
	}
	resp.PlayerA = playerView(r, models.SlotA)
	resp.PlayerB = playerView(r, models.SlotB)
	return resp
}

func playerView(r *models.Room, slot models.Slot) *structs.PlayerView {
	id := r.PlayerID(slot)
	if id == "" {
		return nil
	}
	ready := r.PlayerAReady
	if slot == models.SlotB {
		ready = r.PlayerBReady
	}
	return &structs.PlayerView{
		ID:     id,
		Name:   r.PlayerName(slot),
		Ready:  ready,
		Vote:   string(r.Vote(slot)),
		Side:   string(r.Side(slot)),
		Health: r.Health(slot),
	}
}

// writeError maps service errors onto HTTP responses
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
	case errors.Is(err, services.ErrNotSeated):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRoomFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidAction):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
