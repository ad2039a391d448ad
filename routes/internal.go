package routes

import (
	"context"
	"net/http"

	"debatearena/middlewares"
	"debatearena/services"
	"debatearena/structs"

	"github.com/gin-gonic/gin"
)

// Ticker advances rooms whose phase deadline has passed
type Ticker interface {
	Tick(ctx context.Context) (services.TickReport, error)
	Reevaluate(ctx context.Context, roomID string) (bool, error)
}

// SetupInternalRoutes registers the scheduler and admin endpoints
func SetupInternalRoutes(r gin.IRouter, ticker Ticker, token string) {
	internal := r.Group("/internal")
	internal.Use(middlewares.InternalTokenMiddleware(token))
	{
		internal.POST("/tick", func(c *gin.Context) { TickHandler(c, ticker) })
		internal.POST("/rooms/:id/evaluate", func(c *gin.Context) { EvaluateRoomHandler(c, ticker) })
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// TickHandler handles POST /internal/tick, the entry point for an external cron
func TickHandler(c *gin.Context, ticker Ticker) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	report, err := ticker.Tick(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// EvaluateRoomHandler handles POST /internal/rooms/:id/evaluate
func EvaluateRoomHandler(c *gin.Context, ticker Ticker) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	roomID := c.Param("id")
	advanced, err := ticker.Reevaluate(ctx, roomID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, structs.EvaluateResponse{RoomID: roomID, Advanced: advanced})
}
