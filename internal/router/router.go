package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grace0927/sccny-live/internal/handler"
	"github.com/grace0927/sccny-live/pkg/constants"
)

// New builds the HTTP router.
func New(
	sessionHandler *handler.SessionHandler,
	streamHandler *handler.StreamHandler,
	streamWS *handler.StreamWSHandler,
	health *handler.HealthHandler,
	operatorToken string,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	operator := handler.RequireOperator(operatorToken)

	// REST sessions
	sessions := r.Group(constants.PathSessions)
	{
		sessions.POST("", operator, sessionHandler.CreateSession)
		sessions.GET("", sessionHandler.ListSessions)
		sessions.GET("/:id", sessionHandler.GetSession)
		sessions.POST("/:id/end", operator, sessionHandler.EndSession)
		sessions.POST("/:id/entries", operator, sessionHandler.AppendEntry)
		sessions.GET("/:id/entries", sessionHandler.ListEntries)

		// Viewer event stream (SSE): replay then live entries then "ended"
		sessions.GET("/:id/stream", streamHandler.Stream)
	}

	// WebSocket mirror of the stream: /ws/stream/:session_id
	r.GET(constants.PathWSStream, streamWS.ServeWS)

	return r
}
