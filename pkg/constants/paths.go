package constants

// Route paths shared by the router and probes.
const (
	PathHealth   = "/health"
	PathReady    = "/ready"
	PathSessions = "/sessions"
	PathWSStream = "/ws/stream/:session_id"
)
