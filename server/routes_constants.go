package server

const (
	RouteHealth         = "/healthz"
	RouteSessions       = "/api/sessions"
	RouteSessionCheckIn = "/api/sessions/{sessionID}/check-in"
	RouteSessionsByKey  = "/api/sessions/by-key/{sessionKey}"
	RouteSessionEnd     = "/api/sessions/{sessionID}"
	RouteSessionRecords = "/api/sessions/{sessionID}/records"
)
