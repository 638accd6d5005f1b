package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Session management (teacher role)
	s.RegisterRouteHandler("POST "+RouteSessions, ChainMiddleware(s.CreateSessionHandler(), s.APIMiddleware(s.RequireAuth(RoleTeacher))...))
	s.RegisterRouteHandler("DELETE "+RouteSessionEnd, ChainMiddleware(s.EndSessionHandler(), s.APIMiddleware(s.RequireAuth(RoleTeacher))...))
	s.RegisterRouteHandler("GET "+RouteSessionRecords, ChainMiddleware(s.SessionRecordsHandler(), s.APIMiddleware(s.RequireAuth(RoleTeacher))...))

	// Check-in (student role)
	s.RegisterRouteHandler("POST "+RouteSessionCheckIn, ChainMiddleware(s.CheckInHandler(), s.APIMiddleware(s.RequireAuth(RoleStudent))...))
	s.RegisterRouteHandler("GET "+RouteSessionsByKey, ChainMiddleware(s.SessionByKeyHandler(), s.APIMiddleware(s.RequireAuth(RoleStudent))...))
}
