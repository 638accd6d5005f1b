package server

import (
	"net/http"

	"github.com/campuskit/go-attendance-engine/attendance"
	"github.com/campuskit/go-attendance-engine/internal/config"
	"github.com/campuskit/go-attendance-engine/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server exposes the attendance engine over HTTP. It owns no validation
// logic itself; handlers translate requests into engine calls and verdicts
// into responses.
type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config
	engine *attendance.Engine
	issuer *token.Issuer
	repos  attendance.Repos
}

func New(config config.Config, repos attendance.Repos, engine *attendance.Engine, issuer *token.Issuer) (*Server, error) {
	if engine == nil {
		return nil, errors.New("[Server.New] engine is required")
	}
	if issuer == nil {
		return nil, errors.New("[Server.New] issuer is required")
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: config,
		engine: engine,
		issuer: issuer,
		repos:  repos,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	for _, route := range s.routes {
		log.Info().Str("route", route).Msg("registered")
	}
}
