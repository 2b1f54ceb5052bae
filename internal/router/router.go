// Package router wires the application's routes into a Server.
//
// System endpoints (health, metrics) are plain echo handlers; everything
// else is a handler.Route registered through the server so it gets
// upstream validation, the handler pipeline and a place in the API docs.
package router

import (
	"github.com/deppfellow/servicekit/internal/docs"
	"github.com/deppfellow/servicekit/internal/handler"
	"github.com/deppfellow/servicekit/internal/server"
)

// Routes returns the application routes in registration order.
func Routes(h *handler.Handlers) []handler.Route {
	var routes []handler.Route
	routes = append(routes, h.User.Routes()...)
	return routes
}

// Setup registers docs (when enabled), the system routes and h's routes,
// then installs the global error handler. The server is ready to listen
// when Setup returns nil.
func Setup(s *server.Server, h *handler.Handlers) error {
	if s.Config.Docs.Enabled {
		info := docs.Info{
			Title:   s.Config.Docs.Title,
			Version: s.Config.Docs.Version,
		}
		if err := s.RegisterDocs(info); err != nil {
			return err
		}
	}

	registerSystemRoutes(s, h)

	if err := s.RegisterRoutes(Routes(h)...); err != nil {
		return err
	}

	return s.InstallErrorHandler()
}
