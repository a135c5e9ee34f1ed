package app

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"snapmaster-gcp/internal/server"
)

// writeSlack is added on top of ACTION_TIMEOUT so a script that runs to its
// limit can still report its result
const writeSlack = time.Minute

// RunServer builds the router and the HTTP server around it
func (app *App) RunServer() (*server.Server, http.Handler) {
	router := mux.NewRouter()
	SetupRoutes(router, app.Handlers, app.JWT.Middleware, app.InitializeRateLimiter(), app.Logger)

	serverConfig := server.DefaultConfig()
	if minWrite := app.Config.ActionTimeout + writeSlack; minWrite > serverConfig.WriteTimeout {
		serverConfig.WriteTimeout = minWrite
	}

	return server.New(router, app.Config.Port, serverConfig), router
}
