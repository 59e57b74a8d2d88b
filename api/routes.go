package main

import (
	"net/http"
)

// composeRoutes wires every endpoint. Only plan and task creation demand a
// bearer token; the remaining endpoints are open, matching the behavior of
// the service this one replaces.
func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthcheck", app.healthCheckHandler)

	mux.HandleFunc("POST /auth/token", app.authenticateUserHandler)

	mux.HandleFunc("POST /users/{$}", app.createUserHandler)
	mux.HandleFunc("GET /users/{$}", app.getUsersHandler)
	mux.HandleFunc("PUT /users/{id}", app.updateUserHandler)
	mux.HandleFunc("DELETE /users/{id}", app.deleteUserHandler)

	mux.HandleFunc("POST /plans/{$}", app.requireAuthenticatedUser(app.createPlanHandler))
	mux.HandleFunc("GET /plans/{$}", app.getPlansHandler)
	mux.HandleFunc("PUT /plans/{id}", app.updatePlanHandler)
	mux.HandleFunc("DELETE /plans/{id}", app.deletePlanHandler)

	mux.HandleFunc("POST /tasks/{$}", app.requireAuthenticatedUser(app.createTaskHandler))
	mux.HandleFunc("GET /tasks/{$}", app.getTasksHandler)
	mux.HandleFunc("PUT /tasks/{id}", app.updateTaskHandler)
	mux.HandleFunc("DELETE /tasks/{id}", app.deleteTaskHandler)

	return app.enableCORS(logRequests(mux))
}
