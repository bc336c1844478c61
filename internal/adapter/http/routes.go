package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Requests
		r.Post("/requests", h.PlanRequest)
		r.Get("/requests", h.ListRequests)
		r.Post("/requests/{id}/next-task", h.NextTask)
		r.Post("/requests/{id}/approve", h.ApproveRequest)
		r.Get("/requests/{id}/progress", h.RequestProgress)
		r.Post("/requests/{id}/tasks", h.AddTasks)

		// Tasks (nested under requests)
		r.Post("/requests/{id}/tasks/{taskID}/done", h.MarkTaskDone)
		r.Post("/requests/{id}/tasks/{taskID}/approve", h.ApproveTask)
		r.Patch("/requests/{id}/tasks/{taskID}", h.UpdateTask)
		r.Delete("/requests/{id}/tasks/{taskID}", h.DeleteTask)

		// Tasks (direct access)
		r.Get("/tasks/{taskID}", h.GetTask)

		// Admin
		r.Delete("/data", h.ClearData)
	})
}
