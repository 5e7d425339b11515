package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tasktrack/internal/metrics"
	"tasktrack/internal/store"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withMetrics, s.withRequestLogging)
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	// Health check and metrics.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleAuthLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/auth/logout", s.handleAuthLogout)
			r.Get("/auth/me", s.handleAuthMe)
			r.Post("/auth/change-password", s.handleChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePasswordCurrent)

				// Lookups.
				r.Route("/departments", s.lookupRoutes(store.KindDepartment))
				r.Route("/roles", s.lookupRoutes(store.KindRole))
				r.Route("/statuses", s.lookupRoutes(store.KindTaskStatus))

				// Users.
				r.Route("/users", func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/", s.handleListUsers)
					r.Post("/", s.handleCreateUser)
					r.Get("/{id}", s.handleGetUser)
					r.Put("/{id}", s.handleUpdateUser)
					r.Delete("/{id}", s.handleDeleteUser)
					r.Post("/{id}/reset-password", s.handleResetPassword)
				})

				// Tasks.
				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", s.handleListTasks)
					r.Post("/", s.handleCreateTask)
					r.Get("/export", s.handleExportTasks)
					r.Get("/{id}", s.handleGetTask)
					r.Put("/{id}", s.handleUpdateTask)
					r.Delete("/{id}", s.handleDeleteTask)
				})

				// Attachments.
				r.Post("/file/upload-temp", s.handleUploadTemp)
				r.Get("/file/files/{id}", s.handleGetFile)
			})
		})
	})

	return r
}

func (s *Server) lookupRoutes(kind store.LookupKind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", s.handleListLookups(kind))
		r.Get("/{id}", s.handleGetLookup(kind))

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/", s.handleCreateLookup(kind))
			r.Put("/{id}", s.handleUpdateLookup(kind))
			r.Delete("/{id}", s.handleDeleteLookup(kind))
		})
	}
}
