/**
 * @description
 * This file sets up the HTTP router for the back-office service. It defines the
 * API endpoints, associates them with their corresponding handlers, and applies
 * the middleware stack: request logging, panic recovery, timeouts, CORS,
 * client IP extraction and bearer token authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/meridianbank/backoffice-service/internal/app"
	"github.com/meridianbank/backoffice-service/internal/store"
)

// Routes creates and returns the router for the back-office service.
func Routes(h *Handlers, auth *app.AuthService, repo store.Repository, allowedOrigins string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(ClientIPMiddleware)

	origins := []string{"*"}
	if trimmed := strings.TrimSpace(allowedOrigins); trimmed != "" {
		origins = strings.Split(trimmed, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		// Public endpoints.
		r.Post("/auth/register", h.RegisterHandler)
		r.Post("/auth/login", h.LoginHandler)
		r.Post("/auth/refresh", h.RefreshHandler)

		// Everything else requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(auth, repo))

			r.Get("/auth/me", h.MeHandler)
			r.Put("/auth/me", h.UpdateProfileHandler)
			r.Post("/auth/change-password", h.ChangePasswordHandler)
			r.Get("/auth/permissions", h.PermissionsHandler)

			r.Post("/accounts", h.OpenAccountHandler)
			r.Get("/accounts", h.ListOwnAccountsHandler)
			r.Get("/accounts/{accountNumber}", h.GetAccountHandler)
			r.Post("/accounts/{accountNumber}/close", h.CloseAccountHandler)
			r.Get("/accounts/{accountNumber}/transactions", h.ListAccountTransactionsHandler)

			r.Post("/transfers/internal", h.InternalTransferHandler)
			r.Post("/transfers/external", h.ExternalTransferHandler)
			r.Get("/transactions/{transactionID}", h.GetTransactionHandler)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", h.ListUsersByRoleHandler)
				r.Get("/users/{userID}", h.GetUserHandler)
				r.Put("/users/{userID}/role", h.AssignRoleHandler)
				r.Put("/users/{userID}/active", h.SetUserActiveHandler)
				r.Get("/users/{userID}/accounts", h.ListUserAccountsHandler)
				r.Post("/accounts/{accountNumber}/freeze", h.FreezeAccountHandler)
				r.Post("/accounts/{accountNumber}/unfreeze", h.UnfreezeAccountHandler)
				r.Get("/accounts/{accountNumber}/transactions", h.FilterAccountTransactionsHandler)
				r.Get("/transactions", h.ListAllTransactionsHandler)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Get("/logs", h.ListAuditLogsHandler)
				r.Get("/users/{userID}", h.ListUserAuditLogsHandler)
			})

			r.Route("/support", func(r chi.Router) {
				r.Post("/tickets", h.OpenTicketHandler)
				r.Get("/tickets", h.ListOwnTicketsHandler)
				r.Get("/tickets/open", h.ListOpenTicketsHandler)
				r.Get("/tickets/{ticketID}", h.GetTicketHandler)
				r.Put("/tickets/{ticketID}/status", h.UpdateTicketStatusHandler)
				r.Post("/tickets/{ticketID}/notes", h.AddTicketNoteHandler)
				r.Get("/tickets/{ticketID}/notes", h.ListTicketNotesHandler)
			})
		})
	})

	return r
}
