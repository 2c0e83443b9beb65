package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/capturedeck/capturedeck/internal/account"
	"github.com/capturedeck/capturedeck/internal/adminauth"
	"github.com/capturedeck/capturedeck/internal/api/handlers"
	"github.com/capturedeck/capturedeck/internal/api/middleware"
	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/auth"
	"github.com/capturedeck/capturedeck/internal/cache"
	"github.com/capturedeck/capturedeck/internal/capture"
	"github.com/capturedeck/capturedeck/internal/config"
	"github.com/capturedeck/capturedeck/internal/invitation"
	"github.com/capturedeck/capturedeck/internal/org"
	"github.com/capturedeck/capturedeck/internal/passkey"
	"github.com/capturedeck/capturedeck/internal/queue"
	"github.com/capturedeck/capturedeck/internal/session"
	"github.com/capturedeck/capturedeck/internal/task"
	"github.com/capturedeck/capturedeck/internal/token"
)

type Router struct {
	cfg *config.Config
	db  *pgxpool.Pool
	rdb *redis.Client

	accounts    *account.Service
	tokens      *token.Service
	sessions    *session.Service
	passkeys    *passkey.Service
	orgs        *org.Service
	invitations *invitation.Service
	admin       *adminauth.Service
	captures    *capture.Service
	tasks       *task.Service
	audits      *audit.Service
	queue       *queue.Client
}

type Deps struct {
	Config      *config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Accounts    *account.Service
	Tokens      *token.Service
	Sessions    *session.Service
	Passkeys    *passkey.Service
	Orgs        *org.Service
	Invitations *invitation.Service
	Admin       *adminauth.Service
	Captures    *capture.Service
	Tasks       *task.Service
	Audits      *audit.Service
	Queue       *queue.Client
}

func NewRouter(d Deps) *Router {
	return &Router{
		cfg:         d.Config,
		db:          d.DB,
		rdb:         d.Redis,
		accounts:    d.Accounts,
		tokens:      d.Tokens,
		sessions:    d.Sessions,
		passkeys:    d.Passkeys,
		orgs:        d.Orgs,
		invitations: d.Invitations,
		admin:       d.Admin,
		captures:    d.Captures,
		tasks:       d.Tasks,
		audits:      d.Audits,
		queue:       d.Queue,
	}
}

func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Passkey.RPOrigins))

	secure := rt.cfg.Auth.SecureCookies

	authHandler := handlers.NewAuthHandler(rt.accounts, rt.passkeys, rt.sessions, rt.orgs, rt.invitations, rt.audits, secure)
	tokenHandler := handlers.NewTokenHandler(rt.tokens, rt.audits)
	passkeyHandler := handlers.NewPasskeyHandler(rt.passkeys, rt.accounts, rt.audits)
	orgHandler := handlers.NewOrgHandler(rt.orgs, rt.invitations, rt.audits)
	captureHandler := handlers.NewCaptureHandler(rt.captures)
	taskHandler := handlers.NewTaskHandler(rt.tasks)
	adminHandler := handlers.NewAdminHandler(rt.admin, rt.orgs, rt.audits, rt.queue, secure)
	healthHandler := handlers.NewHealthHandler(rt.db, rt.rdb)

	authn := auth.NewMiddleware(rt.tokens, rt.sessions)
	limiter := middleware.NewRateLimiter(cache.NewCache(rt.rdb), 20, time.Minute)

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		// Public ceremony endpoints, rate limited per IP.
		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit)
			r.Post("/auth/signup/begin", authHandler.SignupBegin)
			r.Post("/auth/signup/finish", authHandler.SignupFinish)
			r.Post("/auth/login/begin", authHandler.LoginBegin)
			r.Post("/auth/login/finish", authHandler.LoginFinish)
			r.Post("/auth/invitations/validate", authHandler.ValidateInvitation)
			r.Post("/admin/login", adminHandler.Login)
		})

		// Session or API token required.
		r.Group(func(r chi.Router) {
			r.Use(authn.Authenticate)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/session", authHandler.Session)
			r.Post("/auth/session/switch", authHandler.SwitchOrganization)
			r.Post("/auth/sessions/revoke-all", authHandler.RevokeAllSessions)
			r.Post("/auth/join", authHandler.Join)

			r.Get("/tokens", tokenHandler.List)
			r.Post("/tokens", tokenHandler.Create)
			r.Delete("/tokens/{id}", tokenHandler.Revoke)

			r.Get("/passkeys", passkeyHandler.List)
			r.Post("/passkeys/begin", passkeyHandler.AddBegin)
			r.Post("/passkeys/finish", passkeyHandler.AddFinish)
			r.Delete("/passkeys/{id}", passkeyHandler.Delete)

			r.Get("/organizations", orgHandler.ListMine)
			r.Get("/organizations/members", orgHandler.ListMembers)
			r.Delete("/organizations/members/{userID}", orgHandler.RemoveMember)
			r.Post("/organizations/leave", orgHandler.Leave)
			r.Get("/organizations/invitations", orgHandler.ListInvitations)
			r.Post("/organizations/invitations", orgHandler.CreateInvitation)
			r.Delete("/organizations/invitations/{id}", orgHandler.RevokeInvitation)

			r.Get("/captures", captureHandler.List)
			r.Post("/captures", captureHandler.Create)
			r.Get("/captures/{id}", captureHandler.Get)
			r.Post("/captures/{id}/processed", captureHandler.MarkProcessed)
			r.Delete("/captures/{id}", captureHandler.Delete)

			r.Get("/tasks", taskHandler.List)
			r.Post("/tasks", taskHandler.Create)
			r.Get("/tasks/{id}", taskHandler.Get)
			r.Patch("/tasks/{id}/status", taskHandler.UpdateStatus)
			r.Delete("/tasks/{id}", taskHandler.Delete)
		})

		// Admin cookie required; separate surface from user auth.
		r.Group(func(r chi.Router) {
			r.Use(adminHandler.Require)
			r.Post("/admin/logout", adminHandler.Logout)
			r.Get("/admin/organizations", adminHandler.ListOrganizations)
			r.Get("/admin/audit-logs", adminHandler.ListAuditLogs)
			r.Post("/admin/maintenance/session-cleanup", adminHandler.TriggerSessionCleanup)
		})
	})

	return r
}
