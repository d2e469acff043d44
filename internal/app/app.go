package app

import (
	"net/http"

	"agenthq-backend/internal/auth"
	"agenthq-backend/internal/config"
	"agenthq-backend/internal/database"
	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/emails"
	"agenthq-backend/internal/health"
	"agenthq-backend/internal/invitations"
	"agenthq-backend/internal/middleware"
	"agenthq-backend/internal/notifications"
	"agenthq-backend/internal/orgs"
	"agenthq-backend/internal/teams"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// gormPinger adapts *gorm.DB to the health check.
type gormPinger struct {
	db *gorm.DB
}

func (p *gormPinger) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all global middleware and route
// registration. Vercel invokes the returned handler via adaptor; the DB and
// Redis handles are returned for startup checks.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Session (Redis); the Redis client doubles for the health marker
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)

	// Health request marker (after session)
	app.Use(middleware.HealthMarker(rdb))

	// Tracing + route logger
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	var dbPinger health.DBPinger
	if db != nil {
		dbPinger = &gormPinger{db: db}
	}

	// --- Routes (no auth) ---
	healthHandlers := &health.Handlers{
		Rdb:          rdb,
		DB:           dbPinger,
		DirectoryURL: cfg.DirectoryBaseURL,
		AdminKeyHash: cfg.HealthAdminKeyHash,
	}
	app.Get("/", healthHandlers.Dashboard)
	app.Get("/reset", healthHandlers.Reset)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)

	// Identity directory client, shared by all modules
	dir := &directory.HTTPClient{
		BaseURL:      cfg.DirectoryBaseURL,
		ClientID:     cfg.DirectoryClientID,
		ClientSecret: cfg.DirectoryClientSecret,
		Audience:     cfg.DirectoryAudience,
		Client:       http.DefaultClient,
	}

	// Auth (no auth middleware): POST login, GET me, DELETE logout
	authHandlers := &auth.Handlers{
		Verifier: dir,
		Rdb:      rdb,
		Config:   sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	// --- Protected modules (auth required) ---
	if db != nil && rdb != nil {
		notifier := &notifications.Dispatcher{
			DB: db,
			Sender: &emails.BrevoClient{
				APIKey:   cfg.SendinblueAPIKey,
				MailFrom: cfg.MailFrom,
			},
			InviteBaseURL: cfg.InviteBaseURL,
		}

		// Invitations module
		invService := &invitations.Service{
			DB:         db,
			Directory:  dir,
			Reconciler: &invitations.Reconciler{DB: db, Directory: dir},
			Notifier:   notifier,
		}
		invHandlers := &invitations.Handlers{Service: invService}
		invGroup := app.Group("/api/v1/invitations", middleware.RequireAuth())
		invGroup.Post("/create-invite", invHandlers.CreateInvite)
		invGroup.Post("/accept-invite", invHandlers.AcceptInvite)
		invGroup.Post("/reject-invite", invHandlers.RejectInvite)
		invGroup.Patch("/rescind-invite", invHandlers.RescindInvite)
		invGroup.Get("/view-invites", invHandlers.ListForTarget)
		invGroup.Get("/my-rsvps", invHandlers.MyRsvps)

		// Teams module
		teamService := &teams.Service{Directory: dir, Notifier: notifier}
		teamHandlers := &teams.Handlers{Service: teamService}
		teamGroup := app.Group("/api/v1/teams", middleware.RequireAuth())
		teamGroup.Post("/create-team", teamHandlers.CreateTeam)
		teamGroup.Get("/view-team/:id", teamHandlers.ViewTeam)
		teamGroup.Get("/my-teams", teamHandlers.MyTeams)
		teamGroup.Delete("/remove-member", teamHandlers.RemoveMember)

		// Orgs module
		orgService := &orgs.Service{Directory: dir, Notifier: notifier, Invitations: invService}
		orgHandlers := &orgs.Handlers{Service: orgService}
		orgGroup := app.Group("/api/v1/orgs", middleware.RequireAuth())
		orgGroup.Post("/create-org", orgHandlers.CreateOrg)
		orgGroup.Get("/view-org/:id", orgHandlers.ViewOrg)
		orgGroup.Get("/my-orgs", orgHandlers.MyOrgs)
		orgGroup.Post("/add-team", orgHandlers.AddTeam)
		orgGroup.Get("/org-teams/:id", orgHandlers.OrgTeams)
		orgGroup.Delete("/remove-member", orgHandlers.RemoveMember)
	}

	return app, db, rdb, nil
}

// Handler returns an http.Handler for Vercel (Fiber app as net/http handler).
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
