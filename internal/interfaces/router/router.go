package router

import (
	authsvc "approvalflow-backend/internal/application/auth"
	dashsvc "approvalflow-backend/internal/application/dashboard"
	emailsvc "approvalflow-backend/internal/application/emails"
	invsvc "approvalflow-backend/internal/application/invitations"
	"approvalflow-backend/internal/application/membership"
	orgsvc "approvalflow-backend/internal/application/org"
	userssvc "approvalflow-backend/internal/application/users"
	wfsvc "approvalflow-backend/internal/application/workflows"
	"approvalflow-backend/internal/config"
	"approvalflow-backend/internal/infrastructure/database"
	authhandler "approvalflow-backend/internal/interfaces/handlers/auth"
	dashhandler "approvalflow-backend/internal/interfaces/handlers/dashboard"
	healthhandler "approvalflow-backend/internal/interfaces/handlers/health"
	invhandler "approvalflow-backend/internal/interfaces/handlers/invitations"
	orghandler "approvalflow-backend/internal/interfaces/handlers/org"
	usershandler "approvalflow-backend/internal/interfaces/handlers/users"
	wfhandler "approvalflow-backend/internal/interfaces/handlers/workflows"
	"approvalflow-backend/internal/middleware"
	"approvalflow-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all middleware and routes wired.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionHandler, rdb, err := middleware.Session(middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Status)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}
	if err := database.SeedRoles(db); err != nil {
		return nil, nil, nil, err
	}
	hh.DB = &gormDBPinger{db: db}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	var sender emailsvc.Sender = emailsvc.LogSender{}
	if cfg.BrevoAPIKey != "" {
		sender = &emailsvc.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}
	}
	assigner := &membership.GormAssigner{DB: db}

	// Auth
	as := &authsvc.Service{DB: db, Sender: sender, BaseURL: cfg.AppBaseURL}
	ah := &authhandler.Handlers{Service: as, Rdb: rdb, Config: sessionCfg}
	ag := app.Group("/api/v1/auth")
	ag.Post("/register", ah.Register)
	ag.Post("/confirm-email", ah.ConfirmEmail)
	ag.Post("/login", ah.Login)
	ag.Get("/me", ah.Me)
	ag.Delete("/logout", ah.Logout)

	// Organizations
	os := &orgsvc.Service{DB: db, Assigner: assigner}
	oh := &orghandler.Handlers{Service: os, Config: sessionCfg}
	og := app.Group("/api/v1/orgs", middleware.RequireAuth())
	og.Post("/onboard", oh.Onboard)
	og.Get("/view-org", middleware.AuthorizePermission(constants.ViewData), oh.View)
	og.Patch("/update-org", middleware.AuthorizePermission(constants.UpdateOrg), oh.Update)

	// Members
	us := &userssvc.Service{DB: db, Rdb: rdb, Assigner: assigner}
	uh := &usershandler.Handlers{Service: us}
	ug := app.Group("/api/v1/users", middleware.RequireAuth())
	ug.Get("/view-users", middleware.AuthorizePermission(constants.ViewData), uh.List)
	ug.Patch("/update-role", middleware.AuthorizePermission(constants.AssignRole), uh.UpdateRole)
	ug.Delete("/remove-user", middleware.AuthorizePermission(constants.RemoveUser), uh.Remove)

	// Invitations (token endpoints are public: invitees have no account yet)
	is := &invsvc.Service{DB: db, Assigner: assigner, Sender: sender, InviteBaseURL: cfg.AppBaseURL}
	ih := &invhandler.Handlers{Service: is, Rdb: rdb, Config: sessionCfg}
	app.Get("/api/v1/invitations/public/check-token", ih.CheckToken)
	app.Post("/api/v1/invitations/public/accept", ih.Accept)
	ig := app.Group("/api/v1/invitations", middleware.RequireAuth())
	ig.Post("/create-invite", middleware.AuthorizePermission(constants.InviteUser), ih.Create)
	ig.Post("/resend-invite", middleware.AuthorizePermission(constants.InviteUser), ih.Resend)
	ig.Delete("/cancel-invite", middleware.AuthorizePermission(constants.InviteUser), ih.Cancel)
	ig.Get("/view-invites", middleware.AuthorizePermission(constants.InviteUser), ih.List)

	// Workflows
	ws := &wfsvc.Service{DB: db, Steps: &wfsvc.GormStepInserter{DB: db}}
	wh := &wfhandler.Handlers{Service: ws}
	wg := app.Group("/api/v1/workflows", middleware.RequireAuth())
	wg.Get("/templates", middleware.AuthorizePermission(constants.ViewData), wh.Templates)
	wg.Post("/create-workflow", middleware.AuthorizePermission(constants.CreateWorkflow), wh.Create)
	wg.Get("/view-workflows", middleware.AuthorizePermission(constants.ViewData), wh.List)
	wg.Get("/view-workflow/:id", middleware.AuthorizePermission(constants.ViewData), wh.Get)
	wg.Patch("/update-workflow/:id", middleware.AuthorizePermission(constants.ManageWorkflows), wh.Update)
	wg.Delete("/delete-workflow/:id", middleware.AuthorizePermission(constants.ManageWorkflows), wh.Delete)

	// Dashboard
	ds := &dashsvc.Service{DB: db}
	dh := &dashhandler.Handlers{Service: ds}
	dg := app.Group("/api/v1/dashboard", middleware.RequireAuth())
	dg.Get("/summary", middleware.AuthorizePermission(constants.ViewData), dh.Summary)

	return app, db, rdb, nil
}
