// Package hrfake is an in-memory implementation of the HR REST API for local
// development and integration tests.
package hrfake

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
	"github.com/guarzo/hrapi/internal/config"
)

// Options configures a Server. Zero values take the defaults below.
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now is the clock used for token issue and expiry.
	Now func() time.Time
}

const (
	defaultSecret     = "dev-secret-change-me"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// OptionsFromConfig maps the hrfake section of the configuration.
func OptionsFromConfig(cfg config.FakeConfig) Options {
	return Options{
		Secret:     cfg.Secret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
}

// Server is the fake backend.
type Server struct {
	app    *fiber.App
	store  *store
	tokens *tokenIssuer
}

func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = defaultSecret
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = defaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = defaultRefreshTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		store:  newStore(),
		tokens: newTokenIssuer(opts.Secret, opts.AccessTTL, opts.RefreshTTL, opts.Now),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "hrfake",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.routes()
	return s
}

// App exposes the fiber application, for Listen and Shutdown.
func (s *Server) App() *fiber.App { return s.app }

// Handler adapts the application to net/http, for httptest.
func (s *Server) Handler() http.Handler { return adaptor.FiberApp(s.app) }

func (s *Server) routes() {
	app := s.app
	app.Use(fiberrecover.New())
	app.Use(requestLogger)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	a := app.Group("/auth")
	a.Post("/login", s.login)
	a.Post("/refresh", s.refresh)
	a.Post("/logout", s.requireAuth, s.logout)

	// order matters: fixed segments before parameters
	emp := app.Group("/employee", s.requireAuth)
	emp.Get("/info", s.getInfo)
	emp.Get("/role-list", s.listRoles)
	emp.Get("/search", s.searchEmployees)
	emp.Get("/admin", requireRole(model.RoleAdmin), s.listEmployees)
	emp.Get("/project-history/:id", s.projectHistory)
	emp.Put("/change-role", requireRole(model.RoleAdmin), s.changeRole)
	emp.Post("/", requireRole(model.RoleAdmin), s.createEmployee)
	emp.Put("/", requireRole(model.RoleAdmin), s.updateEmployee)
	emp.Delete("/:id", requireRole(model.RoleAdmin), s.deleteEmployee)
	emp.Get("/:projectId/:employeeId", s.participationPeriods)

	prj := app.Group("/project", s.requireAuth)
	prj.Get("/admin", requireRole(model.RoleAdmin), s.listProjects)
	prj.Get("/project-manager", requireRole(model.RoleAdmin, model.RolePM), s.managedProjects)
	prj.Post("/assign", requireRole(model.RoleAdmin, model.RolePM), s.assign)
	prj.Put("/update-assignment", requireRole(model.RoleAdmin, model.RolePM), s.updateAssignment)
	prj.Post("/", requireRole(model.RoleAdmin), s.createProject)
	prj.Put("/", requireRole(model.RoleAdmin), s.updateProject)
	prj.Get("/:id/members", s.members)
	prj.Delete("/:id", requireRole(model.RoleAdmin), s.deleteProject)
	prj.Get("/:id", s.employeeProjects)
}

// requireAuth validates the bearer access token and stores the caller in Locals.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	raw, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !found || raw == "" {
		return fail(c, fiber.StatusUnauthorized, "Authentication required")
	}
	id, role, err := s.tokens.validate(raw)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid or expired token")
	}
	emp, exists := s.store.employee(id)
	if !exists {
		return fail(c, fiber.StatusUnauthorized, "Unknown user")
	}
	// role changes take effect on the next token
	c.Locals("employeeId", id)
	c.Locals("role", role)
	c.Locals("email", emp.Email)
	return c.Next()
}

// requireRole checks if user has one of the required roles
func requireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		for _, r := range allowed {
			if role == r {
				return c.Next()
			}
		}
		return fail(c, fiber.StatusForbidden, "Insufficient permissions")
	}
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	log.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("took", time.Since(start)).
		Str("request_id", c.Get(common.RequestIDHeader)).
		Msg("hrfake request")
	return err
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(model.Envelope[interface{}]{Data: data, Message: "success"})
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}

// failErr maps store errors onto HTTP statuses.
func failErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrInvalidRequest):
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	} else {
		log.Err(err).Str("path", c.Path()).Msg("hrfake handler failed")
	}
	return fail(c, code, err.Error())
}
