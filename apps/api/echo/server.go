package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/catalog"
	"github.com/trezcool/shule/core/organization"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger          core.Logger
		SignalShutdown  func()
		CatalogSvc      catalog.Service
		OrganizationSvc organization.Service
		StaffSvc        staff.Service
		StudentSvc      student.Service
		BillingSvc      billing.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerStaffAPI(v1, jwt, s.opts.StaffSvc)
	registerOrganizationAPI(v1, jwt, s.opts.OrganizationSvc)
	registerCatalogAPI(v1, jwt, s.opts.CatalogSvc, s.opts.StaffSvc)
	registerStudentAPI(v1, jwt, s.opts.StudentSvc, s.opts.StaffSvc)
	registerBillingAPI(v1, jwt, s.opts.BillingSvc, s.opts.StaffSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}
