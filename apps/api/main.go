package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/catalog"
	"github.com/trezcool/shule/core/organization"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

func main() {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), core.Conf)
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	if err := run(logger); err != nil {
		logger.Fatal("running server", err)
	}
}

func run(logger core.Logger) error {
	// set up DB
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return err
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer db.Close()
	if err = database.Migrate(db.DB); err != nil {
		return err
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	catalogSvc := catalog.NewService(db, sqlxrepos.NewCatalogRepository(db))
	orgSvc := organization.NewService(sqlxrepos.NewOrganizationRepository(db))
	staffSvc := staff.NewService(sqlxrepos.NewStaffRepository(db), mailSvc)
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), catalogSvc)
	billingSvc := billing.NewService(sqlxrepos.NewBillingRepository(db), catalogSvc)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		&echoapi.Options{
			Address:         core.Conf.Server.Address(),
			Logger:          logger,
			SignalShutdown:  func() { shutdown <- syscall.SIGTERM },
			CatalogSvc:      catalogSvc,
			OrganizationSvc: orgSvc,
			StaffSvc:        staffSvc,
			StudentSvc:      studentSvc,
			BillingSvc:      billingSvc,
		},
	)

	serverErrs := make(chan error, 1)
	go func() {
		logger.Info("server listening on " + core.Conf.Server.Address())
		serverErrs <- app.Start()
	}()

	select {
	case err := <-serverErrs:
		return err
	case sig := <-shutdown:
		logger.Info("shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			logger.Error("could not stop server gracefully", err)
			return err
		}
	}
	return nil
}
