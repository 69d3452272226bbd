package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"enemtri/adapters/jsoncache"
	"enemtri/adapters/postgres"
	"enemtri/app"
	"enemtri/internal"
	"enemtri/internal/config"
	"enemtri/internal/i18n"
	"enemtri/internal/migration"
	"enemtri/internal/report"
	"enemtri/internal/userdata"
	"enemtri/ports"
	"enemtri/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	godotenv.Load()

	logger := internal.NewDefaultLogger().WithComponent("main")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration: %v", err)
		os.Exit(1)
	}

	store, cleanup, err := buildStore(cfg, logger)
	if err != nil {
		logger.Error("statistics store: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	locale := cfg.Estimation.Locale
	if locale == "" {
		locale = i18n.DefaultLocale
	}
	translator, err := i18n.New(locale)
	if err != nil {
		logger.Error("locale %q: %v", locale, err)
		os.Exit(1)
	}

	service := app.NewSimulationService(
		store,
		userdata.NewLoader(cfg.Paths.UserDataFile),
		cfg.Estimation.ReferenceYear,
		cfg.Estimation.ConfidenceLevel,
		internal.DefaultLogger,
	)
	httpApp := ui.NewApp(service, report.NewBuilder(translator), internal.DefaultLogger)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: httpApp,
	}

	go func() {
		logger.Info("listening on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown: %v", err)
	}
}

// buildStore picks the statistics backend: Postgres when DATABASE_URL is
// set, the JSON file cache otherwise.
func buildStore(cfg *config.Config, logger *internal.Logger) (ports.StatisticsStore, func(), error) {
	if !cfg.Database.Enabled() {
		store, err := jsoncache.NewStore(cfg.Paths.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using JSON statistics cache under %s", cfg.Paths.DataDir)
		return store, func() {}, nil
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.NewRunner().Run(context.Background(), db); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("using Postgres statistics store")
	return postgres.NewStatisticsRepository(db), func() { db.Close() }, nil
}
