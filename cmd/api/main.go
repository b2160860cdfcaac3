package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/postgresql"
	balanceService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/balance"
	employeeService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/service/file"
	justificationService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/justification"
	punchService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/punch"
)

var version = "dev"

const usage = `Usage: api [command]

Commands:
  serve     run the HTTP API (default)
  migrate   apply the database schema and exit
  token     mint an access token for a terminal
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.SlogLevel(cfg.App.LogLevel),
	})))

	cmd := flag.Arg(0)
	switch cmd {
	case "", "serve":
		err = serve(cfg)
	case "migrate":
		err = migrate(cfg)
	case "token":
		err = mintToken(cfg, flag.Args()[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func migrate(cfg *config.Config) error {
	db, err := database.NewPostgreSQLDB(context.Background(), cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := postgresql.Migrate(context.Background(), db); err != nil {
		return err
	}
	slog.Info("Schema applied")
	return nil
}

func mintToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	companyID := fs.String("company", "", "company id")
	role := fs.String("role", string(user.RoleEmployee), "owner, manager or employee")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("-user is required")
	}

	identity := user.Identity{UserID: *userID, Role: user.Role(*role)}
	if *companyID != "" {
		identity.CompanyID = companyID
	}

	token, expiresAt, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration).GenerateAccessToken(identity)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	fmt.Println(token)
	slog.Info("Token issued", "user_id", *userID, "expires_at", time.Unix(expiresAt, 0).UTC())
	return nil
}

func newFileStorage(ctx context.Context, cfg config.StorageConfig) (storage.FileStorage, error) {
	switch cfg.Type {
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
		})
	default:
		return storage.NewLocalStorage(cfg.BasePath, cfg.BaseURL)
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := postgresql.Migrate(ctx, db); err != nil {
		return err
	}

	punchRepo := postgresql.NewPunchRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	companyRepo := postgresql.NewCompanyRepository(db)
	justificationRepo := postgresql.NewJustificationRepository(db)

	fileStorage, err := newFileStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Type, err)
	}
	fileService := file.NewFileService(fileStorage)
	hub := sse.NewHub()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	punchSvc := punchService.NewPunchService(punchRepo, employeeRepo, fileService, hub, cfg.App.TimeZone)
	balanceSvc := balanceService.NewBalanceService(punchRepo, justificationRepo, balanceService.Options{
		ExpectedDailyMinutes: cfg.Balance.ExpectedDailyMinutes,
		WeekendsOff:          cfg.Balance.WeekendsOff,
		Location:             cfg.App.TimeZone,
	})
	justificationSvc := justificationService.NewJustificationService(justificationRepo, fileService, hub)
	employeeSvc := employeeService.NewEmployeeService(employeeRepo, companyRepo, cfg.Punch.DefaultRadiusMeters)

	routerOpts := appHTTP.RouterOptions{
		AllowedOrigins: cfg.App.AllowedOrigins,
		Env:            cfg.App.Env,
		Version:        version,
		LogLevel:       config.SlogLevel(cfg.App.LogLevel),
	}
	if cfg.Storage.Type == "local" {
		routerOpts.UploadsDir = cfg.Storage.BasePath
	}

	router := appHTTP.NewRouter(
		routerOpts,
		JWTService,
		appHTTP.NewPunchHandler(punchSvc),
		appHTTP.NewJustificationHandler(justificationSvc),
		appHTTP.NewBalanceHandler(balanceSvc),
		appHTTP.NewEmployeeHandler(employeeSvc),
		appHTTP.NewEventHandler(JWTService, hub),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env, "version", version)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
