package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/agencia-api/internal/application/auth"
	"github.com/jhoicas/agencia-api/internal/application/clients"
	"github.com/jhoicas/agencia-api/internal/application/documents"
	"github.com/jhoicas/agencia-api/internal/infrastructure/email"
	infrapdf "github.com/jhoicas/agencia-api/internal/infrastructure/pdf"
	"github.com/jhoicas/agencia-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/agencia-api/internal/interfaces/http"
	"github.com/jhoicas/agencia-api/pkg/config"
	"github.com/jhoicas/agencia-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	docRepo := postgres.NewDocumentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Notificaciones: sin SMTP_HOST el dispatcher descarta en silencio.
	var mailer documents.Mailer
	if m := email.NewGomailMailer(cfg.SMTP); m != nil {
		mailer = m
	}
	dispatcher := documents.NewDispatcher(mailer, cfg.Billing.NotifyTo, log)

	issuer := documents.NewNumberIssuer(
		cfg.Billing.InvoicePrefix,
		cfg.Billing.ProposalPrefix,
		cfg.Billing.ContractPrefix,
	)
	documentSvc := documents.NewDocumentService(txRunner, docRepo, clientRepo, issuer, dispatcher)

	pdfRenderer := infrapdf.NewMarotoDocumentRenderer()
	pdfUC := documents.NewPDFUseCase(docRepo, clientRepo, pdfRenderer)

	clientUC := clients.NewUseCase(clientRepo)
	authUC := auth.NewUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Agencia Ops API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		DocumentSvc: documentSvc,
		PDFUC:       pdfUC,
		ClientUC:    clientUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Drenar notificaciones en vuelo antes de salir.
	dispatcher.Wait()

	log.Info().Msg("aplicación detenida")
}
