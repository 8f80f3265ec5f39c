package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agencia-api/internal/application/auth"
	"github.com/jhoicas/agencia-api/internal/application/clients"
	"github.com/jhoicas/agencia-api/internal/application/documents"
	"github.com/jhoicas/agencia-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	DocumentSvc *documents.DocumentService
	PDFUC       *documents.PDFUseCase
	ClientUC    *clients.UseCase
	AuthUC      *auth.UseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Clients (protegido)
	clientsGroup := protected.Group("/clients")
	clientHandler := NewClientHandler(deps.ClientUC)
	clientsGroup.Post("/", clientHandler.Create)
	clientsGroup.Get("/", clientHandler.List)
	clientsGroup.Get("/:id", clientHandler.GetByID)
	clientsGroup.Put("/:id", clientHandler.Update)

	// Documents (protegido). Las transiciones solo para admin y editor;
	// lectura para cualquier usuario autenticado.
	docsGroup := protected.Group("/documents")
	documentHandler := NewDocumentHandler(deps.DocumentSvc, deps.PDFUC)
	docsGroup.Post("/", RequireRole(entity.RoleAdmin, entity.RoleEditor), documentHandler.Create)
	docsGroup.Get("/", documentHandler.List)
	docsGroup.Get("/:id", documentHandler.GetByID)
	docsGroup.Get("/:id/pdf", documentHandler.DownloadPDF)
	docsGroup.Put("/:id/transition", RequireRole(entity.RoleAdmin, entity.RoleEditor), documentHandler.Transition)
}
