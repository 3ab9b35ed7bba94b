package http

import (
	"errors"
	"net/http"
	"strings"

	"backoffice/internal/config"
	"backoffice/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var errForeignTenant = errors.New("company does not match the session")

type Handler struct {
	auth      *usecases.AuthUsecase
	clients   *usecases.ClientService
	products  *usecases.ProductService
	plans     *usecases.PlanService
	dashboard *usecases.DashboardUsecase
	panels    *usecases.BotPanels
	logger    *zap.Logger
}

// Services groups what the HTTP layer calls into.
type Services struct {
	Auth      *usecases.AuthUsecase
	Clients   *usecases.ClientService
	Products  *usecases.ProductService
	Plans     *usecases.PlanService
	Dashboard *usecases.DashboardUsecase
	Panels    *usecases.BotPanels
}

func NewHandler(svc Services, logger *zap.Logger) *Handler {
	return &Handler{
		auth:      svc.Auth,
		clients:   svc.Clients,
		products:  svc.Products,
		plans:     svc.Plans,
		dashboard: svc.Dashboard,
		panels:    svc.Panels,
		logger:    logger.With(zap.String("component", "http")),
	}
}

func SetupRoutes(r *gin.Engine, svc Services, middleware *Middleware, limits config.LimitsConfig, logger *zap.Logger) {
	h := NewHandler(svc, logger)

	r.Use(middleware.RequestLogger())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(limits.MaxBodyBytes))
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", h.Login)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(rate.Limit(limits.RatePerSecond), limits.Burst))
	{
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)

		api.GET("/dashboard", RequirePermission("dashboard"), h.GetDashboard)
		api.GET("/plano", h.GetPlan)

		api.GET("/clientes", h.GetClients)
		api.GET("/clientes/count", h.CountClients)
		api.POST("/clientes", h.CreateClient)
		api.PUT("/clientes", h.UpdateClient)
		api.PATCH("/clientes", h.UpdateClient)
		api.DELETE("/clientes", h.DeleteClient)

		api.GET("/produtos", h.ListProducts)
		api.GET("/produtos/count", h.CountProducts)
		api.POST("/produtos", h.CreateProduct)
		api.POST("/produtos/imagem", h.UploadProductImage)
		api.DELETE("/produtos/imagem", h.DeleteProductImage)
		api.GET("/produtos/:id", h.GetProduct)
		api.PUT("/produtos/:id", h.UpdateProduct)
		api.PATCH("/produtos/:id", h.UpdateProduct)
		api.DELETE("/produtos/:id", h.DeleteProduct)
		api.POST("/produtos/:id/imagem", h.ReplaceProductImage)

		wa := api.Group("/whatsapp", RequirePermission("conexao"))
		wa.GET("/status", h.GetBotStatus)
		wa.GET("/stream", h.StreamBotStatus)
		wa.POST("/qrcode", h.GenerateQRCode)
		wa.GET("/qrcode.png", h.GetQRCodeImage)
	}
}

// tenantFor returns the session company. A request naming another company is refused.
func tenantFor(c *gin.Context, requested string) (string, error) {
	profile, ok := currentUser(c)
	if !ok || profile.Company == "" {
		return "", errForeignTenant
	}
	requested = strings.TrimSpace(requested)
	if requested != "" && requested != profile.Company {
		return "", errForeignTenant
	}
	return profile.Company, nil
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, errForeignTenant) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access to this company is not allowed"})
		return
	}
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	respondError(c, err)
}
