package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/lis/internal/audit"
	auditdomain "github.com/smallbiznis/lis/internal/audit/domain"
	"github.com/smallbiznis/lis/internal/auth"
	authdomain "github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/auth/session"
	"github.com/smallbiznis/lis/internal/authorization"
	"github.com/smallbiznis/lis/internal/catalog"
	"github.com/smallbiznis/lis/internal/catalog/view"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/internal/customer"
	customerdomain "github.com/smallbiznis/lis/internal/customer/domain"
	"github.com/smallbiznis/lis/internal/observability"
	obsmiddleware "github.com/smallbiznis/lis/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/lis/internal/observability/metrics"
	obstracing "github.com/smallbiznis/lis/internal/observability/tracing"
	"github.com/smallbiznis/lis/internal/order"
	orderdomain "github.com/smallbiznis/lis/internal/order/domain"
	"github.com/smallbiznis/lis/internal/organization"
	organizationdomain "github.com/smallbiznis/lis/internal/organization/domain"
	"github.com/smallbiznis/lis/internal/product"
	productdomain "github.com/smallbiznis/lis/internal/product/domain"
	"github.com/smallbiznis/lis/internal/providers"
	"github.com/smallbiznis/lis/internal/ratelimit"
	"github.com/smallbiznis/lis/internal/supplier"
	supplierdomain "github.com/smallbiznis/lis/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	organization.Module,
	product.Module,
	supplier.Module,
	customer.Module,
	order.Module,
	providers.Module,
	ratelimit.Module,
	fx.Provide(view.NewRenderer),
	fx.Provide(provideCatalogFetcher),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, corsCfg config.CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	if len(corsCfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     corsCfg.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", HeaderOrg, "X-Request-Id"},
			ExposeHeaders:    []string{"X-Request-Id", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics, cfg.CORS)
}

func provideCatalogFetcher(products productdomain.Service) catalog.Fetcher {
	return catalog.NewServiceFetcher(products)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authsvc         authdomain.Service
	sessions        *session.Manager
	authzSvc        authorization.Service
	organizationSvc organizationdomain.Service
	productSvc      productdomain.Service
	supplierSvc     supplierdomain.Service
	customerSvc     customerdomain.Service
	orderSvc        orderdomain.Service
	auditSvc        auditdomain.Service
	authLimiter     *ratelimit.AuthLimiter
	obsMetrics      *obsmetrics.Metrics
	catalogCfg      *config.CatalogConfigHolder
	catalogFetcher  catalog.Fetcher
	renderer        *view.Renderer
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	AuthzSvc        authorization.Service
	OrganizationSvc organizationdomain.Service
	ProductSvc      productdomain.Service
	SupplierSvc     supplierdomain.Service
	CustomerSvc     customerdomain.Service
	OrderSvc        orderdomain.Service
	AuditSvc        auditdomain.Service `optional:"true"`
	AuthLimiter     *ratelimit.AuthLimiter
	ObsMetrics      *obsmetrics.Metrics         `optional:"true"`
	CatalogCfg      *config.CatalogConfigHolder `optional:"true"`
	CatalogFetcher  catalog.Fetcher
	Renderer        *view.Renderer
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		productSvc:      p.ProductSvc,
		supplierSvc:     p.SupplierSvc,
		customerSvc:     p.CustomerSvc,
		orderSvc:        p.OrderSvc,
		auditSvc:        p.AuditSvc,
		authLimiter:     p.AuthLimiter,
		obsMetrics:      p.ObsMetrics,
		catalogCfg:      p.CatalogCfg,
		catalogFetcher:  p.CatalogFetcher,
		renderer:        p.Renderer,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerUIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/forgot", s.Forgot)
	auth.POST("/reset", s.ResetPassword)
	auth.GET("/me", s.WebAuthRequired(), s.Me)
	auth.POST("/change-password", s.WebAuthRequired(), s.ChangePassword)

	user := auth.Group("/user", s.WebAuthRequired())
	{
		user.GET("/orgs", s.ListUserOrgs)
		user.POST("/orgs", s.CreateOrg)
		user.POST("/using/:orgId", s.UseOrg)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.WebAuthRequired(), s.OrgContext())

	api.GET("/products", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionView), s.ListProducts)
	api.GET("/products/:id", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionView), s.GetProductByID)
	api.GET("/suppliers", s.authorizeOrgAction(authorization.ObjectSupplier, authorization.ActionView), s.ListSuppliers)
	api.GET("/customers", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	api.GET("/orders", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.Use(s.WebAuthRequired())
	admin.Use(s.OrgContext())

	// -------- Products --------
	admin.GET("/products", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionView), s.ListProducts)
	admin.GET("/products/stats", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionView), s.ProductStats)
	admin.POST("/products", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionCreate), s.CreateProduct)
	admin.GET("/products/:id", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionView), s.GetProductByID)
	admin.PATCH("/products/:id", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionUpdate), s.UpdateProduct)
	admin.DELETE("/products/:id", s.authorizeOrgAction(authorization.ObjectProduct, authorization.ActionDelete), s.DeleteProduct)

	// -------- Suppliers --------
	admin.GET("/suppliers", s.authorizeOrgAction(authorization.ObjectSupplier, authorization.ActionView), s.ListSuppliers)
	admin.POST("/suppliers", s.authorizeOrgAction(authorization.ObjectSupplier, authorization.ActionCreate), s.CreateSupplier)
	admin.GET("/suppliers/:id", s.authorizeOrgAction(authorization.ObjectSupplier, authorization.ActionView), s.GetSupplierByID)
	admin.PATCH("/suppliers/:id", s.authorizeOrgAction(authorization.ObjectSupplier, authorization.ActionUpdate), s.UpdateSupplier)
	admin.DELETE("/suppliers/:id", s.authorizeOrgAction(authorization.ObjectSupplier, authorization.ActionDelete), s.DeleteSupplier)

	// -------- Customers --------
	admin.GET("/customers", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	admin.POST("/customers", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomer)
	admin.GET("/customers/:id", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomerByID)
	admin.PATCH("/customers/:id", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionUpdate), s.UpdateCustomer)
	admin.DELETE("/customers/:id", s.authorizeOrgAction(authorization.ObjectCustomer, authorization.ActionDelete), s.DeleteCustomer)

	// -------- Orders --------
	admin.GET("/orders", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)
	admin.GET("/orders/stats", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionView), s.OrderStats)
	admin.POST("/orders", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionCreate), s.CreateOrder)
	admin.GET("/orders/:id", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionView), s.GetOrderByID)
	admin.PATCH("/orders/:id/status", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionUpdate), s.UpdateOrderStatus)
	admin.GET("/orders/:id/receipt", s.authorizeOrgAction(authorization.ObjectOrder, authorization.ActionView), s.OrderReceipt)

	// -------- Audit --------
	admin.GET("/audit-logs", s.authorizeOrgAction(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) registerUIRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/catalog")
	})
	s.engine.GET(catalog.LoginPath, s.LoginPage)
	s.engine.GET("/catalog", s.PageAuthRequired(), s.PageOrgContext(), s.CatalogPage)
}
