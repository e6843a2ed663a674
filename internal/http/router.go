// Package httpapi wires the HTTP transport (Gin) to the marketplace services,
// middleware and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, redacted access logs, panic recovery, metrics,
// compression, CORS, security headers, authentication and idempotent creates.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-places-market/docs"
	"github.com/tbourn/go-places-market/internal/auth"
	"github.com/tbourn/go-places-market/internal/config"
	"github.com/tbourn/go-places-market/internal/http/handlers"
	"github.com/tbourn/go-places-market/internal/http/middleware"
	"github.com/tbourn/go-places-market/internal/repo"
	"github.com/tbourn/go-places-market/internal/services"
	"github.com/tbourn/go-places-market/internal/storage"
)

// formSlack is the allowance for multipart framing and text fields on top
// of the per-file upload cap.
const formSlack = 1 << 20

// uploadsPath serves stored avatars and listing images.
const uploadsPath = "/uploads"

// RegisterRoutes attaches all middleware and HTTP endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Access log (redacted unless GIN_MODE=debug)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Compression
//  8. CORS and security headers
//
// Authentication and the Idempotency-Key lookup are attached per route group.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, images *storage.Local, sessions auth.SessionStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.GinMode == gin.DebugMode {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxUploadBytes + formSlack))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics", uploadsPath}),
	))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:        cfg.Security.EnableHSTS,
		HSTSMaxAge:        cfg.Security.HSTSMaxAge,
		NoStore:           true,
		CacheablePrefixes: []string{uploadsPath + "/"},
		EnablePolicy:      true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if images != nil {
		r.Static(uploadsPath, images.Dir())
	}
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services <- db/storage
	var store services.ImageStore
	if images != nil {
		store = images
	}
	userSvc := services.NewUserService(db, store, cfg.Auth.BcryptCost)
	placeSvc := services.NewPlaceService(db, store)
	h := handlers.New(handlers.Deps{
		DB:             db,
		Users:          userSvc,
		Places:         placeSvc,
		Purchases:      services.NewPurchaseService(db),
		Favorites:      services.NewFavoriteService(db),
		Reviews:        services.NewReviewService(db),
		Complaints:     services.NewComplaintService(db),
		Chats:          services.NewChatService(db),
		Messages:       services.NewMessageService(db),
		Admin:          services.NewAdminService(db, placeSvc, store),
		Tokens:         tokenConfig(cfg.Auth),
		Sessions:       sessions,
		IdempotencyTTL: cfg.IdempotencyTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	authn := &middleware.Authenticator{
		Tokens:   tokenConfig(cfg.Auth),
		Sessions: sessions,
		LoadUser: userSvc.Get,
	}
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID uint, scope, key string, now time.Time) (uint, bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return 0, false, nil
				}
				return 0, false, err
			}
			return rec.ResourceID, true, nil
		},
	)

	api := groupWithPrefix(r, cfg.APIBasePath)

	// Public
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/places", h.ListPlaces)
	api.GET("/places/search", h.SearchPlaces)
	api.GET("/places/:id", authn.OptionalAuth(), h.GetPlace)
	api.GET("/users/:id", h.GetUser)
	api.GET("/users/:id/reviews", h.UserReviews)

	// Authenticated
	my := api.Group("", authn.RequireAuth())
	{
		my.POST("/auth/logout", h.Logout)
		my.GET("/me", h.Me)
		my.PUT("/me", h.UpdateMe)
		my.GET("/me/places", h.MyPlaces)
		my.GET("/me/purchases", h.MyPurchases)
		my.GET("/me/favorites", h.MyFavorites)
		my.GET("/me/reviews", h.MyReviews)
		my.GET("/me/reviews/received", h.ReceivedReviews)
		my.GET("/me/complaints", h.MyComplaints)
		my.GET("/me/complaints/received", h.ReceivedComplaints)

		my.POST("/places", idem, h.CreatePlace)
		my.PUT("/places/:id", h.UpdatePlace)
		my.DELETE("/places/:id", h.DeletePlace)
		my.POST("/places/:id/buy", h.BuyPlace)
		my.POST("/places/:id/favorite", h.ToggleFavorite)

		my.POST("/users/:id/reviews", h.LeaveReview)
		my.PUT("/reviews/:id/reply", h.ReplyToReview)
		my.POST("/users/:id/complaints", h.FileComplaint)
		my.PUT("/complaints/:id/response", h.RespondToComplaint)

		my.POST("/users/:id/chat", h.StartChat)
		my.GET("/chats", h.ListChats)
		my.GET("/chats/:id/messages", h.ListMessages)
		my.POST("/chats/:id/messages", idem, h.PostMessage)
		my.PUT("/chats/:id/messages/:messageId", h.EditMessage)
		my.DELETE("/chats/:id/messages/:messageId", h.DeleteMessage)
	}

	// Administration
	admin := api.Group("/admin", authn.RequireAuth(), middleware.RequireAdmin())
	{
		admin.GET("/users", h.AdminListUsers)
		admin.DELETE("/users/:id", h.AdminDeleteUser)
		admin.GET("/places", h.AdminListPlaces)
		admin.DELETE("/places/:id", h.AdminDeletePlace)
		admin.GET("/purchases", h.AdminListPurchases)
		admin.GET("/reviews", h.AdminListReviews)
		admin.GET("/complaints", h.AdminListComplaints)
	}
}

func tokenConfig(a config.AuthConfig) auth.Config {
	return auth.Config{Secret: a.JWTSecret, Issuer: a.JWTIssuer, TTL: a.TokenTTL}
}

// corsMiddleware allows any origin when none are configured, otherwise only
// the allowlist. Credentials are never allowed: tokens travel in headers.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "ETag", middleware.HeaderIdempotencyReplayed},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		conf.AllowAllOrigins = true
		// ACAO: * even without an Origin header, for health checks and curl.
		force := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{force, cors.New(conf)}
	}
	conf.AllowOrigins = origins
	return []gin.HandlerFunc{cors.New(conf)}
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader;
// reads past the cap fail and surface as 413.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
