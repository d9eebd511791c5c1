package handlers

import (
	"lrs-tracker/config"
	"lrs-tracker/internal/middleware"
	"lrs-tracker/internal/repository"

	"github.com/gin-gonic/gin"
)

// Routes groups the handlers mounted under /api.
type Routes struct {
	Config    *config.Config
	Stores    repository.StoreReader
	Health    *HealthHandler
	Auth      *AuthHandler
	Dashboard *DashboardHandler
	Store     *StoreHandler
}

func (rt Routes) Register(r gin.IRouter) {
	// Public routes
	public := r.Group("/api")
	{
		public.GET("/health", rt.Health.Health)
		public.POST("/oauth/token", rt.Auth.Token)
	}

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(rt.Config))
	{
		protected.GET("/oauth/me", rt.Auth.GetMe)

		// Global dashboard
		global := protected.Group("", middleware.RequireSuper())
		global.GET("/stats", rt.Dashboard.GetStats)
		global.GET("/graph", rt.Dashboard.GetGraph)
		global.GET("/actors", rt.Dashboard.GetActorCount)

		protected.GET("/stores", rt.Store.ListStores)

		// Per-LRS dashboard
		store := protected.Group("/stores/:lrsId", middleware.RequireStoreAccess(rt.Stores))
		store.GET("", rt.Store.GetStore)
		store.GET("/stats", rt.Dashboard.GetStats)
		store.GET("/graph", rt.Dashboard.GetGraph)
		store.GET("/actors", rt.Dashboard.GetActorCount)
	}
}
