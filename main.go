package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/vaultmarks/backend/internal/client"
	"github.com/vaultmarks/backend/internal/config"
	"github.com/vaultmarks/backend/internal/db"
	"github.com/vaultmarks/backend/internal/handler"
	"github.com/vaultmarks/backend/internal/service"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pg.Close()

	if err := pg.EnsureAuthSchema(ctx); err != nil {
		log.Fatalf("auth schema: %v", err)
	}
	if err := pg.EnsureVaultSchema(ctx); err != nil {
		log.Fatalf("vault schema: %v", err)
	}
	if err := pg.EnsureLinkedAccountSchema(ctx); err != nil {
		log.Fatalf("linked account schema: %v", err)
	}

	authService, err := service.NewAuthService(pg, cfg.Auth)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		if err := authService.EnsureAdmin(ctx, email, os.Getenv("ADMIN_PASSWORD")); err != nil {
			log.Fatalf("ensure admin: %v", err)
		}
	}

	directory := client.NewDirectoryClient(cfg.Directory)
	tokenManager := service.NewTokenManager(pg, cfg.Directory)
	membership := service.NewMembershipService(pg, directory, tokenManager, cfg.Directory.Provider)
	accessService := service.NewAccessService(pg, membership)
	vaultService := service.NewVaultService(pg)
	connectionService := service.NewConnectionService(pg, directory, cfg.Directory)

	authHandler := handler.NewAuthHandler(authService)
	vaultHandler := handler.NewVaultHandler(vaultService, accessService)
	connectionHandler := handler.NewConnectionHandler(connectionService, []byte(cfg.Auth.JWTSecret))

	router := gin.Default()
	router.Use(handler.CORSMiddleware(strings.Split(cfg.Server.AllowedOrigins, ","), true))

	router.GET("/ping", handler.Ping)
	router.GET("/", handler.Root)

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/config", authHandler.Config)
	auth.GET("/me", handler.AuthMiddleware(authService), authHandler.Me)

	vaults := api.Group("/vaults")
	vaults.GET("/:slug/access", handler.OptionalAuthMiddleware(authService), vaultHandler.ResolveAccess)
	vaults.Use(handler.AuthMiddleware(authService))
	vaults.POST("", vaultHandler.Create)
	vaults.GET("", vaultHandler.List)
	vaults.PATCH("/:slug/access-settings", vaultHandler.UpdateAccessSettings)
	vaults.POST("/:slug/join", vaultHandler.Join)
	vaults.POST("/:slug/subscribe", vaultHandler.Subscribe)
	vaults.DELETE("/:slug/subscribe", vaultHandler.Unsubscribe)

	connections := api.Group("/connections")
	connections.GET("/:provider/callback", connectionHandler.Callback)
	connections.Use(handler.AuthMiddleware(authService))
	connections.GET("/:provider/authorize", connectionHandler.Authorize)
	connections.GET("/:provider", connectionHandler.Status)
	connections.DELETE("/:provider", connectionHandler.Disconnect)

	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
