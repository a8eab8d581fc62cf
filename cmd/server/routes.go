package main

import (
	"github.com/gin-gonic/gin"
	"multisig-hub.backend/internal/interfaces/http/handlers"
	"multisig-hub.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	authHandler         *handlers.AuthHandler
	walletHandler       *handlers.WalletHandler
	pendingWorkHandler  *handlers.PendingWorkHandler
	notificationHandler *handlers.NotificationHandler
	actionHandler       *handlers.ActionHandler
	authMiddleware      gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/nonce", d.authHandler.IssueNonce)
			auth.POST("/verify", d.authHandler.Verify)
			auth.POST("/refresh", d.authHandler.Refresh)
		}

		// Wallet reads and actions (protected)
		wallets := v1.Group("/wallets")
		wallets.Use(d.authMiddleware)
		{
			wallets.GET("", d.walletHandler.ListWallets)
			wallets.POST("", middleware.IdempotencyMiddleware(), d.actionHandler.CreateWallet)
			wallets.GET("/:address", d.walletHandler.GetWallet)
			wallets.PATCH("/:address", d.walletHandler.Rename)
			wallets.POST("/:address/refresh", d.walletHandler.Refresh)

			wallets.POST("/:address/transactions", middleware.IdempotencyMiddleware(), d.actionHandler.Submit)
			wallets.GET("/:address/transactions/:txId", d.walletHandler.GetTransaction)
			wallets.POST("/:address/transactions/:txId/confirm", middleware.IdempotencyMiddleware(), d.actionHandler.Confirm)
			wallets.POST("/:address/transactions/:txId/execute", middleware.IdempotencyMiddleware(), d.actionHandler.Execute)
		}

		v1.GET("/pending-work", d.authMiddleware, d.pendingWorkHandler.Collect)

		notifications := v1.Group("/notifications")
		notifications.Use(d.authMiddleware)
		{
			notifications.GET("", d.notificationHandler.List)
			notifications.POST("/:id/read", d.notificationHandler.MarkRead)
		}
	}
}
