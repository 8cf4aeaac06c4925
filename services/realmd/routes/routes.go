// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realmsync/realmsync/pkg/extensions"
	"github.com/realmsync/realmsync/services/realmd/handlers"
	"github.com/realmsync/realmsync/services/realmd/middleware"
)

// SetupRoutes registers the full Realm Sync API.
//
// Every /v1 route passes OptionalAuth, so queries can answer anonymous
// callers with empty bodies. Mutations additionally stack RequireAuth.
func SetupRoutes(router *gin.Engine, h *handlers.Handlers,
	auth extensions.AuthProvider, limiter *middleware.RateLimiter) {

	router.GET("/health", handlers.Health())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(middleware.OptionalAuth(auth))
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}

	mutate := middleware.RequireAuth()

	{
		account := v1.Group("/auth")
		{
			account.POST("/register", h.Register)
			account.POST("/login", h.Login)
			account.POST("/logout", h.Logout)
		}

		users := v1.Group("/users/me")
		{
			users.GET("", h.Me)
			users.PATCH("", mutate, h.UpdateProfile)
			users.GET("/usage", h.Usage)
			users.PUT("/avatar", mutate, h.UploadAvatar)
			users.GET("/avatar", h.GetAvatar)
		}

		projects := v1.Group("/projects")
		{
			projects.POST("", mutate, h.CreateProject)
			projects.GET("", h.ListProjects)
			projects.GET("/:projectId", h.GetProject)
			projects.PATCH("/:projectId", mutate, h.UpdateProject)
			projects.DELETE("/:projectId", mutate, h.DeleteProject)

			documents := projects.Group("/:projectId/documents")
			{
				documents.POST("", mutate, h.CreateDocument)
				documents.POST("/upload", mutate, h.UploadDocument)
				documents.GET("", h.ListDocuments)
				documents.PUT("/order", mutate, h.ReorderDocuments)
				documents.GET("/:documentId", h.GetDocument)
				documents.PATCH("/:documentId", mutate, h.UpdateDocument)
				documents.DELETE("/:documentId", mutate, h.DeleteDocument)
				documents.POST("/:documentId/check", mutate, h.RunCheck)
				documents.POST("/:documentId/process", mutate, h.ProcessDocument)
			}

			entities := projects.Group("/:projectId/entities")
			{
				entities.POST("", mutate, h.CreateEntity)
				entities.GET("", h.ListEntities)
				entities.GET("/:entityId", h.GetEntity)
				entities.PATCH("/:entityId", mutate, h.UpdateEntity)
				entities.DELETE("/:entityId", mutate, h.DeleteEntity)
			}

			facts := projects.Group("/:projectId/facts")
			{
				facts.POST("", mutate, h.CreateFact)
				facts.GET("", h.ListFacts)
				facts.PATCH("/:factId/status", mutate, h.UpdateFactStatus)
				facts.DELETE("/:factId", mutate, h.DeleteFact)
			}

			alerts := projects.Group("/:projectId/alerts")
			{
				alerts.GET("", h.ListAlerts)
				alerts.GET("/:alertId", h.GetAlert)
				alerts.POST("/:alertId/resolve", mutate, h.ResolveAlert)
				alerts.POST("/:alertId/dismiss", mutate, h.DismissAlert)
				alerts.POST("/:alertId/reopen", mutate, h.ReopenAlert)
				alerts.POST("/:alertId/resolve-with-canon-update", mutate, h.ResolveWithCanonUpdate)
				alerts.DELETE("/:alertId", mutate, h.DeleteAlert)
			}

			notes := projects.Group("/:projectId/notes")
			{
				notes.POST("", mutate, h.CreateNote)
				notes.GET("", h.ListNotes)
				notes.PATCH("/:noteId", mutate, h.UpdateNote)
				notes.DELETE("/:noteId", mutate, h.DeleteNote)
			}
		}

		v1.POST("/chat/stream", mutate, h.ChatStream)

		billing := v1.Group("/billing")
		{
			billing.GET("/products", h.Products)
			billing.POST("/checkout", mutate, h.Checkout)
			billing.GET("/portal", mutate, h.Portal)
		}
	}
}
