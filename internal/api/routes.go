package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/cities", handler.GetCities)

		api.POST("/properties", handler.CreateProperty)
		api.GET("/properties/:id", handler.GetProperty)

		api.GET("/deals", handler.ListDeals)
		api.POST("/deals", handler.CreateDeal)
		api.GET("/deals/:id", handler.GetDeal)
		api.PATCH("/deals/:id", handler.UpdateDeal)
		api.POST("/deals/:id/analyze", handler.AnalyzeDeal)
		api.GET("/deals/:id/economics", handler.GetDealEconomics)

		api.GET("/comparables", handler.GetComparables)
		api.POST("/sales/refresh", handler.RefreshSales)

		api.GET("/telegram/config", handler.GetTelegramConfig)
		api.POST("/telegram/config", handler.UpdateTelegramConfig)
		api.POST("/telegram/test", handler.TestTelegram)
	}
}
