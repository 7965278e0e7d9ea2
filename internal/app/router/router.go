// Package router はginのルーティングを構築します。
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	instrumenthandler "stock_tracker/internal/feature/instruments/transport/handler"
	"stock_tracker/internal/platform/http/handler"
)

// WebSocketHandler serves the /ws upgrade.
type WebSocketHandler interface {
	Handle(c *gin.Context)
}

// NewRouter はREST APIとWebSocketのルートを持つgin.Engineを生成します。
// clientOriginが空の場合は全てのオリジンを許可します。
func NewRouter(instruments *instrumenthandler.InstrumentHandler, ws WebSocketHandler, clientOrigin string) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(clientOrigin)))

	api := r.Group("/api")
	{
		// 導通確認用
		api.GET("/health", handler.Health)

		stocks := api.Group("/stocks")
		stocks.GET("", instruments.List)
		stocks.POST("", instruments.Create)
		stocks.GET("/notifications/recent", instruments.RecentAlerts)
		stocks.GET("/:id", instruments.Get)
		stocks.PATCH("/:id", instruments.UpdateAlarm)
		stocks.DELETE("/:id", instruments.Delete)
	}

	if ws != nil {
		r.GET("/ws", ws.Handle)
	}

	return r
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cfg
}
