package main

import (
	"context"
	"fmt"
	"log"
	"os"

	apirest "github.com/ayamesys/gearbook/api/rest"
	"github.com/ayamesys/gearbook/audit"
	"github.com/ayamesys/gearbook/cache"
	"github.com/ayamesys/gearbook/config"
	dbadapter "github.com/ayamesys/gearbook/db"
	"github.com/ayamesys/gearbook/inventory"
	mw "github.com/ayamesys/gearbook/middleware"
	"github.com/ayamesys/gearbook/model"
	"github.com/ayamesys/gearbook/rental"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Event recorder ----
	events := audit.New(db, logger)
	defer events.Stop(context.Background())

	// ---- Cache ----
	c, err := cache.New(cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Services ----
	invSvc := inventory.NewService(db, events, logger, cfg.Rental)
	rentalSvc := rental.NewService(db, c, events, logger, cfg.Rental)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := mw.NewMetrics()

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger), metrics.Middleware())
	r.Use(mw.RateLimit(cfg.Security))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	resH := apirest.NewResourceHandler(invSvc)
	bookH := apirest.NewBookingHandler(rentalSvc)

	api := r.Group("/api", mw.Actor())
	{
		resG := api.Group("/resources")
		resG.POST("", resH.Create)
		resG.GET("", resH.List)
		resG.GET("/:id", resH.Detail)
		resG.POST("/:id/stock", resH.AddStock)
		resG.PUT("/:id/status", resH.SetStatus)

		bookG := api.Group("/bookings")
		bookG.POST("", bookH.Create)
		bookG.GET("", bookH.List)
		bookG.GET("/conflicts", bookH.Conflicts)
		bookG.PUT("/:id/status", bookH.UpdateStatus)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
