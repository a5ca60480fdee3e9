package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sekolahku/portal-gateway/internal/config"
	"github.com/sekolahku/portal-gateway/internal/handlers"
	"github.com/sekolahku/portal-gateway/internal/logger"
	"github.com/sekolahku/portal-gateway/internal/middleware"
	"github.com/sekolahku/portal-gateway/internal/monitor"
	"github.com/sekolahku/portal-gateway/internal/ratelimit"
	"github.com/sekolahku/portal-gateway/internal/session"
)

// Injected at build time via -ldflags
var (
	Version   = "v0.0.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	envCfg := config.NewEnvConfig()

	// Refuse to start without a real signing secret. A weak SECRET_KEY
	// makes every session forgeable.
	if envCfg.SecretKey == "" {
		if os.Getenv("ALLOW_INSECURE_DEFAULT_KEY") == "true" && envCfg.IsDevelopment() {
			envCfg.SecretKey = "insecure-development-secret-key-0000"
			log.Println("⚠️ Warning: using insecure development SECRET_KEY, local use only")
		} else {
			log.Fatal("🚨 Security error: SECRET_KEY is required. Set a strong key in .env, or set ALLOW_INSECURE_DEFAULT_KEY=true in development")
		}
	}
	if len(envCfg.SecretKey) < 32 {
		log.Fatal("🚨 Security error: SECRET_KEY must be at least 32 characters. Current length: ", len(envCfg.SecretKey))
	}

	// Logging must come up before everything else
	logCfg := &logger.Config{
		LogDir:     envCfg.LogDir,
		LogFile:    envCfg.LogFile,
		MaxSize:    envCfg.LogMaxSize,
		MaxBackups: envCfg.LogMaxBackups,
		MaxAge:     envCfg.LogMaxAge,
		Compress:   envCfg.LogCompress,
		Console:    envCfg.LogToConsole,
	}
	if err := logger.Setup(logCfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	// Policy table with hot reload
	policyManager, err := ratelimit.InitManager(envCfg.PolicyConfigFile)
	if err != nil {
		log.Fatalf("Failed to initialize policy config manager: %v", err)
	}
	defer policyManager.Close()

	// Rate-limit store and limiter
	store := ratelimit.NewMemoryStore()
	defer store.Stop()
	limiter := ratelimit.NewLimiter(store, policyManager)
	log.Printf("✅ Rate limiter initialized (%d shards)", 32)

	// Security monitor with persistent sink and live stream
	mon := monitor.NewMonitor(envCfg.MonitorMaxEvents)
	broadcaster := monitor.NewBroadcaster()
	mon.SetBroadcaster(broadcaster)

	sink, err := monitor.NewSQLiteSink(envCfg.MonitorDBPath)
	if err != nil {
		log.Printf("⚠️ Security event sink unavailable: %v (persistence disabled)", err)
	} else {
		mon.SetSink(sink)
		defer sink.Close()
	}
	log.Printf("✅ Security monitor initialized (max %d events in memory)", envCfg.MonitorMaxEvents)

	// Session validation
	verifier := session.NewHMACVerifier(envCfg.SecretKey)
	validator := session.NewValidator(verifier)

	// Admission gateway
	gw := middleware.NewGateway(limiter, validator, mon, middleware.GatewayConfig{
		FailOpen: envCfg.FailOpen,
	})
	log.Printf("✅ Admission gateway initialized (failOpen=%v)", envCfg.FailOpen)

	// Periodic maintenance: trim old events in memory and on disk. The
	// bounded FIFO holds regardless; this only shrinks the retained horizon.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if removed := mon.ClearOldEvents(24); removed > 0 {
				log.Printf("🗑️ Cleared %d security events older than 24h", removed)
			}
			if sink != nil {
				if pruned, err := sink.PruneBefore(time.Now().Add(-24 * time.Hour)); err != nil {
					log.Printf("⚠️ Failed to prune persisted events: %v", err)
				} else if pruned > 0 {
					log.Printf("🗑️ Pruned %d persisted security events", pruned)
				}
			}
		}
	}()

	// HTTP engine
	if envCfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(gw.Middleware())

	if envCfg.EnableInspector {
		inspector := middleware.NewInspector(mon, envCfg.InspectorStrict)
		r.Use(inspector.Middleware())
		log.Printf("✅ Payload inspector enabled (strict=%v)", envCfg.InspectorStrict)
	}

	// Health check (public)
	r.GET("/health", handlers.HealthCheck())

	// Admin surface (protected routes: the gateway enforces the session)
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.GET("/health", handlers.HealthCheckDetailed(envCfg, policyManager, mon))

		adminGroup.GET("/security/stats", handlers.GetSecurityStats(mon))
		adminGroup.GET("/security/events", handlers.GetSecurityEvents(mon))
		adminGroup.GET("/security/events/stream", handlers.StreamSecurityEvents(broadcaster))
		adminGroup.GET("/security/patterns", handlers.GetAttackPatterns(mon))
		adminGroup.POST("/security/events/clear", handlers.ClearOldSecurityEvents(mon))

		adminGroup.GET("/ratelimit", handlers.GetRateLimitConfig(policyManager))
		adminGroup.PUT("/ratelimit", handlers.UpdateRateLimitConfig(policyManager))
		adminGroup.POST("/ratelimit/reset", handlers.ResetRateLimitConfig(policyManager))
	}

	// Business API routes (PPDB, grading, messaging) mount behind the same
	// engine in their own service; they only ever see admitted requests.

	addr := fmt.Sprintf(":%d", envCfg.Port)
	fmt.Printf("\n🚀 Portal gateway started\n")
	fmt.Printf("📌 Version: %s\n", Version)
	if BuildTime != "unknown" {
		fmt.Printf("🕐 Build time: %s\n", BuildTime)
	}
	if GitCommit != "unknown" {
		fmt.Printf("🔖 Git commit: %s\n", GitCommit)
	}
	fmt.Printf("💚 Health check: GET /health\n")
	fmt.Printf("📊 Environment: %s\n", envCfg.Env)
	fmt.Printf("\n")

	if err := r.Run(addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
