package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cardhub/internal/auth"
	"cardhub/internal/catalog"
	"cardhub/internal/feed"
	"cardhub/internal/scraper"
	"cardhub/pkg/database"
	"cardhub/pkg/utils"
)

func main() {
	utils.LoadEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	srvCfg := utils.LoadServerConfig()

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Event feed: run progress over WebSocket and raw TCP.
	hub := feed.NewHub()
	router.GET("/ws", feed.WSHandler(hub, log))
	tcpSrv := feed.NewServer(srvCfg.FeedAddr, hub, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Catalog (public reads)
	repo := catalog.NewRepo(db)
	catalog.NewHandler(repo).RegisterRoutes(router)

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	auth.NewHandler(authRepo, tokenSvc, log).RegisterRoutes(router.Group("/auth"))

	// Scrape runs (protected): triggering a run rewrites the catalog,
	// so it sits behind auth.
	scrapeCfg := utils.LoadScrapeConfig()
	client := scraper.NewClient(scrapeCfg, log)
	orch := scraper.NewOrchestrator(
		repo,
		feed.NewPublisher(hub),
		scrapeCfg.RunTimeout,
		log,
		scraper.NewFactionExtractor(client, log),
		scraper.NewSetExtractor(client, log),
		scraper.NewBaseExtractor(client, log),
		scraper.NewCardExtractor(client, repo, scrapeCfg.Workers, log),
	)
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))
	scraper.NewHandler(orch, log).RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    srvCfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithField("addr", srvCfg.HTTPAddr).Info("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	log.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown error")
	}
	if err := tcpSrv.Close(); err != nil {
		log.WithError(err).Warn("tcp shutdown error")
	}

	wg.Wait()
	log.Info("servers stopped")
}
