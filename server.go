package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/config"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := config.GetLogger()

	store, err := storage.Open(config.DataDir())
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "storage"}).Fatal("cannot open store: " + err.Error())
	}

	r := buildRouter(store, logger)

	srv := &http.Server{
		Addr:    ":" + config.Port(),
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

func buildRouter(store *storage.Store, logger *logrus.Logger) *gin.Engine {
	r := gin.New()

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; allow all otherwise.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")

	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.GET("/items", listItemsHandler(store))
	r.POST("/items", upsertItemHandler(store))
	r.DELETE("/items/:id", deleteItemHandler(store))
	r.GET("/items/search", searchItemsHandler(store))

	r.POST("/invoices/totals", computeTotalsHandler())
	r.POST("/invoices", saveInvoiceHandler(store))
	r.GET("/invoices", listInvoicesHandler(store))
	r.GET("/invoices/:id", getInvoiceHandler(store))

	r.GET("/settings", getSettingsHandler(store))
	r.PUT("/settings", updateSettingsHandler(store))

	return r
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
