// Package api exposes the report, rating and lottery operations over
// HTTP for the presentation collaborators.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chapterops/palms-server/internal/config"
	"github.com/chapterops/palms-server/internal/lottery"
	"github.com/chapterops/palms-server/internal/rating"
	"github.com/chapterops/palms-server/internal/report"
)

// Server wires the HTTP surface.
type Server struct {
	cfg     *config.Config
	reports *report.Service
	ratings *rating.Table
	lotto   *lottery.Engine
	log     *zap.Logger

	engine *gin.Engine
	http   *http.Server
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(cfg *config.Config, reports *report.Service, ratings *rating.Table,
	lotto *lottery.Engine, log *zap.Logger,
) *Server {
	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:     cfg,
		reports: reports,
		ratings: ratings,
		lotto:   lotto,
		log:     log,
		engine:  engine,
	}

	s.mountMiddlewares()
	s.mountRoutes()

	return s
}

func (s *Server) mountMiddlewares() {
	s.engine.Use(s.requestLogger())
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

func (s *Server) mountRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	{
		reports := v1.Group("/reports")
		{
			reports.POST("", s.handleUploadReport)
			reports.GET("", s.handleListReports)
			reports.GET("/current", s.handleCurrentReport)
			reports.GET("/current/summary", s.handleReportSummary)
			reports.GET("/:id", s.handleGetReport)
			reports.PUT("/:id/current", s.handleSetCurrentReport)
			reports.DELETE("/:id", s.handleDeleteReport)
		}

		ratings := v1.Group("/ratings")
		{
			ratings.POST("/half-year", s.handleHalfYearUpload)
			ratings.GET("", s.handleListRatings)
			ratings.PUT("/:name/training-credits", s.handleTrainingCredits)
			ratings.PUT("/:name/override", s.handleManualOverride)
			ratings.DELETE("/:name/override", s.handleClearOverride)
		}

		lotto := v1.Group("/lottery")
		{
			lotto.GET("/candidates", s.handleLotteryCandidates)
			lotto.POST("/sessions", s.handleStartSession)
			lotto.POST("/draws", s.handleDraw)
			lotto.GET("/records", s.handleLotteryRecords)
			lotto.GET("/session-records", s.handleSessionRecords)
			lotto.PUT("/policy", s.handleLotteryPolicy)
			lotto.DELETE("/records", s.handleClearLotteryRecords)
		}

		v1.DELETE("/admin/data", s.handleClearAllData)
	}
}

// requestLogger logs one line per request with zap.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.Info("http server listening", zap.String("addr", s.cfg.Address()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
