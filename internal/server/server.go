package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chandlery/internal/config"
	"chandlery/internal/mailer"
	"chandlery/internal/pipeline"
	"chandlery/internal/storage"
	"chandlery/internal/suppliers"
	"chandlery/internal/wizard"
)

type Server struct {
	cfg      config.Config
	db       *storage.DB
	logger   *zap.Logger
	wizard   *wizard.Service
	proc     *pipeline.ProcessingService
	supplies *suppliers.Service
	sender   mailer.Sender
	engine   *gin.Engine
}

func New(cfg config.Config, db *storage.DB, wiz *wizard.Service, sender mailer.Sender, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		wizard:   wiz,
		proc:     pipeline.NewProcessingService(db, cfg),
		supplies: suppliers.NewService(db),
		sender:   sender,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(CORS(cfg.CORSAllowOrigin))
	r.Use(RequestID())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	s.routes(r)
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/health", s.health)

	api := r.Group("/api/v1")

	api.POST("/orders/upload", s.uploadOrders)
	api.GET("/orders/:uploadId/analysis", s.orderAnalysis)
	api.POST("/orders/match", s.matchOrders)

	api.GET("/suppliers", s.listSuppliers)
	api.GET("/suppliers/:id", s.getSupplier)
	api.POST("/suppliers/candidates", s.supplierCandidates)

	api.GET("/email-templates", s.listTemplates)
	api.POST("/email-templates", s.createTemplate)
	api.GET("/email-templates/:id", s.getTemplate)
	api.PUT("/email-templates/:id", s.updateTemplate)
	api.DELETE("/email-templates/:id", s.deleteTemplate)
	api.POST("/email-templates/:id/render", s.renderTemplate)

	api.POST("/emails/send", s.sendEmail)
	api.GET("/emails/sent", s.listSentEmails)
	api.POST("/purchase-orders/excel", s.purchaseOrderExcel)

	api.GET("/products", s.listProducts)
	api.GET("/intake", s.listIntake)

	w := api.Group("/wizard/sessions")
	w.POST("", s.createSession)
	w.GET("/:id", s.getSession)
	w.DELETE("/:id", s.deleteSession)
	w.POST("/:id/upload", s.sessionUpload)
	w.GET("/:id/analysis", s.sessionAnalysis)
	w.POST("/:id/match", s.sessionMatch)
	w.POST("/:id/selection", s.sessionSelection)
	w.GET("/:id/candidates", s.sessionCandidates)
	w.PUT("/:id/candidates/:supplierId", s.sessionToggleGroup)
	w.PUT("/:id/candidates/:supplierId/products/:productIndex", s.sessionEditCandidate)
	w.POST("/:id/confirm", s.sessionConfirm)
	w.GET("/:id/emails", s.sessionEmails)
	w.PUT("/:id/emails/:supplierId", s.sessionEditEmail)
	w.PUT("/:id/emails/:supplierId/modification", s.sessionPutOverlay)
	w.GET("/:id/emails/:supplierId/attachment", s.sessionAttachment)
	w.POST("/:id/emails/:supplierId/send", s.sessionSendOne)
	w.POST("/:id/send-all", s.sessionSendAll)
	w.POST("/:id/apply-template", s.sessionApplyTemplate)
	w.POST("/:id/unlock", s.sessionUnlock)
	w.POST("/:id/lock", s.sessionLock)
	w.POST("/:id/next", s.sessionNext)
	w.POST("/:id/back", s.sessionBack)
	w.POST("/:id/reset", s.sessionReset)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok", "service": "chandlery"})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.ServerPort),
		Handler: s.engine,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.Int("port", s.cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
