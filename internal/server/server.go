// Package server exposes the storefront HTTP API: checkout initiation and
// confirmation, transaction lookup, the merchant dashboard, and wallet
// derivation for the social-login flow.
package server

import (
	"net/http"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solcheckout/internal/chain"
	"solcheckout/internal/ledger"
	"solcheckout/internal/observability"
	"solcheckout/internal/receiptimg"
	"solcheckout/internal/wallet"
)

// Options wires the server's collaborators.
type Options struct {
	Log            *zap.Logger
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Selector       *chain.Selector
	Resolver       *chain.Resolver
	Confirmer      *chain.Confirmer
	Ledger         *ledger.Ledger
	Images         *receiptimg.Client // nil disables receipt images
	Deriver        *wallet.Deriver
	Merchant       solana.PublicKey
	ReleaseMode    bool
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server holds the handler state.
type Server struct {
	log       *zap.Logger
	metrics   *observability.Metrics
	metricsH  http.Handler
	selector  *chain.Selector
	resolver  *chain.Resolver
	confirmer *chain.Confirmer
	ledger    *ledger.Ledger
	images    *receiptimg.Client
	deriver   *wallet.Deriver
	merchant  solana.PublicKey
	release   bool
	limiter   *rateLimiter
}

// New creates a Server from its collaborators.
func New(opts Options) *Server {
	return &Server{
		log:       opts.Log,
		metrics:   opts.Metrics,
		metricsH:  opts.MetricsHandler,
		selector:  opts.Selector,
		resolver:  opts.Resolver,
		confirmer: opts.Confirmer,
		ledger:    opts.Ledger,
		images:    opts.Images,
		deriver:   opts.Deriver,
		merchant:  opts.Merchant,
		release:   opts.ReleaseMode,
		limiter:   newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	if s.release {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestLogMiddleware(s.log))
	r.Use(recoveryMiddleware(s.log, s.release))
	if s.limiter != nil {
		r.Use(rateLimitMiddleware(s.limiter))
	}

	r.GET("/healthz", s.handleHealth)
	if s.metricsH != nil {
		r.GET("/metrics", gin.WrapH(s.metricsH))
	}

	api := r.Group("/api")
	{
		api.POST("/payment/initiate", s.handleInitiatePayment)
		api.POST("/payment/confirm", s.handleConfirmPayment)
		api.GET("/transaction/:signature", s.handleGetTransaction)
		api.GET("/dashboard", s.handleDashboard)
		api.POST("/wallet/derive", s.handleDeriveWallet)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
