package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"attest-cli/detection"
	attest_protocol "attest-cli/solana"
	"attest-cli/storage"
)

const shutdownTimeout = 10 * time.Second

// AttestationClient is the part of the protocol client the API serves.
type AttestationClient interface {
	WalletAddress() (solana.PublicKey, error)
	GetAttestationPDA(contentHash attest_protocol.ContentHash) (solana.PublicKey, uint8, error)
	FetchConfig(ctx context.Context) (*attest_protocol.ProgramConfig, error)
	FetchAttestation(ctx context.Context, contentHash attest_protocol.ContentHash) (*attest_protocol.Attestation, error)
	FetchAllAttestations(ctx context.Context) ([]*attest_protocol.Attestation, error)
	FetchAttestationsByCreator(ctx context.Context, creator solana.PublicKey) ([]*attest_protocol.Attestation, error)
	CreateAttestation(ctx context.Context, contentHash attest_protocol.ContentHash, aiProbabilityPercent float64, contentType, detectionModel, metadataUri string) (solana.Signature, error)
	CloseAttestation(ctx context.Context, contentHash attest_protocol.ContentHash) (solana.Signature, error)
	VerifyAttestation(ctx context.Context, contentHash attest_protocol.ContentHash) (solana.Signature, error)
	LinkCertificate(ctx context.Context, contentHash attest_protocol.ContentHash, assetID solana.PublicKey) (solana.Signature, error)
	UpdateMetadata(ctx context.Context, contentHash attest_protocol.ContentHash, metadataUri string) (solana.Signature, error)
	AttestationEvents(ctx context.Context, contentHash attest_protocol.ContentHash) ([]*attest_protocol.Event, error)
}

// Detector is the part of the detection client the API serves.
type Detector interface {
	DetectText(ctx context.Context, text string) (*detection.TextResult, error)
}

var (
	_ AttestationClient = (*attest_protocol.Client)(nil)
	_ Detector          = (*detection.Client)(nil)
)

// Server exposes the attestation client over a local JSON API.
type Server struct {
	client   AttestationClient
	detector Detector
	history  storage.Store

	log *logrus.Entry
}

func NewServer(client AttestationClient, detector Detector, history storage.Store) *Server {
	return &Server{
		client:   client,
		detector: detector,
		history:  history,
		log:      logrus.StandardLogger().WithField("type", "api/server"),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	rg := r.Group("/api")
	rg.GET("/health", s.Health)
	rg.GET("/config", s.GetConfig)
	rg.GET("/history", s.ListHistory)
	rg.POST("/detect/text", s.DetectText)

	RegisterAttestationRoutes(rg.Group("/attestations"), s)

	return r
}

func RegisterAttestationRoutes(rg *gin.RouterGroup, s *Server) {
	// GET /attestations[?creator=]
	rg.GET("", s.ListAttestations)

	// POST /attestations        (create on chain, remember locally)
	rg.POST("", s.CreateAttestation)

	rg.GET("/:hash", s.GetAttestation)
	rg.DELETE("/:hash", s.CloseAttestation)
	rg.POST("/:hash/verify", s.VerifyAttestation)
	rg.POST("/:hash/certificate", s.LinkCertificate)
	rg.PUT("/:hash/metadata", s.UpdateMetadata)
	rg.GET("/:hash/events", s.ListEvents)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("address", addr).Info("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "api server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "api server shutdown failed")
	}
	s.log.Info("api stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request served")
		}
	}
}
