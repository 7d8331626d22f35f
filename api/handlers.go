package api

import (
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"attest-cli/detection"
	attest_protocol "attest-cli/solana"
	"attest-cli/storage"
)

type createAttestationRequest struct {
	ContentHash    string   `json:"content_hash"`
	Text           string   `json:"text"`
	AiProbability  *float64 `json:"ai_probability"`
	ContentType    string   `json:"content_type"`
	DetectionModel string   `json:"detection_model"`
	MetadataUri    string   `json:"metadata_uri"`
	Detect         bool     `json:"detect"`
}

type signatureResponse struct {
	Signature   string `json:"signature"`
	ContentHash string `json:"content_hash,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (s *Server) Health(c *gin.Context) {
	resp := gin.H{"status": "healthy"}
	if wallet, err := s.client.WalletAddress(); err == nil {
		resp["wallet"] = wallet.String()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetConfig(c *gin.Context) {
	config, err := s.client.FetchConfig(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if config == nil {
		s.writeError(c, attest_protocol.ErrProgramUninitialized)
		return
	}
	c.JSON(http.StatusOK, config)
}

func (s *Server) ListAttestations(c *gin.Context) {
	var (
		attestations []*attest_protocol.Attestation
		err          error
	)
	if creator := c.Query("creator"); creator != "" {
		key, parseErr := solana.PublicKeyFromBase58(creator)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator address"})
			return
		}
		attestations, err = s.client.FetchAttestationsByCreator(c.Request.Context(), key)
	} else {
		attestations, err = s.client.FetchAllAttestations(c.Request.Context())
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	if attestations == nil {
		attestations = []*attest_protocol.Attestation{}
	}
	c.JSON(http.StatusOK, attestations)
}

func (s *Server) GetAttestation(c *gin.Context) {
	hash, ok := s.hashParam(c)
	if !ok {
		return
	}

	attestation, err := s.client.FetchAttestation(c.Request.Context(), hash)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if attestation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attestation not found"})
		return
	}
	c.JSON(http.StatusOK, attestation)
}

func (s *Server) CreateAttestation(c *gin.Context) {
	var req createAttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	var hash attest_protocol.ContentHash
	switch {
	case req.ContentHash != "":
		parsed, err := attest_protocol.ParseContentHash(req.ContentHash)
		if err != nil {
			s.writeError(c, err)
			return
		}
		hash = parsed
	case req.Text != "":
		hash = attest_protocol.HashContent([]byte(req.Text))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_hash or text is required"})
		return
	}

	if req.Detect {
		if req.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "detect requires text"})
			return
		}
		result, err := s.detector.DetectText(c.Request.Context(), req.Text)
		if err != nil {
			s.writeError(c, err)
			return
		}
		req.AiProbability = &result.AiProbability
		req.DetectionModel = result.DetectionModel
		if req.ContentType == "" {
			req.ContentType = result.ContentType
		}
	}
	if req.AiProbability == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ai_probability is required"})
		return
	}
	if req.ContentType == "" && req.Text != "" {
		req.ContentType = "text"
	}

	ctx := c.Request.Context()
	sig, err := s.client.CreateAttestation(ctx, hash, *req.AiProbability, req.ContentType, req.DetectionModel, req.MetadataUri)
	if err != nil {
		s.writeError(c, err)
		return
	}

	record := &storage.Record{
		ContentHash:    hash.String(),
		AiProbability:  *req.AiProbability,
		ContentType:    req.ContentType,
		DetectionModel: req.DetectionModel,
		MetadataUri:    req.MetadataUri,
		Signature:      sig.String(),
	}
	if wallet, err := s.client.WalletAddress(); err == nil {
		record.Creator = wallet.String()
	}
	if err := s.history.Save(ctx, record); err != nil {
		s.log.WithError(err).Warn("failed to save attestation to local history")
	}

	resp := signatureResponse{Signature: sig.String(), ContentHash: hash.String()}
	if address, _, err := s.client.GetAttestationPDA(hash); err == nil {
		resp.Address = address.String()
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) CloseAttestation(c *gin.Context) {
	hash, ok := s.hashParam(c)
	if !ok {
		return
	}

	sig, err := s.client.CloseAttestation(c.Request.Context(), hash)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.history.Delete(c.Request.Context(), hash.String()); err != nil && err != storage.ErrNotFound {
		s.log.WithError(err).Warn("failed to remove attestation from local history")
	}
	c.JSON(http.StatusOK, signatureResponse{Signature: sig.String(), ContentHash: hash.String()})
}

func (s *Server) VerifyAttestation(c *gin.Context) {
	hash, ok := s.hashParam(c)
	if !ok {
		return
	}

	sig, err := s.client.VerifyAttestation(c.Request.Context(), hash)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, signatureResponse{Signature: sig.String(), ContentHash: hash.String()})
}

func (s *Server) LinkCertificate(c *gin.Context) {
	hash, ok := s.hashParam(c)
	if !ok {
		return
	}

	var req struct {
		AssetID string `json:"asset_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_id is required"})
		return
	}
	assetID, err := solana.PublicKeyFromBase58(req.AssetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset_id"})
		return
	}

	sig, err := s.client.LinkCertificate(c.Request.Context(), hash, assetID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, signatureResponse{Signature: sig.String(), ContentHash: hash.String()})
}

func (s *Server) UpdateMetadata(c *gin.Context) {
	hash, ok := s.hashParam(c)
	if !ok {
		return
	}

	var req struct {
		MetadataUri string `json:"metadata_uri"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	sig, err := s.client.UpdateMetadata(c.Request.Context(), hash, req.MetadataUri)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	if record, err := s.history.Get(ctx, hash.String()); err == nil {
		record.MetadataUri = req.MetadataUri
		if err := s.history.Save(ctx, record); err != nil {
			s.log.WithError(err).Warn("failed to update local history")
		}
	}
	c.JSON(http.StatusOK, signatureResponse{Signature: sig.String(), ContentHash: hash.String()})
}

func (s *Server) ListEvents(c *gin.Context) {
	hash, ok := s.hashParam(c)
	if !ok {
		return
	}

	events, err := s.client.AttestationEvents(c.Request.Context(), hash)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if events == nil {
		events = []*attest_protocol.Event{}
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) ListHistory(c *gin.Context) {
	records, err := s.history.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if records == nil {
		records = []*storage.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) DetectText(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if len(strings.TrimSpace(req.Text)) < detection.MinTextLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text must be at least 10 characters"})
		return
	}

	result, err := s.detector.DetectText(c.Request.Context(), req.Text)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) hashParam(c *gin.Context) (attest_protocol.ContentHash, bool) {
	hash, err := attest_protocol.ParseContentHash(c.Param("hash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return hash, false
	}
	return hash, true
}

// writeError maps client errors onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		programErr *attest_protocol.ProgramError
		apiErr     *detection.APIError
	)

	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	switch {
	case errors.Is(err, attest_protocol.ErrWalletNotConnected):
		status = http.StatusUnauthorized
	case errors.Is(err, attest_protocol.ErrProgramUninitialized):
		status = http.StatusServiceUnavailable
	case attest_protocol.IsValidation(err), errors.Is(err, storage.ErrInvalidRecord):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case attest_protocol.IsMalformedAccount(err):
		status = http.StatusBadGateway
	case errors.As(err, &programErr):
		status = http.StatusConflict
		if programErr.ErrorName != "" {
			body["program_error"] = programErr.ErrorName
		}
		if len(programErr.Logs) > 0 {
			body["logs"] = programErr.Logs
		}
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		}
		body["error"] = apiErr.Detail
	}

	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Warn("request error")
	}
	c.JSON(status, body)
}
