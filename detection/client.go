package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	attest_protocol "attest-cli/solana"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	defaultTimeout = 2 * time.Minute

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 4096
)

// Client talks to the AI detection service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	log *logrus.Entry
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		log:        logrus.StandardLogger().WithField("type", "detection/client"),
	}
}

// DetectText asks the service whether text was AI generated.
func (c *Client) DetectText(ctx context.Context, text string) (*TextResult, error) {
	if len(strings.TrimSpace(text)) < MinTextLength {
		return nil, errors.Errorf("text must be at least %d characters", MinTextLength)
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/detect/text", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	var result TextResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DetectImage uploads an image for deepfake and/or AI-generation analysis.
// filename is used to pick the part's content type when it has a known
// image extension; otherwise the bytes are sniffed.
func (c *Client) DetectImage(ctx context.Context, filename string, image io.Reader, detectionType DetectionType) (*ImageResult, error) {
	data, err := io.ReadAll(image)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image")
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.Errorf("%s is not an image (%s)", filename, contentType)
	}
	if detectionType == "" {
		detectionType = DetectionTypeBoth
	}
	if detectionType == DetectionTypeAI {
		detectionType = DetectionTypeAIGenerated
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+escapeQuotes(filepath.Base(filename))+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file part")
	}
	if _, err := part.Write(data); err != nil {
		return nil, errors.Wrap(err, "failed to write file part")
	}
	if err := w.WriteField("detection_type", string(detectionType)); err != nil {
		return nil, errors.Wrap(err, "failed to write detection_type")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finish multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/detect/image", &buf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result ImageResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	if result.ContentHash == "" {
		result.ContentHash = attest_protocol.HashContent(data).String()
	}
	return &result, nil
}

// Status reports which detection models are loaded.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/status", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	var status Status
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Health returns nil when the service answers its health check.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/health", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := c.do(req, &health); err != nil {
		return err
	}
	if health.Status != "healthy" {
		return errors.Errorf("detection api reports status %q", health.Status)
	}
	return nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	log := c.log.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	})

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to call detection api %s", req.URL.Path)
	}
	defer resp.Body.Close()

	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("detection api response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode detection api response")
	}
	return nil
}

// newAPIError pulls FastAPI's "detail" field out of an error body, falling
// back to the raw text.
func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	detail := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			detail = s
		} else {
			detail = string(payload.Detail)
		}
	}
	if detail == "" {
		detail = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
