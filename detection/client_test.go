package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attest_protocol "attest-cli/solana"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// bothResponse is the combined payload the service returns for
// detection_type=both: no top-level probability or model.
const bothResponse = `{
	"content_type": "image",
	"content_hash": "6f2c0e",
	"deepfake_analysis": {
		"probability": 14.3,
		"classification": "real",
		"confidence": 85.7,
		"model": "deep-fake-detector-v2"
	},
	"ai_generated_analysis": {
		"probability": 91.2,
		"classification": "ai_generated",
		"confidence": 91.2,
		"model": "Organika/sdxl-detector"
	},
	"overall": {
		"ai_probability": 91.2,
		"classification": "ai_generated",
		"assessment": "AI-generated image detected"
	}
}`

func TestParseDetectionType(t *testing.T) {
	for input, expected := range map[string]DetectionType{
		"":             DetectionTypeBoth,
		"ai":           DetectionTypeAIGenerated,
		"ai_generated": DetectionTypeAIGenerated,
		"deepfake":     DetectionTypeDeepfake,
		"both":         DetectionTypeBoth,
	} {
		actual, err := ParseDetectionType(input)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := ParseDetectionType("video")
	assert.Error(t, err)
}

func TestDetectText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/detect/text", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "The quick brown fox jumps over the lazy dog.", body["text"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content_type": "text",
			"content_hash": "abc",
			"ai_probability": 87.5,
			"human_probability": 12.5,
			"classification": "AI-generated",
			"confidence": 75.0,
			"detection_model": "desklib/ai-text-detector-v1.01",
			"model_info": "DeBERTa-v3-large"
		}`))
	}))
	defer server.Close()

	result, err := NewClient(server.URL).DetectText(context.Background(), "The quick brown fox jumps over the lazy dog.")
	require.NoError(t, err)
	assert.Equal(t, "text", result.ContentType)
	assert.Equal(t, 87.5, result.AiProbability)
	assert.Equal(t, 12.5, result.HumanProbability)
	assert.Equal(t, "desklib/ai-text-detector-v1.01", result.DetectionModel)
}

func TestDetectText_TooShort(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").DetectText(context.Background(), "  short  ")
	assert.Error(t, err)
}

func TestDetectImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/detect/image", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "ai_generated", r.FormValue("detection_type"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "pixel.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, pngPixel, data)

		_, _ = w.Write([]byte(`{
			"content_type": "image",
			"ai_probability": 12.0,
			"classification": "Real",
			"confidence": 76.0,
			"detection_model": "Organika/sdxl-detector"
		}`))
	}))
	defer server.Close()

	result, err := NewClient(server.URL).DetectImage(context.Background(), "/tmp/pixel.png", bytes.NewReader(pngPixel), DetectionTypeAI)
	require.NoError(t, err)
	assert.Equal(t, "image", result.ContentType)
	assert.Equal(t, attest_protocol.HashContent(pngPixel).String(), result.ContentHash)
	assert.Nil(t, result.Overall)

	probability, model := result.Verdict()
	assert.Equal(t, 12.0, probability)
	assert.Equal(t, "Organika/sdxl-detector", model)
}

func TestDetectImage_Both(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "both", r.FormValue("detection_type"))
		_, _ = w.Write([]byte(bothResponse))
	}))
	defer server.Close()

	result, err := NewClient(server.URL).DetectImage(context.Background(), "photo.png", bytes.NewReader(pngPixel), DetectionTypeBoth)
	require.NoError(t, err)
	assert.Zero(t, result.AiProbability)
	require.NotNil(t, result.Overall)
	assert.Equal(t, "ai_generated", result.Overall.Classification)
	require.NotNil(t, result.DeepfakeAnalysis)
	assert.Equal(t, "deep-fake-detector-v2", result.DeepfakeAnalysis.Model)

	probability, model := result.Verdict()
	assert.Equal(t, 91.2, probability)
	assert.Equal(t, "Organika/sdxl-detector", model)
}

func TestDetectImage_SniffsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "both", r.FormValue("detection_type"))
		_, _ = w.Write([]byte(`{"content_type":"image","content_hash":"x"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).DetectImage(context.Background(), "upload", bytes.NewReader(pngPixel), "")
	require.NoError(t, err)
}

func TestDetectImage_RejectsNonImage(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").DetectImage(context.Background(), "notes.txt", bytes.NewReader([]byte("plain text")), DetectionTypeBoth)
	assert.Error(t, err)
}

func TestAPIError(t *testing.T) {
	for name, tc := range map[string]struct {
		status   int
		body     string
		expected string
	}{
		"fastapi detail": {http.StatusBadRequest, `{"detail":"Text must be at least 10 characters"}`, "Text must be at least 10 characters"},
		"validation":     {http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","text"]}]}`, `[{"loc":["body","text"]}]`},
		"plain text":     {http.StatusBadGateway, "upstream down", "upstream down"},
		"empty":          {http.StatusInternalServerError, "", "500 Internal Server Error"},
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))

		_, err := NewClient(server.URL).Status(context.Background())
		server.Close()

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), name)
		assert.Equal(t, tc.status, apiErr.StatusCode, name)
		assert.Equal(t, tc.expected, apiErr.Detail, name)
	}
}

func TestHealth(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		if healthy {
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		} else {
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	assert.NoError(t, client.Health(context.Background()))

	healthy = false
	assert.Error(t, client.Health(context.Background()))
}
