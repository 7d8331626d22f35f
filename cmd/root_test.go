package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest-cli/detection"
	attest_protocol "attest-cli/solana"
	"attest-cli/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestContentSource(t *testing.T) {
	_, _, err := (&contentSource{}).resolve()
	assert.Error(t, err)

	_, _, err = (&contentSource{hash: "ab", text: "x"}).resolve()
	assert.Error(t, err)

	hash, content, err := (&contentSource{text: "hello"}).resolve()
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash.String())
	assert.Equal(t, []byte("hello"), content)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))
	fromFile, content, err := (&contentSource{file: path}).resolve()
	require.NoError(t, err)
	assert.Equal(t, hash, fromFile)
	assert.Equal(t, []byte("hello"), content)

	parsed, content, err := (&contentSource{hash: hash.String()}).resolve()
	require.NoError(t, err)
	assert.Equal(t, hash, parsed)
	assert.Nil(t, content)

	_, _, err = (&contentSource{hash: "zz"}).resolve()
	assert.True(t, attest_protocol.IsValidation(err))
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, isImageFile("photo.JPG"))
	assert.True(t, isImageFile("/tmp/a.png"))
	assert.False(t, isImageFile("notes.txt"))
	assert.False(t, isImageFile("noext"))
}

func TestHistoryCommand(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "history.json")
	t.Setenv("HISTORY_PATH", path)

	out, err := execute(t, "history", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	db, err := storage.Connect(path)
	require.NoError(t, err)
	hash := attest_protocol.HashContent([]byte("hello")).String()
	require.NoError(t, db.Save(context.Background(), &storage.Record{
		ContentHash:   hash,
		AiProbability: 85,
		ContentType:   "text",
	}))
	require.NoError(t, db.Close())

	out, err = execute(t, "history", "--json")
	require.NoError(t, err)

	var records []*storage.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, hash, records[0].ContentHash)
	assert.Equal(t, 85.0, records[0].AiProbability)
}

func TestDetectTextCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/detect/text", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(detection.TextResult{
			ContentType:    "text",
			ContentHash:    "abc",
			AiProbability:  91.5,
			Classification: "ai_generated",
			DetectionModel: "roberta",
		})
	}))
	defer srv.Close()

	clearEnv(t)
	t.Setenv("DETECTION_API_URL", srv.URL)
	t.Setenv("HISTORY_PATH", filepath.Join(t.TempDir(), "history.json"))

	out, err := execute(t, "detect", "text", "this text is long enough", "--json")
	require.NoError(t, err)

	var result detection.TextResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 91.5, result.AiProbability)
	assert.Equal(t, "roberta", result.DetectionModel)
}

func TestChainCommandsNeedProgramID(t *testing.T) {
	clearEnv(t)
	t.Setenv("HISTORY_PATH", filepath.Join(t.TempDir(), "history.json"))

	_, err := execute(t, "show", attest_protocol.HashContent([]byte("hello")).String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROGRAM_ID")
}

func TestCreateCommand_RequiresProbability(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROGRAM_ID", testProgramID)
	t.Setenv("HISTORY_PATH", filepath.Join(t.TempDir(), "history.json"))

	_, err := execute(t, "create", "--text", "hello world")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--probability")

	_, err = execute(t, "create", "--hash", attest_protocol.HashContent([]byte("x")).String(), "--detect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--detect")
}

// detectionServer answers text and image detection with fixed results. The
// image endpoint returns the combined shape used for detection_type=both.
func detectionServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/detect/text":
			_, _ = w.Write([]byte(`{"content_type":"text","ai_probability":87.5,"detection_model":"desklib/ai-text-detector-v1.01"}`))
		case "/api/detect/image":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "both", r.FormValue("detection_type"))
			_, _ = w.Write([]byte(`{
				"content_type": "image",
				"deepfake_analysis": {"probability": 14.3, "classification": "real", "confidence": 85.7, "model": "deep-fake-detector-v2"},
				"ai_generated_analysis": {"probability": 91.2, "classification": "ai_generated", "confidence": 91.2, "model": "Organika/sdxl-detector"},
				"overall": {"ai_probability": 91.2, "classification": "ai_generated", "assessment": "AI-generated image detected"}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// 1x1 PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestRunDetection(t *testing.T) {
	detector := detection.NewClient(detectionServer(t).URL)
	ctx := context.Background()

	outcome, err := runDetection(ctx, detector, &contentSource{file: "photo.png"}, pngPixel, "")
	require.NoError(t, err)
	assert.Equal(t, 91.2, outcome.probability)
	assert.Equal(t, "Organika/sdxl-detector", outcome.detectionModel)
	assert.Equal(t, "image", outcome.contentType)

	outcome, err = runDetection(ctx, detector, &contentSource{file: "essay.txt"}, []byte("a paragraph of prose"), "")
	require.NoError(t, err)
	assert.Equal(t, 87.5, outcome.probability)
	assert.Equal(t, "desklib/ai-text-detector-v1.01", outcome.detectionModel)
	assert.Equal(t, "text", outcome.contentType)

	_, err = runDetection(ctx, detector, &contentSource{file: "photo.png"}, pngPixel, "sideways")
	assert.Error(t, err)
}

func TestCreateCommand_DetectFeedsAttestation(t *testing.T) {
	srv := detectionServer(t)
	dir := t.TempDir()

	image := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(image, pngPixel, 0600))
	text := filepath.Join(dir, "essay.txt")
	require.NoError(t, os.WriteFile(text, []byte("a paragraph of prose"), 0600))

	for _, tc := range []struct {
		file string
		want string
	}{
		{image, "Detection result: 91.20% AI (Organika/sdxl-detector)"},
		{text, "Detection result: 87.50% AI (desklib/ai-text-detector-v1.01)"},
	} {
		clearEnv(t)
		t.Setenv("DETECTION_API_URL", srv.URL)
		t.Setenv("HISTORY_PATH", filepath.Join(dir, "history.json"))

		// Without PROGRAM_ID the command stops after detection, before any
		// chain access.
		out, err := execute(t, "create", "--file", tc.file, "--detect")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PROGRAM_ID")
		assert.Contains(t, out, tc.want)
	}
}
