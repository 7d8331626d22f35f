package detection

import "fmt"

// DetectionType selects which image models run.
type DetectionType string

const (
	DetectionTypeAI          DetectionType = "ai"
	DetectionTypeAIGenerated DetectionType = "ai_generated"
	DetectionTypeDeepfake    DetectionType = "deepfake"
	DetectionTypeBoth        DetectionType = "both"
)

// ParseDetectionType accepts the names understood by the detection service.
// "ai" is shorthand for "ai_generated".
func ParseDetectionType(s string) (DetectionType, error) {
	switch DetectionType(s) {
	case "":
		return DetectionTypeBoth, nil
	case DetectionTypeAI, DetectionTypeAIGenerated:
		return DetectionTypeAIGenerated, nil
	case DetectionTypeDeepfake, DetectionTypeBoth:
		return DetectionType(s), nil
	}
	return "", fmt.Errorf("unknown detection type %q (want ai, ai_generated, deepfake or both)", s)
}

// MinTextLength is the shortest text the service accepts.
const MinTextLength = 10

type TextResult struct {
	ContentType      string  `json:"content_type"`
	ContentHash      string  `json:"content_hash"`
	AiProbability    float64 `json:"ai_probability"`
	HumanProbability float64 `json:"human_probability"`
	Classification   string  `json:"classification"`
	Confidence       float64 `json:"confidence"`
	DetectionModel   string  `json:"detection_model"`
	ModelInfo        string  `json:"model_info"`
}

type ImageResult struct {
	ContentType         string          `json:"content_type"`
	ContentHash         string          `json:"content_hash"`
	AiProbability       float64         `json:"ai_probability"`
	Classification      string          `json:"classification"`
	Confidence          float64         `json:"confidence"`
	DetectionModel      string          `json:"detection_model"`
	DeepfakeAnalysis    *ImageAnalysis  `json:"deepfake_analysis,omitempty"`
	AiGeneratedAnalysis *ImageAnalysis  `json:"ai_generated_analysis,omitempty"`
	Overall             *OverallVerdict `json:"overall,omitempty"`
}

// ImageAnalysis is one model's result inside a combined ("both") response.
type ImageAnalysis struct {
	Probability    float64 `json:"probability"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Model          string  `json:"model"`
}

// OverallVerdict merges the deepfake and AI-generation analyses. Its
// probability is the higher of the two.
type OverallVerdict struct {
	AiProbability  float64 `json:"ai_probability"`
	Classification string  `json:"classification"`
	Assessment     string  `json:"assessment"`
}

// Verdict returns the probability and model an attestation should record.
// Single-model responses carry them at the top level; combined responses
// only carry them in Overall and the per-model analyses, in which case the
// model is the one whose probability drove the overall result.
func (r *ImageResult) Verdict() (float64, string) {
	if r.Overall == nil {
		return r.AiProbability, r.DetectionModel
	}

	model := r.DetectionModel
	if model == "" {
		var best *ImageAnalysis
		for _, analysis := range []*ImageAnalysis{r.DeepfakeAnalysis, r.AiGeneratedAnalysis} {
			if analysis != nil && (best == nil || analysis.Probability > best.Probability) {
				best = analysis
			}
		}
		if best != nil {
			model = best.Model
		}
	}
	return r.Overall.AiProbability, model
}

type Status struct {
	Status   string                 `json:"status"`
	Services map[string]interface{} `json:"services"`
}

// APIError is a non-2xx response from the detection service.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("detection api returned %d: %s", e.StatusCode, e.Detail)
}
