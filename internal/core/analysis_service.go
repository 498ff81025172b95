package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

const (
	AnalysisPhoto = "photo"
	AnalysisText  = "text"
)

// AnalysisResult is the structured assessment the model returns.
type AnalysisResult struct {
	SkinType           string             `json:"skinType"`
	Concerns           []string           `json:"concerns"`
	ConcernSeverity    map[string]flexInt `json:"concernSeverity"`
	Recommendations    []string           `json:"recommendations"`
	OverallScore       flexInt            `json:"overallScore"`
	DetectedConditions []string           `json:"detectedConditions,omitempty"`
	RiskFactors        []string           `json:"riskFactors,omitempty"`
	TreatmentPriority  []string           `json:"treatmentPriority,omitempty"`
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", string(b))
	}
	*f = flexInt(int(v + 0.5))
	return nil
}

func defaultAnalysis() AnalysisResult {
	return AnalysisResult{
		SkinType:          "combination",
		Concerns:          []string{"general care needed"},
		ConcernSeverity:   map[string]flexInt{"general": 5},
		Recommendations:   []string{"Consult with a dermatologist for detailed analysis"},
		OverallScore:      50,
		TreatmentPriority: []string{"professional consultation"},
	}
}

// normalize clamps the score to 0-100 and severities to 1-10 and rejects
// replies that carry no assessment at all.
func (r *AnalysisResult) normalize() error {
	if r.SkinType == "" && len(r.Concerns) == 0 {
		return fmt.Errorf("analysis reply has neither skin type nor concerns")
	}
	r.SkinType = strings.ToLower(strings.TrimSpace(r.SkinType))
	r.OverallScore = flexInt(clamp(int(r.OverallScore), 0, 100))
	for k, v := range r.ConcernSeverity {
		r.ConcernSeverity[k] = flexInt(clamp(int(v), 1, 10))
	}
	if r.Concerns == nil {
		r.Concerns = []string{}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type ImageAnalysisRequest struct {
	UserID             int64
	ImageData          string // base64, optionally as a data URL
	Concerns           []string
	ExistingConditions []string
}

type TextAnalysisRequest struct {
	UserID         int64
	Description    string
	SkinType       string
	Concerns       []string
	CurrentRoutine string
	BudgetTier     int
}

type AnalysisOutcome struct {
	Analysis      store.SkinAnalysis `json:"analysis"`
	Source        Source             `json:"source"`
	PreviousCount int                `json:"previousAnalysisCount"`
}

type AnalysisService struct {
	analyses store.AnalysisRepository
	gen      Generator
	log      *zap.Logger
}

func NewAnalysisService(analyses store.AnalysisRepository, gen Generator, log *zap.Logger) *AnalysisService {
	return &AnalysisService{analyses: analyses, gen: gen, log: log.Named("analysis")}
}

func (s *AnalysisService) AnalyzeImage(ctx context.Context, req ImageAnalysisRequest) (AnalysisOutcome, error) {
	const op = "core.AnalysisService.AnalyzeImage"
	img, err := decodeImage(req.ImageData)
	if err != nil {
		return AnalysisOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	out := generateJSON(ctx, s.gen, s.log, "analysis.image", GenerateRequest{
		System: dermatologistPersona,
		Prompt: imageAnalysisPrompt(req),
		Image:  img,
	}, (*AnalysisResult).normalize, defaultAnalysis)

	return s.store(ctx, op, req.UserID, AnalysisPhoto, "upload:"+uuid.NewString(), out)
}

func (s *AnalysisService) AnalyzeText(ctx context.Context, req TextAnalysisRequest) (AnalysisOutcome, error) {
	const op = "core.AnalysisService.AnalyzeText"
	if strings.TrimSpace(req.Description) == "" {
		if len(req.Concerns) == 0 {
			return AnalysisOutcome{}, fmt.Errorf("%s: %w", op, invalidf("description or concerns are required"))
		}
		req.Description = strings.Join(req.Concerns, ", ")
	}
	if req.BudgetTier == 0 {
		req.BudgetTier = 2
	}

	out := generateJSON(ctx, s.gen, s.log, "analysis.text", GenerateRequest{
		System: dermatologistPersona,
		Prompt: textAnalysisPrompt(req),
	}, (*AnalysisResult).normalize, defaultAnalysis)

	return s.store(ctx, op, req.UserID, AnalysisText, "", out)
}

func (s *AnalysisService) store(ctx context.Context, op string, userID int64, kind, imageRef string, out Outcome[AnalysisResult]) (AnalysisOutcome, error) {
	previous, err := s.analyses.ListAnalyses(ctx, userID)
	if err != nil {
		return AnalysisOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	r := out.Value
	raw, err := json.Marshal(r)
	if err != nil {
		return AnalysisOutcome{}, fmt.Errorf("%s: %w", op, err)
	}
	severity := make(map[string]int, len(r.ConcernSeverity))
	for k, v := range r.ConcernSeverity {
		severity[k] = int(v)
	}

	a := store.SkinAnalysis{
		UserID:             userID,
		AnalysisType:       kind,
		ImageRef:           imageRef,
		SkinType:           r.SkinType,
		Concerns:           r.Concerns,
		ConcernSeverity:    severity,
		Recommendations:    r.Recommendations,
		DetectedConditions: r.DetectedConditions,
		RiskFactors:        r.RiskFactors,
		TreatmentPriority:  r.TreatmentPriority,
		RawResult:          raw,
		Source:             string(out.Source),
		ProgressScore:      int(r.OverallScore),
	}
	if err := s.analyses.CreateAnalysis(ctx, &a); err != nil {
		return AnalysisOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("analysis stored",
		zap.String("op", op),
		zap.Int64("user_id", userID),
		zap.Int64("analysis_id", a.ID),
		zap.String("source", string(out.Source)),
		zap.Int("score", a.ProgressScore))

	return AnalysisOutcome{Analysis: a, Source: out.Source, PreviousCount: len(previous)}, nil
}

func (s *AnalysisService) History(ctx context.Context, userID int64) ([]store.SkinAnalysis, error) {
	const op = "core.AnalysisService.History"
	list, err := s.analyses.ListAnalyses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// decodeImage accepts raw base64 or a data URL and sniffs the MIME type
// when the payload does not declare one.
func decodeImage(data string) (*Image, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, invalidf("image data is required")
	}

	mime := ""
	if strings.HasPrefix(data, "data:") {
		header, payload, ok := strings.Cut(data, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, invalidf("malformed image data URL")
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		data = payload
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(data); err != nil {
			return nil, invalidf("image data is not valid base64")
		}
	}
	if len(raw) == 0 {
		return nil, invalidf("image data is empty")
	}

	if mime == "" {
		mime = http.DetectContentType(raw)
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return &Image{MIMEType: mime, Data: raw}, nil
}
