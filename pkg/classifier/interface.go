package classifier

import "context"

// Classifier is the external triage service that decides whether an
// image shows a real emergency. Calls must be bounded by the context;
// callers map any error to the conservative default.
type Classifier interface {
	AnalyzeImage(ctx context.Context, imageBase64 string) (*Result, error)
}

type Severity string
type AmbulanceRecommendation string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"

	RecommendALS  AmbulanceRecommendation = "ALS"
	RecommendBLS  AmbulanceRecommendation = "BLS"
	RecommendNone AmbulanceRecommendation = "none"
)

type Result struct {
	IsEmergency          bool                    `json:"is_emergency"`
	Severity             Severity                `json:"severity"`
	Analysis             string                  `json:"analysis"`
	RecommendedAmbulance AmbulanceRecommendation `json:"recommended_ambulance"`
}

// NonEmergency reports the hard reject branch: a submission the
// classifier is certain is not an emergency at all.
func (r *Result) NonEmergency() bool {
	return !r.IsEmergency && r.Severity == SeverityNone
}
