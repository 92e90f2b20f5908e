package services

import (
	"context"

	"lifeline/internal/models"
	"lifeline/internal/utils"
	"lifeline/pkg/classifier"
	"lifeline/pkg/logger"
)

// TriageService wraps the image classifier with the degraded-mode
// policy: when the classifier cannot answer, the report is treated as a
// severe emergency rather than dropped.
type TriageService struct {
	classifier classifier.Classifier
	logger     *logger.Logger
}

func NewTriageService(c classifier.Classifier, log *logger.Logger) *TriageService {
	return &TriageService{classifier: c, logger: log}
}

// Assessment is the triage outcome applied to an incident report.
type Assessment struct {
	IsEmergency          bool
	Severity             models.IncidentSeverity
	Analysis             string
	RecommendedAmbulance models.AmbulanceType
	Degraded             bool
}

// Assess classifies a scene image. With no image or a failed classifier
// call it returns the conservative default: severity high, advanced
// life support. Returns ErrNonEmergency only when the classifier
// answered and was certain the scene is not an emergency.
func (s *TriageService) Assess(ctx context.Context, imageBase64 string) (*Assessment, error) {
	if s.classifier == nil || imageBase64 == "" {
		return degradedAssessment("no scene image provided"), nil
	}

	classifyCtx, cancel := context.WithTimeout(ctx, utils.ClassifierTimeout)
	defer cancel()

	result, err := s.classifier.AnalyzeImage(classifyCtx, imageBase64)
	if err != nil {
		s.logger.WithError(err).Warn("Classifier unavailable, applying conservative triage default")
		return degradedAssessment("classifier unavailable, treated as severe"), nil
	}

	if result.NonEmergency() {
		return &Assessment{
			IsEmergency: false,
			Severity:    models.SeverityNone,
			Analysis:    result.Analysis,
		}, ErrNonEmergency
	}

	return &Assessment{
		IsEmergency:          true,
		Severity:             mapSeverity(result.Severity),
		Analysis:             result.Analysis,
		RecommendedAmbulance: mapRecommendation(result.RecommendedAmbulance),
	}, nil
}

func degradedAssessment(analysis string) *Assessment {
	return &Assessment{
		IsEmergency:          true,
		Severity:             models.SeverityHigh,
		Analysis:             analysis,
		RecommendedAmbulance: models.AmbulanceTypeALS,
		Degraded:             true,
	}
}

func mapSeverity(s classifier.Severity) models.IncidentSeverity {
	switch s {
	case classifier.SeverityLow:
		return models.SeverityLow
	case classifier.SeverityMedium:
		return models.SeverityMedium
	case classifier.SeverityHigh:
		return models.SeverityHigh
	case classifier.SeverityNone:
		return models.SeverityNone
	default:
		// Unknown label from the model, stay conservative.
		return models.SeverityHigh
	}
}

func mapRecommendation(r classifier.AmbulanceRecommendation) models.AmbulanceType {
	if r == classifier.RecommendBLS {
		return models.AmbulanceTypeBLS
	}
	return models.AmbulanceTypeALS
}
