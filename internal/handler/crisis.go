package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/easeaico/serenia/internal/severity"
)

// CrisisHandler serves crisis resources and stateless scoring.
type CrisisHandler struct {
	resources severity.Resources
	crisis    *severity.CrisisScorer
	anxiety   *severity.AnxietyScorer
}

// NewCrisisHandler creates a CrisisHandler around shared scorers. Zero
// resources select the 988 defaults and nil scorers are built here.
func NewCrisisHandler(resources severity.Resources, crisis *severity.CrisisScorer, anxiety *severity.AnxietyScorer) *CrisisHandler {
	if resources.Hotline.Number == "" {
		resources = severity.DefaultResources()
	}
	if crisis == nil {
		crisis = severity.NewCrisisScorer(resources)
	}
	if anxiety == nil {
		anxiety = severity.NewAnxietyScorer()
	}
	return &CrisisHandler{resources: resources, crisis: crisis, anxiety: anxiety}
}

// Resources handles GET /v1/crisis/resources
func (h *CrisisHandler) Resources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		severity.Resources
		SafetyPlan []string `json:"safety_plan"`
	}{h.resources, severity.SafetyPlan()})
}

type assessRequest struct {
	Text            string  `json:"text"`
	ClassifierScore float64 `json:"classifier_score"`
}

type assessResponse struct {
	Anxiety         severity.AnxietySignal `json:"anxiety"`
	Crisis          severity.CrisisSignal  `json:"crisis"`
	Recommendations []string               `json:"recommendations"`
}

// Assess handles POST /v1/crisis/assess. It scores text without touching any conversation.
func (h *CrisisHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}

	anxiety := h.anxiety.Score(req.Text, req.ClassifierScore)
	writeJSON(w, http.StatusOK, assessResponse{
		Anxiety:         anxiety,
		Crisis:          h.crisis.Score(req.Text),
		Recommendations: severity.AnxietyRecommendations(anxiety.Severity),
	})
}
