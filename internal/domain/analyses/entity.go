package analyses

import "time"

// AnalysisID identifier type
type AnalysisID string

// Analysis represents an AI analysis of a completed run, stored for auditing
// and retrieval.
type Analysis struct {
	ID        AnalysisID `json:"id"`
	TenantID  string     `json:"tenant_id"`
	SBOMID    string     `json:"sbom_id"`
	RunID     string     `json:"run_id"`
	Result    string     `json:"result"` // JSON string from AI
	CreatedAt time.Time  `json:"created_at"`
}
