package assessments

// FindingStatus untuk compliance-style findings
type FindingStatus string

const (
	FindingPass    FindingStatus = "pass"
	FindingFail    FindingStatus = "fail"
	FindingWarning FindingStatus = "warning"
	FindingInfo    FindingStatus = "info"
	FindingError   FindingStatus = "error"
)

// Severity untuk security-style findings
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
	SeverityUnknown  Severity = "unknown"
)

// Finding is one observation inside a result payload. Compliance-style plugins
// set Status; security-style plugins set Severity + CVSS. The two usages are
// mutually exclusive by convention, not enforced by the type.
type Finding struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      FindingStatus `json:"status,omitempty"`
	Severity    Severity      `json:"severity,omitempty"`
	CVSS        float64       `json:"cvss,omitempty"`
	Component   string        `json:"component,omitempty"`
	References  []string      `json:"references,omitempty"`
	Aliases     []string      `json:"aliases,omitempty"`
	Remediation string        `json:"remediation,omitempty"`
}

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Unknown  int `json:"unknown"`
}

// Summary aggregates counters over a finding list.
type Summary struct {
	Total      int             `json:"total"`
	Pass       int             `json:"pass"`
	Fail       int             `json:"fail"`
	Warning    int             `json:"warning"`
	Info       int             `json:"info"`
	Error      int             `json:"error"`
	Severities *SeverityCounts `json:"severities,omitempty"`
}

// Result is the structured payload of a completed run.
type Result struct {
	Summary  Summary   `json:"summary"`
	Findings []Finding `json:"findings"`
}

// Summarize derives a Summary from a finding list. Security-style findings
// (carrying a severity) additionally populate the severity histogram.
func Summarize(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	var sev SeverityCounts
	hasSev := false
	for _, f := range findings {
		switch f.Status {
		case FindingPass:
			s.Pass++
		case FindingFail:
			s.Fail++
		case FindingWarning:
			s.Warning++
		case FindingInfo:
			s.Info++
		case FindingError:
			s.Error++
		}
		if f.Severity != "" {
			hasSev = true
			switch f.Severity {
			case SeverityCritical:
				sev.Critical++
			case SeverityHigh:
				sev.High++
			case SeverityMedium:
				sev.Medium++
			case SeverityLow:
				sev.Low++
			case SeverityInfo:
				sev.Info++
			default:
				sev.Unknown++
			}
		}
	}
	if hasSev {
		s.Severities = &sev
	}
	return s
}

// NewResult builds a Result with its summary derived from the findings.
func NewResult(findings []Finding) *Result {
	return &Result{Summary: Summarize(findings), Findings: findings}
}
