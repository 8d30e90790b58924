package risk

type AlertType string

const (
	AlertTypeWarning  AlertType = "warning"
	AlertTypeCritical AlertType = "critical"
	AlertTypeInfo     AlertType = "info"
)

// AlertDraft is an unpersisted alert descriptor derived from an analysis.
type AlertDraft struct {
	Type     AlertType
	Severity RiskLevel
	Title    string
	Message  string
}

// DeriveAlert maps a validated risk level to at most one alert. Only high and
// critical levels produce alerts; the message is always the analysis summary
// verbatim. Pure and deterministic; persistence belongs to the caller.
func DeriveAlert(a Analysis) (AlertDraft, bool) {
	switch a.Determination.RiskLevel {
	case RiskCritical:
		return AlertDraft{
			Type:     AlertTypeCritical,
			Severity: RiskCritical,
			Title:    "Critical risk level detected",
			Message:  a.Determination.Summary,
		}, true
	case RiskHigh:
		return AlertDraft{
			Type:     AlertTypeWarning,
			Severity: RiskHigh,
			Title:    "Elevated risk level detected",
			Message:  a.Determination.Summary,
		}, true
	}
	return AlertDraft{}, false
}
