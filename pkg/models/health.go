package models

type HealthStatus string

const (
	HealthOK   HealthStatus = "ok"
	HealthWarn HealthStatus = "warn"
	HealthFail HealthStatus = "fail"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

type HealthCheck struct {
	Name     string
	Severity Severity
	Status   HealthStatus
	Details  []string
}

func (c HealthCheck) Passed() bool {
	return c.Status == HealthOK
}

type HealthReport struct {
	Mode     string
	Checks   []HealthCheck
	Critical int
	Warnings int
	Total    int
	CIMode   bool
}

const (
	ExitHealthy  = 0
	ExitWarnings = 1
	ExitCritical = 2
)

// ExitCode maps the verdict to the process status. Quick mode is boolean.
func (r *HealthReport) ExitCode() int {
	if r.Mode == "quick" {
		if r.Critical > 0 || r.Warnings > 0 {
			return ExitWarnings
		}
		return ExitHealthy
	}
	if r.Critical > 0 {
		return ExitCritical
	}
	if r.Warnings > 0 && !r.CIMode {
		return ExitWarnings
	}
	return ExitHealthy
}

func (r *HealthReport) Passed() int {
	n := 0
	for _, c := range r.Checks {
		if c.Passed() {
			n++
		}
	}
	return n
}
