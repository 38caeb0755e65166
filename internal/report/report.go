package report

import (
	"encoding/json"
	"io"
)

// Status is the outcome of one check
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// CheckResult is the outcome of one named check
type CheckResult struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// PackageReport groups the checks of one package
type PackageReport struct {
	Name   string        `json:"name"`
	Path   string        `json:"path"`
	Checks []CheckResult `json:"checks"`
}

// Failed reports whether any check of the package failed
func (p PackageReport) Failed() bool {
	for _, c := range p.Checks {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}

// Summary counts results across a report
type Summary struct {
	Packages       int `json:"packages"`
	FailedPackages int `json:"failedPackages"`
	Checks         int `json:"checks"`
	Passed         int `json:"passed"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
}

// Report is the result of a validation run
type Report struct {
	Packages []PackageReport `json:"packages"`
}

// Add appends a package report
func (r *Report) Add(p PackageReport) {
	r.Packages = append(r.Packages, p)
}

// Failed reports whether any check in any package failed
func (r *Report) Failed() bool {
	for _, p := range r.Packages {
		if p.Failed() {
			return true
		}
	}
	return false
}

// Summary computes the result counts
func (r *Report) Summary() Summary {
	s := Summary{Packages: len(r.Packages)}
	for _, p := range r.Packages {
		if p.Failed() {
			s.FailedPackages++
		}
		for _, c := range p.Checks {
			s.Checks++
			switch c.Status {
			case StatusPass:
				s.Passed++
			case StatusFail:
				s.Failed++
			case StatusSkip:
				s.Skipped++
			}
		}
	}
	return s
}

// MarshalJSON renders the report with its summary
func (r *Report) MarshalJSON() ([]byte, error) {
	packages := r.Packages
	if packages == nil {
		packages = []PackageReport{}
	}
	return json.Marshal(struct {
		Summary  Summary         `json:"summary"`
		Packages []PackageReport `json:"packages"`
	}{
		Summary:  r.Summary(),
		Packages: packages,
	})
}

// WriteJSON writes the indented JSON report
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}
