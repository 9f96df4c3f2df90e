package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// reportNamespace scopes report ids so that equal inputs always map to the same id.
var reportNamespace = uuid.MustParse("6f1c2a4e-93b1-4d0a-9c51-2d8f0e7b4a10")

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// ReportID identifies one analysis report. It is derived from the input
// fingerprint, never from the clock.
type ReportID ID

func (id ReportID) String() string { return ID(id).String() }

// NewReportID derives a UUIDv5 from a content fingerprint
func NewReportID(fp Fingerprint) ReportID {
	return ReportID(uuid.NewSHA1(reportNamespace, []byte(fp)).String())
}

// ParseReportID validates a report id coming from a URL or CLI flag
func ParseReportID(s string) (ReportID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("report ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid report ID %q: %w", s, err)
	}
	return ReportID(s), nil
}
