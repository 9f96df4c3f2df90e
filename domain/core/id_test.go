package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportIDIsDeterministic(t *testing.T) {
	rows := []map[string]string{
		{"participant": "P01", "condition": "C1", "happy": "12"},
		{"condition": "C2", "participant": "P01", "happy": "4"},
	}
	a := NewReportID(FingerprintRecords("trials", []string{"participant", "condition", "happy"}, rows))
	b := NewReportID(FingerprintRecords("trials", []string{"happy", "condition", "participant"}, rows))
	assert.Equal(t, a, b)

	rows[1]["happy"] = "5"
	c := NewReportID(FingerprintRecords("trials", []string{"participant", "condition", "happy"}, rows))
	assert.NotEqual(t, a, c)

	parsed, err := ParseReportID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestParseReportIDRejectsGarbage(t *testing.T) {
	_, err := ParseReportID("  ")
	assert.Error(t, err)
	_, err = ParseReportID("not-a-uuid")
	assert.Error(t, err)
}

func TestCombineOrderSensitive(t *testing.T) {
	x, y := NewFingerprint([]byte("x")), NewFingerprint([]byte("y"))
	assert.NotEqual(t, Combine(x, y), Combine(y, x))
}
