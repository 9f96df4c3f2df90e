package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeAvailable(t *testing.T) {
	assert.True(t, OK().Available())
	for _, s := range []Status{StatusInsufficient, StatusUndefined, StatusMissing, StatusSkipped} {
		assert.False(t, Outcome{Status: s}.Available(), s)
	}
}

func TestParticipantRecordAccessors(t *testing.T) {
	p := ParticipantRecord{
		ParticipantID: "P1",
		Conditions: map[string]ConditionAggregate{
			"C1": {Aggregate: 27.5, Categories: map[string]float64{"happy": 27}},
		},
	}

	assert.Equal(t, 27.5, p.Aggregate("C1"))
	assert.Equal(t, 27.0, p.Category("C1", "happy"))
	assert.Zero(t, p.Aggregate("C2"))
	assert.Zero(t, p.Category("C2", "happy"))
	assert.Zero(t, p.Category("C1", "sad"))
}

func TestCorrelationLookup(t *testing.T) {
	table := CorrelationTable{
		Outcome: OK(),
		Entries: []CorrelationEntry{
			{Outcome: OK(), Covariate: "liking", Rho: 0.5, N: 5},
			{Outcome: Outcome{Status: StatusUndefined}, Covariate: "arousal", N: 5},
		},
	}

	e, ok := table.Lookup("arousal")
	assert.True(t, ok)
	assert.Equal(t, StatusUndefined, e.Status)

	_, ok = table.Lookup("valence")
	assert.False(t, ok)
}
