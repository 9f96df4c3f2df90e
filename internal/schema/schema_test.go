package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "happy_sec", Normalize("  Happy Sec "))
	assert.Equal(t, "participant_id", Normalize("Participant-ID"))
	assert.Equal(t, "p_value", Normalize("p.value"))
	assert.Equal(t, "a_b", Normalize("a -- b"))
}

func TestResolveCaseAndAlias(t *testing.T) {
	r := NewResolver(nil, zaptest.NewLogger(t))

	res := r.Resolve("trials", "happy", []string{"PID", "Condition", "Happiness", "Neutral"})
	assert.True(t, res.Matched)
	assert.Equal(t, "Happiness", res.Column)

	res = r.Resolve("trials", FieldParticipant, []string{"PID", "Condition"})
	assert.Equal(t, "PID", res.Column)
}

func TestResolvePrefersEarlierAlias(t *testing.T) {
	r := NewResolver(nil, zaptest.NewLogger(t))
	res := r.Resolve("trials", "fearful", []string{"fear_sec", "Fear"})
	assert.Equal(t, "Fear", res.Column)
}

func TestResolveMissing(t *testing.T) {
	r := NewResolver(nil, zaptest.NewLogger(t))
	res := r.Resolve("trials", "disgusted", []string{"happy", "sad"})
	assert.False(t, res.Matched)
	assert.Empty(t, res.Column)
	assert.Equal(t, "disgusted", res.Field)
}

func TestResolveAllDoesNotReuseColumns(t *testing.T) {
	r := NewResolver(nil, zaptest.NewLogger(t))
	// "category" is an alias of both the category field and the label field
	got := r.ResolveAll("goodness_of_fit", []string{FieldCategory, FieldLabel}, []string{"category", "name"})
	assert.Equal(t, "category", got[FieldCategory].Column)
	assert.Equal(t, "name", got[FieldLabel].Column)
}

func TestUnknownFieldMatchesItself(t *testing.T) {
	r := NewResolver(nil, zaptest.NewLogger(t))
	res := r.Resolve("covariates", "valence", []string{"Valence"})
	assert.Equal(t, "Valence", res.Column)
}

func TestLoadFileExtendsAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  happy: [freude, Happy]\n  valence: [val]\n"), 0o600))

	reg := DefaultRegistry()
	require.NoError(t, reg.LoadFile(path))

	happy := reg.Aliases("happy")
	assert.Equal(t, "happy", happy[0])
	assert.Equal(t, "freude", happy[len(happy)-1])
	assert.Equal(t, []string{"valence", "val"}, reg.Aliases("valence"))

	r := NewResolver(reg, zaptest.NewLogger(t))
	assert.Equal(t, "Freude", r.Resolve("trials", "happy", []string{"Freude"}).Column)
}

func TestLoadFileErrors(t *testing.T) {
	reg := DefaultRegistry()
	assert.Error(t, reg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("aliases: [unclosed"), 0o600))
	assert.Error(t, reg.LoadFile(bad))
}
