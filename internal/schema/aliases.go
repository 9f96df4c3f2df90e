// Package schema resolves loosely named input columns onto semantic fields.
// Each field has an ordered alias list; headers match case-insensitively with
// spaces and hyphens treated as underscores.
package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Semantic fields outside the category set
const (
	FieldParticipant = "participant"
	FieldCondition   = "condition"
	FieldMean        = "mean"
	FieldSD          = "sd"
	FieldN           = "n"
	FieldCategory    = "category"
	FieldMeanA       = "mean_a"
	FieldMeanB       = "mean_b"
	FieldStatistic   = "statistic"
	FieldZ           = "z"
	FieldP           = "p"
	FieldCovariate   = "covariate"
	FieldRho         = "rho"
	FieldLabel       = "label"
	FieldObserved    = "observed"
	FieldExpected    = "expected"
)

// ReferenceCategory is the neutral state excluded from the aggregate
const ReferenceCategory = "neutral"

// DefaultCategories lists the tracked emotions in report order. The reference
// category comes last.
var DefaultCategories = []string{"happy", "sad", "angry", "surprised", "fearful", "disgusted", ReferenceCategory}

// Registry maps a semantic field to its accepted spellings in priority order
type Registry struct {
	aliases map[string][]string
}

// DefaultRegistry returns the built-in alias table
func DefaultRegistry() *Registry {
	return &Registry{aliases: map[string][]string{
		FieldParticipant: {"participant", "participant_id", "participantid", "pid", "subject", "subject_id", "id"},
		FieldCondition:   {"condition", "condition_id", "cond", "arm", "group"},

		"happy":     {"happy", "happiness", "joy", "happy_sec", "happy_duration"},
		"sad":       {"sad", "sadness", "sad_sec", "sad_duration"},
		"angry":     {"angry", "anger", "angry_sec", "angry_duration"},
		"surprised": {"surprised", "surprise", "surprised_sec", "surprise_duration"},
		"fearful":   {"fearful", "fear", "scared", "fear_sec", "fear_duration"},
		"disgusted": {"disgusted", "disgust", "disgust_sec", "disgust_duration"},
		"neutral":   {"neutral", "neutrality", "neutral_sec", "neutral_duration"},

		FieldMean:      {"mean", "avg", "average", "mean_pct", "mean_percentage"},
		FieldSD:        {"sd", "std", "stdev", "std_dev", "standard_deviation"},
		FieldN:         {"n", "count", "participants"},
		FieldCategory:  {"category", "emotion", "state"},
		FieldMeanA:     {"mean_a", "mean_c1", "c1_mean", "c1"},
		FieldMeanB:     {"mean_b", "mean_c2", "c2_mean", "c2"},
		FieldStatistic: {"statistic", "w", "w_statistic", "stat"},
		FieldZ:         {"z", "z_score", "zscore"},
		FieldP:         {"p", "p_value", "pvalue", "p_raw"},
		FieldCovariate: {"covariate", "variable", "measure", "name"},
		FieldRho:       {"rho", "spearman", "spearman_rho", "r", "correlation"},
		FieldLabel:     {"label", "category", "bucket", "name"},
		FieldObserved:  {"observed", "obs", "count"},
		FieldExpected:  {"expected", "exp"},
	}}
}

// Aliases returns the accepted spellings for a field; a field with no entry
// matches only its own name.
func (r *Registry) Aliases(field string) []string {
	if a, ok := r.aliases[field]; ok {
		return a
	}
	return []string{field}
}

// Fields lists the fields with registered aliases
func (r *Registry) Fields() []string {
	out := make([]string, 0, len(r.aliases))
	for f := range r.aliases {
		out = append(out, f)
	}
	return out
}

// Extend appends extra aliases to a field, after the built-in ones
func (r *Registry) Extend(field string, extra ...string) {
	seen := map[string]bool{}
	for _, a := range r.Aliases(field) {
		seen[Normalize(a)] = true
	}
	list := append([]string(nil), r.Aliases(field)...)
	for _, a := range extra {
		if n := Normalize(a); n != "" && !seen[n] {
			seen[n] = true
			list = append(list, a)
		}
	}
	r.aliases[field] = list
}

// aliasFile is the YAML layout of an alias override file:
//
//	aliases:
//	  happy: [freude, gluecklich]
type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadFile extends the registry from a YAML alias file
func (r *Registry) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read alias file: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse alias file %s: %w", path, err)
	}
	for field, extra := range f.Aliases {
		r.Extend(field, extra...)
	}
	return nil
}

// Normalize canonicalizes a header for comparison
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.':
			return '_'
		}
		return r
	}, s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
