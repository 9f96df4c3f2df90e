// Package testkit generates seeded synthetic study data: per-trial emotion
// seconds for two conditions plus a covariate table.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"pairstat/domain/table"
	"pairstat/internal/schema"
)

// GeneratorConfig configures the synthetic study
type GeneratorConfig struct {
	Participants       int      `json:"participants"`
	TrialsPerCondition int      `json:"trials_per_condition"`
	TimeBudgetSeconds  float64  `json:"time_budget_seconds"`
	ConditionA         string   `json:"condition_a"`
	ConditionB         string   `json:"condition_b"`
	Categories         []string `json:"categories"`
	// Effect is the mean extra seconds of "happy" under ConditionA
	Effect float64 `json:"effect"`
	// Noise is the per-trial standard deviation in seconds
	Noise float64 `json:"noise"`
	Seed  int64   `json:"seed"`
}

// DefaultConfig returns a small two-condition study with a clear effect
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Participants:       20,
		TrialsPerCondition: 4,
		TimeBudgetSeconds:  120,
		ConditionA:         "C1",
		ConditionB:         "C2",
		Categories:         append([]string(nil), schema.DefaultCategories...),
		Effect:             15,
		Noise:              4,
		Seed:               42,
	}
}

// Generator produces deterministic tables for a config
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
	// per participant baseline expressiveness, shared by trials and covariates
	baseline []float64
}

// NewGenerator creates a generator. Equal configs yield equal tables.
func NewGenerator(config GeneratorConfig) *Generator {
	g := &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
	g.baseline = make([]float64, config.Participants)
	for i := range g.baseline {
		g.baseline[i] = 0.5 + g.rng.Float64()
	}
	return g
}

// Set generates the trials and covariates tables
func (g *Generator) Set() table.Set {
	return table.Set{
		table.Trials:     g.Trials(),
		table.Covariates: g.Covariates(),
	}
}

// Trials generates one row per participant, condition and trial. Emotion
// seconds never exceed the time budget and the reference category takes the
// remainder.
func (g *Generator) Trials() *table.Table {
	cfg := g.config
	columns := append([]string{"participant", "condition", "trial"}, cfg.Categories...)
	t := &table.Table{Name: table.Trials, Columns: columns}

	for p := 0; p < cfg.Participants; p++ {
		for _, cond := range []string{cfg.ConditionA, cfg.ConditionB} {
			for trial := 1; trial <= cfg.TrialsPerCondition; trial++ {
				rec := table.Record{
					"participant": participantID(p),
					"condition":   cond,
					"trial":       strconv.Itoa(trial),
				}
				g.fillTrial(rec, p, cond == cfg.ConditionA)
				t.Rows = append(t.Rows, rec)
			}
		}
	}
	return t
}

func (g *Generator) fillTrial(rec table.Record, p int, treated bool) {
	cfg := g.config
	remaining := cfg.TimeBudgetSeconds
	for _, c := range cfg.Categories {
		if c == schema.ReferenceCategory {
			continue
		}
		mean := 3 * g.baseline[p]
		if c == "happy" {
			mean = 10 * g.baseline[p]
			if treated {
				mean += cfg.Effect
			}
		}
		v := math.Max(0, mean+g.rng.NormFloat64()*cfg.Noise)
		v = math.Min(math.Round(v), remaining)
		remaining -= v
		rec[c] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	for _, c := range cfg.Categories {
		if c == schema.ReferenceCategory {
			rec[c] = strconv.FormatFloat(remaining, 'f', -1, 64)
		}
	}
}

// Covariates generates liking (tracks baseline) and arousal (pure noise)
// on a 1-7 scale
func (g *Generator) Covariates() *table.Table {
	t := &table.Table{Name: table.Covariates, Columns: []string{"participant", "liking", "arousal"}}
	for p := 0; p < g.config.Participants; p++ {
		liking := clampScale(math.Round(2 + 3*g.baseline[p] + g.rng.NormFloat64()*0.5))
		arousal := clampScale(float64(1 + g.rng.Intn(7)))
		t.Rows = append(t.Rows, table.Record{
			"participant": participantID(p),
			"liking":      strconv.FormatFloat(liking, 'f', -1, 64),
			"arousal":     strconv.FormatFloat(arousal, 'f', -1, 64),
		})
	}
	return t
}

func participantID(i int) string {
	return fmt.Sprintf("P%03d", i+1)
}

func clampScale(v float64) float64 {
	return math.Max(1, math.Min(7, v))
}
