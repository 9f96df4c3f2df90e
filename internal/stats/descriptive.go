package stats

import (
	"math"

	gostats "github.com/montanaflynn/stats"

	"pairstat/domain/study"
	"pairstat/internal/errors"
)

// Mean is the arithmetic mean. An empty series is an insufficient sample.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errors.Insufficient(1, 0, "mean")
	}
	return gostats.Mean(xs)
}

// SampleStd is the Bessel-corrected standard deviation
func SampleStd(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, errors.Insufficient(2, len(xs), "sample standard deviation")
	}
	return gostats.StandardDeviationSample(xs)
}

// PopulationStd divides by n rather than n-1
func PopulationStd(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errors.Insufficient(1, 0, "population standard deviation")
	}
	return gostats.StandardDeviationPopulation(xs)
}

// Describe summarizes a series. A single observation yields mean/min/max with
// no SD and an insufficient_sample status.
func Describe(xs []float64) study.Descriptive {
	d := study.Descriptive{N: len(xs)}
	if len(xs) == 0 {
		d.Outcome = study.Outcome{Status: study.StatusMissing, Reason: "empty series"}
		return d
	}

	mean, _ := gostats.Mean(xs)
	if !finite(mean) {
		d.Outcome = OutcomeFromError(errors.Degenerate("mean is not finite"))
		return d
	}
	d.Mean = mean
	d.Min, _ = gostats.Min(xs)
	d.Max, _ = gostats.Max(xs)

	sd, err := SampleStd(xs)
	if err != nil {
		d.Outcome = OutcomeFromError(err)
		return d
	}
	if !finite(sd) {
		d.Outcome = OutcomeFromError(errors.Degenerate("standard deviation is not finite"))
		return d
	}
	d.SD = &sd
	d.Outcome = study.OK()
	return d
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// OutcomeFromError maps a primitive's error onto the report status vocabulary
func OutcomeFromError(err error) study.Outcome {
	if err == nil {
		return study.OK()
	}
	status := study.StatusUndefined
	switch errors.GetCode(err) {
	case errors.CodeInsufficient:
		status = study.StatusInsufficient
	case errors.CodeMissingData:
		status = study.StatusMissing
	}
	return study.Outcome{Status: status, Reason: err.Error()}
}
