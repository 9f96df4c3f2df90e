package schema

import (
	"go.uber.org/zap"

	"pairstat/domain/study"
)

// Resolver matches semantic fields against one table's headers
type Resolver struct {
	registry *Registry
	logger   *zap.Logger
}

// NewResolver creates a resolver. A nil logger is replaced by a no-op logger.
func NewResolver(registry *Registry, logger *zap.Logger) *Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: registry, logger: logger}
}

// Registry exposes the alias table in use
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve finds the header serving field. Aliases are tried in order; the
// first alias with a matching header wins. Headers listed in exclude are never
// returned, so one column cannot serve two fields.
func (r *Resolver) Resolve(table, field string, headers []string, exclude ...string) study.FieldResolution {
	taken := make(map[string]bool, len(exclude))
	for _, h := range exclude {
		taken[h] = true
	}
	byNorm := make(map[string]string, len(headers))
	for _, h := range headers {
		if taken[h] {
			continue
		}
		n := Normalize(h)
		if _, dup := byNorm[n]; !dup {
			byNorm[n] = h
		}
	}

	for _, alias := range r.registry.Aliases(field) {
		if h, ok := byNorm[Normalize(alias)]; ok {
			r.logger.Debug("column resolved",
				zap.String("table", table),
				zap.String("field", field),
				zap.String("column", h),
				zap.String("alias", alias))
			return study.FieldResolution{Field: field, Column: h, Matched: true}
		}
	}

	r.logger.Warn("column not found under any alias, defaulting to zero",
		zap.String("table", table),
		zap.String("field", field),
		zap.Strings("aliases", r.registry.Aliases(field)))
	return study.FieldResolution{Field: field}
}

// ResolveAll resolves several fields against the same headers, never assigning
// one column twice.
func (r *Resolver) ResolveAll(table string, fields, headers []string) map[string]study.FieldResolution {
	out := make(map[string]study.FieldResolution, len(fields))
	var used []string
	for _, f := range fields {
		res := r.Resolve(table, f, headers, used...)
		if res.Matched {
			used = append(used, res.Column)
		}
		out[f] = res
	}
	return out
}
