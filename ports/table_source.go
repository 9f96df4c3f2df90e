package ports

import (
	"context"

	"pairstat/domain/table"
)

// TableSource yields the named input tables of one analysis run
type TableSource interface {
	Tables(ctx context.Context) (table.Set, error)
}

// TableSourceFunc adapts a function to TableSource
type TableSourceFunc func(ctx context.Context) (table.Set, error)

func (f TableSourceFunc) Tables(ctx context.Context) (table.Set, error) {
	return f(ctx)
}
