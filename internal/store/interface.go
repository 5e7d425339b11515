package store

import "context"

// Gateway is the transactional surface the lifecycle manager works against.
type Gateway interface {
	DB() Querier
	WithTx(ctx context.Context, fn func(q Querier) error) error
}

var _ Gateway = (*Store)(nil)
