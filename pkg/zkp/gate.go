package zkp

import (
	"context"

	"github.com/rs/zerolog"
)

// Gate turns a remote query into a fail-closed allow/deny decision. An empty
// key belongs to an account that never logged in with a proof and is always
// allowed; any query error is a denial.
type Gate[T any] struct {
	Name  string
	Query func(ctx context.Context, key string) (T, error)
	Allow func(T) bool
	Log   zerolog.Logger
}

func (g Gate[T]) Check(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	result, err := g.Query(ctx, key)
	if err != nil {
		g.Log.Warn().Err(err).Str("gate", g.Name).Str("key", key).Msg("oracle query failed, denying")
		return false
	}
	return g.Allow(result)
}
