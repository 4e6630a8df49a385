package redis

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/db"
)

// EvalInt runs script atomically on the server and returns its integer reply.
func (s *Store) EvalInt(ctx context.Context, script string, keys, args []string) (int64, error) {
	cmd := s.client.B().Eval().Script(script).Numkeys(int64(len(keys))).Key(keys...).Arg(args...).Build()
	n, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpEval, Err: err}
	}
	return n, nil
}
