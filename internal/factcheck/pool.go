// Package factcheck validates named sub-entities against an external oracle
// with a small fixed-size worker pool.
package factcheck

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"ArticleFactory/internal/ports"
)

// MaxWorkers caps the pool size.
const MaxWorkers = 8

// Verdict is the oracle's answer for one name.
type Verdict struct {
	Name  string
	Valid bool
	Err   error
}

// Workers returns the pool size used for n distinct items.
func Workers(n int) int {
	if n <= 0 {
		return 0
	}
	return min(MaxWorkers, n)
}

// Run processes indices [0, n) with Workers(n) goroutines. Each worker claims
// the next index from a shared atomic counter until the range is exhausted,
// so every index is handed out exactly once. Workers stop claiming once ctx
// is done; the context error is returned with the number of workers started.
func Run(ctx context.Context, n int, fn func(ctx context.Context, worker, idx int)) (int, error) {
	workers := Workers(n)
	if workers == 0 {
		return 0, nil
	}

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				idx := int(next.Add(1) - 1)
				if idx >= n {
					return nil
				}
				fn(gctx, w, idx)
			}
		})
	}
	return workers, g.Wait()
}

// Check looks every name up once (duplicates are collapsed) and returns the
// verdicts in input order.
func Check(ctx context.Context, oracle ports.FactOracle, names []string) []Verdict {
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	results := make([]Verdict, len(unique))
	claimed := make([]bool, len(unique))
	_, err := Run(ctx, len(unique), func(ctx context.Context, _ int, idx int) {
		ok, err := oracle.Exists(ctx, unique[idx])
		results[idx] = Verdict{Name: unique[idx], Valid: ok && err == nil, Err: err}
		claimed[idx] = true
	})
	if err != nil {
		for i, done := range claimed {
			if !done {
				results[i] = Verdict{Name: unique[i], Err: err}
			}
		}
	}

	byName := make(map[string]Verdict, len(results))
	for _, v := range results {
		byName[v.Name] = v
	}
	out := make([]Verdict, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out
}
