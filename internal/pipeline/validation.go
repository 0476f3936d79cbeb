package pipeline

import (
	"context"
	"sync"

	"github.com/TorratDev/Grace/internal/domain"
)

// Validation is one input check. It returns nil on success.
type Validation func(ctx context.Context) *domain.Error

// RunAll executes every validation concurrently, waits for all of them,
// and returns the first error in declaration order (not completion
// order), or nil when all pass.
func RunAll(ctx context.Context, validations []Validation) *domain.Error {
	if len(validations) == 0 {
		return nil
	}
	results := make([]*domain.Error, len(validations))
	var wg sync.WaitGroup
	for i, v := range validations {
		wg.Add(1)
		go func(i int, v Validation) {
			defer wg.Done()
			results[i] = v(ctx)
		}(i, v)
	}
	wg.Wait()
	for _, r := range results {
		if r != nil {
			return r
		}
	}
	return nil
}

// AllPass reports whether every validation succeeded.
func AllPass(ctx context.Context, validations []Validation) bool {
	return RunAll(ctx, validations) == nil
}
