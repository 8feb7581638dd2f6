package pdftl

import (
	"context"
	"sort"
	"sync"
)

// WarmPages prefetches pages in parallel and returns the ones that ended up
// cached, in ascending order. Duplicates and out-of-range pages are skipped.
// The displayed state is never changed.
func (n *Navigator) WarmPages(ctx context.Context, pages ...int) []int {
	if len(pages) == 0 {
		return nil
	}

	// Deduplicate first
	unique := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		unique[p] = struct{}{}
	}

	type warmResult struct {
		page   int
		cached bool
	}

	results := make(chan warmResult, len(unique))
	var wg sync.WaitGroup

	for page := range unique {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			results <- warmResult{page: p, cached: n.PrefetchPage(ctx, p)}
		}(page)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var cached []int
	for r := range results {
		if r.cached {
			cached = append(cached, r.page)
		}
	}
	sort.Ints(cached)

	return cached
}
