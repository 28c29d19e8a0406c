// Package inmemory provides a map-backed transcript driver.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/papercomputeco/agentchat/pkg/transcript"
)

// Driver implements transcript.Driver using an in-memory map.
type Driver struct {
	// mu guards exchanges
	mu sync.RWMutex

	// exchanges is keyed by exchange ID
	exchanges map[string]*transcript.Exchange
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		exchanges: make(map[string]*transcript.Exchange),
	}
}

func (d *Driver) Put(_ context.Context, ex *transcript.Exchange) error {
	if ex == nil {
		return errors.New("cannot store nil exchange")
	}
	ex.EnsureID()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.exchanges[ex.ID]; ok {
		return fmt.Errorf("exchange already exists: %s", ex.ID)
	}

	cp := *ex
	d.exchanges[ex.ID] = &cp
	return nil
}

func (d *Driver) Get(_ context.Context, id string) (*transcript.Exchange, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ex, ok := d.exchanges[id]
	if !ok {
		return nil, transcript.NotFoundError{ID: id}
	}

	cp := *ex
	return &cp, nil
}

func (d *Driver) List(_ context.Context, limit int) ([]*transcript.Exchange, error) {
	d.mu.RLock()
	all := d.snapshot(func(*transcript.Exchange) bool { return true })
	d.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (d *Driver) ListByThread(_ context.Context, threadID string) ([]*transcript.Exchange, error) {
	d.mu.RLock()
	result := d.snapshot(func(ex *transcript.Exchange) bool { return ex.ThreadID == threadID })
	d.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (d *Driver) Threads(_ context.Context) ([]transcript.ThreadSummary, error) {
	d.mu.RLock()
	byThread := make(map[string]*transcript.ThreadSummary)
	for _, ex := range d.exchanges {
		sum, ok := byThread[ex.ThreadID]
		if !ok {
			sum = &transcript.ThreadSummary{ThreadID: ex.ThreadID}
			byThread[ex.ThreadID] = sum
		}
		sum.Exchanges++
		if ex.CreatedAt.After(sum.LastAt) {
			sum.LastAt = ex.CreatedAt
		}
	}
	d.mu.RUnlock()

	result := make([]transcript.ThreadSummary, 0, len(byThread))
	for _, sum := range byThread {
		result = append(result, *sum)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastAt.After(result[j].LastAt)
	})
	return result, nil
}

func (d *Driver) Close() error {
	return nil
}

// snapshot copies the exchanges matching keep. Callers hold d.mu.
func (d *Driver) snapshot(keep func(*transcript.Exchange) bool) []*transcript.Exchange {
	result := make([]*transcript.Exchange, 0, len(d.exchanges))
	for _, ex := range d.exchanges {
		if keep(ex) {
			cp := *ex
			result = append(result, &cp)
		}
	}
	return result
}
