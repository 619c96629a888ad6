package data

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sociocrates/sociocrates/src/api/types"
)

const settingsTTL = time.Minute

// Durations resolves per-step timer windows, honoring per-circle overrides
// stored as CircleSetting "step_duration.<step>" (seconds). Lookups are
// cached briefly so the sweeper does not hammer the settings table.
type Durations struct {
	repo Repository

	mu    sync.Mutex
	cache map[string]cachedDuration
}

type cachedDuration struct {
	d       time.Duration
	fetched time.Time
}

func NewDurations(repo Repository) *Durations {
	return &Durations{repo: repo, cache: make(map[string]cachedDuration)}
}

func (ds *Durations) StepDuration(ctx context.Context, circleID string, step types.Step) time.Duration {
	key := circleID + "/" + string(step)

	ds.mu.Lock()
	if c, ok := ds.cache[key]; ok && time.Since(c.fetched) < settingsTTL {
		ds.mu.Unlock()
		return c.d
	}
	ds.mu.Unlock()

	d := time.Duration(types.DefaultStepDurations[step]) * time.Second
	if v, err := ds.repo.GetCircleSetting(ctx, circleID, "step_duration."+string(step)); err == nil && v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			d = time.Duration(secs) * time.Second
		}
	}

	ds.mu.Lock()
	ds.cache[key] = cachedDuration{d: d, fetched: time.Now()}
	ds.mu.Unlock()
	return d
}
