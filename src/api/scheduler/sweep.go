// Package scheduler runs the optional auto-advance sweep: a periodic pass
// over activated proposals that advances any whose step criteria are met.
// It sits outside the lifecycle core and goes through the same CAS-guarded
// Advance as a human facilitator would.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/lifecycle"
	"github.com/sociocrates/sociocrates/src/api/types"
)

// SystemActor identifies sweeper-driven advances in proposal events.
const SystemActor = "auto-advance"

type Sweeper struct {
	repo     data.Repository
	lc       *lifecycle.Service
	interval time.Duration
}

func NewSweeper(repo data.Repository, lc *lifecycle.Service, interval time.Duration) *Sweeper {
	return &Sweeper{repo: repo, lc: lc, interval: interval}
}

// Run blocks until ctx is cancelled. Call in a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single pass. Exported so tests can drive it directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	props, err := s.repo.ListActivatedProposals(ctx)
	if err != nil {
		log.Printf("sweep: list proposals: %v", err)
		return
	}
	for _, p := range props {
		ready, err := s.lc.ReadyToAdvance(ctx, p.ID)
		if err != nil {
			log.Printf("sweep: ready check %s: %v", p.ID, err)
			continue
		}
		if !ready {
			continue
		}
		if _, err := s.lc.Advance(ctx, p.ID, SystemActor, types.RoleAdmin); err != nil {
			// A lost race means someone advanced it first; nothing to do.
			if errors.Is(err, core.ErrConflict) {
				continue
			}
			log.Printf("sweep: advance %s: %v", p.ID, err)
			continue
		}
		log.Printf("sweep: advanced proposal %s past %s", p.ID, p.CurrentStep)
	}
}
