// Package lifecycle owns the proposal state machine: the seven-step
// pointer, its timing window, and the advancement policy.
package lifecycle

import (
	"context"
	"time"

	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/types"
)

type Service struct {
	repo      data.Repository
	durations *data.Durations
}

func New(repo data.Repository, durations *data.Durations) *Service {
	return &Service{repo: repo, durations: durations}
}

// Activate moves a draft proposal into the process: status active, step
// pointer at proposal_presentation, timer window open, eligibility snapshot
// taken. Only the creator or an admin may activate.
func (s *Service) Activate(ctx context.Context, proposalID, actorID, actorRole string) (*types.Proposal, error) {
	p, err := s.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if actorRole != types.RoleAdmin && actorID != p.CreatedBy {
		return nil, core.ErrForbidden
	}

	start := time.Now()
	end := start.Add(s.durations.StepDuration(ctx, p.CircleID, types.StepPresentation))
	if err := s.repo.ActivateProposal(ctx, proposalID, types.StepPresentation, &start, &end); err != nil {
		return nil, err
	}
	if err := s.snapshotParticipants(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProposal(ctx, proposalID)
}

// Advance moves the step pointer to its successor. This is an unconditional
// admin action: it does not consult ReadyToAdvance (the sweeper does). The
// update is compare-and-swap on the step read here, so two racing calls
// cannot both advance; the loser sees ErrConflict.
func (s *Service) Advance(ctx context.Context, proposalID, actorID, actorRole string) (*types.Proposal, error) {
	if actorRole != types.RoleAdmin {
		return nil, core.ErrForbidden
	}
	p, err := s.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.Activated() {
		return nil, core.ErrInvalidState
	}

	next, ok := p.CurrentStep.Next()
	if !ok {
		// Terminal: the step pointer stays on record_outcome.
		if err := s.repo.UpdateProposalStep(ctx, proposalID, p.CurrentStep, p.CurrentStep,
			types.StatusResolved, p.StepStartTime, p.StepEndTime); err != nil {
			return nil, err
		}
		return s.repo.GetProposal(ctx, proposalID)
	}

	status := types.StatusActive
	if next == types.StepConsent {
		status = types.StatusPendingConsent
	}
	start := time.Now()
	end := start.Add(s.durations.StepDuration(ctx, p.CircleID, next))
	if err := s.repo.UpdateProposalStep(ctx, proposalID, p.CurrentStep, next, status, &start, &end); err != nil {
		return nil, err
	}
	// Late circle joiners become eligible from the next step on.
	if err := s.snapshotParticipants(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProposal(ctx, proposalID)
}

// SetStep is the admin correction hatch: a direct jump to any step,
// bypassing the fixed order.
func (s *Service) SetStep(ctx context.Context, proposalID, actorID, actorRole string, target types.Step) (*types.Proposal, error) {
	if actorRole != types.RoleAdmin {
		return nil, core.ErrForbidden
	}
	if !target.Valid() {
		return nil, core.ErrInvalidStep
	}
	p, err := s.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.Activated() {
		return nil, core.ErrInvalidState
	}

	status := types.StatusActive
	if target == types.StepConsent {
		status = types.StatusPendingConsent
	}
	start := time.Now()
	end := start.Add(s.durations.StepDuration(ctx, p.CircleID, target))
	if err := s.repo.UpdateProposalStep(ctx, proposalID, p.CurrentStep, target, status, &start, &end); err != nil {
		return nil, err
	}
	if err := s.snapshotParticipants(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProposal(ctx, proposalID)
}

// ReadyToAdvance evaluates step-specific advancement criteria. Advisory
// only: nothing here mutates state, and Advance never calls it. The
// auto-advance sweeper is its one consumer.
func (s *Service) ReadyToAdvance(ctx context.Context, proposalID string) (bool, error) {
	p, err := s.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return false, err
	}
	if !p.Activated() {
		return false, nil
	}
	timerExpired := p.StepEndTime != nil && time.Now().After(*p.StepEndTime)

	switch p.CurrentStep {
	case types.StepPresentation, types.StepRecordOutcome:
		// No submission gating on these steps.
		return true, nil

	case types.StepClarifying:
		if timerExpired {
			return true, nil
		}
		qs, err := s.repo.ListQuestions(ctx, proposalID)
		if err != nil {
			return false, err
		}
		if len(qs) >= types.MaxQuestionsPerProposal {
			return true, nil
		}
		authors := make(map[string]bool, len(qs))
		for _, q := range qs {
			authors[q.AuthorID] = true
		}
		return s.allSubmitted(ctx, proposalID, authors)

	case types.StepReactions:
		if timerExpired {
			return true, nil
		}
		rs, err := s.repo.ListReactions(ctx, proposalID)
		if err != nil {
			return false, err
		}
		authors := make(map[string]bool, len(rs))
		for _, r := range rs {
			authors[r.AuthorID] = true
		}
		return s.allSubmitted(ctx, proposalID, authors)

	case types.StepObjections:
		if timerExpired {
			return true, nil
		}
		os, err := s.repo.ListObjections(ctx, proposalID)
		if err != nil {
			return false, err
		}
		authors := make(map[string]bool, len(os))
		for _, o := range os {
			authors[o.AuthorID] = true
		}
		return s.allSubmitted(ctx, proposalID, authors)

	case types.StepResolveObjections:
		if timerExpired {
			return true, nil
		}
		os, err := s.repo.ListObjections(ctx, proposalID)
		if err != nil {
			return false, err
		}
		for _, o := range os {
			if !o.IsResolved {
				return false, nil
			}
		}
		return true, nil

	case types.StepConsent:
		if timerExpired {
			return true, nil
		}
		crs, err := s.repo.ListConsentResponses(ctx, proposalID)
		if err != nil {
			return false, err
		}
		authors := make(map[string]bool, len(crs))
		for _, cr := range crs {
			authors[cr.AuthorID] = true
		}
		return s.allSubmitted(ctx, proposalID, authors)
	}
	return false, nil
}

// allSubmitted reports whether every eligible participant appears in the
// author set. An empty snapshot never counts as complete; only the timer
// can move such a proposal.
func (s *Service) allSubmitted(ctx context.Context, proposalID string, authors map[string]bool) (bool, error) {
	parts, err := s.repo.ListParticipants(ctx, proposalID)
	if err != nil {
		return false, err
	}
	if len(parts) == 0 {
		return false, nil
	}
	for _, part := range parts {
		if !authors[part.UserID] {
			return false, nil
		}
	}
	return true, nil
}

// snapshotParticipants records the circle's current non-observer members as
// the proposal's eligibility set. Additive: members already snapshotted stay.
func (s *Service) snapshotParticipants(ctx context.Context, p *types.Proposal) error {
	members, err := s.repo.ListCircleMembers(ctx, p.CircleID)
	if err != nil {
		return err
	}
	var parts []types.ProposalParticipant
	for _, m := range members {
		u, err := s.repo.GetUser(ctx, m.UserID)
		if err != nil {
			continue // stale membership row
		}
		if u.Role == types.RoleObserver {
			continue
		}
		parts = append(parts, types.ProposalParticipant{
			ProposalID: p.ID,
			UserID:     u.ID,
			Role:       u.Role,
		})
	}
	return s.repo.SnapshotParticipants(ctx, p.ID, parts)
}
