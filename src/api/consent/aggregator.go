// Package consent classifies the outcome of a completed consent round.
package consent

import (
	"context"

	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/types"
)

type Aggregator struct {
	repo data.Repository
}

func New(repo data.Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Outcome is the classification plus the ledger tallies behind it.
type Outcome struct {
	ProposalID   string `json:"proposalId"`
	Outcome      string `json:"outcome"`
	Consent      int    `json:"consent"`
	Reservations int    `json:"consentWithReservations"`
	Withhold     int    `json:"withholdConsent"`
	OpenIssues   int    `json:"openObjections"`
}

// ComputeOutcome derives the classification from the consent ledger and the
// objection resolution state. Pure read: the same ledger state always yields
// the same result. Only meaningful once the step pointer has reached
// record_outcome; earlier calls fail with IncompleteData.
func (a *Aggregator) ComputeOutcome(ctx context.Context, proposalID string) (*Outcome, error) {
	p, err := a.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.CurrentStep != types.StepRecordOutcome {
		return nil, core.ErrIncompleteData
	}

	out := &Outcome{ProposalID: proposalID}

	responses, err := a.repo.ListConsentResponses(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	for _, r := range responses {
		switch r.Choice {
		case types.ChoiceConsent:
			out.Consent++
		case types.ChoiceReservations:
			out.Reservations++
		case types.ChoiceWithhold:
			out.Withhold++
		}
	}

	objections, err := a.repo.ListObjections(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	for _, o := range objections {
		if !o.IsResolved {
			out.OpenIssues++
		}
	}

	switch {
	case out.Withhold > 0 || out.OpenIssues > 0:
		out.Outcome = types.OutcomeBlocked
	case out.Reservations > 0:
		out.Outcome = types.OutcomeReservations
	default:
		out.Outcome = types.OutcomeConsented
	}
	return out, nil
}
