package consent_test

import (
	"context"
	"testing"

	"github.com/sociocrates/sociocrates/src/api/consent"
	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, step types.Step) (context.Context, data.Repository, *consent.Aggregator, *types.Proposal) {
	t.Helper()
	ctx := context.Background()
	repo := data.NewMemoryRepository()
	p := &types.Proposal{
		CircleID:    "circle-1",
		CreatedBy:   "alice",
		Title:       "Community garden",
		Status:      types.StatusActive,
		CurrentStep: step,
		IsActive:    true,
	}
	require.NoError(t, repo.CreateProposal(ctx, p))
	return ctx, repo, consent.New(repo), p
}

func respond(t *testing.T, repo data.Repository, proposalID, author, choice string) {
	t.Helper()
	require.NoError(t, repo.AppendConsent(context.Background(), &types.ConsentResponse{
		ProposalID: proposalID, AuthorID: author, Choice: choice, Reason: "because",
	}))
}

func TestComputeOutcomeRequiresRecordOutcomeStep(t *testing.T) {
	ctx, _, agg, p := seed(t, types.StepConsent)
	_, err := agg.ComputeOutcome(ctx, p.ID)
	assert.ErrorIs(t, err, core.ErrIncompleteData)
}

func TestComputeOutcomeUnknownProposal(t *testing.T) {
	ctx, _, agg, _ := seed(t, types.StepRecordOutcome)
	_, err := agg.ComputeOutcome(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestComputeOutcomeClassification(t *testing.T) {
	t.Run("all plain consent", func(t *testing.T) {
		ctx, repo, agg, p := seed(t, types.StepRecordOutcome)
		respond(t, repo, p.ID, "alice", types.ChoiceConsent)
		respond(t, repo, p.ID, "bob", types.ChoiceConsent)

		out, err := agg.ComputeOutcome(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeConsented, out.Outcome)
		assert.Equal(t, 2, out.Consent)
	})

	t.Run("reservations downgrade the outcome", func(t *testing.T) {
		ctx, repo, agg, p := seed(t, types.StepRecordOutcome)
		respond(t, repo, p.ID, "alice", types.ChoiceConsent)
		respond(t, repo, p.ID, "bob", types.ChoiceReservations)

		out, err := agg.ComputeOutcome(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeReservations, out.Outcome)
	})

	t.Run("any withhold blocks", func(t *testing.T) {
		ctx, repo, agg, p := seed(t, types.StepRecordOutcome)
		respond(t, repo, p.ID, "alice", types.ChoiceReservations)
		respond(t, repo, p.ID, "bob", types.ChoiceWithhold)

		out, err := agg.ComputeOutcome(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeBlocked, out.Outcome)
		assert.Equal(t, 1, out.Withhold)
	})

	t.Run("unresolved objection blocks even with unanimous consent", func(t *testing.T) {
		ctx, repo, agg, p := seed(t, types.StepRecordOutcome)
		respond(t, repo, p.ID, "alice", types.ChoiceConsent)
		require.NoError(t, repo.AppendObjection(ctx, &types.Objection{
			ProposalID: p.ID, AuthorID: "bob", Objection: "unfinished", Severity: types.SeverityMajor,
		}))

		out, err := agg.ComputeOutcome(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeBlocked, out.Outcome)
		assert.Equal(t, 1, out.OpenIssues)
	})

	t.Run("resolved objections do not block", func(t *testing.T) {
		ctx, repo, agg, p := seed(t, types.StepRecordOutcome)
		respond(t, repo, p.ID, "alice", types.ChoiceConsent)
		o := &types.Objection{ProposalID: p.ID, AuthorID: "bob", Objection: "unfinished", Severity: types.SeverityMinor}
		require.NoError(t, repo.AppendObjection(ctx, o))
		require.NoError(t, repo.ResolveObjection(ctx, o.ID, "alice", "rework"))

		out, err := agg.ComputeOutcome(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeConsented, out.Outcome)
	})

	t.Run("deterministic over the same ledger", func(t *testing.T) {
		ctx, repo, agg, p := seed(t, types.StepRecordOutcome)
		respond(t, repo, p.ID, "alice", types.ChoiceReservations)

		first, err := agg.ComputeOutcome(ctx, p.ID)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := agg.ComputeOutcome(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}
