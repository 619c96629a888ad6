package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/lifecycle"
	"github.com/sociocrates/sociocrates/src/api/scheduler"
	"github.com/sociocrates/sociocrates/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepAdvancesReadyProposals(t *testing.T) {
	ctx := context.Background()
	repo := data.NewMemoryRepository()
	lc := lifecycle.New(repo, data.NewDurations(repo))
	sweeper := scheduler.NewSweeper(repo, lc, time.Second)

	u := &types.User{ID: "alice", Email: "alice@example.org", PasswordHash: "x", Name: "alice", Role: types.RoleParticipant}
	require.NoError(t, repo.CreateUser(ctx, u))
	circle := &types.Circle{Name: "Main Circle", CreatedBy: "root"}
	require.NoError(t, repo.CreateCircle(ctx, circle))
	require.NoError(t, repo.AddCircleMember(ctx, circle.ID, "alice"))

	ready := &types.Proposal{CircleID: circle.ID, CreatedBy: "alice", Title: "ready", Status: types.StatusDraft}
	require.NoError(t, repo.CreateProposal(ctx, ready))
	_, err := lc.Activate(ctx, ready.ID, "alice", types.RoleParticipant)
	require.NoError(t, err)

	gated := &types.Proposal{CircleID: circle.ID, CreatedBy: "alice", Title: "gated", Status: types.StatusDraft}
	require.NoError(t, repo.CreateProposal(ctx, gated))
	_, err = lc.Activate(ctx, gated.ID, "alice", types.RoleParticipant)
	require.NoError(t, err)
	_, err = lc.Advance(ctx, gated.ID, "root", types.RoleAdmin)
	require.NoError(t, err)

	draft := &types.Proposal{CircleID: circle.ID, CreatedBy: "alice", Title: "draft", Status: types.StatusDraft}
	require.NoError(t, repo.CreateProposal(ctx, draft))

	sweeper.Sweep(ctx)

	// The presentation step has no gating, so the sweep advanced it.
	got, err := repo.GetProposal(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StepClarifying, got.CurrentStep)

	// Clarifying questions are gated and the timer has not expired.
	got, err = repo.GetProposal(ctx, gated.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StepClarifying, got.CurrentStep)

	// Drafts are untouched.
	got, err = repo.GetProposal(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDraft, got.Status)
	assert.Empty(t, string(got.CurrentStep))
}
