package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/ledger"
	"github.com/sociocrates/sociocrates/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (context.Context, data.Repository, *ledger.Service) {
	t.Helper()
	repo := data.NewMemoryRepository()
	return context.Background(), repo, ledger.New(repo)
}

func newProposal(t *testing.T, repo data.Repository, step types.Step) *types.Proposal {
	t.Helper()
	status := types.StatusActive
	if step == types.StepConsent {
		status = types.StatusPendingConsent
	}
	now := time.Now()
	end := now.Add(10 * time.Minute)
	p := &types.Proposal{
		CircleID:      "circle-1",
		CreatedBy:     "creator",
		Title:         "Community garden",
		Status:        status,
		CurrentStep:   step,
		StepStartTime: &now,
		StepEndTime:   &end,
		IsActive:      true,
	}
	require.NoError(t, repo.CreateProposal(context.Background(), p))
	return p
}

func TestSubmitQuestion(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepClarifying)

	q, err := svc.SubmitQuestion(ctx, p.ID, "alice", types.RoleParticipant, "  How is it funded?  ")
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "How is it funded?", q.Question)
	assert.False(t, q.CreatedAt.IsZero())

	// Round-trip: the listed artifact matches what submit returned.
	qs, err := repo.ListQuestions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, *q, qs[0])
}

func TestSubmitGuards(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepClarifying)

	t.Run("observer forbidden", func(t *testing.T) {
		_, err := svc.SubmitQuestion(ctx, p.ID, "olive", types.RoleObserver, "why?")
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("unknown proposal", func(t *testing.T) {
		_, err := svc.SubmitQuestion(ctx, "nope", "alice", types.RoleParticipant, "why?")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("wrong step", func(t *testing.T) {
		_, err := svc.SubmitReaction(ctx, p.ID, "alice", types.RoleParticipant, "nice")
		assert.ErrorIs(t, err, core.ErrInvalidStep)
	})

	t.Run("draft proposal rejects submissions", func(t *testing.T) {
		draft := &types.Proposal{CircleID: "circle-1", CreatedBy: "creator", Title: "x", Status: types.StatusDraft}
		require.NoError(t, repo.CreateProposal(ctx, draft))
		_, err := svc.SubmitQuestion(ctx, draft.ID, "alice", types.RoleParticipant, "why?")
		assert.ErrorIs(t, err, core.ErrInvalidStep)
	})
}

func TestQuestionCapAndDuplicates(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepClarifying)

	_, err := svc.SubmitQuestion(ctx, p.ID, "alice", types.RoleParticipant, "q1")
	require.NoError(t, err)

	// Second question by the same author is rejected and leaves the ledger unchanged.
	_, err = svc.SubmitQuestion(ctx, p.ID, "alice", types.RoleParticipant, "q1 again")
	assert.ErrorIs(t, err, core.ErrDuplicateSubmission)
	qs, _ := repo.ListQuestions(ctx, p.ID)
	assert.Len(t, qs, 1)

	_, err = svc.SubmitQuestion(ctx, p.ID, "bob", types.RoleParticipant, "q2")
	require.NoError(t, err)

	// Third question still fits the cap.
	_, err = svc.SubmitQuestion(ctx, p.ID, "carol", types.RoleParticipant, "q3")
	require.NoError(t, err)

	// Fourth hits the per-proposal cap.
	_, err = svc.SubmitQuestion(ctx, p.ID, "dave", types.RoleParticipant, "q4")
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
}

func TestSubmitReactionValidation(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepReactions)

	long := make([]rune, types.MaxReactionLen+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name     string
		author   string
		reaction string
		wantErr  error
	}{
		{"empty", "alice", "   ", core.ErrValidation},
		{"too long", "alice", string(long), core.ErrValidation},
		{"ok", "alice", "sounds great", nil},
		{"duplicate", "alice", "second thoughts", core.ErrDuplicateSubmission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitReaction(ctx, p.ID, tt.author, types.RoleParticipant, tt.reaction)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSubmitObjection(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepObjections)

	_, err := svc.SubmitObjection(ctx, p.ID, "alice", types.RoleParticipant, "too expensive", "not-a-severity")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.SubmitObjection(ctx, p.ID, "alice", types.RoleParticipant, "", types.SeverityMinor)
	assert.ErrorIs(t, err, core.ErrValidation)

	o, err := svc.SubmitObjection(ctx, p.ID, "alice", types.RoleParticipant, "too expensive", types.SeverityMajor)
	require.NoError(t, err)
	assert.False(t, o.IsResolved)

	// One open objection per author.
	_, err = svc.SubmitObjection(ctx, p.ID, "alice", types.RoleParticipant, "also ugly", types.SeverityMinor)
	assert.ErrorIs(t, err, core.ErrDuplicateSubmission)

	// Resolving frees the author to object again.
	_, err = svc.ResolveObjection(ctx, o.ID, "creator", types.RoleParticipant, "budget trimmed")
	require.NoError(t, err)
	_, err = svc.SubmitObjection(ctx, p.ID, "alice", types.RoleParticipant, "also ugly", types.SeverityMinor)
	assert.NoError(t, err)
}

func TestSubmitConsent(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepConsent)

	tests := []struct {
		name    string
		author  string
		choice  string
		reason  string
		wantErr error
	}{
		{"bad choice", "alice", "maybe", "", core.ErrValidation},
		{"withhold needs reason", "alice", types.ChoiceWithhold, "", core.ErrValidation},
		{"withhold with reason", "alice", types.ChoiceWithhold, "conflicts with bylaws", nil},
		{"plain consent needs no reason", "bob", types.ChoiceConsent, "", nil},
		{"reservations need reason", "carol", types.ChoiceReservations, "", core.ErrValidation},
		{"one response per author", "bob", types.ChoiceConsent, "", core.ErrDuplicateSubmission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitConsent(ctx, p.ID, tt.author, types.RoleParticipant, tt.choice, tt.reason)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConcurrentDuplicateSubmit(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepReactions)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitReaction(ctx, p.ID, "alice", types.RoleParticipant, "race me")
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, core.ErrDuplicateSubmission):
			dup++
		}
	}
	assert.Equal(t, 1, ok, "exactly one submission must win")
	assert.Equal(t, 1, dup)

	rs, _ := repo.ListReactions(ctx, p.ID)
	assert.Len(t, rs, 1)
}

func TestResolveObjectionPermissions(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepObjections)
	o, err := svc.SubmitObjection(ctx, p.ID, "alice", types.RoleParticipant, "too vague", types.SeverityDealBreaker)
	require.NoError(t, err)

	_, err = svc.ResolveObjection(ctx, "unknown", "creator", types.RoleParticipant, "fix")
	assert.ErrorIs(t, err, core.ErrNotFound)

	// A random participant may not resolve.
	_, err = svc.ResolveObjection(ctx, o.ID, "bob", types.RoleParticipant, "fix")
	assert.ErrorIs(t, err, core.ErrForbidden)

	// Empty solution is rejected.
	_, err = svc.ResolveObjection(ctx, o.ID, "creator", types.RoleParticipant, "  ")
	assert.ErrorIs(t, err, core.ErrValidation)

	// Admins may resolve anything.
	resolved, err := svc.ResolveObjection(ctx, o.ID, "root", types.RoleAdmin, "clarified scope")
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	assert.Equal(t, "clarified scope", resolved.Resolution)
	assert.Equal(t, "root", resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestSanitizeStripsMarkup(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepClarifying)

	q, err := svc.SubmitQuestion(ctx, p.ID, "alice", types.RoleParticipant, `<script>alert(1)</script>what about drainage?`)
	require.NoError(t, err)
	assert.Equal(t, "what about drainage?", q.Question)
}

func TestList(t *testing.T) {
	ctx, repo, svc := setup(t)
	p := newProposal(t, repo, types.StepClarifying)

	_, err := svc.SubmitQuestion(ctx, p.ID, "alice", types.RoleParticipant, "first")
	require.NoError(t, err)
	_, err = svc.SubmitQuestion(ctx, p.ID, "bob", types.RoleParticipant, "second")
	require.NoError(t, err)

	got, err := svc.List(ctx, p.ID, types.StepClarifying)
	require.NoError(t, err)
	qs, ok := got.([]types.ClarifyingQuestion)
	require.True(t, ok)
	require.Len(t, qs, 2)
	assert.Equal(t, "first", qs[0].Question)
	assert.Equal(t, "second", qs[1].Question)

	_, err = svc.List(ctx, p.ID, types.StepPresentation)
	assert.ErrorIs(t, err, core.ErrInvalidStep)
}
