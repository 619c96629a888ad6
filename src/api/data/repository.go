package data

import (
	"context"
	"time"

	"github.com/sociocrates/sociocrates/src/api/types"
)

// Repository is the persistence boundary for the lifecycle core. The MySQL
// implementation backs production; the memory implementation backs tests.
// Both honor the same atomicity contract: ledger appends enforce their
// uniqueness and capacity rules as a single operation, and step updates are
// compare-and-swap on the step read by the caller.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	UpdateUser(ctx context.Context, u *types.User) error
	DeleteUser(ctx context.Context, id string) error

	// Circles
	CreateCircle(ctx context.Context, c *types.Circle) error
	GetCircle(ctx context.Context, id string) (*types.Circle, error)
	ListCircles(ctx context.Context) ([]types.Circle, error)
	AddCircleMember(ctx context.Context, circleID, userID string) error
	ListCircleMembers(ctx context.Context, circleID string) ([]types.CircleMember, error)
	IsCircleMember(ctx context.Context, circleID, userID string) (bool, error)

	// Proposals
	CreateProposal(ctx context.Context, p *types.Proposal) error
	GetProposal(ctx context.Context, id string) (*types.Proposal, error)
	ListProposals(ctx context.Context) ([]types.Proposal, error)
	ListCircleProposals(ctx context.Context, circleID string) ([]types.Proposal, error)
	ListActivatedProposals(ctx context.Context) ([]types.Proposal, error)
	// ActivateProposal moves draft -> active; ErrInvalidState when not draft.
	ActivateProposal(ctx context.Context, id string, step types.Step, start, end *time.Time) error
	// UpdateProposalStep applies only while current_step still equals expect;
	// a lost race yields ErrConflict.
	UpdateProposalStep(ctx context.Context, id string, expect, next types.Step, status string, start, end *time.Time) error
	SetProposalStatus(ctx context.Context, id, status string) error

	// Eligibility snapshot
	SnapshotParticipants(ctx context.Context, proposalID string, members []types.ProposalParticipant) error
	ListParticipants(ctx context.Context, proposalID string) ([]types.ProposalParticipant, error)

	// Step ledgers (append-only; insertion order on list)
	AppendQuestion(ctx context.Context, q *types.ClarifyingQuestion) error
	ListQuestions(ctx context.Context, proposalID string) ([]types.ClarifyingQuestion, error)
	AppendReaction(ctx context.Context, r *types.QuickReaction) error
	ListReactions(ctx context.Context, proposalID string) ([]types.QuickReaction, error)
	AppendObjection(ctx context.Context, o *types.Objection) error
	ListObjections(ctx context.Context, proposalID string) ([]types.Objection, error)
	GetObjection(ctx context.Context, id string) (*types.Objection, error)
	ResolveObjection(ctx context.Context, id, resolverID, solution string) error
	AppendConsent(ctx context.Context, cr *types.ConsentResponse) error
	ListConsentResponses(ctx context.Context, proposalID string) ([]types.ConsentResponse, error)

	// Settings
	GetCircleSetting(ctx context.Context, circleID, name string) (string, error)
	SetCircleSetting(ctx context.Context, circleID, name, value string) error
}
