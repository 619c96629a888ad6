// Package ledger owns the four per-step submission ledgers and their
// append policy: one live submission per author per step, per-kind content
// rules, and the clarifying-question cap.
package ledger

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/types"
)

type Service struct {
	repo     data.Repository
	sanitize *bluemonday.Policy
}

func New(repo data.Repository) *Service {
	return &Service{repo: repo, sanitize: bluemonday.StrictPolicy()}
}

// checkSubmit runs the guards shared by all four ledgers: observers cannot
// submit, the proposal must exist, and its current step must match the
// ledger being written.
func (s *Service) checkSubmit(ctx context.Context, proposalID string, step types.Step, authorRole string) (*types.Proposal, error) {
	if authorRole == types.RoleObserver {
		return nil, core.ErrForbidden
	}
	p, err := s.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.Activated() || p.CurrentStep != step {
		return nil, core.ErrInvalidStep
	}
	return p, nil
}

func (s *Service) clean(text string) string {
	return strings.TrimSpace(s.sanitize.Sanitize(text))
}

func (s *Service) SubmitQuestion(ctx context.Context, proposalID, authorID, authorRole, question string) (*types.ClarifyingQuestion, error) {
	if _, err := s.checkSubmit(ctx, proposalID, types.StepClarifying, authorRole); err != nil {
		return nil, err
	}
	question = s.clean(question)
	if question == "" {
		return nil, core.Validationf("question text is required")
	}
	q := &types.ClarifyingQuestion{ProposalID: proposalID, AuthorID: authorID, Question: question}
	if err := s.repo.AppendQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) SubmitReaction(ctx context.Context, proposalID, authorID, authorRole, reaction string) (*types.QuickReaction, error) {
	if _, err := s.checkSubmit(ctx, proposalID, types.StepReactions, authorRole); err != nil {
		return nil, err
	}
	reaction = s.clean(reaction)
	if reaction == "" {
		return nil, core.Validationf("reaction text is required")
	}
	if utf8.RuneCountInString(reaction) > types.MaxReactionLen {
		return nil, core.Validationf("reaction exceeds %d characters", types.MaxReactionLen)
	}
	r := &types.QuickReaction{ProposalID: proposalID, AuthorID: authorID, Reaction: reaction}
	if err := s.repo.AppendReaction(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) SubmitObjection(ctx context.Context, proposalID, authorID, authorRole, objection, severity string) (*types.Objection, error) {
	if _, err := s.checkSubmit(ctx, proposalID, types.StepObjections, authorRole); err != nil {
		return nil, err
	}
	objection = s.clean(objection)
	if objection == "" {
		return nil, core.Validationf("objection text is required")
	}
	if !types.ValidSeverity(severity) {
		return nil, core.Validationf("invalid severity %q", severity)
	}
	o := &types.Objection{ProposalID: proposalID, AuthorID: authorID, Objection: objection, Severity: severity}
	if err := s.repo.AppendObjection(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) SubmitConsent(ctx context.Context, proposalID, authorID, authorRole, choice, reason string) (*types.ConsentResponse, error) {
	if _, err := s.checkSubmit(ctx, proposalID, types.StepConsent, authorRole); err != nil {
		return nil, err
	}
	if !types.ValidChoice(choice) {
		return nil, core.Validationf("invalid choice %q", choice)
	}
	reason = s.clean(reason)
	if choice != types.ChoiceConsent && reason == "" {
		return nil, core.Validationf("reason is required for choice %q", choice)
	}
	cr := &types.ConsentResponse{ProposalID: proposalID, AuthorID: authorID, Choice: choice, Reason: reason}
	if err := s.repo.AppendConsent(ctx, cr); err != nil {
		return nil, err
	}
	return cr, nil
}

// List returns the ledger for the given step kind in insertion order.
func (s *Service) List(ctx context.Context, proposalID string, step types.Step) (interface{}, error) {
	switch step {
	case types.StepClarifying:
		return s.repo.ListQuestions(ctx, proposalID)
	case types.StepReactions:
		return s.repo.ListReactions(ctx, proposalID)
	case types.StepObjections, types.StepResolveObjections:
		return s.repo.ListObjections(ctx, proposalID)
	case types.StepConsent:
		return s.repo.ListConsentResponses(ctx, proposalID)
	default:
		return nil, core.ErrInvalidStep
	}
}

// ResolveObjection marks an objection resolved with a solution note.
// Only the proposal creator or an admin may resolve.
func (s *Service) ResolveObjection(ctx context.Context, objectionID, resolverID, resolverRole, solution string) (*types.Objection, error) {
	o, err := s.repo.GetObjection(ctx, objectionID)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetProposal(ctx, o.ProposalID)
	if err != nil {
		return nil, err
	}
	if resolverRole != types.RoleAdmin && resolverID != p.CreatedBy {
		return nil, core.ErrForbidden
	}
	solution = s.clean(solution)
	if solution == "" {
		return nil, core.Validationf("solution text is required")
	}
	if err := s.repo.ResolveObjection(ctx, objectionID, resolverID, solution); err != nil {
		return nil, err
	}
	return s.repo.GetObjection(ctx, objectionID)
}
