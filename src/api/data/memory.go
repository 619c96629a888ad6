package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/types"
)

// memoryRepo is a mutex-guarded Repository used by tests. It honors the same
// atomicity contract as the MySQL backend: duplicate and capacity checks
// happen under the lock, and step updates are compare-and-swap.
type memoryRepo struct {
	mu           sync.Mutex
	users        map[string]types.User
	circles      map[string]types.Circle
	members      map[string][]types.CircleMember // circleID -> members
	proposals    map[string]types.Proposal
	participants map[string]map[string]types.ProposalParticipant // proposalID -> userID
	questions    map[string][]types.ClarifyingQuestion           // proposalID -> ledger
	reactions    map[string][]types.QuickReaction
	objections   map[string][]types.Objection
	consents     map[string][]types.ConsentResponse
	settings     map[string]string // circleID + "/" + name
}

func NewMemoryRepository() Repository {
	return &memoryRepo{
		users:        make(map[string]types.User),
		circles:      make(map[string]types.Circle),
		members:      make(map[string][]types.CircleMember),
		proposals:    make(map[string]types.Proposal),
		participants: make(map[string]map[string]types.ProposalParticipant),
		questions:    make(map[string][]types.ClarifyingQuestion),
		reactions:    make(map[string][]types.QuickReaction),
		objections:   make(map[string][]types.Objection),
		consents:     make(map[string][]types.ConsentResponse),
		settings:     make(map[string]string),
	}
}

// Users

func (m *memoryRepo) CreateUser(_ context.Context, u *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stampID(&u.ID)
	stampTime(&u.CreatedAt)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.ErrDuplicateSubmission
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memoryRepo) GetUser(_ context.Context, id string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (m *memoryRepo) GetUserByEmail(_ context.Context, email string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memoryRepo) ListUsers(_ context.Context) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]types.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *memoryRepo) UpdateUser(_ context.Context, u *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return core.ErrNotFound
	}
	existing.Email = u.Email
	existing.Name = u.Name
	existing.Role = u.Role
	m.users[u.ID] = existing
	return nil
}

func (m *memoryRepo) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// Circles

func (m *memoryRepo) CreateCircle(_ context.Context, c *types.Circle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stampID(&c.ID)
	stampTime(&c.CreatedAt)
	c.UpdatedAt = c.CreatedAt
	m.circles[c.ID] = *c
	return nil
}

func (m *memoryRepo) GetCircle(_ context.Context, id string) (*types.Circle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.circles[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &c, nil
}

func (m *memoryRepo) ListCircles(_ context.Context) ([]types.Circle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	circles := make([]types.Circle, 0, len(m.circles))
	for _, c := range m.circles {
		circles = append(circles, c)
	}
	sort.Slice(circles, func(i, j int) bool { return circles[i].CreatedAt.Before(circles[j].CreatedAt) })
	return circles, nil
}

func (m *memoryRepo) AddCircleMember(_ context.Context, circleID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members[circleID] {
		if mem.UserID == userID {
			return nil
		}
	}
	m.members[circleID] = append(m.members[circleID], types.CircleMember{
		CircleID: circleID, UserID: userID, JoinedAt: time.Now(),
	})
	return nil
}

func (m *memoryRepo) ListCircleMembers(_ context.Context, circleID string) ([]types.CircleMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.CircleMember(nil), m.members[circleID]...), nil
}

func (m *memoryRepo) IsCircleMember(_ context.Context, circleID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members[circleID] {
		if mem.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Proposals

func (m *memoryRepo) CreateProposal(_ context.Context, p *types.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stampID(&p.ID)
	stampTime(&p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	m.proposals[p.ID] = *p
	return nil
}

func (m *memoryRepo) GetProposal(_ context.Context, id string) (*types.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

func (m *memoryRepo) ListProposals(_ context.Context) ([]types.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	props := make([]types.Proposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].CreatedAt.Before(props[j].CreatedAt) })
	return props, nil
}

func (m *memoryRepo) ListCircleProposals(ctx context.Context, circleID string) ([]types.Proposal, error) {
	all, _ := m.ListProposals(ctx)
	var out []types.Proposal
	for _, p := range all {
		if p.CircleID == circleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListActivatedProposals(ctx context.Context) ([]types.Proposal, error) {
	all, _ := m.ListProposals(ctx)
	var out []types.Proposal
	for _, p := range all {
		if p.Activated() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) ActivateProposal(_ context.Context, id string, step types.Step, start, end *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return core.ErrNotFound
	}
	if p.Status != types.StatusDraft {
		return core.ErrInvalidState
	}
	p.Status = types.StatusActive
	p.CurrentStep = step
	p.StepStartTime = start
	p.StepEndTime = end
	p.UpdatedAt = time.Now()
	m.proposals[id] = p
	return nil
}

func (m *memoryRepo) UpdateProposalStep(_ context.Context, id string, expect, next types.Step, status string, start, end *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return core.ErrNotFound
	}
	if p.CurrentStep != expect {
		return core.ErrConflict
	}
	p.CurrentStep = next
	p.Status = status
	p.StepStartTime = start
	p.StepEndTime = end
	p.UpdatedAt = time.Now()
	m.proposals[id] = p
	return nil
}

func (m *memoryRepo) SetProposalStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return core.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	m.proposals[id] = p
	return nil
}

// Participants

func (m *memoryRepo) SnapshotParticipants(_ context.Context, proposalID string, members []types.ProposalParticipant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.participants[proposalID]
	if !ok {
		set = make(map[string]types.ProposalParticipant)
		m.participants[proposalID] = set
	}
	for _, p := range members {
		if _, exists := set[p.UserID]; !exists {
			set[p.UserID] = p
		}
	}
	return nil
}

func (m *memoryRepo) ListParticipants(_ context.Context, proposalID string) ([]types.ProposalParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.participants[proposalID]
	out := make([]types.ProposalParticipant, 0, len(set))
	for _, p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Step ledgers

func (m *memoryRepo) AppendQuestion(_ context.Context, q *types.ClarifyingQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[q.ProposalID]; !ok {
		return core.ErrNotFound
	}
	ledger := m.questions[q.ProposalID]
	for _, e := range ledger {
		if e.AuthorID == q.AuthorID {
			return core.ErrDuplicateSubmission
		}
	}
	if len(ledger) >= types.MaxQuestionsPerProposal {
		return core.ErrCapacityExceeded
	}
	stampID(&q.ID)
	stampTime(&q.CreatedAt)
	m.questions[q.ProposalID] = append(ledger, *q)
	return nil
}

func (m *memoryRepo) ListQuestions(_ context.Context, proposalID string) ([]types.ClarifyingQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ClarifyingQuestion(nil), m.questions[proposalID]...), nil
}

func (m *memoryRepo) AppendReaction(_ context.Context, r *types.QuickReaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[r.ProposalID]; !ok {
		return core.ErrNotFound
	}
	for _, e := range m.reactions[r.ProposalID] {
		if e.AuthorID == r.AuthorID {
			return core.ErrDuplicateSubmission
		}
	}
	stampID(&r.ID)
	stampTime(&r.CreatedAt)
	m.reactions[r.ProposalID] = append(m.reactions[r.ProposalID], *r)
	return nil
}

func (m *memoryRepo) ListReactions(_ context.Context, proposalID string) ([]types.QuickReaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.QuickReaction(nil), m.reactions[proposalID]...), nil
}

func (m *memoryRepo) AppendObjection(_ context.Context, o *types.Objection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[o.ProposalID]; !ok {
		return core.ErrNotFound
	}
	for _, e := range m.objections[o.ProposalID] {
		if e.AuthorID == o.AuthorID && !e.IsResolved {
			return core.ErrDuplicateSubmission
		}
	}
	stampID(&o.ID)
	stampTime(&o.CreatedAt)
	m.objections[o.ProposalID] = append(m.objections[o.ProposalID], *o)
	return nil
}

func (m *memoryRepo) ListObjections(_ context.Context, proposalID string) ([]types.Objection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Objection(nil), m.objections[proposalID]...), nil
}

func (m *memoryRepo) GetObjection(_ context.Context, id string) (*types.Objection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ledger := range m.objections {
		for _, o := range ledger {
			if o.ID == id {
				o := o
				return &o, nil
			}
		}
	}
	return nil, core.ErrNotFound
}

func (m *memoryRepo) ResolveObjection(_ context.Context, id, resolverID, solution string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for pid, ledger := range m.objections {
		for i, o := range ledger {
			if o.ID == id {
				o.IsResolved = true
				o.Resolution = solution
				o.ResolvedBy = resolverID
				o.ResolvedAt = &now
				m.objections[pid][i] = o
				return nil
			}
		}
	}
	return core.ErrNotFound
}

func (m *memoryRepo) AppendConsent(_ context.Context, cr *types.ConsentResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[cr.ProposalID]; !ok {
		return core.ErrNotFound
	}
	for _, e := range m.consents[cr.ProposalID] {
		if e.AuthorID == cr.AuthorID {
			return core.ErrDuplicateSubmission
		}
	}
	stampID(&cr.ID)
	stampTime(&cr.CreatedAt)
	m.consents[cr.ProposalID] = append(m.consents[cr.ProposalID], *cr)
	return nil
}

func (m *memoryRepo) ListConsentResponses(_ context.Context, proposalID string) ([]types.ConsentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ConsentResponse(nil), m.consents[proposalID]...), nil
}

// Settings

func (m *memoryRepo) GetCircleSetting(_ context.Context, circleID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings[circleID+"/"+name], nil
}

func (m *memoryRepo) SetCircleSetting(_ context.Context, circleID, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[circleID+"/"+name] = value
	return nil
}
