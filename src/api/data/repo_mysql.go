package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type mysqlRepo struct {
	db *gorm.DB
}

// NewMySQLRepository wraps a gorm handle in the Repository contract.
func NewMySQLRepository(db *gorm.DB) Repository {
	return &mysqlRepo{db: db}
}

// wrapErr maps storage errors onto the core error kinds. Anything
// unexpected is reported as unavailable rather than papered over.
func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return core.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return core.ErrDuplicateSubmission
	default:
		return fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
}

func stampID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func stampTime(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

// Users

func (r *mysqlRepo) CreateUser(ctx context.Context, u *types.User) error {
	stampID(&u.ID)
	stampTime(&u.CreatedAt)
	return wrapErr(r.db.WithContext(ctx).Create(u).Error)
}

func (r *mysqlRepo) GetUser(ctx context.Context, id string) (*types.User, error) {
	var u types.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &u, nil
}

func (r *mysqlRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	var u types.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &u, nil
}

func (r *mysqlRepo) ListUsers(ctx context.Context) ([]types.User, error) {
	var users []types.User
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, wrapErr(err)
	}
	return users, nil
}

func (r *mysqlRepo) UpdateUser(ctx context.Context, u *types.User) error {
	res := r.db.WithContext(ctx).Model(&types.User{}).Where("id = ?", u.ID).
		Updates(map[string]interface{}{"email": u.Email, "name": u.Name, "role": u.Role})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *mysqlRepo) DeleteUser(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&types.User{}, "id = ?", id)
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Circles

func (r *mysqlRepo) CreateCircle(ctx context.Context, c *types.Circle) error {
	stampID(&c.ID)
	stampTime(&c.CreatedAt)
	c.UpdatedAt = c.CreatedAt
	return wrapErr(r.db.WithContext(ctx).Create(c).Error)
}

func (r *mysqlRepo) GetCircle(ctx context.Context, id string) (*types.Circle, error) {
	var c types.Circle
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}

func (r *mysqlRepo) ListCircles(ctx context.Context) ([]types.Circle, error) {
	var circles []types.Circle
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&circles).Error; err != nil {
		return nil, wrapErr(err)
	}
	return circles, nil
}

func (r *mysqlRepo) AddCircleMember(ctx context.Context, circleID, userID string) error {
	m := types.CircleMember{CircleID: circleID, UserID: userID, JoinedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error
	return wrapErr(err)
}

func (r *mysqlRepo) ListCircleMembers(ctx context.Context, circleID string) ([]types.CircleMember, error) {
	var members []types.CircleMember
	if err := r.db.WithContext(ctx).Where("circle_id = ?", circleID).
		Order("joined_at asc").Find(&members).Error; err != nil {
		return nil, wrapErr(err)
	}
	return members, nil
}

func (r *mysqlRepo) IsCircleMember(ctx context.Context, circleID, userID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&types.CircleMember{}).
		Where("circle_id = ? AND user_id = ?", circleID, userID).Count(&n).Error; err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}

// Proposals

func (r *mysqlRepo) CreateProposal(ctx context.Context, p *types.Proposal) error {
	stampID(&p.ID)
	stampTime(&p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	return wrapErr(r.db.WithContext(ctx).Create(p).Error)
}

func (r *mysqlRepo) GetProposal(ctx context.Context, id string) (*types.Proposal, error) {
	var p types.Proposal
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &p, nil
}

func (r *mysqlRepo) ListProposals(ctx context.Context) ([]types.Proposal, error) {
	var props []types.Proposal
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&props).Error; err != nil {
		return nil, wrapErr(err)
	}
	return props, nil
}

func (r *mysqlRepo) ListCircleProposals(ctx context.Context, circleID string) ([]types.Proposal, error) {
	var props []types.Proposal
	if err := r.db.WithContext(ctx).Where("circle_id = ?", circleID).
		Order("created_at asc").Find(&props).Error; err != nil {
		return nil, wrapErr(err)
	}
	return props, nil
}

func (r *mysqlRepo) ListActivatedProposals(ctx context.Context) ([]types.Proposal, error) {
	var props []types.Proposal
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []string{types.StatusActive, types.StatusPendingConsent}).
		Order("created_at asc").Find(&props).Error; err != nil {
		return nil, wrapErr(err)
	}
	return props, nil
}

func (r *mysqlRepo) ActivateProposal(ctx context.Context, id string, step types.Step, start, end *time.Time) error {
	res := r.db.WithContext(ctx).Model(&types.Proposal{}).
		Where("id = ? AND status = ?", id, types.StatusDraft).
		Updates(map[string]interface{}{
			"status":          types.StatusActive,
			"current_step":    step,
			"step_start_time": start,
			"step_end_time":   end,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetProposal(ctx, id); err != nil {
			return err
		}
		return core.ErrInvalidState
	}
	return nil
}

func (r *mysqlRepo) UpdateProposalStep(ctx context.Context, id string, expect, next types.Step, status string, start, end *time.Time) error {
	res := r.db.WithContext(ctx).Model(&types.Proposal{}).
		Where("id = ? AND current_step = ?", id, expect).
		Updates(map[string]interface{}{
			"current_step":    next,
			"status":          status,
			"step_start_time": start,
			"step_end_time":   end,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the proposal is gone or someone advanced it first.
		if _, err := r.GetProposal(ctx, id); err != nil {
			return err
		}
		return core.ErrConflict
	}
	return nil
}

func (r *mysqlRepo) SetProposalStatus(ctx context.Context, id, status string) error {
	res := r.db.WithContext(ctx).Model(&types.Proposal{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Participants

func (r *mysqlRepo) SnapshotParticipants(ctx context.Context, proposalID string, members []types.ProposalParticipant) error {
	if len(members) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error
	return wrapErr(err)
}

func (r *mysqlRepo) ListParticipants(ctx context.Context, proposalID string) ([]types.ProposalParticipant, error) {
	var parts []types.ProposalParticipant
	if err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).
		Find(&parts).Error; err != nil {
		return nil, wrapErr(err)
	}
	return parts, nil
}

// Step ledgers

func (r *mysqlRepo) AppendQuestion(ctx context.Context, q *types.ClarifyingQuestion) error {
	stampID(&q.ID)
	stampTime(&q.CreatedAt)
	// Cap check and insert must be one atomic unit; lock the proposal row so
	// two concurrent submitters cannot both read count=2.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p types.Proposal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", q.ProposalID).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&types.ClarifyingQuestion{}).
			Where("proposal_id = ?", q.ProposalID).Count(&n).Error; err != nil {
			return err
		}
		if n >= types.MaxQuestionsPerProposal {
			return core.ErrCapacityExceeded
		}
		return tx.Create(q).Error
	})
	if errors.Is(err, core.ErrCapacityExceeded) {
		return err
	}
	return wrapErr(err)
}

func (r *mysqlRepo) ListQuestions(ctx context.Context, proposalID string) ([]types.ClarifyingQuestion, error) {
	var qs []types.ClarifyingQuestion
	if err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).
		Order("created_at asc").Find(&qs).Error; err != nil {
		return nil, wrapErr(err)
	}
	return qs, nil
}

func (r *mysqlRepo) AppendReaction(ctx context.Context, rc *types.QuickReaction) error {
	stampID(&rc.ID)
	stampTime(&rc.CreatedAt)
	return wrapErr(r.db.WithContext(ctx).Create(rc).Error)
}

func (r *mysqlRepo) ListReactions(ctx context.Context, proposalID string) ([]types.QuickReaction, error) {
	var rs []types.QuickReaction
	if err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).
		Order("created_at asc").Find(&rs).Error; err != nil {
		return nil, wrapErr(err)
	}
	return rs, nil
}

func (r *mysqlRepo) AppendObjection(ctx context.Context, o *types.Objection) error {
	stampID(&o.ID)
	stampTime(&o.CreatedAt)
	// MySQL cannot express "unique while unresolved" as an index, so the
	// open-objection check runs under the proposal row lock instead.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p types.Proposal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", o.ProposalID).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&types.Objection{}).
			Where("proposal_id = ? AND author_id = ? AND is_resolved = ?", o.ProposalID, o.AuthorID, false).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return core.ErrDuplicateSubmission
		}
		return tx.Create(o).Error
	})
	if errors.Is(err, core.ErrDuplicateSubmission) {
		return err
	}
	return wrapErr(err)
}

func (r *mysqlRepo) ListObjections(ctx context.Context, proposalID string) ([]types.Objection, error) {
	var os []types.Objection
	if err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).
		Order("created_at asc").Find(&os).Error; err != nil {
		return nil, wrapErr(err)
	}
	return os, nil
}

func (r *mysqlRepo) GetObjection(ctx context.Context, id string) (*types.Objection, error) {
	var o types.Objection
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &o, nil
}

func (r *mysqlRepo) ResolveObjection(ctx context.Context, id, resolverID, solution string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&types.Objection{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"resolution":  solution,
			"resolved_by": resolverID,
			"resolved_at": &now,
		})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *mysqlRepo) AppendConsent(ctx context.Context, cr *types.ConsentResponse) error {
	stampID(&cr.ID)
	stampTime(&cr.CreatedAt)
	return wrapErr(r.db.WithContext(ctx).Create(cr).Error)
}

func (r *mysqlRepo) ListConsentResponses(ctx context.Context, proposalID string) ([]types.ConsentResponse, error) {
	var crs []types.ConsentResponse
	if err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).
		Order("created_at asc").Find(&crs).Error; err != nil {
		return nil, wrapErr(err)
	}
	return crs, nil
}

// Settings

func (r *mysqlRepo) GetCircleSetting(ctx context.Context, circleID, name string) (string, error) {
	var s types.CircleSetting
	err := r.db.WithContext(ctx).First(&s, "circle_id = ? AND name = ?", circleID, name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", wrapErr(err)
	}
	return s.Value, nil
}

func (r *mysqlRepo) SetCircleSetting(ctx context.Context, circleID, name, value string) error {
	s := types.CircleSetting{CircleID: circleID, Name: name, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "circle_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&s).Error
	return wrapErr(err)
}
