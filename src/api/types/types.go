package types

import "time"

// User roles
const (
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
	RoleObserver    = "observer"
)

func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleParticipant || r == RoleObserver
}

// Proposal statuses
const (
	StatusDraft          = "draft"
	StatusActive         = "active"
	StatusPendingConsent = "pending_consent"
	StatusResolved       = "resolved"
	StatusArchived       = "archived"
)

// Step is one of the seven deliberation steps a proposal moves through.
type Step string

const (
	StepPresentation      Step = "proposal_presentation"
	StepClarifying        Step = "clarifying_questions"
	StepReactions         Step = "quick_reactions"
	StepObjections        Step = "objections_round"
	StepResolveObjections Step = "resolve_objections"
	StepConsent           Step = "consent_round"
	StepRecordOutcome     Step = "record_outcome"
)

// StepOrder is the fixed, total transition order. There is no branching.
var StepOrder = []Step{
	StepPresentation,
	StepClarifying,
	StepReactions,
	StepObjections,
	StepResolveObjections,
	StepConsent,
	StepRecordOutcome,
}

func (s Step) Valid() bool {
	for _, o := range StepOrder {
		if s == o {
			return true
		}
	}
	return false
}

// Next returns the successor step, or false when s is the last step.
func (s Step) Next() (Step, bool) {
	for i, o := range StepOrder {
		if s == o {
			if i+1 < len(StepOrder) {
				return StepOrder[i+1], true
			}
			return s, false
		}
	}
	return s, false
}

// DefaultStepDurations holds the per-step timer window in seconds. A circle
// may override any of these via CircleSetting "step_duration.<step>".
var DefaultStepDurations = map[Step]int{
	StepPresentation:      300,
	StepClarifying:        600,
	StepReactions:         300,
	StepObjections:        600,
	StepResolveObjections: 900,
	StepConsent:           300,
	StepRecordOutcome:     180,
}

// MaxQuestionsPerProposal caps the clarifying-questions ledger per proposal.
const MaxQuestionsPerProposal = 3

// MaxReactionLen caps quick-reaction text, in runes.
const MaxReactionLen = 300

// Objection severities
const (
	SeverityMinor       = "minor_concern"
	SeverityMajor       = "major_concern"
	SeverityDealBreaker = "deal_breaker"
)

func ValidSeverity(s string) bool {
	return s == SeverityMinor || s == SeverityMajor || s == SeverityDealBreaker
}

// Consent choices
const (
	ChoiceConsent      = "consent"
	ChoiceReservations = "consent_with_reservations"
	ChoiceWithhold     = "withhold_consent"
)

func ValidChoice(c string) bool {
	return c == ChoiceConsent || c == ChoiceReservations || c == ChoiceWithhold
}

// Outcome classifications for a completed consent round.
const (
	OutcomeConsented    = "consented"
	OutcomeReservations = "consented_with_reservations"
	OutcomeBlocked      = "blocked"
)

// Users
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"size:256;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Role         string    `gorm:"size:16;not null;default:participant" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Circles
type Circle struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedBy   string    `gorm:"size:36;not null" json:"createdBy"`
	Active      bool      `gorm:"default:true" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Circle membership; defines visibility and voting eligibility.
type CircleMember struct {
	CircleID string    `gorm:"primaryKey;size:36" json:"circleId"`
	UserID   string    `gorm:"primaryKey;size:36" json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Proposals
type Proposal struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	CircleID    string `gorm:"index;size:36;not null" json:"circleId"`
	CreatedBy   string `gorm:"size:36;not null" json:"createdBy"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Status      string `gorm:"size:32;not null;default:draft" json:"status"`
	// Empty until the proposal is activated.
	CurrentStep   Step       `gorm:"size:32" json:"currentStep,omitempty"`
	StepStartTime *time.Time `json:"stepStartTime,omitempty"`
	StepEndTime   *time.Time `json:"stepEndTime,omitempty"`
	IsActive      bool       `gorm:"default:true" json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Activated reports whether the proposal is inside the seven-step process.
func (p Proposal) Activated() bool {
	return p.Status == StatusActive || p.Status == StatusPendingConsent
}

// Eligibility snapshot: circle participants captured when a step opens.
type ProposalParticipant struct {
	ProposalID string `gorm:"primaryKey;size:36" json:"proposalId"`
	UserID     string `gorm:"primaryKey;size:36" json:"userId"`
	Role       string `gorm:"size:16;not null" json:"role"`
}

// Step ledgers. All four are append-only with server-assigned id and
// timestamp; rows are never mutated except Objection resolution.

type ClarifyingQuestion struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ProposalID string    `gorm:"size:36;not null;uniqueIndex:uniq_question_author,priority:1" json:"proposalId"`
	AuthorID   string    `gorm:"size:36;not null;uniqueIndex:uniq_question_author,priority:2" json:"userId"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	CreatedAt  time.Time `json:"createdAt"`
}

type QuickReaction struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ProposalID string    `gorm:"size:36;not null;uniqueIndex:uniq_reaction_author,priority:1" json:"proposalId"`
	AuthorID   string    `gorm:"size:36;not null;uniqueIndex:uniq_reaction_author,priority:2" json:"userId"`
	Reaction   string    `gorm:"size:300;not null" json:"reaction"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Objection struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	ProposalID string     `gorm:"index;size:36;not null" json:"proposalId"`
	AuthorID   string     `gorm:"size:36;not null" json:"userId"`
	Objection  string     `gorm:"type:text;not null" json:"objection"`
	Severity   string     `gorm:"size:16;not null" json:"severity"`
	IsResolved bool       `gorm:"default:false" json:"isResolved"`
	Resolution string     `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedBy string     `gorm:"size:36" json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type ConsentResponse struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ProposalID string    `gorm:"size:36;not null;uniqueIndex:uniq_consent_author,priority:1" json:"proposalId"`
	AuthorID   string    `gorm:"size:36;not null;uniqueIndex:uniq_consent_author,priority:2" json:"userId"`
	Choice     string    `gorm:"size:32;not null" json:"choice"`
	Reason     string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Per-circle settings, e.g. step duration overrides.
type CircleSetting struct {
	CircleID string `gorm:"primaryKey;size:36" json:"circleId"`
	Name     string `gorm:"primaryKey;size:64" json:"name"`
	Value    string `gorm:"size:256" json:"value"`
}
