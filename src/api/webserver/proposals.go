package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sociocrates/sociocrates/src/api/consent"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/lifecycle"
	"github.com/sociocrates/sociocrates/src/api/types"
)

type Proposals struct {
	repo data.Repository
	lc   *lifecycle.Service
	agg  *consent.Aggregator
	rdb  *redis.Client
}

func NewProposals(repo data.Repository, lc *lifecycle.Service, agg *consent.Aggregator, rdb *redis.Client) Proposals {
	return Proposals{repo: repo, lc: lc, agg: agg, rdb: rdb}
}

// canSee enforces circle-scoped visibility: admins see everything, everyone
// else only proposals in circles they belong to.
func (h Proposals) canSee(c *gin.Context, p *types.Proposal) (bool, error) {
	if c.GetString("userRole") == types.RoleAdmin {
		return true, nil
	}
	uid := c.GetString("userID")
	if p.CreatedBy == uid {
		return true, nil
	}
	return h.repo.IsCircleMember(c.Request.Context(), p.CircleID, uid)
}

func (h Proposals) List(c *gin.Context) {
	props, err := h.repo.ListProposals(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	visible := make([]types.Proposal, 0, len(props))
	for i := range props {
		ok, err := h.canSee(c, &props[i])
		if err != nil {
			fail(c, err)
			return
		}
		if ok {
			visible = append(visible, props[i])
		}
	}
	c.JSON(http.StatusOK, visible)
}

func (h Proposals) ListByCircle(c *gin.Context) {
	circleID := c.Param("id")
	if c.GetString("userRole") != types.RoleAdmin {
		member, err := h.repo.IsCircleMember(c.Request.Context(), circleID, c.GetString("userID"))
		if err != nil {
			fail(c, err)
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, gin.H{"err": "not a member of this circle"})
			return
		}
	}
	props, err := h.repo.ListCircleProposals(c.Request.Context(), circleID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, props)
}

func (h Proposals) Create(c *gin.Context) {
	if c.GetString("userRole") == types.RoleObserver {
		c.JSON(http.StatusForbidden, gin.H{"err": "observers cannot create proposals"})
		return
	}
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		CircleID    string `json:"circleId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if _, err := h.repo.GetCircle(ctx, req.CircleID); err != nil {
		fail(c, err)
		return
	}
	if c.GetString("userRole") != types.RoleAdmin {
		member, err := h.repo.IsCircleMember(ctx, req.CircleID, c.GetString("userID"))
		if err != nil {
			fail(c, err)
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, gin.H{"err": "not a member of this circle"})
			return
		}
	}

	p := types.Proposal{
		Title:       req.Title,
		Description: req.Description,
		CircleID:    req.CircleID,
		CreatedBy:   c.GetString("userID"),
		Status:      types.StatusDraft,
		IsActive:    true,
	}
	if err := h.repo.CreateProposal(ctx, &p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h Proposals) Get(c *gin.Context) {
	p, err := h.repo.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok, err := h.canSee(c, p)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"err": "not a member of this circle"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Proposals) Activate(c *gin.Context) {
	p, err := h.lc.Activate(c.Request.Context(), c.Param("id"), c.GetString("userID"), c.GetString("userRole"))
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, "proposal.activated", p)
	c.JSON(http.StatusOK, p)
}

func (h Proposals) Advance(c *gin.Context) {
	p, err := h.lc.Advance(c.Request.Context(), c.Param("id"), c.GetString("userID"), c.GetString("userRole"))
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, "proposal.advanced", p)
	c.JSON(http.StatusOK, p)
}

func (h Proposals) SetStep(c *gin.Context) {
	var req struct {
		Step string `json:"step" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	target := types.Step(req.Step)
	if !target.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"err": "unknown step " + req.Step})
		return
	}
	p, err := h.lc.SetStep(c.Request.Context(), c.Param("id"), c.GetString("userID"), c.GetString("userRole"), target)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, "proposal.step_set", p)
	c.JSON(http.StatusOK, p)
}

func (h Proposals) Ready(c *gin.Context) {
	ready, err := h.lc.ReadyToAdvance(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": ready})
}

func (h Proposals) Outcome(c *gin.Context) {
	out, err := h.agg.ComputeOutcome(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Proposals) publish(c *gin.Context, event string, p *types.Proposal) {
	_ = data.PublishEvent(c.Request.Context(), h.rdb, map[string]interface{}{
		"event":    event,
		"proposal": p.ID,
		"circle":   p.CircleID,
		"step":     string(p.CurrentStep),
		"status":   p.Status,
		"actor":    c.GetString("userID"),
	})
}
