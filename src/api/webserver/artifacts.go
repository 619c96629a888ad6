package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/ledger"
	"github.com/sociocrates/sociocrates/src/api/types"
)

type Artifacts struct {
	repo   data.Repository
	ledger *ledger.Service
	rdb    *redis.Client
}

func NewArtifacts(repo data.Repository, l *ledger.Service, rdb *redis.Client) Artifacts {
	return Artifacts{repo: repo, ledger: l, rdb: rdb}
}

func (h Artifacts) SubmitQuestion(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	q, err := h.ledger.SubmitQuestion(c.Request.Context(), c.Param("id"),
		c.GetString("userID"), c.GetString("userRole"), req.Question)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, "artifact.question", q.ProposalID, q.ID)
	c.JSON(http.StatusOK, q)
}

func (h Artifacts) SubmitReaction(c *gin.Context) {
	var req struct {
		Reaction string `json:"reaction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	r, err := h.ledger.SubmitReaction(c.Request.Context(), c.Param("id"),
		c.GetString("userID"), c.GetString("userRole"), req.Reaction)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, "artifact.reaction", r.ProposalID, r.ID)
	c.JSON(http.StatusOK, r)
}

func (h Artifacts) SubmitObjection(c *gin.Context) {
	var req struct {
		Objection string `json:"objection" binding:"required"`
		Severity  string `json:"severity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	o, err := h.ledger.SubmitObjection(c.Request.Context(), c.Param("id"),
		c.GetString("userID"), c.GetString("userRole"), req.Objection, req.Severity)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, "artifact.objection", o.ProposalID, o.ID)
	c.JSON(http.StatusOK, o)
}

func (h Artifacts) SubmitConsent(c *gin.Context) {
	var req struct {
		Choice string `json:"choice" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	cr, err := h.ledger.SubmitConsent(c.Request.Context(), c.Param("id"),
		c.GetString("userID"), c.GetString("userRole"), req.Choice, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, "artifact.consent", cr.ProposalID, cr.ID)
	c.JSON(http.StatusOK, cr)
}

func (h Artifacts) ListQuestions(c *gin.Context) { h.list(c, types.StepClarifying) }
func (h Artifacts) ListReactions(c *gin.Context) { h.list(c, types.StepReactions) }
func (h Artifacts) ListObjections(c *gin.Context) {
	h.list(c, types.StepObjections)
}
func (h Artifacts) ListConsent(c *gin.Context) { h.list(c, types.StepConsent) }

func (h Artifacts) list(c *gin.Context, step types.Step) {
	if _, err := h.repo.GetProposal(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	artifacts, err := h.ledger.List(c.Request.Context(), c.Param("id"), step)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, artifacts)
}

func (h Artifacts) ResolveObjection(c *gin.Context) {
	var req struct {
		Solution string `json:"solution" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	o, err := h.ledger.ResolveObjection(c.Request.Context(), c.Param("id"),
		c.GetString("userID"), c.GetString("userRole"), req.Solution)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, "objection.resolved", o.ProposalID, o.ID)
	c.JSON(http.StatusOK, o)
}

func (h Artifacts) publish(c *gin.Context, event, proposalID, artifactID string) {
	_ = data.PublishEvent(c.Request.Context(), h.rdb, map[string]interface{}{
		"event":    event,
		"proposal": proposalID,
		"artifact": artifactID,
		"author":   c.GetString("userID"),
	})
}
