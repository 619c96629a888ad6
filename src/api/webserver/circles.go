package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/types"
)

type Circles struct {
	repo data.Repository
}

func NewCircles(repo data.Repository) Circles {
	return Circles{repo: repo}
}

func (h Circles) List(c *gin.Context) {
	circles, err := h.repo.ListCircles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, circles)
}

func (h Circles) Create(c *gin.Context) {
	if c.GetString("userRole") != types.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"err": "admin access required"})
		return
	}
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	circle := types.Circle{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   c.GetString("userID"),
		Active:      true,
	}
	if err := h.repo.CreateCircle(c.Request.Context(), &circle); err != nil {
		fail(c, err)
		return
	}
	// The creating admin joins their own circle.
	_ = h.repo.AddCircleMember(c.Request.Context(), circle.ID, circle.CreatedBy)
	c.JSON(http.StatusCreated, circle)
}

func (h Circles) Get(c *gin.Context) {
	circle, err := h.repo.GetCircle(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	members, err := h.repo.ListCircleMembers(c.Request.Context(), circle.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"circle": circle, "members": members})
}

func (h Circles) AddMember(c *gin.Context) {
	if c.GetString("userRole") != types.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"err": "admin access required"})
		return
	}
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if _, err := h.repo.GetCircle(ctx, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	if _, err := h.repo.GetUser(ctx, req.UserID); err != nil {
		fail(c, err)
		return
	}
	if err := h.repo.AddCircleMember(ctx, c.Param("id"), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
