package webserver

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/types"
)

type Admin struct {
	repo data.Repository
}

func NewAdmin(repo data.Repository) Admin {
	return Admin{repo: repo}
}

func (a Admin) ListUsers(c *gin.Context) {
	users, err := a.repo.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a Admin) GetUser(c *gin.Context) {
	user, err := a.repo.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a Admin) UpdateUser(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !types.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid role " + req.Role})
		return
	}

	user, err := a.repo.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	log.Printf("admin %s updating user %s (role %s -> %s)",
		c.GetString("userID"), user.ID, user.Role, req.Role)

	user.Name = req.Name
	user.Email = req.Email
	user.Role = req.Role
	if err := a.repo.UpdateUser(c.Request.Context(), user); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a Admin) DeleteUser(c *gin.Context) {
	if c.Param("id") == c.GetString("userID") {
		c.JSON(http.StatusBadRequest, gin.H{"err": "cannot delete yourself"})
		return
	}
	if err := a.repo.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// SetCircleSetting stores a per-circle override, e.g. a step duration:
// {"name": "step_duration.consent_round", "value": "120"}.
func (a Admin) SetCircleSetting(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if _, err := strconv.Atoi(req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "setting value must be numeric"})
		return
	}
	if _, err := a.repo.GetCircle(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	if err := a.repo.SetCircleSetting(c.Request.Context(), c.Param("id"), req.Name, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
