package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sociocrates/sociocrates/src/api/data"
	"golang.org/x/crypto/bcrypt"
)

type Auth struct {
	repo      data.Repository
	jwtSecret []byte
}

func NewAuth(repo data.Repository, secret []byte) Auth {
	return Auth{repo: repo, jwtSecret: secret}
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	user, err := a.repo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}

	token, err := issueJWT(user.ID, a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

func (a Auth) Me(c *gin.Context) {
	user, err := a.repo.GetUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
