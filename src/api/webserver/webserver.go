package webserver

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sociocrates/sociocrates/src/api/config"
	"github.com/sociocrates/sociocrates/src/api/core"
	"github.com/sociocrates/sociocrates/src/api/data"
)

// New builds the API router. The repository and redis client are shared
// with the sweeper started from main.
func New(cfg config.Config, repo data.Repository, rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	attachRoutes(r, cfg, repo, rdb)
	return r
}

// fail writes the typed-error response for err. Storage failures come out
// as 503 with a generic message; we never substitute placeholder data.
func fail(c *gin.Context, err error) {
	status := core.Status(err)
	msg := err.Error()
	if errors.Is(err, core.ErrUnavailable) {
		msg = "storage unavailable"
	}
	c.JSON(status, gin.H{"err": msg})
}
