package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sociocrates/sociocrates/src/api/config"
	"github.com/sociocrates/sociocrates/src/api/consent"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/ledger"
	"github.com/sociocrates/sociocrates/src/api/lifecycle"
)

func attachRoutes(r *gin.Engine, cfg config.Config, repo data.Repository, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://app.sociocrates.org"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	durations := data.NewDurations(repo)
	lc := lifecycle.New(repo, durations)

	authH := NewAuth(repo, []byte(cfg.JWTSecret))
	circleH := NewCircles(repo)
	propH := NewProposals(repo, lc, consent.New(repo), rdb)
	artifactH := NewArtifacts(repo, ledger.New(repo), rdb)
	adminH := NewAdmin(repo)

	submitLimiter := NewRateLimiter(30, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", Ping)
		v1.POST("/auth/login", authH.Login)

		secured := v1.Group("")
		secured.Use(JWTMiddleware(repo, []byte(cfg.JWTSecret)))
		{
			secured.GET("/auth/me", authH.Me)

			secured.GET("/circles", circleH.List)
			secured.POST("/circles", circleH.Create)
			secured.GET("/circles/:id", circleH.Get)
			secured.POST("/circles/:id/members", circleH.AddMember)
			secured.GET("/circles/:id/proposals", propH.ListByCircle)

			secured.GET("/proposals", propH.List)
			secured.POST("/proposals", propH.Create)
			secured.GET("/proposals/:id", propH.Get)
			secured.POST("/proposals/:id/activate", propH.Activate)
			secured.POST("/proposals/:id/advance", propH.Advance)
			secured.PUT("/proposals/:id/step", propH.SetStep)
			secured.GET("/proposals/:id/ready", propH.Ready)
			secured.GET("/proposals/:id/outcome", propH.Outcome)

			limited := secured.Group("")
			limited.Use(RateLimitMiddleware(submitLimiter))
			{
				limited.POST("/proposals/:id/questions", artifactH.SubmitQuestion)
				limited.POST("/proposals/:id/reactions", artifactH.SubmitReaction)
				limited.POST("/proposals/:id/objections", artifactH.SubmitObjection)
				limited.POST("/proposals/:id/consent", artifactH.SubmitConsent)
				limited.POST("/objections/:id/resolve", artifactH.ResolveObjection)
			}
			secured.GET("/proposals/:id/questions", artifactH.ListQuestions)
			secured.GET("/proposals/:id/reactions", artifactH.ListReactions)
			secured.GET("/proposals/:id/objections", artifactH.ListObjections)
			secured.GET("/proposals/:id/consent", artifactH.ListConsent)

			admin := secured.Group("/admin")
			admin.Use(AdminMiddleware())
			{
				admin.GET("/users", adminH.ListUsers)
				admin.GET("/users/:id", adminH.GetUser)
				admin.PUT("/users/:id", adminH.UpdateUser)
				admin.DELETE("/users/:id", adminH.DeleteUser)
				admin.PUT("/circles/:id/settings", adminH.SetCircleSetting)
			}
		}
	}
}

func Ping(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}
