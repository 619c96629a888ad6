package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sociocrates/sociocrates/src/api/config"
	"github.com/sociocrates/sociocrates/src/api/data"
	"github.com/sociocrates/sociocrates/src/api/lifecycle"
	"github.com/sociocrates/sociocrates/src/api/scheduler"
	"github.com/sociocrates/sociocrates/src/api/types"
	"github.com/sociocrates/sociocrates/src/api/webserver"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var allModels = []interface{}{
	&types.User{}, &types.Circle{}, &types.CircleMember{},
	&types.Proposal{}, &types.ProposalParticipant{},
	&types.ClarifyingQuestion{}, &types.QuickReaction{},
	&types.Objection{}, &types.ConsentResponse{},
	&types.CircleSetting{},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

// seedAdmin creates the bootstrap admin account when ADMIN_PASSWORD is set
// and no user with the configured email exists yet.
func seedAdmin(repo data.Repository, cfg config.Config) {
	if cfg.AdminPassword == "" {
		return
	}
	if _, err := repo.GetUserByEmail(context.Background(), cfg.AdminEmail); err == nil {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	admin := types.User{
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		Name:         "Admin User",
		Role:         types.RoleAdmin,
	}
	if err := repo.CreateUser(context.Background(), &admin); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	log.Printf("seeded admin user %s", cfg.AdminEmail)
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)

	repo := data.NewMySQLRepository(db)
	seedAdmin(repo, cfg)

	rdb := data.MustRedis(cfg.RedisURL)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := scheduler.NewSweeper(repo,
		lifecycle.New(repo, data.NewDurations(repo)),
		time.Duration(cfg.SweepInterval)*time.Second)
	go sweeper.Run(ctx)

	router := webserver.New(cfg, repo, rdb)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("Sociocrates API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
