package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

func main() {
	var (
		userID   string
		fullName string
		role     string
	)
	flag.StringVar(&userID, "user", "", "Operator identifier stored in the token")
	flag.StringVar(&fullName, "name", "", "Operator display name")
	flag.StringVar(&role, "role", string(models.RoleViewer), "ADMIN, EDITOR or VIEWER")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	auth := service.NewAuthService(nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	token, expiresAt, err := auth.IssueToken(service.IssueTokenRequest{
		UserID:   userID,
		FullName: fullName,
		Role:     models.UserRole(strings.ToUpper(role)),
	})
	if err != nil {
		logr.Fatal("failed to issue token", zap.String("user", userID), zap.Error(err))
	}

	logr.Info("token issued", zap.String("user", userID), zap.String("role", strings.ToUpper(role)), zap.Time("expires_at", expiresAt))
	fmt.Fprintln(os.Stdout, token)
}
