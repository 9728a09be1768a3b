package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/internal/service"
	"github.com/noah-isme/afterschool-match-api/pkg/config"
)

func main() {
	var (
		userID   string
		familyID string
		role     string
		ttl      time.Duration
	)

	flag.StringVar(&userID, "user", "dev-user", "User ID carried in the token")
	flag.StringVar(&familyID, "family", "", "Family ID, required for PARENT tokens")
	flag.StringVar(&role, "role", string(models.RoleParent), "ADMIN, PARENT or SYSTEM")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to JWT_EXPIRATION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Env == config.EnvProduction {
		log.Fatal("refusing to mint tokens in production")
	}

	userRole := models.UserRole(strings.ToUpper(strings.TrimSpace(role)))
	switch userRole {
	case models.RoleAdmin, models.RoleSystem:
	case models.RoleParent:
		if familyID == "" {
			log.Fatal("-family is required for PARENT tokens")
		}
	default:
		log.Fatalf("unknown role %q", role)
	}

	expiration := cfg.JWT.Expiration
	if ttl > 0 {
		expiration = ttl
	}
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: expiration,
	})

	token, expiresAt, err := tokens.Issue(userID, familyID, userRole)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
