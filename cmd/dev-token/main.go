package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/smarttransit/shuttle-reservation-backend/pkg/jwt"
)

// Mints an access token signed with JWT_SECRET for local testing.
// Production tokens come from the auth service.
func main() {
	var (
		userFlag   string
		rolesFlag  string
		expiryFlag time.Duration
	)
	flag.StringVar(&userFlag, "user", "", "user id (default: random)")
	flag.StringVar(&rolesFlag, "roles", "passenger", "comma-separated roles, e.g. passenger,driver")
	flag.DurationVar(&expiryFlag, "expiry", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	userID := uuid.New()
	if userFlag != "" {
		parsed, err := uuid.Parse(userFlag)
		if err != nil {
			log.Fatalf("invalid -user: %v", err)
		}
		userID = parsed
	}

	var roles []string
	for _, r := range strings.Split(rolesFlag, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}

	token, err := jwt.NewService(secret, expiryFlag).GenerateAccessToken(userID, roles)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user_id=%s roles=%s expires_in=%s\n", userID, strings.Join(roles, ","), expiryFlag)
	fmt.Println(token)
}
