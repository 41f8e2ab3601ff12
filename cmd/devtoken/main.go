// Command devtoken prints a bearer token for a user id, signed with the
// configured JWT_SECRET. Tokens normally come from the identity provider;
// this is for local development and smoke tests.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/journeys/service/internal/auth"
	"github.com/journeys/service/internal/config"
)

func main() {
	userID := flag.String("user", "", "user id to put in the token subject")
	username := flag.String("username", "", "optional username claim")
	ttl := flag.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -user <id> [-username <name>] [-ttl 24h]")
		os.Exit(2)
	}

	cfg := config.Load()
	if cfg.IsProduction() {
		fmt.Fprintln(os.Stderr, "devtoken refuses to run with APP_ENV=production")
		os.Exit(1)
	}

	token, err := auth.IssueToken(cfg.JWTSecret, *userID, *username, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s\n", token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(*ttl).Format(time.RFC3339))
}
