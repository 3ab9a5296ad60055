// Command tokengen mints signed bearer tokens for local development
// and testing, standing in for the external identity collaborator.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"chat-relay/auth"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user ID to embed in the token")
	displayName := flag.String("name", "", "display name (defaults to the user ID)")
	projects := flag.String("projects", "", "comma-separated project IDs the user belongs to")
	duration := flag.Duration("duration", 24*time.Hour, "token validity")
	issuer := flag.String("issuer", "chat-relay", "token issuer")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "missing -user")
		os.Exit(2)
	}
	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "AUTH_SECRET is not set")
		os.Exit(2)
	}

	name := *displayName
	if name == "" {
		name = *userID
	}
	var grants []string
	if *projects != "" {
		grants = strings.Split(*projects, ",")
	}

	tm := auth.NewTokenManager(secret, *issuer, *duration)
	token, err := tm.Generate(*userID, name, grants)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token generation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
