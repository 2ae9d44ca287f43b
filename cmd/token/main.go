// Package main manages operator credentials for the points bot server.
//
// Usage:
//
//	go run ./cmd/token hash                       # read a secret from stdin, print its argon2id hash
//	go run ./cmd/token issue -operator telegram   # mint a token with the server's key
//
// Hashes go into AUTH_OPERATORS as name:role:hash entries separated by ';'.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "hash":
		hash()
	case "issue":
		issue(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: token hash | token issue -operator NAME [-role bot|admin] [-key PATH] [-ttl 24h]")
}

func hash() {
	fmt.Fprint(os.Stderr, "secret: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("Failed to read secret: %v", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		log.Fatal("Secret cannot be empty")
	}

	encoded, err := auth.HashSecret(secret)
	if err != nil {
		log.Fatalf("Failed to hash secret: %v", err)
	}
	fmt.Println(encoded)
}

func issue(args []string) {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	operator := fs.String("operator", "", "Operator name")
	roleName := fs.String("role", string(auth.RoleBot), "Operator role (bot, admin)")
	keyPath := fs.String("key", defaultKeyPath(), "Token key file; created if missing")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = fs.Parse(args)

	if *operator == "" {
		log.Fatal("-operator is required")
	}
	role, err := auth.ParseRole(*roleName)
	if err != nil {
		log.Fatalf("Invalid role: %v", err)
	}

	key, err := auth.LoadOrGenerateKey(*keyPath)
	if err != nil {
		log.Fatalf("Failed to load key: %v", err)
	}
	tokens, err := auth.NewTokenService(key, *ttl)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	token, expires, err := tokens.Issue(*operator, role)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires: %s\n", expires.Format(time.RFC3339))
	fmt.Println(token)
}

func defaultKeyPath() string {
	if p := os.Getenv("AUTH_KEY_PATH"); p != "" {
		return p
	}
	if dir := os.Getenv("DATA_PATH"); dir != "" {
		return filepath.Join(dir, "auth.key")
	}
	return os.ExpandEnv("$HOME/PointsBot/data/auth.key")
}
