// Package main prints recent events from the audit journal.
//
// The journal is opened read-only, so the server must be stopped first.
//
// Usage:
//
//	AUDIT_JOURNAL_PATH=~/PointsBot/data/audit go run ./cmd/auditinspect
//	go run ./cmd/auditinspect -kind item.claimed -user 12345 -since 24h -limit 20
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/audit"
)

func main() {
	path := flag.String("path", defaultJournalPath(), "Audit journal directory")
	kind := flag.String("kind", "", "Only events of this kind")
	user := flag.String("user", "", "Only events for this user")
	since := flag.Duration("since", 0, "Only events newer than this (e.g. 24h)")
	limit := flag.Int("limit", 50, "Maximum events to print")
	flag.Parse()

	journal, err := audit.OpenJournalReadOnly(*path, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer journal.Close()

	total, err := journal.Count()
	if err != nil {
		log.Fatalf("Failed to count events: %v", err)
	}

	q := audit.Query{Kind: audit.Kind(*kind), UserID: *user, Limit: *limit}
	if *since > 0 {
		q.Since = time.Now().Add(-*since)
	}
	events, err := journal.Recent(context.Background(), q)
	if err != nil {
		log.Fatalf("Failed to read events: %v", err)
	}

	fmt.Println("=== Audit Journal ===")
	fmt.Printf("Path: %s\n", *path)
	fmt.Printf("Stored events: %d\n", total)
	fmt.Printf("Matching (newest first, max %d): %d\n", q.Limit, len(events))
	fmt.Println()

	counts := make(map[audit.Kind]int)
	for _, e := range events {
		counts[e.Kind]++
		printEvent(e)
	}

	if len(counts) > 0 {
		fmt.Println()
		fmt.Println("By kind:")
		for _, k := range slices.Sorted(maps.Keys(counts)) {
			fmt.Printf("  %-22s %d\n", k, counts[k])
		}
	}
}

func printEvent(e audit.Event) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-20s", e.At.Local().Format("2006-01-02 15:04:05"), e.Kind)
	if e.UserID != "" {
		fmt.Fprintf(&b, " user=%s", e.UserID)
	}
	if e.ActorID != "" {
		fmt.Fprintf(&b, " actor=%s", e.ActorID)
	}
	if e.Platform != "" {
		fmt.Fprintf(&b, " platform=%q", e.Platform)
	}
	if e.KeyCode != "" {
		fmt.Fprintf(&b, " key=%s", e.KeyCode)
	}
	if e.Points != 0 {
		fmt.Fprintf(&b, " points=%+d balance=%d", e.Points, e.Balance)
	}
	for _, k := range slices.Sorted(maps.Keys(e.Details)) {
		fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
	}
	fmt.Println(b.String())
}

func defaultJournalPath() string {
	if p := os.Getenv("AUDIT_JOURNAL_PATH"); p != "" {
		return p
	}
	return os.ExpandEnv("$HOME/PointsBot/data/audit")
}
