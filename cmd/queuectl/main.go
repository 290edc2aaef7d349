// Command queuectl is a thin CLI over the queue façade: enqueue jobs,
// list them, inspect status, and manage the dead letter queue. It
// does no scheduling of its own; the worker process does that.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rezkam/queuectl/internal/config"
	"github.com/rezkam/queuectl/internal/domain"
	"github.com/rezkam/queuectl/internal/ptr"
	"github.com/rezkam/queuectl/internal/queue"
	"github.com/rezkam/queuectl/internal/settings"
	"github.com/rezkam/queuectl/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatalf("failed to open store at %s: %v", cfg.DBPath, err)
	}
	defer st.Close()

	facade := queue.New(st, settings.New(st))

	switch os.Args[1] {
	case "enqueue":
		runEnqueue(ctx, facade, os.Args[2:])
	case "list":
		runList(ctx, facade, os.Args[2:])
	case "status":
		runStatus(ctx, facade)
	case "dlq-list":
		runDLQList(ctx, facade)
	case "dlq-retry":
		runDLQRetry(ctx, facade, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: queuectl <enqueue|list|status|dlq-list|dlq-retry> [flags]")
}

func runEnqueue(ctx context.Context, f *queue.Facade, args []string) {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	id := fs.String("id", "", "job id")
	command := fs.String("command", "", "shell command to run")
	maxRetries := fs.Int("max-retries", -1, "per-job override of default max retries (-1 uses the configured default)")
	fs.Parse(args)

	spec := domain.Spec{ID: *id, Command: *command}
	if *maxRetries >= 0 {
		spec.MaxRetries = ptr.To(*maxRetries)
	}

	job, err := f.Enqueue(ctx, spec)
	if err != nil {
		log.Fatalf("enqueue failed: %v", err)
	}
	printJSON(job)
}

func runList(ctx context.Context, f *queue.Facade, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	state := fs.String("state", "", "filter by state (PENDING, PROCESSING, COMPLETED, FAILED, DEAD)")
	limit := fs.Int("limit", 0, "limit results (0 is unbounded)")
	fs.Parse(args)

	jobs, err := f.List(ctx, domain.JobState(*state), *limit)
	if err != nil {
		log.Fatalf("list failed: %v", err)
	}
	printJSON(jobs)
}

func runStatus(ctx context.Context, f *queue.Facade) {
	status, err := f.Status(ctx)
	if err != nil {
		log.Fatalf("status failed: %v", err)
	}
	printJSON(status)
}

func runDLQList(ctx context.Context, f *queue.Facade) {
	jobs, err := f.DLQList(ctx, 0)
	if err != nil {
		log.Fatalf("dlq-list failed: %v", err)
	}
	printJSON(jobs)
}

func runDLQRetry(ctx context.Context, f *queue.Facade, args []string) {
	fs := flag.NewFlagSet("dlq-retry", flag.ExitOnError)
	id := fs.String("id", "", "job id to revive")
	fs.Parse(args)

	job, err := f.DLQRetry(ctx, *id)
	if err != nil {
		log.Fatalf("dlq-retry failed: %v", err)
	}
	printJSON(job)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("failed to encode output: %v", err)
	}
}
