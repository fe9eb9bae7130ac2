// Package main provides delegatectl, a batch tool for loading people, tasks and agents
// and running delegations without going through the HTTP API.
//
// Usage:
//
//	delegatectl migrate
//	delegatectl import-people --dir data/resume
//	delegatectl import-tasks --dir data/task --delegate
//	delegatectl add-agent --id summarizer --description "Summarizes long reports"
//	delegatectl delegate Finance_0
//	delegatectl list delegations --limit 20
//
// Configuration comes from the same environment variables as the API server (a .env file
// is loaded when present); API_KEY is not required.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
