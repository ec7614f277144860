// Package main starts a terminal session against the card advisor dialog
// controller, without any Telegram credentials.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	replcmd "github.com/louisbranch/cardpath/internal/cmd/repl"
)

func main() {
	cfg, err := replcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[REPL] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := replcmd.Run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("repl failed: %v", err)
	}
}
