package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/edvin/swapd/internal/swapctl"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "secret":
		if len(os.Args) < 3 || os.Args[2] != "generate" {
			fmt.Fprintln(os.Stderr, "Usage: swapctl secret generate [-o FILE]")
			os.Exit(1)
		}
		fs := flag.NewFlagSet("secret generate", flag.ExitOnError)
		out := fs.String("o", "secret.uuid", "Path to write the deployment secret to")
		fs.Parse(os.Args[3:])

		if err := swapctl.GenerateSecret(os.Stdout, *out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "deploy":
		fs := flag.NewFlagSet("deploy", flag.ExitOnError)
		apiURL := fs.String("url", "http://localhost:8080", "swapd base URL")
		secretFile := fs.String("secret-file", "secret.uuid", "Path to the deployment secret")
		wait := fs.Bool("wait", false, "Wait until the new container has started")
		timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout, including -wait")
		fs.Parse(os.Args[2:])

		deploySecret, err := swapctl.LoadSecret(*secretFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()

		attempt, err := swapctl.NewClient(*apiURL).Deploy(ctx, deploySecret, *wait, time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		swapctl.PrintJSON(os.Stdout, attempt)
		if attempt.Error != "" {
			os.Exit(1)
		}

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		apiURL := fs.String("url", "http://localhost:8080", "swapd base URL")
		fs.Parse(os.Args[2:])

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		report, err := swapctl.NewClient(*apiURL).Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		swapctl.PrintJSON(os.Stdout, report)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  swapctl secret generate [-o FILE]
  swapctl deploy [-url URL] [-secret-file FILE] [-wait] [-timeout DURATION]
  swapctl status [-url URL]

Commands:
  secret generate  Create the shared deployment secret (kept if it already exists)
  deploy           Trigger a deployment of the configured image
  status           Show the deployment record and the last attempt

Flags:
  -o string            Secret file to write (default: secret.uuid)
  -url string          swapd base URL (default: http://localhost:8080)
  -secret-file string  Secret file to read (default: secret.uuid)
  -wait                Poll /status until the attempt finishes
  -timeout duration    Overall timeout (default: 10m)`)
}
