package main

import (
	"fmt"
	"os"

	"grimm.is/dnsmcp/cmd"
	"grimm.is/dnsmcp/internal/brand"
)

func main() {
	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		if err := cmd.RunServe(args); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", brand.Name, err)
			os.Exit(1)
		}
	case "version", "-version", "--version":
		fmt.Printf("%s %s\n", brand.Name, brand.Version())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [command]

Commands:
  serve      Run the MCP server on stdio (default)
  version    Print the version
  help       Print this help

Configuration is taken from the environment (TECHNITIUM_URL plus one of
TECHNITIUM_TOKEN, TECHNITIUM_TOKEN_FILE or TECHNITIUM_PASSWORD; optional
DNSMCP_* tunables for logging, rate limits, audit store, and metrics).
`, brand.Name)
}
