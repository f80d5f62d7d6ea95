// Package main provides the entry point for the wiring-tracer command.
package main

import "wiring-tracer/internal/cli"

func main() {
	cli.Execute()
}
