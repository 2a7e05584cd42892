// Package main is the entry point for the cricmetrics CLI tool, which ingests
// ball-by-ball cricket match documents and computes per-innings player and
// team statistics.
package main

import "github.com/pable/go-cricket-metrics/cmd"

func main() {
	cmd.Execute()
}
