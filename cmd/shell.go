package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/report"
	"github.com/pable/go-cricket-metrics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, _ []string) error {
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	cGreeting.Println("cricmetrics shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("cricmetrics")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		args := strings.Fields(rest)

		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			shellList(ctx, db)
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <match-id-prefix> [--player <name>]")
				continue
			}
			var player string
			for i := 1; i+1 < len(args); i++ {
				if args[i] == "--player" {
					player = strings.Join(args[i+1:], " ")
					break
				}
			}
			shellReport(showMatch(ctx, os.Stdout, db, args[0], player))
		case "player":
			if rest == "" {
				cError.Fprintln(os.Stderr, "usage: player <registry-id|name>")
				continue
			}
			shellReport(printPlayer(ctx, os.Stdout, db, rest, 10))
		case "matchup":
			batter, bowler, ok := strings.Cut(rest, " v ")
			if !ok {
				cError.Fprintln(os.Stderr, "usage: matchup <batter> v <bowler>")
				continue
			}
			shellMatchup(ctx, db, strings.TrimSpace(batter), strings.TrimSpace(bowler))
		case "sql":
			shellReport(shellSQL(ctx, db, rest))
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
	}
	return scanner.Err()
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored matches"},
		{"show <match-id-prefix>", "show a match scorecard"},
		{"show <match-id-prefix> --player <name>", "same, highlighting one player"},
		{"player <registry-id|name>", "career summary for one player"},
		{"matchup <batter> v <bowler>", "head-to-head record"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-42s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellReport(err error) {
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func shellList(ctx context.Context, db *storage.DB) {
	matches, err := db.ListMatches(ctx)
	if err != nil {
		shellReport(err)
		return
	}
	if len(matches) == 0 {
		cMuted.Println("No matches stored yet.")
		return
	}
	report.PrintMatchList(os.Stdout, matches)
}

func shellMatchup(ctx context.Context, db *storage.DB, batterQ, bowlerQ string) {
	batter, err := db.FindPlayer(ctx, batterQ)
	if err != nil {
		shellReport(err)
		return
	}
	bowler, err := db.FindPlayer(ctx, bowlerQ)
	if err != nil {
		shellReport(err)
		return
	}
	if batter == nil || bowler == nil {
		cWarn.Fprintf(os.Stderr, "no player matches %q or %q\n", batterQ, bowlerQ)
		return
	}
	m, err := db.Matchup(ctx, batter.ID, bowler.ID)
	if err != nil {
		shellReport(err)
		return
	}
	report.PrintMatchup(os.Stdout, batter.Name, bowler.Name, m)
}

func shellSQL(ctx context.Context, db *storage.DB, query string) error {
	if query == "" {
		return fmt.Errorf("usage: sql <query>")
	}
	cols, rows, err := db.QueryRaw(ctx, query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		cMuted.Println("(no rows)")
		return nil
	}
	fmt.Println(strings.Join(cols, "\t"))
	for _, r := range rows {
		fmt.Println(strings.Join(r, "\t"))
	}
	cMuted.Printf("(%d rows)\n", len(rows))
	return nil
}
