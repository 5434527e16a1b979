// Command taut-log views and analyzes connection lifecycle log files.
//
// Log files are created by running taut-probe with the -log flag.
//
// Usage:
//
//	taut-log <command> [flags] <file.tlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	taut-log view probe.tlog
//
//	# View only control messages
//	taut-log view -category control probe.tlog
//
//	# Export to JSONL
//	taut-log export probe.tlog
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tautline/taut-go/pkg/log"
)

const usage = `taut-log - Connection Lifecycle Log Analyzer

Usage:
  taut-log <command> [flags] <file.tlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL
  stats    Show statistics about the log file

Use "taut-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	category := fs.String("category", "", "filter by category: state, control, buffer, error")
	attempt := fs.String("attempt", "", "filter by attempt ID prefix")
	_ = fs.Parse(args)

	events := mustRead(fs.Args())
	for _, ev := range events {
		if *category != "" && !strings.EqualFold(ev.Category.String(), *category) {
			continue
		}
		if *attempt != "" && !strings.HasPrefix(ev.AttemptID, *attempt) {
			continue
		}
		fmt.Println(formatEvent(ev))
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	output := fs.String("o", "", "output file (default stdout)")
	_ = fs.Parse(args)

	events := mustRead(fs.Args())

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatal("create output: %v", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	for _, ev := range events {
		if err := enc.Encode(exportRecord(ev)); err != nil {
			fatal("encode event: %v", err)
		}
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	_ = fs.Parse(args)

	events := mustRead(fs.Args())
	if len(events) == 0 {
		fmt.Println("empty log")
		return
	}

	byCategory := make(map[string]int)
	attempts := make(map[string]bool)
	var errorCount int
	for _, ev := range events {
		byCategory[ev.Category.String()]++
		if ev.AttemptID != "" {
			attempts[ev.AttemptID] = true
		}
		if ev.Error != nil {
			errorCount++
		}
	}

	first := events[0].Timestamp
	last := events[len(events)-1].Timestamp

	fmt.Printf("events:   %d\n", len(events))
	fmt.Printf("span:     %s (%s to %s)\n",
		last.Sub(first).Round(time.Millisecond),
		first.Format(time.RFC3339), last.Format(time.RFC3339))
	fmt.Printf("attempts: %d\n", len(attempts))
	fmt.Printf("errors:   %d\n", errorCount)

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		fmt.Printf("  %-8s %d\n", strings.ToLower(cat), byCategory[cat])
	}
}

// mustRead loads every event from the single file argument.
func mustRead(args []string) []log.Event {
	if len(args) != 1 {
		fatal("expected exactly one log file argument")
	}

	f, err := os.Open(args[0])
	if err != nil {
		fatal("open log file: %v", err)
	}
	defer f.Close()

	var events []log.Event
	dec := log.NewDecoder(f)
	for {
		var ev log.Event
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				break
			}
			fatal("decode event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

// formatEvent renders one event as a single line.
func formatEvent(ev log.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %-7s",
		ev.Timestamp.Format("15:04:05.000"),
		ev.Direction, ev.Category)
	if ev.AttemptID != "" {
		id := ev.AttemptID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(&b, " [%s]", id)
	}

	switch {
	case ev.StateChange != nil:
		fmt.Fprintf(&b, " %s -> %s (retries=%d)",
			ev.StateChange.From, ev.StateChange.To, ev.StateChange.Retries)
	case ev.ControlMsg != nil:
		fmt.Fprintf(&b, " %s", ev.ControlMsg.Kind)
	case ev.Buffer != nil:
		fmt.Fprintf(&b, " %s %s len=%d",
			ev.Buffer.Queue, ev.Buffer.Action, ev.Buffer.Length)
	case ev.Error != nil:
		fmt.Fprintf(&b, " %s", ev.Error.Message)
	}

	if ev.URL != "" {
		fmt.Fprintf(&b, " url=%s", ev.URL)
	}
	return b.String()
}

// exportRecord flattens an event for JSONL export.
func exportRecord(ev log.Event) map[string]any {
	rec := map[string]any{
		"timestamp": ev.Timestamp.Format(time.RFC3339Nano),
		"direction": ev.Direction.String(),
		"category":  ev.Category.String(),
	}
	if ev.AttemptID != "" {
		rec["attemptId"] = ev.AttemptID
	}
	if ev.URL != "" {
		rec["url"] = ev.URL
	}
	switch {
	case ev.StateChange != nil:
		rec["from"] = ev.StateChange.From
		rec["to"] = ev.StateChange.To
		rec["retries"] = ev.StateChange.Retries
	case ev.ControlMsg != nil:
		rec["kind"] = ev.ControlMsg.Kind
	case ev.Buffer != nil:
		rec["queue"] = ev.Buffer.Queue
		rec["action"] = ev.Buffer.Action
		rec["length"] = ev.Buffer.Length
	case ev.Error != nil:
		rec["error"] = ev.Error.Message
	}
	return rec
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
