package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/djlord-it/cronpeek/internal/config"
	"github.com/djlord-it/cronpeek/internal/cron"
	"github.com/djlord-it/cronpeek/internal/preview"
)

// nextOutput is the json and yaml shape of "cronpeek next".
type nextOutput struct {
	Expression string   `json:"expression" yaml:"expression"`
	Timezone   string   `json:"timezone" yaml:"timezone"`
	Summary    string   `json:"summary" yaml:"summary"`
	Runs       []string `json:"runs" yaml:"runs"`
}

func runNext(args []string, stdout, stderr io.Writer) int {
	var (
		count    int
		fromFlag string
		tz       string
		output   string
	)

	flagSet := pflag.NewFlagSet("next", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.IntVarP(&count, "count", "n", 0, "number of runs (0 = DEFAULT_RUN_COUNT)")
	flagSet.StringVar(&fromFlag, "from", "", "search after this RFC 3339 time (default now)")
	flagSet.StringVar(&tz, "tz", "", "IANA timezone (default DEFAULT_TIMEZONE)")
	flagSet.StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitInvalidConfig
	}
	if flagSet.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: cronpeek next [flags] <expression>")
		return exitInvalidConfig
	}
	switch output {
	case "text", "json", "yaml":
	default:
		fmt.Fprintf(stderr, "unknown output format %q (want text, json or yaml)\n", output)
		return exitInvalidConfig
	}

	var from time.Time
	if fromFlag != "" {
		t, err := time.Parse(time.RFC3339, fromFlag)
		if err != nil {
			fmt.Fprintf(stderr, "invalid --from: %v\n", err)
			return exitInvalidConfig
		}
		from = t
	}

	cfg := config.Load()
	svc := preview.NewService(preview.Config{
		DefaultTimezone: cfg.DefaultTimezone,
		DefaultCount:    cfg.DefaultRunCount,
		MaxCount:        cfg.MaxRunCount,
		SearchTimeout:   cfg.SearchTimeout,
	})

	res, err := svc.Preview(context.Background(), preview.Request{
		// Joining lets an unquoted expression span several arguments.
		Expression: strings.Join(flagSet.Args(), " "),
		Count:      count,
		From:       from,
		Timezone:   tz,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	if from.IsZero() {
		from = time.Now()
	}
	if err := writeRuns(stdout, output, res, from); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitRuntimeError
	}
	return exitSuccess
}

// exitCodeFor maps invalid input to exitInvalidConfig and everything else,
// including an exhausted or timed-out search, to exitRuntimeError.
func exitCodeFor(err error) int {
	if errors.Is(err, cron.ErrSearchExhausted) {
		return exitRuntimeError
	}
	if cron.KindOf(err) != "" ||
		errors.Is(err, preview.ErrInvalidCount) ||
		errors.Is(err, preview.ErrInvalidTimezone) {
		return exitInvalidConfig
	}
	return exitRuntimeError
}

func writeRuns(w io.Writer, format string, res *preview.Result, from time.Time) error {
	switch format {
	case "json", "yaml":
		out := nextOutput{
			Expression: res.Expression,
			Timezone:   res.Timezone,
			Summary:    res.Summary,
			Runs:       make([]string, len(res.Runs)),
		}
		for i, t := range res.Runs {
			out.Runs[i] = t.Format(time.RFC3339)
		}
		if format == "json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()

	default:
		fmt.Fprintf(w, "%s\n%s\n\n", res.Expression, res.Summary)
		for _, t := range res.Runs {
			fmt.Fprintf(w, "  %s  (%s)\n", preview.FormatRun(t), humanize.RelTime(t, from, "ago", "from now"))
		}
		return nil
	}
}

func runRandom(args []string, stdout, stderr io.Writer) int {
	var (
		count int
		seed  uint64
	)

	flagSet := pflag.NewFlagSet("random", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.IntVarP(&count, "count", "n", 1, "number of expressions")
	flagSet.Uint64Var(&seed, "seed", 0, "seed for reproducible output (0 = random)")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitInvalidConfig
	}
	if count < 1 {
		fmt.Fprintln(stderr, "--count must be at least 1")
		return exitInvalidConfig
	}

	var r *rand.Rand
	if seed != 0 {
		r = rand.New(rand.NewPCG(seed, seed))
	}
	for i := 0; i < count; i++ {
		fmt.Fprintln(stdout, preview.Random(r))
	}
	return exitSuccess
}
