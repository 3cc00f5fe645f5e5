package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ysh86/lsraw"
	"github.com/ysh86/lsraw/internal/config"
	"github.com/ysh86/lsraw/libraw"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", cfg.Format, "output format: text, json, yaml")
	debug := fs.Bool("v", cfg.LogLevel <= slog.LevelDebug, "enable debug logging")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	logLevel := cfg.LogLevel
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	f, err := lsraw.ParseFormat(*format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	raw, err := libraw.New()
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	params := raw.Params()
	raw.Close()

	if err := lsraw.WriteParams(stdout, params, f); err != nil {
		slog.Error("write report", "err", err)
		return 1
	}
	return 0
}
