package main

import (
	"errors"
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
	half := fs.Bool("half", cfg.HalfSize, "report half-size output dimensions")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] [--] <raw_file>\n", args[0])
		fs.PrintDefaults()
	}

	// args
	if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 1 {
		fmt.Fprintf(stdout, "Usage: %s <raw_file>\n", args[0])
		return 1
	}
	srcFile := fs.Arg(0)

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

	var opts []libraw.Option
	if *half {
		opts = append(opts, libraw.WithHalfSize())
	}
	meta, err := libraw.ReadMetadata(srcFile, opts...)
	if err != nil {
		var lerr *libraw.Error
		if !errors.As(err, &lerr) {
			fmt.Fprintf(stdout, "Error: %v\n", err)
			return 1
		}
		switch lerr.Op {
		case libraw.OpOpen:
			fmt.Fprintf(stdout, "Error opening file: %s\n", libraw.Strerror(lerr.Code))
		case libraw.OpUnpack:
			fmt.Fprintf(stdout, "Error unpacking file: %s\n", libraw.Strerror(lerr.Code))
		default:
			fmt.Fprintf(stdout, "Error: %s\n", libraw.Strerror(lerr.Code))
		}
		return 1
	}

	if err := lsraw.WriteMetadata(stdout, meta, f); err != nil {
		slog.Error("write report", "err", err)
		return 1
	}
	return 0
}
