// Command pdftl uploads PDFs to a translation backend and pages through the
// translated result in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/ZaguanLabs/pdftl"
	"github.com/ZaguanLabs/pdftl/client"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = pdftl.Version
	commit    = pdftl.GitCommit
	buildDate = pdftl.BuildDate
)

const (
	envAPIURL   = "PDFTL_API_URL"
	envHistory  = "PDFTL_HISTORY"
	envRedisURL = "PDFTL_REDIS_URL"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// config holds the global flags shared by every command.
type config struct {
	apiURL    string
	history   string
	redisURL  string
	source    string
	target    string
	timeout   time.Duration
	cacheTTL  time.Duration
	rateLimit int
	verbose   bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pdftl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(fs) }

	var cfg config
	fs.StringVar(&cfg.apiURL, "api-url", envOr(envAPIURL, client.DefaultBaseURL), "Backend base URL (env "+envAPIURL+")")
	fs.StringVar(&cfg.history, "history", envOr(envHistory, "file"), "History store: file, redis, remote or none (env "+envHistory+")")
	fs.StringVar(&cfg.redisURL, "redis-url", os.Getenv(envRedisURL), "Redis URL for the page cache and redis history (env "+envRedisURL+")")
	fs.StringVar(&cfg.source, "source", pdftl.DefaultSourceLang, "Source language code, or auto")
	fs.StringVar(&cfg.target, "lang", pdftl.DefaultTargetLang, "Target language code")
	fs.DurationVar(&cfg.timeout, "timeout", client.DefaultTimeout, "Per-request timeout")
	fs.DurationVar(&cfg.cacheTTL, "cache-ttl", time.Hour, "Page cache TTL (0 to disable)")
	fs.IntVar(&cfg.rateLimit, "rate", pdftl.DefaultRateLimitConfig().RequestsPerMinute, "Page requests per minute")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Log library events to stderr")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		printVersion(stdout)
		return nil
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("a command is required")
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		printVersion(stdout)
		return nil
	}
	if cmd == "languages" {
		return runLanguages(stdout)
	}

	a, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	switch cmd {
	case "upload":
		return a.runUpload(ctx, rest)
	case "page":
		return a.runPage(ctx, rest)
	case "view":
		return a.runView(ctx, rest)
	case "open":
		return a.runOpen(ctx, rest)
	case "close":
		return a.runClose(ctx, rest)
	case "history":
		return a.runHistory(ctx, rest)
	}

	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "%s - %s\n\n", pdftl.Name, pdftl.Description)
	fmt.Fprintf(w, "Usage:\n  pdftl [flags] <command> [args]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  upload FILE          Upload a PDF and print its document id\n")
	fmt.Fprintf(w, "  page DOC_ID N        Print one translated page\n")
	fmt.Fprintf(w, "  view DOC_ID          Page through a document interactively\n")
	fmt.Fprintf(w, "  open PDF_ID          Reopen a document from history at the last page read\n")
	fmt.Fprintf(w, "  close DOC_ID         Release a document on the backend\n")
	fmt.Fprintf(w, "  history [cmd]        list, remove, clear, stats, export, import\n")
	fmt.Fprintf(w, "  languages            List the selectable languages\n")
	fmt.Fprintf(w, "  version              Show version\n\n")
	fmt.Fprintf(w, "Flags:\n")
	fs.PrintDefaults()
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", pdftl.Name, version)
	if commit != "unknown" && commit != "" {
		fmt.Fprintf(w, "  commit:  %s\n", commit)
	}
	if buildDate != "unknown" && buildDate != "" {
		fmt.Fprintf(w, "  built:   %s\n", buildDate)
	}
}

func runLanguages(w io.Writer) error {
	for _, l := range pdftl.AvailableLanguages {
		dir := ""
		if pdftl.IsRTL(l.Code) {
			dir = "  (right-to-left)"
		}
		fmt.Fprintf(w, "%-6s %s %s%s\n", l.Code, l.Flag, l.Name, dir)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
