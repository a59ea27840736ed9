package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/briaclm/allocine-scraper/config"
	"github.com/briaclm/allocine-scraper/fetch"
	"github.com/briaclm/allocine-scraper/models"
	"github.com/briaclm/allocine-scraper/pipeline"
)

func main() {
	defaultCfg := config.DefaultConfig()
	dataRootDefault := defaultCfg.DataRoot
	if value, ok := config.EnvString("SCRAPER_DATA_ROOT"); ok {
		dataRootDefault = value
	}
	pagesDefault := defaultCfg.MaxPages
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}

	film := flag.String("film", "", "Film title to match showtimes for")
	flag.StringVar(film, "f", "", "Film title to match showtimes for (shorthand)")
	salleName := flag.String("salle-name", "", "Explicit venue name override")
	dataRoot := flag.String("data-root", dataRootDefault, "Directory holding run artifacts")
	maxPages := flag.Int("pages", pagesDefault, "Maximum listing pages to crawl")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.Film = *film
	cfg.SalleName = *salleName
	cfg.DataRoot = *dataRoot
	cfg.MaxPages = *maxPages
	cfg.Verbose = *verbose
	cfg.URL = resolveURL(flag.Arg(0))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("Fetching: %s\n", cfg.URL)
	fmt.Printf("User-Agent: %s\n", cfg.UserAgent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg)
	result, err := p.Run(ctx, pipeline.Request{
		URL:       cfg.URL,
		Film:      cfg.Film,
		SalleName: cfg.SalleName,
	})
	if err != nil {
		var timeout fetch.ErrTimeout
		var conn fetch.ErrConnection
		var status fetch.ErrHTTPStatus
		switch {
		case errors.As(err, &timeout), errors.As(err, &conn), errors.As(err, &status):
			fmt.Printf("Request failed: %v\n", err)
			if result != nil {
				fmt.Printf("Error details written under: %s\n", result.RunDir)
			}
		default:
			slog.Error("scrape failed", slog.Any("error", err))
		}
		os.Exit(1)
	}

	printSummary(result)
}

// resolveURL returns the positional URL argument, prompting interactively
// with the documented default when it was omitted.
func resolveURL(arg string) string {
	if arg != "" {
		return arg
	}

	fmt.Printf("Enter the URL to scrape (leave empty for the default %s): ", config.DefaultURL)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return config.DefaultURL
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return config.DefaultURL
	}
	return line
}

func printSummary(result *models.RunResult) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Run:          %s\n", result.RunID)
	fmt.Printf("  Venue:        %s\n", result.SalleName)
	fmt.Printf("  Date:         %s\n", result.Date)
	fmt.Printf("  Films:        %d\n", result.FilmCount)
	fmt.Printf("  Pages:        %d fetched, %d failed\n", result.PagesFetched, result.PagesFailed)
	if result.FilmFile != "" {
		fmt.Printf("  Film JSON:    %s\n", result.FilmFile)
	}
	fmt.Printf("  Duration:     %v\n", result.Duration())
	fmt.Printf("  Artifacts:    %s\n", result.RunDir)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
