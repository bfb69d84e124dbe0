package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dtnitsch/quote-origin/internal/db"
	"github.com/dtnitsch/quote-origin/internal/detect"
	"github.com/dtnitsch/quote-origin/internal/serve"
	"github.com/dtnitsch/quote-origin/internal/trace"
	"github.com/dtnitsch/quote-origin/models"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "quote-origin",
		Usage: "Find quoted spans in news articles and trace them to their probable source",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			{
				Name:      "detect",
				Usage:     "Extract the quotes of one or more articles",
				UsageText: "quote-origin detect --url https://news.example/story [--annotate]",
				Flags:     append(sourceFlags(), formatFlag("json"), &cli.BoolFlag{Name: "annotate", Usage: "Also mark the quotes in the page and report placement"}),
				Action:    detect.DetectAction,
			},
			{
				Name:      "annotate",
				Usage:     "Mark every quote of an article and write the annotated HTML",
				UsageText: "quote-origin annotate --file story.html --out story.annotated.html",
				Flags: append(sourceFlags(),
					&cli.StringFlag{Name: "out", Value: "-", Usage: "Output path for the annotated HTML (- for stdout)"},
					&cli.IntFlag{Name: "passes", Value: 1, Usage: "Annotate this many times; later passes must be no-ops"},
				),
				Action: detect.AnnotateAction,
			},
			{
				Name:      "trace",
				Usage:     "Detect quotes and ask the analysis backend where each came from",
				UsageText: "quote-origin trace --url https://news.example/story [--quote quote-0]",
				Flags: append(sourceFlags(), formatFlag("json"),
					&cli.StringFlag{Name: "quote", Usage: "Trace only this quote id instead of sweeping every quote"},
					&cli.IntFlag{Name: "workers", Value: 4, Usage: "Documents fetched and parsed concurrently"},
				),
				Action: trace.TraceAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the message engine behind an HTTP and websocket listener",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "listen", Usage: "Listen address (default " + models.DefaultConfig().ListenAddr + ")"}},
				Action: serve.ServeAction,
			},
			{
				Name:  "history",
				Usage: "Inspect recorded detection passes and backend calls",
				Subcommands: []*cli.Command{
					{
						Name:   "sessions",
						Usage:  "List recent detection passes",
						Flags:  []cli.Flag{limitFlag(), urlFilterFlag(), formatFlag("table")},
						Action: db.SessionsAction,
					},
					{
						Name:      "session",
						Usage:     "Show one detection pass and its quotes (latest if no key or URL is given)",
						ArgsUsage: "[session-key | article-url]",
						Flags:     []cli.Flag{formatFlag("table")},
						Action:    db.SessionAction,
					},
					{
						Name:  "analyses",
						Usage: "List stored backend calls",
						Flags: []cli.Flag{limitFlag(), urlFilterFlag(), formatFlag("table"),
							&cli.BoolFlag{Name: "failed-only", Usage: "Only show failed calls"},
						},
						Action: db.AnalysesAction,
					},
				},
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to a YAML config file"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log debug output"},
		&cli.StringFlag{Name: "backend-url", Usage: "Base URL of the analysis backend"},
		&cli.DurationFlag{Name: "http-timeout", Usage: "Timeout for one backend call"},
		&cli.DurationFlag{Name: "sweep-delay", Usage: "Pause between backend calls of a sweep"},
		&cli.StringFlag{Name: "db", Usage: "Path to the history database"},
		&cli.BoolFlag{Name: "no-history", Usage: "Do not record sessions or analyses"},
		&cli.StringFlag{Name: "patterns", Usage: "Comma-separated quote patterns (curly,straight,single)"},
		&cli.IntFlag{Name: "keywords", Usage: "Keywords sent with each request"},
		&cli.StringFlag{Name: "cache-dir", Value: ".quote-origin-cache", Usage: "Directory for cached article HTML"},
		&cli.DurationFlag{Name: "cache-ttl", Value: 24 * time.Hour, Usage: "Age after which cached HTML is refetched (0 keeps it forever)"},
		&cli.BoolFlag{Name: "no-cache", Usage: "Always fetch articles"},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "url", Aliases: []string{"u"}, Usage: "Article URL (repeatable)"},
		&cli.StringSliceFlag{Name: "file", Aliases: []string{"f"}, Usage: "Saved article HTML (repeatable)"},
	}
}

func formatFlag(value string) cli.Flag {
	usage := "Output format: json or yaml"
	if value == "table" {
		usage = "Output format: table, json or yaml"
	}
	return &cli.StringFlag{Name: "format", Value: value, Usage: usage}
}

func limitFlag() cli.Flag {
	return &cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum rows"}
}

func urlFilterFlag() cli.Flag {
	return &cli.StringFlag{Name: "url", Usage: "Only rows whose URL contains this text"}
}
