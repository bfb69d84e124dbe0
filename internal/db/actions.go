package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtnitsch/quote-origin/internal/common"
	dbpkg "github.com/dtnitsch/quote-origin/pkg/db"
	"github.com/dtnitsch/quote-origin/models"
	"github.com/urfave/cli/v2"
)

const timeLayout = "2006-01-02 15:04:05"

func SessionsAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer database.Close()
	w := c.App.Writer

	sessions, err := database.ListSessions(c.Context, c.Int("limit"), c.String("url"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if format := c.String("format"); format != "table" {
		return writeOrExit(w, format, sessions)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found")
		return nil
	}

	fmt.Fprintf(w, "%-36s %-20s %-7s %-7s %-10s %-5s %s\n",
		"Session", "Created", "Quotes", "Placed", "Unresolved", "Lang", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, s := range sessions {
		fmt.Fprintf(w, "%-36s %-20s %-7d %-7d %-10d %-5s %s\n",
			s.SessionKey,
			s.CreatedAt.Local().Format(timeLayout),
			s.QuoteCount,
			s.PlacedCount,
			s.UnresolvedCount,
			s.Language,
			s.URL,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d sessions\n", len(sessions))
	fmt.Fprintf(w, "\nTip: Use 'quote-origin history session <key>' to see its quotes\n")
	return nil
}

// sessionDetail is the structured form of SessionAction's output.
type sessionDetail struct {
	dbpkg.Session `yaml:",inline"`
	Quotes        []models.Quote `json:"quotes" yaml:"quotes"`
}

// SessionAction shows one session and its quotes, the latest by default.
func SessionAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer database.Close()
	w := c.App.Writer

	key, err := GetSessionKeyOrLatest(c, database)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	session, err := database.GetSessionByKey(c.Context, key)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	quotes, err := database.GetSessionQuotes(c.Context, session.SessionID)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if format := c.String("format"); format != "table" {
		return writeOrExit(w, format, sessionDetail{Session: *session, Quotes: quotes})
	}

	fmt.Fprintf(w, "Session %s\n", session.SessionKey)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Created:     %s\n", session.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "URL:         %s\n", orNone(session.URL))
	fmt.Fprintf(w, "Title:       %s\n", orNone(session.Title))
	fmt.Fprintf(w, "Language:    %s\n", orNone(session.Language))
	fmt.Fprintf(w, "Quotes:      %d (%d placed, %d unresolved)\n",
		session.QuoteCount, session.PlacedCount, session.UnresolvedCount)
	if len(session.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords:    %s\n", strings.Join(session.Keywords, ", "))
	}

	if len(quotes) > 0 {
		fmt.Fprintf(w, "\nQuotes (%d):\n", len(quotes))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, q := range quotes {
			fmt.Fprintf(w, "%3d. %-10s @%-6d %s\n", q.Index(), q.ID, q.SourcePosition, q.PreviewText)
		}
	}

	fmt.Fprintf(w, "\nTip: Use 'quote-origin history analyses --url %q' to see its backend calls\n", session.URL)
	return nil
}

// AnalysesAction lists stored backend calls.
func AnalysesAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer database.Close()
	w := c.App.Writer

	analyses, err := database.ListAnalyses(c.Context, dbpkg.AnalysisFilter{
		URLPattern: c.String("url"),
		FailedOnly: c.Bool("failed-only"),
		Limit:      c.Int("limit"),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if format := c.String("format"); format != "table" {
		return writeOrExit(w, format, analyses)
	}

	if len(analyses) == 0 {
		fmt.Fprintln(w, "No analyses found matching filters")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-20s %-10s %-8s %-6s %-10s %s\n",
		"ID", "Created", "Quote", "Status", "Best", "Verdict", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, a := range analyses {
		status := "ok"
		if !a.Success {
			status = "failed"
		}
		best := "-"
		if a.BestSimilarity != nil {
			best = fmt.Sprintf("%d%%", *a.BestSimilarity)
		}
		fmt.Fprintf(w, "%-6d %-20s %-10s %-8s %-6s %-10s %s\n",
			a.AnalysisID,
			a.CreatedAt.Local().Format(timeLayout),
			a.QuoteID,
			status,
			best,
			orNone(a.Verdict),
			a.URL,
		)
		if !a.Success {
			fmt.Fprintf(w, "       Error: [%s] %s\n", a.ErrorType, a.ErrorMessage)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d analyses\n", len(analyses))
	return nil
}

func writeOrExit(w io.Writer, format string, v any) error {
	if err := common.WriteOutput(w, format, v); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
