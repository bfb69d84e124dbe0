package db

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/quote-origin/internal/common"
	"github.com/dtnitsch/quote-origin/internal/config"
	dbpkg "github.com/dtnitsch/quote-origin/pkg/db"
	"github.com/urfave/cli/v2"
)

// openDatabase opens the history database named by the configuration.
func openDatabase(c *cli.Context) (*dbpkg.DB, error) {
	cfg, err := config.FromCLI(c)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	database, err := dbpkg.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// GetSessionKeyOrLatest returns the session key from args, or the latest
// session's key if none was given. An article URL selects the latest session
// recorded for it.
func GetSessionKeyOrLatest(c *cli.Context, database *dbpkg.DB) (string, error) {
	if c.NArg() > 0 {
		arg := c.Args().First()
		if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
			return arg, nil
		}
		s, err := database.LatestSessionForURL(c.Context, common.SanitizeURL(arg))
		if err != nil {
			return "", err
		}
		return s.SessionKey, nil
	}
	sessions, err := database.ListSessions(c.Context, 1, "")
	if err != nil {
		return "", fmt.Errorf("failed to get latest session: %w", err)
	}
	if len(sessions) == 0 {
		return "", fmt.Errorf("no sessions found. Run 'quote-origin detect --url \"...\"' first")
	}
	return sessions[0].SessionKey, nil
}
