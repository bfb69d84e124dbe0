package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is one quote-delimiter style the extractor scans for.
// The first capture group is the quoted content.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

// Pattern names accepted by ParsePatterns.
const (
	PatternCurly    = "curly"
	PatternStraight = "straight"
	PatternSingle   = "single"
)

var (
	curlyDouble = Pattern{Name: PatternCurly, Re: regexp.MustCompile(`\x{201C}([^\x{201D}]+)\x{201D}`)}
	straight    = Pattern{Name: PatternStraight, Re: regexp.MustCompile(`"([^"]+)"`)}
	// Off by default: apostrophes in running text produce false positives.
	curlySingle = Pattern{Name: PatternSingle, Re: regexp.MustCompile(`\x{2018}([^\x{2019}]+)\x{2019}`)}
)

// knownPatterns lists every pattern in scan order.
var knownPatterns = []Pattern{curlyDouble, straight, curlySingle}

// DefaultPatterns returns the patterns enabled when nothing is configured.
func DefaultPatterns() []Pattern {
	return []Pattern{curlyDouble, straight}
}

// ParsePatterns turns a comma-separated list such as "curly,straight,single"
// into the ordered pattern list. Scan order is always curly, straight, single,
// regardless of the order names appear in. An empty string means the defaults.
func ParsePatterns(list string) ([]Pattern, error) {
	if strings.TrimSpace(list) == "" {
		return DefaultPatterns(), nil
	}

	enabled := make(map[string]struct{})
	for _, part := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if !isKnownPattern(name) {
			return nil, fmt.Errorf("unknown quote pattern: %s", name)
		}
		enabled[name] = struct{}{}
	}

	if len(enabled) == 0 {
		return nil, fmt.Errorf("no quote patterns in %q", list)
	}

	var patterns []Pattern
	for _, p := range knownPatterns {
		if _, ok := enabled[p.Name]; ok {
			patterns = append(patterns, p)
		}
	}
	return patterns, nil
}

func isKnownPattern(name string) bool {
	for _, p := range knownPatterns {
		if p.Name == name {
			return true
		}
	}
	return false
}
