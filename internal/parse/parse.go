// Package parse extracts a best-effort title/year/quality guess from a media
// filename so that the monitor service can query a metadata provider for it.
package parse

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	parenYearMatcher = regexp.MustCompile(`\((\d{4})\)`)

	// A bare year token must be delimited by non-alphanumerics (or the
	// string edge); a `\b` boundary would not do, as underscore separators
	// count as word characters.
	bareYearMatcher = regexp.MustCompile(`(?:^|[^0-9a-zA-Z])(19\d{2}|20\d{2})(?:[^0-9a-zA-Z]|$)`)

	separatorMatcher = regexp.MustCompile(`[._]+`)
	spaceMatcher     = regexp.MustCompile(`\s+`)
)

// qualityTags is the fixed, ordered list of release quality markers we
// recognise. The first tag found in the filename wins.
var qualityTags = []string{"1080p", "720p", "2160p", "4K", "BluRay", "WEB-DL", "HDRip"}

// Guess is the deterministic result of parsing a single filename. An empty
// Title signals the filename carried no usable title information; callers
// must treat that as unparseable rather than searching for it.
type Guess struct {
	Title   string
	Year    *int
	Quality *string
}

func (guess Guess) Unparseable() bool {
	return guess.Title == ""
}

// Parse extracts a title, optional release year and optional quality tag
// from the provided filename. It is a pure function: no I/O, no error
// conditions, and identical input always yields identical output.
//
// Year detection prefers a parenthesised 4-digit number anywhere in the
// name; failing that, a bare 4-digit token in [1900,2099] is used, and
// everything from that token onward is discarded as release metadata.
func Parse(filename string) Guess {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	guess := Guess{}

	if match := parenYearMatcher.FindStringSubmatchIndex(name); match != nil {
		year := convertToInt(name[match[2]:match[3]])
		guess.Year = &year
		name = name[:match[0]] + name[match[1]:]
	} else if match := bareYearMatcher.FindStringSubmatchIndex(name); match != nil {
		year := convertToInt(name[match[2]:match[3]])
		guess.Year = &year
		name = name[:match[0]]
	}

	for _, tag := range qualityTags {
		if strings.Contains(strings.ToLower(name), strings.ToLower(tag)) {
			quality := tag
			guess.Quality = &quality

			tagMatcher := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(tag))
			name = tagMatcher.ReplaceAllString(name, "")
			break
		}
	}

	name = separatorMatcher.ReplaceAllString(name, " ")
	name = spaceMatcher.ReplaceAllString(name, " ")
	guess.Title = strings.TrimSpace(name)

	return guess
}

// convertToInt is a helper method that accepts a string input and will
// attempt to convert that string to an integer - if it fails, -1 is returned.
func convertToInt(input string) int {
	v, err := strconv.Atoi(input)
	if err != nil {
		return -1
	}

	return v
}
