package crawl

import (
	"regexp"
	"strconv"
	"strings"
)

// overShortFormSentinel is returned for any duration carrying an hour or day
// unit: such videos are over the short-form threshold no matter what the
// numeric parse would say.
const overShortFormSentinel = 61

// minutesSecondsPattern matches the well-formed minutes/seconds encodings of
// an ISO 8601 video duration, e.g. PT4M13S, PT59S, PT10M.
var minutesSecondsPattern = regexp.MustCompile(`^PT(?:(\d+)M)?(?:(\d+)S)?$`)

// parseDurationSeconds converts an ISO 8601 duration to total seconds for the
// short-form filter. Malformed or missing input parses to 0, which the filter
// treats as "unknown, keep" rather than failing the item.
func parseDurationSeconds(duration string) int {
	if strings.Contains(duration, "H") || strings.Contains(duration, "D") {
		return overShortFormSentinel
	}
	if !strings.HasPrefix(duration, "PT") {
		return 0
	}

	match := minutesSecondsPattern.FindStringSubmatch(duration)
	if match == nil {
		return 0
	}

	minutes := 0
	if match[1] != "" {
		minutes, _ = strconv.Atoi(match[1])
	}
	seconds := 0
	if match[2] != "" {
		seconds, _ = strconv.Atoi(match[2])
	}

	return minutes*60 + seconds
}
