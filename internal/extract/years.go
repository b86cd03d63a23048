package extract

import (
	"regexp"
	"sort"
	"strconv"
)

var (
	yearToken      = regexp.MustCompile(`(19|20)\d{2}`)
	rangeSeparator = regexp.MustCompile(`[-–]|(?i:\bto\b)`)

	textYearRange  = regexp.MustCompile(`((?:19|20)\d{2})\s*[-–]\s*((?:19|20)\d{2})`)
	textYearSingle = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// ExpandYears turns a year cell such as "2006-2009", "2010 to 2012" or
// "2004, 2006" into individual years. Reversed ranges come back as the raw
// tokens.
func ExpandYears(text string) []string {
	tokens := yearToken.FindAllString(text, -1)
	switch {
	case len(tokens) == 0:
		return []string{}
	case len(tokens) == 1:
		return tokens
	case !rangeSeparator.MatchString(text):
		return tokens
	}

	start, _ := strconv.Atoi(tokens[0])
	end, _ := strconv.Atoi(tokens[len(tokens)-1])
	if start > end {
		return tokens
	}
	return yearSpan(start, end)
}

// ExtractYears collects every year mentioned in free text: each YYYY-YYYY
// range is expanded and standalone years are added. The result is
// deduplicated and ascending.
func ExtractYears(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range textYearRange.FindAllStringSubmatch(text, -1) {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		for _, y := range yearSpan(start, end) {
			seen[y] = struct{}{}
		}
	}
	for _, y := range textYearSingle.FindAllString(text, -1) {
		seen[y] = struct{}{}
	}

	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

func yearSpan(start, end int) []string {
	if start > end {
		return nil
	}
	out := make([]string, 0, end-start+1)
	for y := start; y <= end; y++ {
		out = append(out, strconv.Itoa(y))
	}
	return out
}
