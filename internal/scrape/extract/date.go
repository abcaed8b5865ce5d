package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const isoDate = "2006-01-02"

const month = `\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`

var dateShape = `(?:\d{4}-\d{1,2}-\d{1,2}` +
	`|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}` +
	`|\d{1,2}(?:st|nd|rd|th)?\s+` + month + `,?\s+\d{4}` +
	`|` + month + `\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})`

var (
	relativeRe = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(minute|min|hour|hr|day|week|month|year)s?\s+ago\b`)
	todayRe    = regexp.MustCompile(`(?i)\b(today|yesterday)\b`)
	labelledRe = regexp.MustCompile(`(?i)\b(?:posted|published|updated|added)\s*(?:on)?\s*[:\-]?\s*(` + dateShape + `)`)
	anyDateRe  = regexp.MustCompile(`(?i)` + dateShape)
	deadlineRe = regexp.MustCompile(`(?i)\b(?:(?:last|closing|end|due)\s+date(?:\s+(?:to|for)\s+(?:apply|submission|registration))?|apply\s+(?:by|before)|closes?|closing|deadline|till|until)\s*(?:on)?\s*[:\-–]?\s*$`)
	ordinalRe  = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
	isoRe      = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
)

// Day-first layouts are tried before month-first ones for slash dates.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2/1/06",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
}

// ParseDate normalizes a date-shaped string to YYYY-MM-DD.
func ParseDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.Join(strings.Fields(s), " ")
	if strings.ContainsFunc(s, unicode.IsLetter) {
		s = titleCase(strings.ReplaceAll(s, ".", ""))
		s = strings.Replace(s, "Sept ", "Sep ", 1)
	} else if !isoRe.MatchString(s) {
		s = strings.NewReplacer(".", "/", "-", "/").Replace(s)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// PostedDate looks for a labelled date, then a relative expression, then any
// date-shaped text that is not labelled as a deadline. A date that cannot be
// parsed is kept as written.
func PostedDate(text string, now time.Time) string {
	if m := labelledRe.FindStringSubmatch(text); m != nil {
		return normalizedOrRaw(m[1])
	}
	if m := relativeRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return relative(now, n, strings.ToLower(m[2])).Format(isoDate)
	}
	if m := todayRe.FindStringSubmatch(text); m != nil {
		if strings.EqualFold(m[1], "yesterday") {
			return now.AddDate(0, 0, -1).Format(isoDate)
		}
		return now.Format(isoDate)
	}
	for _, loc := range anyDateRe.FindAllStringIndex(text, -1) {
		if isDeadline(text[:loc[0]]) {
			continue
		}
		return normalizedOrRaw(text[loc[0]:loc[1]])
	}
	return ""
}

// isDeadline reports whether the text before a date ends with a label such
// as "Last Date:" or "Apply by".
func isDeadline(before string) bool {
	if len(before) > 48 {
		before = before[len(before)-48:]
	}
	return deadlineRe.MatchString(before)
}

func normalizedOrRaw(raw string) string {
	if iso, ok := ParseDate(raw); ok {
		return iso
	}
	return strings.TrimSpace(raw)
}

func relative(now time.Time, n int, unit string) time.Time {
	switch unit {
	case "minute", "min":
		return now.Add(-time.Duration(n) * time.Minute)
	case "hour", "hr":
		return now.Add(-time.Duration(n) * time.Hour)
	case "day":
		return now.AddDate(0, 0, -n)
	case "week":
		return now.AddDate(0, 0, -7*n)
	case "month":
		return now.AddDate(0, -n, 0)
	default:
		return now.AddDate(-n, 0, 0)
	}
}
