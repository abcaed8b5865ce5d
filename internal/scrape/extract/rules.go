package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobyaari-engine/internal/domain"
)

// Rule is one pattern in a field's ordered table. Value turns the submatches
// into the stored string; nil keeps the whole match.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Value   func(m []string) string
}

// Table is tried in order and the first matching rule wins.
type Table []Rule

// Apply returns the value and the name of the rule that produced it.
func (t Table) Apply(text string) (string, string, bool) {
	return t.ApplyWhere(text, nil)
}

// ApplyWhere is Apply with each candidate value checked by keep. A match
// whose value is empty or rejected lets the rule's later matches, then the
// later rules, try.
func (t Table) ApplyWhere(text string, keep func(string) bool) (string, string, bool) {
	for _, r := range t {
		for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
			v := strings.TrimSpace(m[0])
			if r.Value != nil {
				v = r.Value(m)
			}
			if v != "" && (keep == nil || keep(v)) {
				return v, r.Name, true
			}
		}
	}
	return "", "", false
}

func fixed(s string) func([]string) string { return func([]string) string { return s } }

func group(i int) func([]string) string {
	return func(m []string) string { return strings.TrimSpace(m[i]) }
}

func digits(i int) func([]string) string {
	return func(m []string) string { return strings.ReplaceAll(m[i], ",", "") }
}

func yearsRange(m []string) string { return m[1] + "-" + m[2] + " years" }

func upTo(m []string) string { return "Up to " + m[1] + " years" }

func yearsPlus(m []string) string {
	if len(m) > 2 && m[2] == "+" {
		return m[1] + "+ years"
	}
	return m[1] + " years"
}

const (
	num      = `\d(?:[\d,]*\d)?(?:\.\d+)?`
	currency = `(?:\b(?:rs\.?|inr)|₹)`
	per      = `(?:\s*(?:/-|/\s*month|per\s+month|p\.?m\.?|/\s*annum|per\s+annum|lpa))?`
	yrs      = `(?:years?|yrs?)`
)

// unlessLabelled drops a count that directly follows a word like
// "Recruitment", where the number is the recruitment year.
func unlessLabelled(m []string) string {
	if m[1] != "" {
		return ""
	}
	return strings.ReplaceAll(m[2], ",", "")
}

var VacancyRules = Table{
	{Name: "count_before_noun", Pattern: regexp.MustCompile(`(?i)(?:\b(recruitment|notification|exam|advt\.?|batch)\s+)?\b(\d(?:[\d,]*\d)?)\s*(?:vacancy|vacancies|posts?|positions?|seats?)\b`), Value: unlessLabelled},
	{Name: "labelled_count", Pattern: regexp.MustCompile(`(?i)\b(?:vacancy|vacancies|posts?|positions?)\s*[:\-]\s*(\d(?:[\d,]*\d)?)\b`), Value: digits(1)},
	{Name: "total_count", Pattern: regexp.MustCompile(`(?i)\btotal\s+(?:vacancy|vacancies|posts?)\s+(\d(?:[\d,]*\d)?)\b`), Value: digits(1)},
	{Name: "multiple", Pattern: regexp.MustCompile(`(?i)\b(?:multiple|various)\s+(?:posts?|vacancies|positions?)\b|\bmultiple\b`), Value: fixed("Multiple")},
}

var SalaryRules = Table{
	{Name: "currency_range", Pattern: regexp.MustCompile(`(?i)` + currency + `\s*` + num + `\s*(?:-|–|to)\s*(?:` + currency + `)?\s*` + num + per)},
	{Name: "currency_amount", Pattern: regexp.MustCompile(`(?i)` + currency + `\s*` + num + per)},
	{Name: "pay_level", Pattern: regexp.MustCompile(`(?i)\bpay\s+(?:level|matrix)\s*[-:]?\s*\d{1,2}\b`)},
	{Name: "bare_range_per_month", Pattern: regexp.MustCompile(`(?i)\b` + num + `\s*(?:-|to)\s*` + num + `\s*(?:per\s+month|pm|/-)`)},
}

var AgeRules = Table{
	{Name: "labelled_range", Pattern: regexp.MustCompile(`(?i)\bage[^0-9]{0,20}?(\d{2})\s*(?:-|–|to)\s*(\d{2})\b`), Value: yearsRange},
	{Name: "range_years", Pattern: regexp.MustCompile(`(?i)\b(\d{2})\s*(?:-|–|to)\s*(\d{2})\s*` + yrs + `\b`), Value: yearsRange},
	{Name: "upper_bound", Pattern: regexp.MustCompile(`(?i)\b(?:age\s*(?:limit)?|upto|up\s+to|maximum|max\.?)\s*[:\-]?\s*(\d{2})\s*` + yrs + `\b`), Value: upTo},
	{Name: "between", Pattern: regexp.MustCompile(`(?i)\bbetween\s*(\d{2})\s*(?:and|to)\s*(\d{2})\b`), Value: yearsRange},
}

// Vacancies applies VacancyRules, skipping counts that are a recruitment year
// close to now.
func Vacancies(text string, now time.Time) string {
	y := now.Year()
	v, _, _ := VacancyRules.ApplyWhere(text, func(v string) bool {
		n, err := strconv.Atoi(v)
		return err != nil || n < y-1 || n > y+1
	})
	return v
}

// ExperienceRules lists "Fresher" first so it wins over any numeric match.
var ExperienceRules = Table{
	{Name: "fresher", Pattern: regexp.MustCompile(`(?i)\bfreshers?\b`), Value: fixed("Fresher")},
	{Name: "range_years", Pattern: regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:-|to)\s*(\d{1,2})\s*` + yrs + `\s*(?:of\s+)?(?:experience|exp)\b`), Value: yearsRange},
	{Name: "years_before", Pattern: regexp.MustCompile(`(?i)\b(\d{1,2})\s*(\+)?\s*` + yrs + `\s*(?:of\s+)?(?:experience|exp)\b`), Value: yearsPlus},
	{Name: "years_after", Pattern: regexp.MustCompile(`(?i)\b(?:experience|exp)\.?\s*[:\-]?\s*(?:of\s+)?(?:minimum\s+|min\.?\s+)?(\d{1,2})\s*(\+)?\s*` + yrs), Value: yearsPlus},
}

var OrganizationRules = Table{
	{Name: "by_phrase", Pattern: regexp.MustCompile(`\b(?:[Bb]y|[Aa]t)\s+([A-Z][A-Za-z&.]*(?:\s+(?:of\s+|and\s+|&\s+)?[A-Z][A-Za-z&.]*){0,7})`), Value: group(1)},
}

// TitleAcronymRule resolves an organization from an upper-case token in the title.
var TitleAcronymRule = Table{
	{Name: "title_acronym", Pattern: regexp.MustCompile(`\b([A-Z]{2,}[A-Z0-9]*)\b`), Value: group(1)},
}

type QualificationRule struct {
	Label   string
	Level   domain.QualificationLevel
	Pattern *regexp.Regexp
}

// QualificationRules is ordered by level: doctorate terms come before
// postgraduate ones, which come before graduate ones, so a higher degree
// mentioned alongside a lower one is never reported as the lower one.
var QualificationRules = []QualificationRule{
	{"Ph.D", domain.LevelDoctorate, regexp.MustCompile(`(?i)\bph\.?\s?d\b|\bdoctorate\b|\bdoctoral\b`)},
	{"M.Tech", domain.LevelPostgraduate, regexp.MustCompile(`(?i)\bm\.?\s?tech\b`)},
	{"M.E.", domain.LevelPostgraduate, regexp.MustCompile(`\bM\.E\b`)},
	{"M.Sc", domain.LevelPostgraduate, regexp.MustCompile(`(?i)\bm\.?\s?sc\b`)},
	{"M.Com", domain.LevelPostgraduate, regexp.MustCompile(`(?i)\bm\.?\s?com\b`)},
	{"MBA", domain.LevelPostgraduate, regexp.MustCompile(`(?i)\bmba\b|\bpgdm\b`)},
	{"MCA", domain.LevelPostgraduate, regexp.MustCompile(`(?i)\bmca\b`)},
	{"M.Ed", domain.LevelPostgraduate, regexp.MustCompile(`(?i)\bm\.\s?ed\b`)},
	{"Postgraduate", domain.LevelPostgraduate, regexp.MustCompile(`(?i)\bpost[\s-]?graduat(?:e|ion)\b|\bpg\s+degree\b|\bmaster'?s?\s+degree\b`)},
	{"B.Tech", domain.LevelGraduate, regexp.MustCompile(`(?i)\bb\.?\s?tech\b`)},
	{"B.E.", domain.LevelGraduate, regexp.MustCompile(`\bB\.E\b`)},
	{"B.Sc", domain.LevelGraduate, regexp.MustCompile(`(?i)\bb\.?\s?sc\b`)},
	{"B.Com", domain.LevelGraduate, regexp.MustCompile(`(?i)\bb\.?\s?com\b`)},
	{"BCA", domain.LevelGraduate, regexp.MustCompile(`(?i)\bbca\b`)},
	{"B.Ed", domain.LevelGraduate, regexp.MustCompile(`(?i)\bb\.\s?ed\b`)},
	{"Graduate", domain.LevelGraduate, regexp.MustCompile(`(?i)\bgraduat(?:e|ion)\b|\bbachelor'?s?\b|\bdegree\b`)},
	{"Diploma", domain.LevelDiploma, regexp.MustCompile(`(?i)\bdiploma\b|\bpolytechnic\b`)},
	{"ITI", domain.LevelDiploma, regexp.MustCompile(`\bITI\b`)},
	{"12th Pass", domain.LevelOther, regexp.MustCompile(`(?i)\b(?:12th|intermediate)\b`)},
	{"10th Pass", domain.LevelOther, regexp.MustCompile(`(?i)\b(?:10th|matric(?:ulation)?)\b`)},
}

// Qualification returns the first matching label and its level.
func Qualification(text string) (string, domain.QualificationLevel) {
	for _, q := range QualificationRules {
		if q.Pattern.MatchString(text) {
			return q.Label, q.Level
		}
	}
	return "", domain.LevelNone
}
