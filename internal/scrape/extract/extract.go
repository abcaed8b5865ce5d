package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/scrape/util"
)

const (
	maxTitleChars = 200
	maxOrgChars   = 120
	// Link text this long can stand in for a missing heading.
	minLinkTitle = 15
)

const orgSelectors = `[class*=company], [class*=organization], [class*=organisation], [class*=employer], [class*=org-name], [itemprop=hiringOrganization]`

// Extractor turns one candidate node into a JobRecord. It holds no state
// between calls, so extracting the same node twice gives the same record.
type Extractor struct {
	Base         *url.URL
	SnippetChars int
}

func New(baseURL string, snippetChars int) (*Extractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("extract: bad base url %q", baseURL)
	}
	return &Extractor{Base: u, SnippetChars: snippetChars}, nil
}

// Extract fills every field it can find. A node without a title is skipped
// with a KindExtractionSkip error. Category is left for the classifier.
func (e *Extractor) Extract(node *goquery.Selection, now time.Time) (domain.JobRecord, error) {
	if node == nil || node.Length() == 0 {
		return domain.JobRecord{}, domain.SkipErr(domain.ErrNoTitle)
	}

	title, link := findTitle(node)
	if title == "" {
		return domain.JobRecord{}, domain.SkipErr(domain.ErrNoTitle)
	}
	text := VisibleText(node)

	rec := domain.JobRecord{
		Title:     title,
		URL:       e.resolveLink(node, link),
		Snippet:   util.Truncate(text, e.SnippetChars),
		ScrapedAt: now.UTC(),
	}
	rec.Organization = organization(node, title, text)
	rec.Vacancies = Vacancies(text, now)
	rec.Salary, _, _ = SalaryRules.Apply(text)
	rec.Age, _, _ = AgeRules.Apply(text)
	rec.Experience, _, _ = ExperienceRules.Apply(text)
	rec.Qualification, rec.QualificationLevel = Qualification(text)
	rec.Posted = posted(node, text, now)
	return rec, nil
}

func findTitle(node *goquery.Selection) (string, *goquery.Selection) {
	var title string
	var link *goquery.Selection

	node.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		a := h.Find("a[href]").First()
		if a.Length() == 0 {
			return true
		}
		if t := util.CleanText(h.Text()); t != "" {
			title, link = t, a
			return false
		}
		return true
	})
	if title != "" {
		return util.Truncate(title, maxTitleChars), link
	}

	node.Find(`h1, h2, h3, h4, h5, h6, [class*=title], [class*=heading], strong, b`).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if t := util.CleanText(h.Text()); t != "" {
			title = t
			if a := h.Find("a[href]").First(); a.Length() > 0 {
				link = a
			} else if a := h.Closest("a[href]"); a.Length() > 0 {
				link = a
			}
			return false
		}
		return true
	})
	if title != "" {
		return util.Truncate(title, maxTitleChars), link
	}

	// Anchor-discovered nodes often carry the posting title only as link text.
	node.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if t := util.CleanText(a.Text()); len(t) >= minLinkTitle {
			title, link = t, a
			return false
		}
		return true
	})
	return util.Truncate(title, maxTitleChars), link
}

func (e *Extractor) resolveLink(node, link *goquery.Selection) string {
	if link != nil {
		if href, ok := link.Attr("href"); ok {
			if abs, ok := util.ResolveURL(e.Base, href); ok {
				return abs
			}
		}
	}
	var out string
	node.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if abs, ok := util.ResolveURL(e.Base, href); ok {
			out = abs
			return false
		}
		return true
	})
	return out
}

func organization(node *goquery.Selection, title, text string) string {
	if t := util.CleanText(node.Find(orgSelectors).First().Text()); t != "" {
		return util.Truncate(t, maxOrgChars)
	}
	if v, _, ok := OrganizationRules.Apply(text); ok {
		return util.Truncate(v, maxOrgChars)
	}
	if v, _, ok := TitleAcronymRule.Apply(title); ok {
		return v
	}
	return domain.NotSpecified
}

func posted(node *goquery.Selection, text string, now time.Time) string {
	if dt, ok := node.Find("time[datetime]").First().Attr("datetime"); ok {
		dt = strings.TrimSpace(dt)
		if len(dt) >= 10 {
			if iso, ok := ParseDate(dt[:10]); ok {
				return iso
			}
		}
		if iso, ok := ParseDate(dt); ok {
			return iso
		}
	}
	return PostedDate(text, now)
}

// VisibleText flattens a node's text with a space between text nodes, so
// adjacent block elements do not run together. Script and style are skipped.
func VisibleText(s *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			parts = append(parts, n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return util.CleanText(strings.Join(parts, " "))
}
