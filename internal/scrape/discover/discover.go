// Package discover locates the elements of a listing page that look like
// individual job postings.
package discover

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/scrape/util"
)

type Tier string

const (
	TierSelector Tier = "selector"
	TierAnchor   Tier = "anchor"
	TierGeneric  Tier = "generic"
	TierNone     Tier = "none"
)

// Cascade is the data that drives discovery. It comes from config so that
// markup drift is fixed by editing rules.
type Cascade struct {
	Selectors      []string
	AnchorKeywords []string
	MinAnchorText  int
	ContainerTags  []string
	MaxAscent      int
	GenericMinText int
	MinMatches     int
	MaxCandidates  int
}

func CascadeFromConfig(cfg config.Config) Cascade {
	return Cascade{
		Selectors:      cfg.Discover.Selectors,
		AnchorKeywords: cfg.Discover.AnchorKeywords,
		MinAnchorText:  cfg.Discover.MinAnchorText,
		ContainerTags:  cfg.Discover.ContainerTags,
		MaxAscent:      cfg.Discover.MaxAscent,
		GenericMinText: cfg.Discover.GenericMinText,
		MinMatches:     cfg.Discover.MinMatches,
		MaxCandidates:  cfg.Limits.MaxCandidates,
	}
}

type Result struct {
	Tier     Tier
	Selector string // tier-one selector that matched
	Nodes    []*goquery.Selection
}

// FindCandidates tries known selectors, then keyword-anchored ascent, then a
// generic container scan. The first of the first two tiers yielding at least
// MinMatches nodes wins; the generic tier is used only when both fail.
func FindCandidates(doc *goquery.Document, c Cascade) Result {
	if doc == nil {
		return Result{Tier: TierNone}
	}
	need := c.MinMatches
	if need < 1 {
		need = 2
	}

	for _, sel := range c.Selectors {
		nodes := perPosting(doc.Find(sel))
		if len(nodes) >= need {
			return Result{Tier: TierSelector, Selector: sel, Nodes: capNodes(nodes, c.MaxCandidates)}
		}
	}

	if nodes := anchorAscent(doc, c); len(nodes) >= need {
		return Result{Tier: TierAnchor, Nodes: capNodes(nodes, c.MaxCandidates)}
	}

	if nodes := generic(doc, c); len(nodes) > 0 {
		return Result{Tier: TierGeneric, Nodes: capNodes(nodes, c.MaxCandidates)}
	}
	return Result{Tier: TierNone}
}

func anchorAscent(doc *goquery.Document, c Cascade) []*goquery.Selection {
	containers := tagSet(c.ContainerTags)
	seenNode := map[*html.Node]bool{}
	seenKey := map[string]bool{}
	var out []*goquery.Selection

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := util.CleanText(a.Text())
		if len(text) < c.MinAnchorText {
			return
		}
		href, _ := a.Attr("href")
		if !containsAny(strings.ToLower(text+" "+href), c.AnchorKeywords) {
			return
		}

		p := a.Parent()
		for i := 0; i < c.MaxAscent && p.Length() > 0; i++ {
			tag := goquery.NodeName(p)
			if tag == "body" || tag == "html" {
				return
			}
			if containers[tag] {
				n := p.Get(0)
				if seenNode[n] {
					return
				}
				seenNode[n] = true
				key := structuralKey(p)
				if seenKey[key] {
					return
				}
				seenKey[key] = true
				out = append(out, p)
				return
			}
			p = p.Parent()
		}
	})
	return out
}

func generic(doc *goquery.Document, c Cascade) []*goquery.Selection {
	if len(c.ContainerTags) == 0 {
		return nil
	}
	matched := doc.Find(strings.Join(c.ContainerTags, ",")).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if s.Find("a[href]").Length() == 0 {
			return false
		}
		return len(util.CleanText(s.Text())) > c.GenericMinText
	})
	return innermost(matched)
}

// innermost keeps matched elements in document order, dropping any element
// that contains another matched element.
func innermost(sel *goquery.Selection) []*goquery.Selection {
	if sel.Length() == 0 {
		return nil
	}
	member := make(map[*html.Node]bool, sel.Length())
	for _, n := range sel.Nodes {
		member[n] = true
	}
	hasMatchedDescendant := map[*html.Node]bool{}
	for _, n := range sel.Nodes {
		for p := n.Parent; p != nil; p = p.Parent {
			if member[p] {
				hasMatchedDescendant[p] = true
			}
		}
	}

	out := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if !hasMatchedDescendant[s.Get(0)] {
			out = append(out, s)
		}
	})
	return out
}

// minTitleLink is the shortest link text counted as a posting title when an
// element has no headings.
const minTitleLink = 15

// perPosting reduces matched elements to one node per posting, in document
// order. A match inside a matched single-posting ancestor is a part of that
// posting and is dropped. A match holding several postings is dropped when
// other matches inside it stand for those postings.
func perPosting(sel *goquery.Selection) []*goquery.Selection {
	if sel.Length() == 0 {
		return nil
	}
	member := make(map[*html.Node]bool, sel.Length())
	for _, n := range sel.Nodes {
		member[n] = true
	}
	hasMatchedDescendant := map[*html.Node]bool{}
	for _, n := range sel.Nodes {
		for p := n.Parent; p != nil; p = p.Parent {
			if member[p] {
				hasMatchedDescendant[p] = true
			}
		}
	}

	single := map[*html.Node]bool{}
	sel.Each(func(_ int, s *goquery.Selection) {
		single[s.Get(0)] = postings(s) <= 1
	})

	out := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		for p := n.Parent; p != nil; p = p.Parent {
			if member[p] && single[p] {
				return
			}
		}
		if hasMatchedDescendant[n] && !single[n] {
			return
		}
		out = append(out, s)
	})
	return out
}

// postings counts title-bearing elements: headings with text, or, when there
// are none, links with title-length text.
func postings(s *goquery.Selection) int {
	n := 0
	s.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, h *goquery.Selection) {
		if util.CleanText(h.Text()) != "" {
			n++
		}
	})
	if n > 0 {
		return n
	}
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if len(util.CleanText(a.Text())) >= minTitleLink {
			n++
		}
	})
	return n
}

func structuralKey(s *goquery.Selection) string {
	class, _ := s.Attr("class")
	return goquery.NodeName(s) + "|" + strings.TrimSpace(class) + "|" + util.Truncate(util.FoldText(s.Text()), 80)
}

func capNodes(nodes []*goquery.Selection, max int) []*goquery.Selection {
	if max > 0 && len(nodes) > max {
		return nodes[:max]
	}
	return nodes
}

func tagSet(tags []string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		m[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return m
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}
