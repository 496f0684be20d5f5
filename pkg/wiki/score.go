package wiki

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/sirupsen/logrus"

	"github.com/jlevy/kash-media/pkg/logger"
)

const (
	// minNotabilityScore drops obscure pages that happen to match the
	// search terms.
	minNotabilityScore = 4.0
	// unambiguousThreshold is the total score the top result must clear
	// to count as a confident match.
	unambiguousThreshold = 6.0
	// unambiguousMargin is how far ahead of the runner-up the top result
	// must be.
	unambiguousMargin = 2.0
)

// Page is the subset of MediaWiki page data needed for scoring and
// display.
type Page struct {
	Title     string
	PageID    int64
	Namespace int
	Length    int64
	Langlinks int
	Backlinks int
	URL       string
	// Disambig is set from the page's pageprops marker.
	Disambig bool
}

// IsDisambiguation reports whether the page disambiguates several
// topics rather than covering one.
func (p *Page) IsDisambiguation() bool {
	return p.Disambig || strings.Contains(strings.ToLower(p.Title), "disambiguation")
}

// IsList reports whether the page is a "list of" index page.
func (p *Page) IsList() bool {
	return strings.Contains(strings.ToLower(p.Title), "list of")
}

// NotabilityScore estimates how canonical a page is from its backlink,
// language-link, and length counts, log-scaled so huge pages do not
// dominate. Pages outside the main namespace score 0.
func (p *Page) NotabilityScore() float64 {
	if p == nil || p.Namespace != 0 {
		return 0
	}
	return math.Log1p(float64(p.Backlinks))*0.5 +
		math.Log1p(float64(p.Langlinks))*0.4 +
		math.Log1p(float64(p.Length))*0.1
}

var titleMatchParams = levenshtein.NewParams()

// TitleScore rates how well a page title matches the concept, 0 to 100.
// It averages full-string and best-substring similarity so a short
// concept still scores well against a title with a qualifier, like
// "Mercury (planet)".
func TitleScore(concept, title string) float64 {
	a := strings.ToLower(strings.TrimSpace(concept))
	b := strings.ToLower(strings.TrimSpace(title))
	return 50*levenshtein.Similarity(a, b, titleMatchParams) + 50*partialSimilarity(a, b)
}

// partialSimilarity is the best similarity between the shorter string
// and any equally long substring of the longer one.
func partialSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		if len(rb) == 0 {
			return 1
		}
		return 0
	}

	short := string(ra)
	best := 0.0
	for i := 0; i+len(ra) <= len(rb); i++ {
		s := levenshtein.Similarity(short, string(rb[i:i+len(ra)]), titleMatchParams)
		if s > best {
			best = s
		}
	}
	return best
}

// PageResult pairs a candidate page with its match scores.
type PageResult struct {
	Page       *Page
	TitleScore float64
}

// TotalScore combines title match and notability.
func (r PageResult) TotalScore() float64 {
	return r.TitleScore * r.Page.NotabilityScore() / 100
}

func (r PageResult) String() string {
	return fmt.Sprintf("%s: score %.2f (title %.1f, notability %.2f)",
		r.Page.Title, r.TotalScore(), r.TitleScore, r.Page.NotabilityScore())
}

// SearchResults holds the scored candidates for one concept lookup.
type SearchResults struct {
	// Unambiguous reports that the top result confidently matches the
	// concept on its own.
	Unambiguous bool
	// DisambiguationPage is the first disambiguation page the search
	// surfaced, nil when there was none.
	DisambiguationPage *Page
	// Pages are the scored candidates in search ranking order.
	Pages []PageResult
}

// AssembleResults filters and scores raw search pages. Disambiguation
// pages are captured separately, list pages and obscure pages are
// dropped.
func AssembleResults(ctx context.Context, concept string, pages []*Page) *SearchResults {
	results := &SearchResults{}
	for _, page := range pages {
		if page.IsDisambiguation() {
			if results.DisambiguationPage == nil {
				results.DisambiguationPage = page
			}
			continue
		}
		if page.IsList() {
			continue
		}
		if page.NotabilityScore() < minNotabilityScore {
			continue
		}
		results.Pages = append(results.Pages, PageResult{
			Page:       page,
			TitleScore: TitleScore(concept, page.Title),
		})
	}
	results.Unambiguous = unambiguousMatch(ctx, results)
	return results
}

// unambiguousMatch decides whether the top result alone answers the
// concept: no disambiguation page turned up, the search ranking and the
// title scores agree on the winner, and it clears the threshold with a
// margin over the runner-up.
func unambiguousMatch(ctx context.Context, results *SearchResults) bool {
	if results.DisambiguationPage != nil || len(results.Pages) == 0 {
		return false
	}
	if len(results.Pages) == 1 {
		return true
	}

	ranked := make([]PageResult, len(results.Pages))
	copy(ranked, results.Pages)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TitleScore > ranked[j].TitleScore
	})
	if ranked[0].Page != results.Pages[0].Page {
		return false
	}

	top, second := ranked[0].TotalScore(), ranked[1].TotalScore()
	logger.G(ctx).WithFields(logrus.Fields{
		"top":    ranked[0].String(),
		"second": ranked[1].String(),
	}).Debug("comparing top search results")
	return top > unambiguousThreshold && top-second > unambiguousMargin
}
