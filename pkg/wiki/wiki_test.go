package wiki

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned responses keyed by a URL substring. The longest
// matching key wins, so "titles=John+Smith" and
// "titles=John+Smith+%28explorer%29" can coexist.
type fakeAPI struct {
	responses map[string]string
	calls     []string
	failures  int
}

func (f *fakeAPI) CacheAPIResponse(ctx context.Context, url string, ttl time.Duration) ([]byte, bool, error) {
	f.calls = append(f.calls, url)
	if f.failures > 0 {
		f.failures--
		return nil, false, errors.New("wikipedia unreachable")
	}
	best := ""
	for substr := range f.responses {
		if strings.Contains(url, substr) && len(substr) > len(best) {
			best = substr
		}
	}
	if best == "" {
		return nil, false, errors.Errorf("unexpected url %s", url)
	}
	return []byte(f.responses[best]), false, nil
}

func searchJSON(titles ...string) string {
	hits := make([]string, 0, len(titles))
	for _, t := range titles {
		hits = append(hits, fmt.Sprintf(`{"title":%q}`, t))
	}
	return `{"query":{"search":[` + strings.Join(hits, ",") + `]}}`
}

type pageSpec struct {
	title     string
	namespace int
	length    int64
	langlinks int
	missing   bool
	disambig  bool
}

func pageJSON(spec pageSpec) string {
	if spec.missing {
		return fmt.Sprintf(`{"query":{"pages":[{"title":%q,"missing":true}]}}`, spec.title)
	}
	var links []string
	for i := 0; i < spec.langlinks; i++ {
		links = append(links, fmt.Sprintf(`{"lang":"l%d"}`, i))
	}
	props := "{}"
	if spec.disambig {
		props = `{"disambiguation":""}`
	}
	return fmt.Sprintf(
		`{"query":{"pages":[{"pageid":1,"ns":%d,"title":%q,"length":%d,"fullurl":"https://en.wikipedia.org/wiki/x","pageprops":%s,"langlinks":[%s]}]}}`,
		spec.namespace, spec.title, spec.length, props, strings.Join(links, ","))
}

func backlinksJSON(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"query":{"backlinks":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"title":"Page %d"}`, i)
	}
	sb.WriteString(`]}}`)
	return sb.String()
}

func fastClient(api APICache, opts ...Option) *Client {
	c := New(api, opts...)
	c.retryDelay = time.Millisecond
	c.retryJitter = time.Millisecond
	return c
}

func TestTitleScore(t *testing.T) {
	assert.InDelta(t, 100.0, TitleScore("Johannes Gutenberg", "Johannes Gutenberg"), 0.001)
	assert.InDelta(t, 100.0, TitleScore("gutenberg", "Gutenberg"), 0.001)

	// The qualifier drags down the full-string score but the substring
	// match keeps the total above 50.
	qualified := TitleScore("Mercury", "Mercury (planet)")
	assert.Greater(t, qualified, 50.0)
	assert.Less(t, qualified, 100.0)

	unrelated := TitleScore("Mercury", "Johannes Gutenberg")
	assert.Less(t, unrelated, qualified)
}

func TestPartialSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, partialSimilarity("mercury", "mercury (planet)"), 0.001)
	assert.InDelta(t, 1.0, partialSimilarity("mercury (planet)", "mercury"), 0.001)
	assert.InDelta(t, 1.0, partialSimilarity("", ""), 0.001)
	assert.InDelta(t, 0.0, partialSimilarity("", "mercury"), 0.001)
}

func TestNotabilityScore(t *testing.T) {
	var missing *Page
	assert.Zero(t, missing.NotabilityScore())

	talk := &Page{Title: "Talk:Mercury", Namespace: 1, Backlinks: 500}
	assert.Zero(t, talk.NotabilityScore())

	assert.Zero(t, (&Page{Title: "Empty"}).NotabilityScore())

	// log1p(99)*0.5 with the other terms zero.
	linked := &Page{Title: "Linked", Backlinks: 99}
	assert.InDelta(t, 2.3026, linked.NotabilityScore(), 0.001)

	big := &Page{Title: "Big", Backlinks: 500, Langlinks: 300, Length: 200000}
	assert.Greater(t, big.NotabilityScore(), minNotabilityScore)
}

func TestPageKindChecks(t *testing.T) {
	assert.True(t, (&Page{Title: "Mercury (disambiguation)"}).IsDisambiguation())
	assert.True(t, (&Page{Title: "John Smith", Disambig: true}).IsDisambiguation())
	assert.False(t, (&Page{Title: "Mercury (planet)"}).IsDisambiguation())

	assert.True(t, (&Page{Title: "List of sovereign states"}).IsList())
	assert.False(t, (&Page{Title: "Sovereign state"}).IsList())
}

func notablePage(title string) *Page {
	return &Page{Title: title, Backlinks: 500, Langlinks: 300, Length: 200000}
}

func TestAssembleResults(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		results := AssembleResults(ctx, "anything", nil)
		assert.False(t, results.Unambiguous)
		assert.Empty(t, results.Pages)
		assert.Nil(t, results.DisambiguationPage)
	})

	t.Run("single notable page", func(t *testing.T) {
		results := AssembleResults(ctx, "gutenberg", []*Page{notablePage("Johannes Gutenberg")})
		assert.True(t, results.Unambiguous)
		require.Len(t, results.Pages, 1)
		assert.Equal(t, "Johannes Gutenberg", results.Pages[0].Page.Title)
	})

	t.Run("disambiguation blocks confidence", func(t *testing.T) {
		disambig := &Page{Title: "Mercury (disambiguation)"}
		results := AssembleResults(ctx, "mercury", []*Page{disambig, notablePage("Mercury (planet)")})
		assert.False(t, results.Unambiguous)
		assert.Same(t, disambig, results.DisambiguationPage)
		require.Len(t, results.Pages, 1)
	})

	t.Run("list and obscure pages dropped", func(t *testing.T) {
		results := AssembleResults(ctx, "germanic languages", []*Page{
			notablePage("Germanic languages"),
			notablePage("List of Germanic languages"),
			{Title: "Obscure stub", Backlinks: 2},
		})
		require.Len(t, results.Pages, 1)
		assert.Equal(t, "Germanic languages", results.Pages[0].Page.Title)
	})

	t.Run("clear winner", func(t *testing.T) {
		results := AssembleResults(ctx, "johannes gutenberg", []*Page{
			notablePage("Johannes Gutenberg"),
			notablePage("Gutenberg Bible"),
		})
		assert.True(t, results.Unambiguous)
		assert.Len(t, results.Pages, 2)
	})

	t.Run("ranking disagreement", func(t *testing.T) {
		// The best title match is not the search engine's top hit.
		results := AssembleResults(ctx, "johannes gutenberg", []*Page{
			notablePage("Gutenberg Bible"),
			notablePage("Johannes Gutenberg"),
		})
		assert.False(t, results.Unambiguous)
		assert.Len(t, results.Pages, 2)
	})
}

func TestSearch(t *testing.T) {
	api := &fakeAPI{responses: map[string]string{
		"list=search":                searchJSON("Johannes Gutenberg", "Gutenberg Bible"),
		"titles=Johannes+Gutenberg":  pageJSON(pageSpec{title: "Johannes Gutenberg", langlinks: 300, length: 200000}),
		"titles=Gutenberg+Bible":     pageJSON(pageSpec{title: "Gutenberg Bible", langlinks: 50, length: 40000}),
		"bltitle=Johannes+Gutenberg": backlinksJSON(500),
		"bltitle=Gutenberg+Bible":    backlinksJSON(200),
	}}
	client := fastClient(api)

	results, err := client.Search(context.Background(), "Johannes Gutenberg")
	require.NoError(t, err)
	assert.True(t, results.Unambiguous)
	assert.Nil(t, results.DisambiguationPage)
	require.Len(t, results.Pages, 2)
	assert.Equal(t, "Johannes Gutenberg", results.Pages[0].Page.Title)
	assert.Equal(t, 500, results.Pages[0].Page.Backlinks)
	assert.Equal(t, 300, results.Pages[0].Page.Langlinks)
	assert.InDelta(t, 100.0, results.Pages[0].TitleScore, 0.001)

	// One search call, then a detail and a backlinks call per title.
	require.Len(t, api.calls, 5)
	assert.Contains(t, api.calls[0], "en.wikipedia.org/w/api.php")
	assert.Contains(t, api.calls[0], "srsearch=Johannes+Gutenberg")
	assert.Contains(t, api.calls[0], "srlimit=5")
}

func TestSearchSkipsMissingPages(t *testing.T) {
	api := &fakeAPI{responses: map[string]string{
		"list=search":                searchJSON("Atlantis Kingdom", "Johannes Gutenberg"),
		"titles=Atlantis+Kingdom":    pageJSON(pageSpec{title: "Atlantis Kingdom", missing: true}),
		"titles=Johannes+Gutenberg":  pageJSON(pageSpec{title: "Johannes Gutenberg", langlinks: 300, length: 200000}),
		"bltitle=Johannes+Gutenberg": backlinksJSON(500),
	}}
	client := fastClient(api)

	results, err := client.Search(context.Background(), "gutenberg")
	require.NoError(t, err)
	require.Len(t, results.Pages, 1)
	assert.Equal(t, "Johannes Gutenberg", results.Pages[0].Page.Title)
	assert.True(t, results.Unambiguous)
}

func TestSearchDisambiguationFromPageProps(t *testing.T) {
	// The base page is marked as a disambiguation page only through its
	// pageprops, not its title.
	api := &fakeAPI{responses: map[string]string{
		"list=search":                       searchJSON("John Smith", "John Smith (explorer)"),
		"titles=John+Smith":                 pageJSON(pageSpec{title: "John Smith", langlinks: 10, length: 30000, disambig: true}),
		"bltitle=John+Smith":                backlinksJSON(400),
		"titles=John+Smith+%28explorer%29":  pageJSON(pageSpec{title: "John Smith (explorer)", langlinks: 60, length: 80000}),
		"bltitle=John+Smith+%28explorer%29": backlinksJSON(300),
	}}
	client := fastClient(api)

	results, err := client.Search(context.Background(), "John Smith")
	require.NoError(t, err)
	assert.False(t, results.Unambiguous)
	require.NotNil(t, results.DisambiguationPage)
	assert.Equal(t, "John Smith", results.DisambiguationPage.Title)
	require.Len(t, results.Pages, 1)
	assert.Equal(t, "John Smith (explorer)", results.Pages[0].Page.Title)
}

func TestSearchNoResults(t *testing.T) {
	api := &fakeAPI{responses: map[string]string{
		"list=search": searchJSON(),
	}}
	client := fastClient(api)

	results, err := client.Search(context.Background(), "zxqv nonesuch")
	require.NoError(t, err)
	assert.False(t, results.Unambiguous)
	assert.Empty(t, results.Pages)
	require.Len(t, api.calls, 1)
}

func TestSearchEmptyConcept(t *testing.T) {
	client := fastClient(&fakeAPI{})
	_, err := client.Search(context.Background(), "   ")
	require.Error(t, err)
}

func TestSearchRetries(t *testing.T) {
	api := &fakeAPI{
		failures: 2,
		responses: map[string]string{
			"list=search":                searchJSON("Johannes Gutenberg"),
			"titles=Johannes+Gutenberg":  pageJSON(pageSpec{title: "Johannes Gutenberg", langlinks: 300, length: 200000}),
			"bltitle=Johannes+Gutenberg": backlinksJSON(500),
		},
	}
	client := fastClient(api)

	results, err := client.Search(context.Background(), "gutenberg")
	require.NoError(t, err)
	require.Len(t, results.Pages, 1)
	// Two failed attempts, a successful retry, then the page fetches.
	require.Len(t, api.calls, 5)
}

func TestSearchGivesUpAfterRetries(t *testing.T) {
	api := &fakeAPI{failures: 100}
	client := fastClient(api)

	_, err := client.Search(context.Background(), "gutenberg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wikipedia unreachable")
	require.Len(t, api.calls, 5)
}

func TestClientOptions(t *testing.T) {
	api := &fakeAPI{responses: map[string]string{
		"list=search": searchJSON(),
	}}
	client := fastClient(api, WithLanguage("de"), WithMaxResults(3), WithTTL(time.Hour))

	_, err := client.Search(context.Background(), "etwas")
	require.NoError(t, err)
	require.Len(t, api.calls, 1)
	assert.Contains(t, api.calls[0], "de.wikipedia.org")
	assert.Contains(t, api.calls[0], "srlimit=3")
}

func TestPageResultString(t *testing.T) {
	r := PageResult{Page: notablePage("Johannes Gutenberg"), TitleScore: 100}
	s := r.String()
	assert.Contains(t, s, "Johannes Gutenberg")
	assert.Contains(t, s, "title 100.0")
}
