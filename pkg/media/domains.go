package media

import (
	"bufio"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// ErrDomainBlocked indicates a URL's host is not on the download
// allowlist.
var ErrDomainBlocked = errors.New("domain not on the allowlist")

// domainReloadInterval is how often the allowlist file is re-read, so
// edits reach long-running processes.
const domainReloadInterval = 30 * time.Second

// DomainFilter restricts which hosts media may be downloaded from. It
// is backed by a file listing one host per line; lines may be bare
// hosts, full URLs, or glob patterns like "*.example.org", with # for
// comments. An entry matches the host and its subdomains. A missing or
// empty file allows every host.
type DomainFilter struct {
	path string

	mu       sync.RWMutex
	exact    map[string]bool
	patterns []glob.Glob
	loadedAt time.Time
}

// NewDomainFilter loads the allowlist at path.
func NewDomainFilter(path string) *DomainFilter {
	df := &DomainFilter{path: path}
	df.reload()
	return df
}

func (df *DomainFilter) reload() {
	df.mu.Lock()
	defer df.mu.Unlock()

	df.exact = map[string]bool{}
	df.patterns = nil
	df.loadedAt = time.Now()

	f, err := os.Open(df.path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		host := normalizeHost(scanner.Text())
		if host == "" {
			continue
		}
		if strings.ContainsAny(host, "*?") {
			if pattern, err := glob.Compile(host); err == nil {
				df.patterns = append(df.patterns, pattern)
			}
			continue
		}
		df.exact[host] = true
	}
}

// normalizeHost reduces an allowlist line to a bare lowercase hostname.
// Comments and blank lines yield "".
func normalizeHost(line string) string {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	if strings.Contains(line, "://") {
		if parsed, err := url.Parse(line); err == nil && parsed.Hostname() != "" {
			return parsed.Hostname()
		}
	}
	if i := strings.Index(line, "/"); i >= 0 {
		line = line[:i]
	}
	return line
}

func (df *DomainFilter) stale() bool {
	df.mu.RLock()
	defer df.mu.RUnlock()
	return time.Since(df.loadedAt) > domainReloadInterval
}

// Allows reports whether the URL's host passes the allowlist.
func (df *DomainFilter) Allows(rawURL string) (bool, error) {
	if df.stale() {
		df.reload()
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, errors.Wrapf(err, "failed to parse URL %s", rawURL)
	}
	host := strings.ToLower(parsed.Hostname())

	df.mu.RLock()
	defer df.mu.RUnlock()

	if len(df.exact) == 0 && len(df.patterns) == 0 {
		return true, nil
	}

	// Walk up the host's labels so "youtube.com" covers
	// "www.youtube.com".
	for candidate := host; candidate != ""; {
		if df.exact[candidate] {
			return true, nil
		}
		i := strings.Index(candidate, ".")
		if i < 0 {
			break
		}
		candidate = candidate[i+1:]
	}
	for _, pattern := range df.patterns {
		if pattern.Match(host) {
			return true, nil
		}
	}
	return false, nil
}
