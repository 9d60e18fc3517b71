package pipeline

import (
	"crypto/sha256"
	"net/url"
	"strings"
	"sync"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// DedupMiddleware drops an item whose canonical URL was already seen from
// the same source. Two sources listing one URL both keep it.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[[16]byte]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[[16]byte]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(item *types.TrendItem) (*types.TrendItem, error) {
	key := dedupKey(item.SourceID, CanonicalizeURL(item.URL))

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[key]; dup {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return item, nil
}

// Count returns how many distinct items have passed.
func (m *DedupMiddleware) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

// CanonicalizeURL rewrites a URL so trivially different spellings of one
// page compare equal. Scheme and host are lowercased, default ports and
// the fragment dropped, query parameters sorted by key and a trailing
// slash removed from non-root paths. Unparseable input is returned as is.
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if defaultPort(u.Scheme) == u.Port() {
		u.Host = u.Hostname()
	}
	u.Fragment, u.RawFragment = "", ""

	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}

	switch {
	case u.Path == "":
		u.Path = "/"
	case u.Path != "/":
		if trimmed := strings.TrimRight(u.Path, "/"); trimmed != u.Path {
			u.Path, u.RawPath = max(trimmed, "/"), ""
		}
	}
	return u.String()
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return "-"
}

func dedupKey(sourceID, canonicalURL string) [16]byte {
	sum := sha256.Sum256([]byte(sourceID + "\x00" + canonicalURL))
	var key [16]byte
	copy(key[:], sum[:])
	return key
}
