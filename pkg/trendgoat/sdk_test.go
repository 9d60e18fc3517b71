package trendgoat

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const listingPage = `<html><body><ol>
<li class="entry"><a class="title" href="/posts/1">Rust 2.0 released</a><span class="score">1.5k points</span></li>
<li class="entry"><a class="title" href="/posts/2">An AI agent for shells</a><span class="score">812 points</span></li>
<li class="entry"><span class="score">3 points</span></li>
</ol></body></html>`

func newTrendServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/weibo":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"code":200,"data":[
				{"title":"AI 大模型发布","url":"https://example.test/w1","hot":"2.3万"},
				{"title":"天气","url":"https://example.test/w2","hot":120}
			]}`)
		case "/zhihu":
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		case "/board":
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, listingPage)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func boardSource(base string) *Source {
	return &Source{
		ID:   "board",
		Name: "Board",
		Kind: KindHTML,
		URL:  base + "/board",
		Selectors: map[Role][]Selector{
			RoleContainer: {CSS("li.entry")},
			RoleTitleLink: {CSS("a.title")},
			RoleMetric:    {CSS(".score")},
		},
	}
}

func newClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(testLogger),
		WithHotListURL(srv.URL),
		WithRateLimit(0, 0),
		WithSourceTimeout(5 * time.Second),
		WithSources(boardSource(srv.URL)),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientFetch(t *testing.T) {
	srv := newTrendServer(t)
	c := newClient(t, srv)

	rs, err := c.Fetch(context.Background(), "weibo", "zhihu", "board")
	require.NoError(t, err)
	require.Len(t, rs, 3)

	weibo := rs["weibo"]
	require.True(t, weibo.OK(), "weibo: %v", weibo.Err)
	require.Len(t, weibo.Items, 2)
	assert.Equal(t, int64(23000), weibo.Items[0].MetricValue())
	assert.Equal(t, "Weibo", weibo.Items[0].Category)

	assert.Equal(t, types.KindSourceUnavailable, rs["zhihu"].Kind())

	board := rs["board"]
	require.True(t, board.OK(), "board: %v", board.Err)
	require.Len(t, board.Items, 2)
	assert.Equal(t, srv.URL+"/posts/1", board.Items[0].URL)
	assert.Equal(t, int64(1500), board.Items[0].MetricValue())
	require.Len(t, board.Failures, 1)
	assert.Equal(t, 2, board.Failures[0].ContainerIndex)
}

func TestClientTopicAndMinMetric(t *testing.T) {
	srv := newTrendServer(t)
	c := newClient(t, srv, WithTopic("ai"))

	items, err := c.Items(context.Background(), "board", "weibo")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "An AI agent for shells", items[0].Title)
	assert.Equal(t, "AI 大模型发布", items[1].Title)

	c = newClient(t, srv, WithMinMetric(1000))
	items, err = c.Items(context.Background(), "board")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Rust 2.0 released", items[0].Title)
}

func TestClientUnknownSource(t *testing.T) {
	srv := newTrendServer(t)
	c := newClient(t, srv)

	_, err := c.Fetch(context.Background(), "myspace")
	assert.ErrorIs(t, err, types.ErrUnknownSource)
}

func TestClientRejectsBadOptions(t *testing.T) {
	_, err := New(WithLogger(testLogger), WithTopic("gardening"))
	assert.Error(t, err)

	_, err = New(WithLogger(testLogger), WithConcurrency(0))
	assert.Error(t, err)
}

func TestClientParse(t *testing.T) {
	srv := newTrendServer(t)
	c := newClient(t, srv)

	outcomes, err := c.Parse(strings.NewReader(listingPage), "board")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].OK())
	assert.False(t, outcomes[2].OK())
	assert.Equal(t, types.ReasonMissingTitleLink, outcomes[2].Failure.Reason)
}

func TestClientSources(t *testing.T) {
	srv := newTrendServer(t)
	c := newClient(t, srv)

	srcs := c.Sources()
	assert.Equal(t, "github", srcs[0].ID)
	assert.Equal(t, "board", srcs[len(srcs)-1].ID)
}
