package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

func TestSpecBase(t *testing.T) {
	s := &Spec{URL: "https://example.test/trending?since=daily"}
	require.NotNil(t, s.Base())
	assert.Equal(t, "https://example.test/", s.Base().String())

	s.BaseURL = "https://cdn.example.test"
	assert.Equal(t, "https://cdn.example.test", s.Base().String())

	assert.Nil(t, (&Spec{URL: "not a url"}).Base())
}

func TestSpecDefaults(t *testing.T) {
	s := &Spec{ID: "x"}
	assert.Equal(t, "http", s.FetcherType())
	assert.Equal(t, "x", s.DisplayName())
	assert.Equal(t, DefaultCategoryDepth, s.CategoryDepth())
	assert.Equal(t, DefaultMetricScanDepth, s.MetricScanDepth())

	s.Quirks.CategoryDepth = 7
	assert.Equal(t, 7, s.CategoryDepth())
}

func TestBuiltinOrderIsStable(t *testing.T) {
	first := Builtin()
	second := Builtin()
	require.Equal(t, len(first), len(second))
	assert.Equal(t, "github", first[0].ID)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	assert.Equal(t, "baidu", first[1].ID)
}

func TestHotListSpec(t *testing.T) {
	s := HotList("https://hot.example.test/", "weibo", "Weibo")
	assert.Equal(t, KindJSON, s.Kind)
	assert.Equal(t, "https://hot.example.test/weibo", s.URL)
	assert.Equal(t, "Weibo", s.Quirks.Category)
	assert.Equal(t, int64(125_000), s.Normalizer().Quantity("12.5万"))
}

func TestGitHubVariant(t *testing.T) {
	base := GitHubTrending()

	assert.Same(t, base, GitHubVariant(base, "", ""))

	v := GitHubVariant(base, "Go", "weekly")
	assert.Equal(t, "github-go-weekly", v.ID)
	assert.Equal(t, "https://github.com/trending/go?since=weekly", v.URL)
	assert.Equal(t, "https://github.com", v.BaseURL)
	assert.Equal(t, "https://github.com/trending", base.URL, "base spec must not change")
}

func TestTable(t *testing.T) {
	a := &Spec{ID: "a"}
	b := &Spec{ID: "b", Disabled: true}
	table, err := NewTable([]*Spec{a, b})
	require.NoError(t, err)

	got, ok := table.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)
	assert.Len(t, table.All(), 2)
	assert.Equal(t, []*Spec{a}, table.Enabled())

	sel, err := table.Select("b", "a")
	require.NoError(t, err)
	assert.Equal(t, []*Spec{b, a}, sel)

	_, err = table.Select("missing")
	assert.ErrorIs(t, err, types.ErrUnknownSource)

	_, err = NewTable([]*Spec{a, {ID: "a"}})
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	builtin := []*Spec{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	overrides := []*Spec{{ID: "b", Name: "B2"}, {ID: "c", Name: "C"}}

	merged := Merge(builtin, overrides)
	require.Len(t, merged, 3)
	assert.Equal(t, "A", merged[0].Name)
	assert.Equal(t, "B2", merged[1].Name)
	assert.Equal(t, "C", merged[2].Name)
}
