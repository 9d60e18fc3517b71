package source

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// HotListBaseURL is the default endpoint of the JSON hot-list family.
const HotListBaseURL = "https://api-hot.imsyy.top"

// hotListPlatforms maps platform ids to display names.
var hotListPlatforms = map[string]string{
	"weibo":    "Weibo",
	"zhihu":    "Zhihu",
	"baidu":    "Baidu",
	"bilibili": "Bilibili",
	"douyin":   "Douyin",
	"toutiao":  "Toutiao",
}

// CJKSuffixes is the magnitude alphabet used by Chinese platforms.
var CJKSuffixes = map[string]int64{
	"k": 1_000,
	"m": 1_000_000,
	"w": 10_000,
	"万": 10_000,
	"亿": 100_000_000,
}

// GitHubTrending returns the spec for the GitHub trending listing page.
func GitHubTrending() *Spec {
	return &Spec{
		ID:      "github",
		Name:    "GitHub Trending",
		Kind:    KindHTML,
		URL:     "https://github.com/trending",
		BaseURL: "https://github.com",
		Timeout: 20 * time.Second,
		Headers: map[string]string{
			"Accept": "text/html,application/xhtml+xml",
		},
		Selectors: map[Role][]Selector{
			RoleContainer: {
				CSS("article.Box-row"),
				CSS("div.Box-row"),
				XPath("//div[contains(@class,'Box')]//article"),
			},
			RoleTitleLink: {
				CSS("h2 a[href]"),
				CSS("h1 a[href]"),
				XPath(".//h3//a[@href]"),
			},
			RoleDescription: {
				CSS("p.col-9"),
				CSS("p"),
			},
			RoleMetric: {
				CSS("a[href$='/stargazers']"),
				CSS("a[href*='stargazers']"),
			},
			RoleCategory: {
				CSS("[itemprop='programmingLanguage']"),
				CSS("[data-language]").Attr("data-language"),
			},
			RoleCategoryMarker: {
				CSS("span.repo-language-color"),
			},
		},
		Quirks: Quirks{
			CompactTitle:    true,
			CategoryDepth:   2,
			MetricScanDepth: 4,
		},
	}
}

// HotList returns the spec of one platform in the JSON hot-list family.
func HotList(baseURL, platform, name string) *Spec {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Spec{
		ID:      platform,
		Name:    name,
		Kind:    KindJSON,
		URL:     fmt.Sprintf("%s/%s", baseURL, platform),
		Timeout: 10 * time.Second,
		Headers: map[string]string{
			"Accept": "application/json",
		},
		Fields: &FieldMap{
			Items:       "data",
			Title:       []string{"title", "name"},
			URL:         []string{"url", "mobileUrl", "link"},
			Description: []string{"desc", "description"},
			Metric:      []string{"hot", "heat", "score"},
		},
		Quirks: Quirks{
			Suffixes: CJKSuffixes,
			Category: name,
		},
	}
}

// Builtin returns the default source table in a stable order: the
// GitHub listing first, then hot-list platforms by id.
func Builtin() []*Spec {
	return BuiltinAt(HotListBaseURL)
}

// BuiltinAt is Builtin with the hot-list family served from hotListBase.
func BuiltinAt(hotListBase string) []*Spec {
	if hotListBase == "" {
		hotListBase = HotListBaseURL
	}
	specs := []*Spec{GitHubTrending()}

	ids := make([]string, 0, len(hotListPlatforms))
	for id := range hotListPlatforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		specs = append(specs, HotList(hotListBase, id, hotListPlatforms[id]))
	}
	return specs
}

// GitHubVariant derives a trending spec for a language and time window,
// e.g. ("go", "weekly") -> https://github.com/trending/go?since=weekly.
func GitHubVariant(base *Spec, language, since string) *Spec {
	if language == "" && since == "" {
		return base
	}
	u := strings.TrimRight(base.URL, "/")
	id := base.ID
	if language != "" {
		u += "/" + strings.ToLower(language)
		id += "-" + strings.ToLower(language)
	}
	if since != "" {
		u += "?since=" + since
		id += "-" + since
	}
	return base.WithURL(id, u)
}
