package parser

import (
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/TrendGoat/internal/source"
)

// Container is one candidate item unit in a listing document.
type Container struct {
	// Index is the container's position among all located containers.
	Index int

	// Selection holds exactly one element.
	Selection *goquery.Selection
}

// Locator finds containers and field elements using the ordered selector
// chains of a source. The first selector of a chain that matches anything
// wins; later selectors only run when the earlier ones match nothing.
type Locator struct {
	spec   *source.Spec
	chains map[source.Role][]compiledSelector
	logger *slog.Logger
}

// NewLocator compiles the selector chains of spec.
func NewLocator(spec *source.Spec, logger *slog.Logger) (*Locator, error) {
	l := &Locator{
		spec:   spec,
		chains: make(map[source.Role][]compiledSelector, len(spec.Selectors)),
		logger: logger.With("component", "locator", "source", spec.ID),
	}

	for _, role := range source.Roles {
		for _, s := range spec.Chain(role) {
			cs, err := compileSelector(s)
			if err != nil {
				return nil, fmt.Errorf("source %s: role %s: %w", spec.ID, role, err)
			}
			l.chains[role] = append(l.chains[role], cs)
		}
	}

	return l, nil
}

// Spec returns the source the locator was built for.
func (l *Locator) Spec() *source.Spec { return l.spec }

// Containers returns the item containers of doc in document order. A
// document where no container selector matches yields an empty slice:
// an empty page and a markup miss look the same from here.
func (l *Locator) Containers(doc *goquery.Document) []Container {
	chain := l.chains[source.RoleContainer]
	for i, cs := range chain {
		matches := cs.find(doc.Selection)
		if matches.Length() == 0 {
			continue
		}
		if i > 0 {
			l.logger.Warn("container selector fell back",
				"primary", chain[0].src.String(),
				"matched", cs.src.String(),
				"position", i,
			)
		}

		containers := make([]Container, 0, matches.Length())
		matches.Each(func(idx int, sel *goquery.Selection) {
			containers = append(containers, Container{Index: idx, Selection: sel})
		})
		return containers
	}

	l.logger.Warn("no containers matched", "selectors", len(chain))
	return nil
}

// First returns the first element within c matched by the role's chain,
// along with the selector that matched.
func (l *Locator) First(c Container, role source.Role) (*goquery.Selection, compiledSelector, bool) {
	chain := l.chains[role]
	for i, cs := range chain {
		matches := cs.find(c.Selection)
		if matches.Length() == 0 {
			continue
		}
		if i > 0 {
			l.logger.Debug("field selector fell back",
				"role", role,
				"container", c.Index,
				"matched", cs.src.String(),
			)
		}
		return matches.First(), cs, true
	}
	return nil, compiledSelector{}, false
}
