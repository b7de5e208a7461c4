// Package allocation plans which storage locations to visit to collect a
// wish-list of cards while touching as few locations as practical.
package allocation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ramonehamilton/mtg-collection/internal/deckimport"
	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
	"github.com/ramonehamilton/mtg-collection/internal/storage/repository"
)

// Config configures an Engine.
type Config struct {
	Cards      repository.CardRepository
	Locations  repository.LocationRepository
	Collection repository.CollectionRepository
	Logger     *slog.Logger
}

// Engine turns wish-lists into pull plans. It keeps no state between calls.
type Engine struct {
	cards      repository.CardRepository
	locations  repository.LocationRepository
	collection repository.CollectionRepository
	logger     *slog.Logger
}

// NewEngine creates a new allocation engine.
func NewEngine(config Config) (*Engine, error) {
	if config.Cards == nil {
		return nil, fmt.Errorf("card repository is required")
	}
	if config.Locations == nil {
		return nil, fmt.Errorf("location repository is required")
	}
	if config.Collection == nil {
		return nil, fmt.Errorf("collection repository is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Engine{
		cards:      config.Cards,
		locations:  config.Locations,
		collection: config.Collection,
		logger:     config.Logger,
	}, nil
}

// Request is one allocation call.
type Request struct {
	// Wish is the deduplicated set of requested names.
	Wish *deckimport.WishList

	// Target, when set, removes names already stored there.
	Target *models.LocationKey

	Strategy Strategy
}

// element is one card of the universe.
type element struct {
	name   string
	folded string
}

// Allocate resolves the wish-list and builds a pull plan. Nothing is written.
func (e *Engine) Allocate(ctx context.Context, req Request) (*Plan, error) {
	if req.Wish == nil {
		req.Wish = deckimport.NewWishList()
	}
	if req.Strategy == "" {
		req.Strategy = StrategyLP
	}

	names := req.Wish.Names()
	plan := &Plan{Strategy: req.Strategy}

	names, staged, err := e.dropStaged(ctx, names, req.Target)
	if err != nil {
		return nil, err
	}
	plan.Staged = staged

	universe, err := e.resolve(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(universe) == 0 {
		return plan, nil
	}
	for _, el := range universe {
		plan.Universe = append(plan.Universe, el.name)
	}

	index := make(map[string]int, len(universe))
	folded := make([]string, len(universe))
	for i, el := range universe {
		index[el.folded] = i
		folded[i] = el.folded
	}

	rows, err := e.collection.Coverage(ctx, folded)
	if err != nil {
		return nil, err
	}

	locations, sets, picks := coverageSets(rows, index)
	if missing := uncovered(sets, universe); len(missing) > 0 {
		return nil, &IncompleteCoverageError{Names: missing}
	}

	accepted, bound, err := cover(sets, len(universe), req.Strategy)
	if err != nil {
		return nil, err
	}
	plan.LowerBound = bound

	for _, a := range accepted {
		group := Group{Location: locations[a.set]}
		for _, el := range a.elements {
			row := picks[a.set][el]
			group.Pulls = append(group.Pulls, Pull{
				Name:    universe[el].name,
				EntryID: row.EntryID,
				CardID:  row.CardID,
			})
		}
		plan.Groups = append(plan.Groups, group)
	}

	e.logger.Debug("Allocation planned",
		"strategy", req.Strategy,
		"cards", len(universe),
		"candidates", len(sets),
		"visits", len(plan.Groups),
		"lowerBound", bound)

	return plan, nil
}

// dropStaged removes names already present at the target location.
func (e *Engine) dropStaged(ctx context.Context, names []string, target *models.LocationKey) ([]string, []string, error) {
	if target == nil || len(names) == 0 {
		return names, nil, nil
	}

	loc, err := e.locations.GetByKey(ctx, *target)
	if err != nil {
		return nil, nil, err
	}
	if loc == nil {
		e.logger.Debug("Target location does not exist yet", "target", target.String())
		return names, nil, nil
	}

	folded := make([]string, len(names))
	for i, name := range names {
		folded[i] = models.FoldName(name)
	}
	present, err := e.collection.NamesAt(ctx, loc.ID, folded)
	if err != nil {
		return nil, nil, err
	}

	var remaining, staged []string
	for i, name := range names {
		if present[folded[i]] {
			staged = append(staged, name)
			continue
		}
		remaining = append(remaining, name)
	}
	return remaining, staged, nil
}

// resolve maps names to catalog cards. All unknown names are reported together.
func (e *Engine) resolve(ctx context.Context, names []string) ([]element, error) {
	var (
		universe []element
		unknown  []string
	)
	for _, name := range names {
		card, err := e.cards.LookupByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if card == nil {
			unknown = append(unknown, name)
			continue
		}
		universe = append(universe, element{name: card.Name, folded: models.FoldName(card.Name)})
	}
	if len(unknown) > 0 {
		return nil, &UnknownCardError{Names: unknown}
	}
	return universe, nil
}

// coverageSets groups coverage rows, which arrive ordered by location id then
// entry id, into one set per location. picks holds the first (lowest id)
// entry of each element per location.
func coverageSets(rows []models.CoverageRow, index map[string]int) ([]models.Location, [][]int, []map[int]models.CoverageRow) {
	var (
		locations []models.Location
		sets      [][]int
		picks     []map[int]models.CoverageRow
	)
	for _, row := range rows {
		el, ok := index[row.NameFolded]
		if !ok {
			continue
		}
		last := len(locations) - 1
		if last < 0 || locations[last].ID != row.Location.ID {
			locations = append(locations, row.Location)
			sets = append(sets, nil)
			picks = append(picks, make(map[int]models.CoverageRow))
			last++
		}
		if _, seen := picks[last][el]; seen {
			continue
		}
		picks[last][el] = row
		sets[last] = append(sets[last], el)
	}
	return locations, sets, picks
}

// uncovered returns the names of elements that occur in no set.
func uncovered(sets [][]int, universe []element) []string {
	covered := make([]bool, len(universe))
	for _, set := range sets {
		for _, el := range set {
			covered[el] = true
		}
	}
	var missing []string
	for i, ok := range covered {
		if !ok {
			missing = append(missing, universe[i].name)
		}
	}
	return missing
}
