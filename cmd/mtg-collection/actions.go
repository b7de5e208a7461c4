package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ramonehamilton/mtg-collection/internal/allocation"
	"github.com/ramonehamilton/mtg-collection/internal/cards/fuzzy"
	"github.com/ramonehamilton/mtg-collection/internal/deckimport"
	"github.com/ramonehamilton/mtg-collection/internal/mutation"
	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
	"github.com/ramonehamilton/mtg-collection/internal/storage/repository"
)

// add runs a quick-add query such as "lea 161 2 de Box[3]".
func (a *app) add(ctx context.Context, engine *mutation.Engine, input string) error {
	parser, err := a.queryParser()
	if err != nil {
		return err
	}
	q, err := parser.Parse(ctx, input)
	if err != nil {
		return err
	}
	if !q.Complete() {
		return fmt.Errorf("add needs a set code, a collector number and a location, e.g. \"lea 161 Box[1]\"")
	}

	preview, err := parser.Preview(ctx, q)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, preview)

	tx, err := engine.AddToLocation(ctx, preview.Card.ID, q.Language, *q.Location, q.Amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %d × %s (%s) to %s\n", len(tx.EntryIDs), preview.Card.Name, q.Language, q.Location)
	return nil
}

// move runs "<set> <number> <count> <From[Ref]> <To[Ref]>".
func (a *app) move(ctx context.Context, engine *mutation.Engine, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("move needs <set> <number> <count> <From[Ref]> <To[Ref]>")
	}
	count, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid count %q", args[2])
	}
	from, err := models.ParseLocationKey(args[3])
	if err != nil {
		return err
	}
	to, err := models.ParseLocationKey(args[4])
	if err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	card, err := db.Repos().Cards.LookupBySetAndNumber(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if card == nil {
		return &mutation.CardNotFoundError{Ref: strings.ToUpper(args[0]) + " " + args[1]}
	}

	tx, err := engine.MoveBetween(ctx, card.ID, from, to, count)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Moved %d × %s from %s to %s\n", len(tx.EntryIDs), card.Name, from, to)
	return nil
}

// undo reverts the newest change of the session.
func (a *app) undo(ctx context.Context, engine *mutation.Engine) error {
	tx, err := engine.Undo(ctx)
	if err != nil {
		return err
	}
	if tx == nil {
		fmt.Fprintln(a.out, "Nothing to undo.")
		return nil
	}
	fmt.Fprintf(a.out, "Undid %s\n", tx)
	return nil
}

// parseSearch reads search terms: "l:<format>" (l:c is commander),
// "id<=<colors>" and name parts.
func parseSearch(terms []string) (repository.SearchFilter, error) {
	var filter repository.SearchFilter
	for _, term := range terms {
		lower := strings.ToLower(term)
		switch {
		case strings.HasPrefix(lower, "l:"):
			format := strings.TrimPrefix(lower, "l:")
			if format == "" {
				return filter, fmt.Errorf("l: needs a format")
			}
			if format == "c" {
				format = "commander"
			}
			filter.LegalIn = format
		case strings.HasPrefix(lower, "id<="):
			colors := strings.ToUpper(strings.TrimPrefix(lower, "id<="))
			if strings.IndexFunc(colors, func(r rune) bool { return !strings.ContainsRune("WUBRG", r) }) >= 0 {
				return filter, fmt.Errorf("invalid colors %q (use W, U, B, R, G)", colors)
			}
			filter.ColorIdentity = &colors
		default:
			filter.NameParts = append(filter.NameParts, term)
		}
	}
	if filter.IsEmpty() {
		return filter, fmt.Errorf("search needs at least one term")
	}
	return filter, nil
}

func (a *app) search(ctx context.Context, terms []string) error {
	filter, err := parseSearch(terms)
	if err != nil {
		return err
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}

	hits, err := db.Repos().Cards.SearchOwned(ctx, filter)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(a.out, "No owned cards match.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, hit := range hits {
		fmt.Fprintf(tw, "%d\t%s\n", hit.Count, hit.Name)
	}
	return tw.Flush()
}

func (a *app) locate(ctx context.Context, name string) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}

	counts, err := db.Repos().Collection.LocationCounts(ctx, name)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Fprintf(a.out, "No copies of %s.\n", name)
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Location.String(), c.Count)
	}
	return tw.Flush()
}

// allocateOptions are the inputs of one allocation run.
type allocateOptions struct {
	names    []string
	file     string
	target   string
	strategy string
	console  bool
}

func (o allocateOptions) wishList() (*deckimport.WishList, error) {
	wish := deckimport.NewWishList(o.names...)
	if o.file == "" {
		return wish, nil
	}
	fromFile, err := deckimport.ParseDeckListFile(o.file)
	if err != nil {
		return nil, err
	}
	for _, name := range fromFile.Names() {
		wish.Add(name)
	}
	return wish, nil
}

// allocate computes a pull plan and prints it. Interactively, with a target,
// the selected pulls can be moved there as undoable moves.
func (a *app) allocate(ctx context.Context, engine *mutation.Engine, opts allocateOptions) error {
	wish, err := opts.wishList()
	if err != nil {
		return err
	}

	strategyName := opts.strategy
	if strategyName == "" {
		strategyName = a.cfg.Allocation.Strategy
	}
	strategy, err := allocation.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	req := allocation.Request{Wish: wish, Strategy: strategy}
	if opts.target != "" {
		key, err := models.ParseLocationKey(opts.target)
		if err != nil {
			return err
		}
		req.Target = &key
	}

	alloc, err := a.allocationEngine()
	if err != nil {
		return err
	}
	plan, err := alloc.Allocate(ctx, req)
	if err != nil {
		var unknown *allocation.UnknownCardError
		if errors.As(err, &unknown) {
			a.suggest(ctx, unknown.Names)
		}
		return err
	}

	if opts.console {
		return plan.Fprint(a.out)
	}

	printPlan(a.out, plan)
	if req.Target == nil || plan.Empty() || engine == nil {
		return nil
	}
	return a.commitPlan(ctx, engine, plan, *req.Target)
}

// suggest prints close catalog names for each unknown name.
func (a *app) suggest(ctx context.Context, unknown []string) {
	db, err := a.openDB()
	if err != nil {
		return
	}
	names, err := db.Repos().Cards.Names(ctx)
	if err != nil {
		a.logger.Debug("Failed to load names for suggestions", "error", err)
		return
	}
	for _, name := range unknown {
		if suggestions := fuzzy.Suggest(name, names); len(suggestions) > 0 {
			fmt.Fprintf(a.out, "%s: did you mean %s?\n", name, strings.Join(suggestions, ", "))
		}
	}
}

func printPlan(w io.Writer, plan *allocation.Plan) {
	if len(plan.Staged) > 0 {
		fmt.Fprintf(w, "Already at target: %s\n", strings.Join(plan.Staged, ", "))
	}
	if plan.Empty() {
		fmt.Fprintln(w, "Nothing to pull.")
		return
	}

	n := 0
	for _, g := range plan.Groups {
		fmt.Fprintf(w, "%s\n", g.Location.String())
		for _, pull := range g.Pulls {
			n++
			fmt.Fprintf(w, "  %3d. %s\n", n, pull.Name)
		}
	}
	if plan.Strategy == allocation.StrategyLP {
		fmt.Fprintf(w, "%d location(s) to open, lower bound %.2f\n", len(plan.Groups), plan.LowerBound)
	} else {
		fmt.Fprintf(w, "%d location(s) to open\n", len(plan.Groups))
	}
}

// commitPlan asks which pulls to leave out and moves the rest to target.
func (a *app) commitPlan(ctx context.Context, engine *mutation.Engine, plan *allocation.Plan, target models.LocationKey) error {
	ids := plan.EntryIDs()
	fmt.Fprintf(a.out, "Numbers to leave out (blank for none): ")
	line, err := readLine(a.in)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	skip, err := parseSelection(line, len(ids))
	if err != nil {
		return err
	}

	var selected []int64
	for i, id := range ids {
		if !skip[i+1] {
			selected = append(selected, id)
		}
	}
	if len(selected) == 0 {
		fmt.Fprintln(a.out, "Nothing selected.")
		return nil
	}

	ok, err := a.confirmer().Confirm(ctx, fmt.Sprintf("Move %d card(s) to %s?", len(selected), target))
	if err != nil {
		return err
	}
	if !ok {
		return mutation.ErrDeclined
	}

	loc, err := engine.ResolveLocation(ctx, target)
	if err != nil {
		return err
	}
	moves, err := engine.MoveEntries(ctx, selected, loc.ID)
	if err != nil {
		return err
	}

	moved := 0
	for _, m := range moves {
		moved += len(m.EntryIDs)
	}
	fmt.Fprintf(a.out, "Moved %d card(s) to %s\n", moved, target)
	return nil
}

// parseSelection reads space or comma separated numbers between 1 and n.
func parseSelection(line string, n int) (map[int]bool, error) {
	selected := make(map[int]bool)
	for _, field := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' }) {
		i, err := strconv.Atoi(field)
		if err != nil || i < 1 || i > n {
			return nil, fmt.Errorf("invalid selection %q (want numbers 1-%d)", field, n)
		}
		selected[i] = true
	}
	return selected, nil
}
