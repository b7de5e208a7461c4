package allocation

import (
	"fmt"
	"io"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// Pull is one physical copy to take out of a location.
type Pull struct {
	Name    string
	EntryID int64
	CardID  string
}

// Group is a location to visit and the copies to pull there.
type Group struct {
	Location models.Location
	Pulls    []Pull
}

// Plan is an ordered pull plan. Groups are in visiting order.
type Plan struct {
	Groups []Group

	// Universe holds the canonical names that had to be collected, in
	// request order.
	Universe []string

	// Staged holds requested names skipped because the target location
	// already holds them.
	Staged []string

	// LowerBound is the LP optimum, a lower bound on the number of locations
	// any cover needs. It is zero for StrategyGreedy.
	LowerBound float64

	Strategy Strategy
}

// Empty reports whether nothing needs to be pulled.
func (p *Plan) Empty() bool {
	return len(p.Groups) == 0
}

// EntryIDs returns every entry to pull in plan order.
func (p *Plan) EntryIDs() []int64 {
	var ids []int64
	for _, g := range p.Groups {
		for _, pull := range g.Pulls {
			ids = append(ids, pull.EntryID)
		}
	}
	return ids
}

// Row is one line of the flat console table: either a location header or a
// pull nested under the preceding header.
type Row struct {
	Header     bool
	LocationID int64
	Location   string
	Name       string
	EntryID    int64
	CardID     string
}

// Rows flattens the plan into the console table.
func (p *Plan) Rows() []Row {
	var rows []Row
	for _, g := range p.Groups {
		rows = append(rows, Row{Header: true, LocationID: g.Location.ID, Location: g.Location.String()})
		for _, pull := range g.Pulls {
			rows = append(rows, Row{Name: pull.Name, EntryID: pull.EntryID, CardID: pull.CardID})
		}
	}
	return rows
}

// Fprint writes the console table to w.
func (p *Plan) Fprint(w io.Writer) error {
	for _, row := range p.Rows() {
		var err error
		if row.Header {
			_, err = fmt.Fprintf(w, "%d\t%s\n", row.LocationID, row.Location)
		} else {
			_, err = fmt.Fprintf(w, "\t%s\t%d\t%s\n", row.Name, row.EntryID, row.CardID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
