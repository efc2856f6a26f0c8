package models

import (
	"fmt"
	"sort"
)

// Catalog is a read-only snapshot of every selectable player for a gameweek.
type Catalog struct {
	players []Player
	index   map[int]int
}

func NewCatalog(players []Player) (*Catalog, error) {
	c := &Catalog{
		players: make([]Player, 0, len(players)),
		index:   make(map[int]int, len(players)),
	}
	for _, p := range players {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.index[p.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePlayer, p.ID)
		}
		c.index[p.ID] = len(c.players)
		c.players = append(c.players, p)
	}
	return c, nil
}

func (c *Catalog) Get(id int) (Player, bool) {
	i, ok := c.index[id]
	if !ok {
		return Player{}, false
	}
	return c.players[i], true
}

func (c *Catalog) Has(id int) bool {
	_, ok := c.index[id]
	return ok
}

// Players returns a copy of the catalog in insertion order.
func (c *Catalog) Players() []Player {
	out := make([]Player, len(c.players))
	copy(out, c.players)
	return out
}

// IDs returns every player id in ascending order.
func (c *Catalog) IDs() []int {
	ids := make([]int, 0, len(c.players))
	for _, p := range c.players {
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)
	return ids
}

func (c *Catalog) Len() int {
	return len(c.players)
}

// Filter returns a new catalog holding the players for which keep is true.
func (c *Catalog) Filter(keep func(Player) bool) *Catalog {
	out := &Catalog{index: make(map[int]int)}
	for _, p := range c.players {
		if keep(p) {
			out.index[p.ID] = len(out.players)
			out.players = append(out.players, p)
		}
	}
	return out
}

// Subset restricts the catalog to the given ids, ignoring unknown ones.
func (c *Catalog) Subset(ids []int) *Catalog {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return c.Filter(func(p Player) bool { return want[p.ID] })
}

// CountByPosition reports how many players the catalog holds per position.
func (c *Catalog) CountByPosition() map[Position]int {
	counts := make(map[Position]int, len(Positions))
	for _, p := range c.players {
		counts[p.Position]++
	}
	return counts
}
