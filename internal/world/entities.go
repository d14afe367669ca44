package world

// Concrete object classes. Each embeds Base for the schema-driven storage and
// adds typed accessors over the attributes its schema declares. The schemas
// below are the authoritative attribute configuration: field kinds, optional
// flags, and both sides of every relation, shape included.

// Player is one faction in the game, human or AI controlled.
type Player struct{ Base }

func (p *Player) Name() string { return p.Str("name") }
func (p *Player) Color() string { return p.Str("color") }
func (p *Player) AI() bool { return p.Bool("ai") }

func (p *Player) Cities(b *Bucket) (map[Key]*City, error) { return Many[*City](b, p, "cities") }
func (p *Player) Units(b *Bucket) (map[Key]*Unit, error) { return Many[*Unit](b, p, "units") }
func (p *Player) Research(b *Bucket) (*Research, error) { return One[*Research](b, p, "research") }
func (p *Player) Government(b *Bucket) (*Government, error) {
	return One[*Government](b, p, "government")
}
func (p *Player) Culture(b *Bucket) (*Culture, error) { return One[*Culture](b, p, "culture") }

// Yields aggregates the player's per-turn yields from cities, recomputed
// only when government, research or culture actually change.
func (p *Player) Yields(b *Bucket) Storage {
	return Computed(p, "yields", []string{"government", "research", "culture", "cities"}, func() Storage {
		total := Storage{}
		cities, err := p.Cities(b)
		if err != nil {
			return total
		}
		for _, c := range cities {
			for k, v := range c.StorageOf("yields") {
				total[k] += v
			}
		}
		return total
	})
}

// City is a settlement owned by a player, populated by citizens.
type City struct{ Base }

func (c *City) Name() string { return c.Str("name") }
func (c *City) Population() int { return c.Int("population") }
func (c *City) Storage() Storage { return c.StorageOf("storage") }
func (c *City) Player(b *Bucket) (*Player, error) { return One[*Player](b, c, "player") }
func (c *City) Tile(b *Bucket) (*Tile, error) { return One[*Tile](b, c, "tile") }
func (c *City) Citizens(b *Bucket) (map[Key]*Citizen, error) {
	return Many[*Citizen](b, c, "citizens")
}
func (c *City) Constructions(b *Bucket) (map[Key]*Construction, error) {
	return Many[*Construction](b, c, "constructions")
}

// OnCreate guarantees a city always carries a storage map, even when the
// generator's record omitted it.
func (c *City) OnCreate(fields []string) {
	if _, ok := c.Attr("storage"); !ok {
		c.SetAttr("storage", Storage{})
	}
}

// Citizen is one population point of a city, optionally working a tile and
// optionally following a religion.
type Citizen struct{ Base }

func (z *Citizen) City(b *Bucket) (*City, error) { return One[*City](b, z, "city") }
func (z *Citizen) Religion(b *Bucket) (*Religion, bool, error) {
	return MaybeOne[*Religion](b, z, "religion")
}
func (z *Citizen) WorkTile(b *Bucket) (*Tile, bool, error) {
	return MaybeOne[*Tile](b, z, "workTile")
}

// Unit is a mobile entity on the map, built from a unit design.
type Unit struct{ Base }

func (u *Unit) HP() int { return u.Int("hp") }
func (u *Unit) Moves() int { return u.Int("moves") }
func (u *Unit) Player(b *Bucket) (*Player, error) { return One[*Player](b, u, "player") }
func (u *Unit) Tile(b *Bucket) (*Tile, error) { return One[*Tile](b, u, "tile") }
func (u *Unit) Design(b *Bucket) (*UnitDesign, error) { return One[*UnitDesign](b, u, "design") }

// Tile is one hex of the world map.
type Tile struct{ Base }

func (t *Tile) X() int { return t.Int("x") }
func (t *Tile) Y() int { return t.Int("y") }
func (t *Tile) Units(b *Bucket) (map[Key]*Unit, error) { return Many[*Unit](b, t, "units") }
func (t *Tile) City(b *Bucket) (*City, bool, error) { return MaybeOne[*City](b, t, "city") }

// Religion is a faith founded by a player and followed by citizens.
type Religion struct{ Base }

func (r *Religion) Name() string { return r.Str("name") }
func (r *Religion) Members(b *Bucket) (map[Key]*Citizen, error) {
	return Many[*Citizen](b, r, "members")
}
func (r *Religion) HolyCity(b *Bucket) (*City, bool, error) {
	return MaybeOne[*City](b, r, "holyCity")
}

// Research tracks one player's technology progress.
type Research struct{ Base }

func (r *Research) Progress() float64 { return r.Float("progress") }
func (r *Research) Player(b *Bucket) (*Player, error) { return One[*Player](b, r, "player") }

// Government is one player's current form of government and adopted policies.
type Government struct{ Base }

func (g *Government) ElectionsPendingUntil() int { return g.Int("electionsPendingUntil") }
func (g *Government) Player(b *Bucket) (*Player, error) { return One[*Player](b, g, "player") }

// Culture tracks one player's cultural progress and adopted traditions.
type Culture struct{ Base }

func (c *Culture) Player(b *Bucket) (*Player, error) { return One[*Player](b, c, "player") }

// Construction is an in-progress build in a city's queue.
type Construction struct{ Base }

func (c *Construction) Progress() float64 { return c.Float("progress") }
func (c *Construction) City(b *Bucket) (*City, error) { return One[*City](b, c, "city") }

// UnitDesign is a player-assembled unit blueprint.
type UnitDesign struct{ Base }

func (d *UnitDesign) Name() string { return d.Str("name") }
func (d *UnitDesign) Player(b *Bucket) (*Player, error) { return One[*Player](b, d, "player") }
func (d *UnitDesign) Units(b *Bucket) (map[Key]*Unit, error) { return Many[*Unit](b, d, "units") }

// TradeRoute connects two cities and carries yields per turn.
type TradeRoute struct{ Base }

func (t *TradeRoute) From(b *Bucket) (*City, error) { return One[*City](b, t, "fromCity") }
func (t *TradeRoute) To(b *Bucket) (*City, error) { return One[*City](b, t, "toCity") }

// Deal is an agreement between players.
type Deal struct{ Base }

func (d *Deal) Players(b *Bucket) (map[Key]*Player, error) { return Many[*Player](b, d, "players") }

// Agenda is an AI player's standing behavioral directive.
type Agenda struct{ Base }

func (a *Agenda) Player(b *Bucket) (*Player, error) { return One[*Player](b, a, "player") }

// Incident is a scripted world event involving one or more players.
type Incident struct{ Base }

func (i *Incident) Script() string { return i.Str("script") }
func (i *Incident) Players(b *Bucket) (map[Key]*Player, error) {
	return Many[*Player](b, i, "players")
}

// Diplomacy is the standing relationship between two players.
type Diplomacy struct{ Base }

func (d *Diplomacy) Players(b *Bucket) (map[Key]*Player, error) {
	return Many[*Player](b, d, "players")
}

// River is a named river crossing a set of tiles.
type River struct{ Base }

func (r *River) Tiles(b *Bucket) (map[Key]*Tile, error) { return Many[*Tile](b, r, "tiles") }

// DefaultSchemas declares the full attribute configuration of every object
// class: kind, optionality, and — for relations — the shape of both sides.
func DefaultSchemas() (Schemas, error) {
	return NewSchemas(
		&Schema{
			Class: "player",
			New:   func(Key) Object { return &Player{} },
			Fields: []FieldSpec{
				{Name: "name", Kind: FieldPlain},
				{Name: "color", Kind: FieldPlain, Optional: true},
				{Name: "ai", Kind: FieldPlain, Optional: true},
				{Name: "cities", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "player", RecipRel: RelOne},
				{Name: "units", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "player", RecipRel: RelOne},
				{Name: "designs", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "player", RecipRel: RelOne},
				{Name: "agendas", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "player", RecipRel: RelOne},
				{Name: "research", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "player", RecipRel: RelOne},
				{Name: "government", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "player", RecipRel: RelOne},
				{Name: "culture", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "player", RecipRel: RelOne},
				{Name: "foundedReligion", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "founder", RecipRel: RelOne},
				{Name: "deals", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "players", RecipRel: RelMany},
				{Name: "diplomacies", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "players", RecipRel: RelMany},
				{Name: "incidents", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "players", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "city",
			New:   func(Key) Object { return &City{} },
			Fields: []FieldSpec{
				{Name: "name", Kind: FieldPlain},
				{Name: "population", Kind: FieldPlain, Optional: true},
				{Name: "storage", Kind: FieldStorage, Optional: true},
				{Name: "yields", Kind: FieldStorage, Optional: true},
				{Name: "buildings", Kind: FieldTypeRefList, Optional: true},
				{Name: "player", Kind: FieldRelation, Rel: RelOne, RecipAttr: "cities", RecipRel: RelMany},
				{Name: "tile", Kind: FieldRelation, Rel: RelOne, RecipAttr: "city", RecipRel: RelOne},
				{Name: "citizens", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "city", RecipRel: RelOne},
				{Name: "constructions", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "city", RecipRel: RelOne},
				{Name: "tradeRoutesOut", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "fromCity", RecipRel: RelOne},
				{Name: "tradeRoutesIn", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "toCity", RecipRel: RelOne},
				{Name: "holyOf", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "holyCity", RecipRel: RelOne},
			},
		},
		&Schema{
			Class: "citizen",
			New:   func(Key) Object { return &Citizen{} },
			Fields: []FieldSpec{
				{Name: "city", Kind: FieldRelation, Rel: RelOne, RecipAttr: "citizens", RecipRel: RelMany},
				{Name: "religion", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "members", RecipRel: RelMany},
				{Name: "workTile", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "worker", RecipRel: RelOne},
			},
		},
		&Schema{
			Class: "unit",
			New:   func(Key) Object { return &Unit{} },
			Fields: []FieldSpec{
				{Name: "hp", Kind: FieldPlain, Optional: true},
				{Name: "moves", Kind: FieldPlain, Optional: true},
				{Name: "player", Kind: FieldRelation, Rel: RelOne, RecipAttr: "units", RecipRel: RelMany},
				{Name: "tile", Kind: FieldRelation, Rel: RelOne, RecipAttr: "units", RecipRel: RelMany},
				{Name: "design", Kind: FieldRelation, Rel: RelOne, RecipAttr: "units", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "tile",
			New:   func(Key) Object { return &Tile{} },
			Fields: []FieldSpec{
				{Name: "x", Kind: FieldPlain},
				{Name: "y", Kind: FieldPlain},
				{Name: "terrain", Kind: FieldTypeRef},
				{Name: "features", Kind: FieldTypeRefList, Optional: true},
				{Name: "resource", Kind: FieldTypeRef, Optional: true},
				{Name: "units", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "tile", RecipRel: RelOne},
				{Name: "city", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "tile", RecipRel: RelOne},
				{Name: "worker", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "workTile", RecipRel: RelOne},
				{Name: "river", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "tiles", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "religion",
			New:   func(Key) Object { return &Religion{} },
			Fields: []FieldSpec{
				{Name: "name", Kind: FieldPlain},
				{Name: "founder", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "foundedReligion", RecipRel: RelOne},
				{Name: "holyCity", Kind: FieldRelation, Optional: true, Rel: RelOne, RecipAttr: "holyOf", RecipRel: RelOne},
				{Name: "members", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "religion", RecipRel: RelOne},
			},
		},
		&Schema{
			Class: "research",
			New:   func(Key) Object { return &Research{} },
			Fields: []FieldSpec{
				{Name: "current", Kind: FieldTypeRef, Optional: true},
				{Name: "researched", Kind: FieldTypeRefList, Optional: true},
				{Name: "progress", Kind: FieldPlain, Optional: true},
				{Name: "player", Kind: FieldRelation, Rel: RelOne, RecipAttr: "research", RecipRel: RelOne},
			},
		},
		&Schema{
			Class: "government",
			New:   func(Key) Object { return &Government{} },
			Fields: []FieldSpec{
				{Name: "form", Kind: FieldTypeRef},
				{Name: "policies", Kind: FieldTypeRefList, Optional: true},
				{Name: "electionsPendingUntil", Kind: FieldPlain, Optional: true},
				{Name: "player", Kind: FieldRelation, Rel: RelOne, RecipAttr: "government", RecipRel: RelOne},
			},
		},
		&Schema{
			Class: "culture",
			New:   func(Key) Object { return &Culture{} },
			Fields: []FieldSpec{
				{Name: "adopted", Kind: FieldTypeRefList, Optional: true},
				{Name: "progress", Kind: FieldPlain, Optional: true},
				{Name: "player", Kind: FieldRelation, Rel: RelOne, RecipAttr: "culture", RecipRel: RelOne},
			},
		},
		&Schema{
			Class: "construction",
			New:   func(Key) Object { return &Construction{} },
			Fields: []FieldSpec{
				{Name: "target", Kind: FieldTypeRef},
				{Name: "progress", Kind: FieldPlain, Optional: true},
				{Name: "city", Kind: FieldRelation, Rel: RelOne, RecipAttr: "constructions", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "unitDesign",
			New:   func(Key) Object { return &UnitDesign{} },
			Fields: []FieldSpec{
				{Name: "name", Kind: FieldPlain},
				{Name: "baseType", Kind: FieldTypeRef},
				{Name: "specials", Kind: FieldTypeRefList, Optional: true},
				{Name: "player", Kind: FieldRelation, Rel: RelOne, RecipAttr: "designs", RecipRel: RelMany},
				{Name: "units", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "design", RecipRel: RelOne},
			},
		},
		&Schema{
			Class: "tradeRoute",
			New:   func(Key) Object { return &TradeRoute{} },
			Fields: []FieldSpec{
				{Name: "yields", Kind: FieldStorage, Optional: true},
				{Name: "fromCity", Kind: FieldRelation, Rel: RelOne, RecipAttr: "tradeRoutesOut", RecipRel: RelMany},
				{Name: "toCity", Kind: FieldRelation, Rel: RelOne, RecipAttr: "tradeRoutesIn", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "deal",
			New:   func(Key) Object { return &Deal{} },
			Fields: []FieldSpec{
				{Name: "terms", Kind: FieldPlain, Optional: true},
				{Name: "turns", Kind: FieldPlain, Optional: true},
				{Name: "players", Kind: FieldRelation, Rel: RelMany, RecipAttr: "deals", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "agenda",
			New:   func(Key) Object { return &Agenda{} },
			Fields: []FieldSpec{
				{Name: "kind", Kind: FieldPlain},
				{Name: "data", Kind: FieldPlain, Optional: true},
				{Name: "player", Kind: FieldRelation, Rel: RelOne, RecipAttr: "agendas", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "incident",
			New:   func(Key) Object { return &Incident{} },
			Fields: []FieldSpec{
				{Name: "script", Kind: FieldPlain},
				{Name: "data", Kind: FieldPlain, Optional: true},
				{Name: "players", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "incidents", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "diplomacy",
			New:   func(Key) Object { return &Diplomacy{} },
			Fields: []FieldSpec{
				{Name: "attitude", Kind: FieldPlain, Optional: true},
				{Name: "players", Kind: FieldRelation, Rel: RelMany, RecipAttr: "diplomacies", RecipRel: RelMany},
			},
		},
		&Schema{
			Class: "river",
			New:   func(Key) Object { return &River{} },
			Fields: []FieldSpec{
				{Name: "name", Kind: FieldPlain, Optional: true},
				{Name: "tiles", Kind: FieldRelation, Optional: true, Rel: RelMany, RecipAttr: "river", RecipRel: RelOne},
			},
		},
	)
}
