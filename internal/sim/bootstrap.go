package sim

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/poh/server/internal/world"
	"golang.org/x/text/unicode/norm"
)

// BootstrapConfig describes a fresh match: map extent and the factions.
type BootstrapConfig struct {
	Width   int
	Height  int
	Players []string // display names; first one is the current player
}

// Bootstrap generates a new game into an empty bucket: the tile grid with
// terrain drawn from the registry, one player per name with research,
// government and culture attached, and the world singleton at turn zero.
// It feeds everything through the bucket's raw-ingestion path, the same
// door save files come in through.
func Bootstrap(d *Deps, cfg BootstrapConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("bootstrap: map size %dx%d is not positive", cfg.Width, cfg.Height)
	}
	if len(cfg.Players) == 0 {
		return fmt.Errorf("bootstrap: need at least one player")
	}

	terrains, err := d.Bucket.ClassTypes("terrain")
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	forms, err := d.Bucket.ClassTypes("governmentForm")
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if len(terrains) == 0 || len(forms) == 0 {
		return fmt.Errorf("bootstrap: registry carries no terrain or government types")
	}

	rng := d.Bucket.RNG()
	var records []world.Raw

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			records = append(records, world.Raw{
				"key":     fmt.Sprintf("tile:%d-%d", x, y),
				"x":       x,
				"y":       y,
				"terrain": terrains[rng.IntN(len(terrains))].Key,
			})
		}
	}

	var firstPlayer world.Key
	for i, name := range cfg.Players {
		playerKey := world.MakeKey("player", uuid.NewString())
		if i == 0 {
			firstPlayer = playerKey
		}
		records = append(records,
			world.Raw{
				"key":  string(playerKey),
				"name": norm.NFC.String(name),
				"ai":   i > 0,
			},
			world.Raw{
				"key":    "research:" + uuid.NewString(),
				"player": string(playerKey),
			},
			world.Raw{
				"key":    "government:" + uuid.NewString(),
				"player": string(playerKey),
				"form":   forms[0].Key,
			},
			world.Raw{
				"key":    "culture:" + uuid.NewString(),
				"player": string(playerKey),
			},
		)
	}

	if err := d.Bucket.SetRaw(records); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	d.Bucket.SetWorld(world.WorldState{
		ID:               uuid.NewString(),
		Size:             world.Size{X: cfg.Width, Y: cfg.Height},
		Turn:             0,
		Year:             YearForTurn(0),
		CurrentPlayerKey: firstPlayer,
	})
	return nil
}
