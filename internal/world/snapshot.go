package world

import (
	"fmt"
	"time"
)

// SaveData is one full serialization of the entity graph, the world singleton
// and the RNG position: the save-file format and the shape restore consumes.
type SaveData struct {
	Name     string     `json:"name"`
	Time     int64      `json:"time"` // epoch milliseconds
	Version  string     `json:"version"`
	Objects  []Raw      `json:"objects"`
	World    WorldState `json:"world"`
	RNGState []byte     `json:"rngState,omitempty"`
}

// SaveData serializes the whole bucket. Objects are emitted sorted by key so
// two identical graphs serialize identically.
func (b *Bucket) SaveData(name, version string) (*SaveData, error) {
	objs := b.Objects()
	records := make([]Raw, 0, len(objs))
	for _, o := range objs {
		records = append(records, o.base().Raw())
	}
	rngState, err := b.rng.State()
	if err != nil {
		return nil, err
	}
	return &SaveData{
		Name:     name,
		Time:     time.Now().UnixMilli(),
		Version:  version,
		Objects:  records,
		World:    b.world,
		RNGState: rngState,
	}, nil
}

// Restore wholesale-replaces the live graph from a snapshot. Lifecycle hooks
// do not fire: a restore is resurrection, not creation.
func (b *Bucket) Restore(sd *SaveData) error {
	if b.journal != nil {
		return fmt.Errorf("cannot restore inside a transaction")
	}
	b.objects = make(map[Key]Object, len(sd.Objects))
	b.byClass = make(map[string]map[Key]Object)
	if _, err := b.loader.SetFromRaw(sd.Objects); err != nil {
		return fmt.Errorf("restore %q: %w", sd.Name, err)
	}
	b.world = sd.World
	if len(sd.RNGState) > 0 {
		if err := b.rng.SetState(sd.RNGState); err != nil {
			return fmt.Errorf("restore %q: %w", sd.Name, err)
		}
	}
	return nil
}
