package world

import (
	"fmt"
	"sort"
)

// Journal is the transaction undo log. Instead of snapshotting the whole
// bucket per batch, every mutating path records the pre-image of each object
// the first time the transaction touches it; rollback replays those
// pre-images, so the cost of an aborted batch is proportional to what it
// touched, not to the size of the world.
type Journal struct {
	pre   map[Key]Raw // nil entry: object did not exist before the tx
	world *WorldState // nil: world singleton untouched
}

// Begin starts collecting pre-images. Exactly one journal may be active.
func (b *Bucket) Begin() (*Journal, error) {
	if b.journal != nil {
		return nil, fmt.Errorf("transaction already in progress")
	}
	j := &Journal{pre: make(map[Key]Raw)}
	b.journal = j
	return j, nil
}

// Commit ends the transaction, discarding the undo log.
func (b *Bucket) Commit(j *Journal) {
	if b.journal == j {
		b.journal = nil
	}
}

// Rollback restores every touched object and the world singleton to their
// pre-transaction state. Objects created inside the transaction are dropped;
// pre-existing ones are rebuilt wholesale from their pre-images, reciprocals
// included. After rollback the bucket is indistinguishable from its state
// before Begin.
func (b *Bucket) Rollback(j *Journal) error {
	if b.journal != j {
		return fmt.Errorf("journal is not the active transaction")
	}
	b.journal = nil

	keys := make([]Key, 0, len(j.pre))
	for k := range j.pre {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, jj int) bool { return keys[i] < keys[jj] })

	// Drop every touched object, then rebuild the survivors in one batch so
	// pre-image relations cross-link exactly as the originals did. Objects
	// outside the touched set were never modified.
	records := make([]Raw, 0, len(keys))
	for _, k := range keys {
		b.drop(k)
		if raw := j.pre[k]; raw != nil {
			records = append(records, raw)
		}
	}
	if _, err := b.loader.SetFromRaw(records); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	if j.world != nil {
		b.world = *j.world
	}
	return nil
}

func (j *Journal) capture(b *Bucket, key Key) {
	if _, done := j.pre[key]; done {
		return
	}
	if obj, ok := b.objects[key]; ok {
		j.pre[key] = obj.base().Raw()
	} else {
		j.pre[key] = nil
	}
}

func (j *Journal) captureWorld(b *Bucket) {
	if j.world == nil {
		w := b.world
		j.world = &w
	}
}
