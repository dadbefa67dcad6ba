// Package snapshot copies every namespace of a store into a portable JSON
// document and back.
package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"airstrip/internal/kv"
	"airstrip/internal/repo"
)

const Version = 1

var (
	ErrNotEmpty = errors.New("target store is not empty")
	// ErrCollision means a merged entry would replace a different live
	// record under the same key.
	ErrCollision = errors.New("snapshot entry collides with an existing record")
)

type Snapshot struct {
	Version    int         `json:"version"`
	TakenAt    time.Time   `json:"taken_at"`
	Namespaces []Namespace `json:"namespaces"`
}

type Namespace struct {
	ID      kv.Namespace `json:"id"`
	Name    string       `json:"name"`
	Entries []Entry      `json:"entries"`
}

// Entry values are raw store bytes, base64 encoded in JSON.
type Entry struct {
	Key   uint64 `json:"key"`
	Value []byte `json:"value"`
}

// Count returns the number of entries across namespaces.
func (s Snapshot) Count() int {
	n := 0
	for _, ns := range s.Namespaces {
		n += len(ns.Entries)
	}
	return n
}

// Export reads every known namespace.
func Export(ctx context.Context, r kv.Reader, now time.Time) (Snapshot, error) {
	snap := Snapshot{Version: Version, TakenAt: now.UTC()}
	for _, ns := range kv.Namespaces {
		out := Namespace{ID: ns, Name: ns.String(), Entries: []Entry{}}
		err := r.Scan(ctx, ns, func(key uint64, val []byte) error {
			out.Entries = append(out.Entries, Entry{Key: key, Value: append([]byte(nil), val...)})
			return nil
		})
		if err != nil {
			return Snapshot{}, fmt.Errorf("export %s: %w", ns, err)
		}
		snap.Namespaces = append(snap.Namespaces, out)
	}
	return snap, nil
}

type ImportOptions struct {
	// Merge adds the snapshot to a populated store instead of refusing.
	// Entries already present with the same bytes are skipped and counters
	// never move backwards.
	Merge bool
}

// Import writes a snapshot in one store update. Afterwards every identifier
// counter is at least one past the highest key imported for it.
func Import(ctx context.Context, store kv.Store, snap Snapshot, opts ImportOptions) error {
	if snap.Version != Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	known := map[kv.Namespace]bool{}
	for _, ns := range kv.Namespaces {
		known[ns] = true
	}
	for _, ns := range snap.Namespaces {
		if !known[ns.ID] {
			return fmt.Errorf("unknown namespace %d in snapshot", ns.ID)
		}
	}
	return store.Update(ctx, func(tx kv.Txn) error {
		if !opts.Merge {
			empty, err := isEmpty(ctx, tx)
			if err != nil {
				return err
			}
			if !empty {
				return ErrNotEmpty
			}
		}
		floors := map[uint64]uint64{}
		raise := func(slot, next uint64) {
			if next > floors[slot] {
				floors[slot] = next
			}
		}
		for _, ns := range snap.Namespaces {
			for _, e := range ns.Entries {
				if ns.ID == kv.NSCounter {
					if len(e.Value) != 8 {
						return fmt.Errorf("counter %d in snapshot has %d bytes", e.Key, len(e.Value))
					}
					raise(e.Key, binary.BigEndian.Uint64(e.Value))
					continue
				}
				next := e.Key
				if next < math.MaxUint64 {
					next++
				}
				raise(counterSlot(ns.ID), next)
				if opts.Merge {
					skip, err := sameAsLive(ctx, tx, ns.ID, e)
					if err != nil {
						return err
					}
					if skip {
						continue
					}
				}
				if err := tx.Put(ctx, ns.ID, e.Key, e.Value); err != nil {
					return fmt.Errorf("import %s/%d: %w", ns.ID, e.Key, err)
				}
			}
		}
		for slot, floor := range floors {
			live, err := repo.Allocator{Key: slot}.Current(ctx, tx)
			if err != nil {
				return err
			}
			if floor <= live {
				continue
			}
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], floor)
			if err := tx.Put(ctx, kv.NSCounter, slot, buf[:]); err != nil {
				return fmt.Errorf("import counter %d: %w", slot, err)
			}
		}
		return nil
	})
}

// counterSlot names the counter that hands out keys in ns.
func counterSlot(ns kv.Namespace) uint64 {
	if ns == kv.NSEvents {
		return repo.EventCounterKey
	}
	return repo.EntityCounterKey
}

// sameAsLive reports whether e is already stored. A different live value
// under the same key is a collision.
func sameAsLive(ctx context.Context, r kv.Reader, ns kv.Namespace, e Entry) (bool, error) {
	live, err := r.Get(ctx, ns, e.Key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !bytes.Equal(live, e.Value) {
		return false, fmt.Errorf("%w: %s/%d", ErrCollision, ns, e.Key)
	}
	return true, nil
}

var errFound = errors.New("found")

func isEmpty(ctx context.Context, r kv.Reader) (bool, error) {
	for _, ns := range kv.Namespaces {
		err := r.Scan(ctx, ns, func(uint64, []byte) error { return errFound })
		if errors.Is(err, errFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func Encode(snap Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

func Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Name is the default object name for a snapshot taken at t.
func Name(t time.Time) string {
	return "airstrip-" + t.UTC().Format("20060102T150405Z") + ".json"
}
