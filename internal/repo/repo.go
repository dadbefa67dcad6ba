package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"airstrip/internal/domain"
	"airstrip/internal/kv"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStopScan ends a Scan early without reporting an error.
	ErrStopScan = errors.New("stop scan")
)

// Map is a persistent mapping from identifier to one kind of record. Records
// are stored JSON encoded in their own namespace.
type Map[T any] struct {
	ns kv.Namespace
}

func NewMap[T any](ns kv.Namespace) Map[T] {
	return Map[T]{ns: ns}
}

// Insert writes rec at id, replacing any existing record.
func (m Map[T]) Insert(ctx context.Context, tx kv.Txn, id uint64, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s/%d: %w", m.ns, id, err)
	}
	return tx.Put(ctx, m.ns, id, data)
}

func (m Map[T]) Get(ctx context.Context, r kv.Reader, id uint64) (T, error) {
	var rec T
	data, err := r.Get(ctx, m.ns, id)
	if errors.Is(err, kv.ErrNotFound) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode %s/%d: %w", m.ns, id, err)
	}
	return rec, nil
}

func (m Map[T]) Contains(ctx context.Context, r kv.Reader, id uint64) (bool, error) {
	return r.Has(ctx, m.ns, id)
}

// Scan decodes records one at a time in ascending id order. fn may return
// ErrStopScan to end the traversal early.
func (m Map[T]) Scan(ctx context.Context, r kv.Reader, fn func(id uint64, rec T) error) error {
	err := r.Scan(ctx, m.ns, func(key uint64, val []byte) error {
		var rec T
		if err := json.Unmarshal(val, &rec); err != nil {
			return fmt.Errorf("decode %s/%d: %w", m.ns, key, err)
		}
		return fn(key, rec)
	})
	if errors.Is(err, ErrStopScan) {
		return nil
	}
	return err
}

// Filter collects the records keep accepts, in ascending id order.
func (m Map[T]) Filter(ctx context.Context, r kv.Reader, keep func(T) bool) ([]T, error) {
	out := []T{}
	err := m.Scan(ctx, r, func(_ uint64, rec T) error {
		if keep(rec) {
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update reads the record at id, applies mutate and writes it back.
func (m Map[T]) Update(ctx context.Context, tx kv.Txn, id uint64, mutate func(*T) error) (T, error) {
	rec, err := m.Get(ctx, tx, id)
	if err != nil {
		return rec, err
	}
	if err := mutate(&rec); err != nil {
		return rec, err
	}
	if err := m.Insert(ctx, tx, id, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Repo bundles every entity map over one byte store.
type Repo struct {
	Store kv.Store
	IDs   Allocator

	Airstrips            Map[domain.Airstrip]
	Flights              Map[domain.Flight]
	Pilots               Map[domain.Pilot]
	MaintenanceSchedules Map[domain.MaintenanceSchedule]
	PilotSchedules       Map[domain.PilotSchedule]
	EmergencyProtocols   Map[domain.EmergencyProtocol]
	FuelInventories      Map[domain.FuelInventory]
	Revenues             Map[domain.Revenue]
}

func New(store kv.Store) Repo {
	return Repo{
		Store:                store,
		IDs:                  Allocator{Key: EntityCounterKey},
		Airstrips:            NewMap[domain.Airstrip](kv.NSAirstrips),
		Flights:              NewMap[domain.Flight](kv.NSFlights),
		Pilots:               NewMap[domain.Pilot](kv.NSPilots),
		MaintenanceSchedules: NewMap[domain.MaintenanceSchedule](kv.NSMaintenanceSchedule),
		PilotSchedules:       NewMap[domain.PilotSchedule](kv.NSPilotSchedules),
		EmergencyProtocols:   NewMap[domain.EmergencyProtocol](kv.NSEmergencyProtocols),
		FuelInventories:      NewMap[domain.FuelInventory](kv.NSFuelInventories),
		Revenues:             NewMap[domain.Revenue](kv.NSRevenues),
	}
}

// Update runs fn in a single byte-store transaction.
func (r Repo) Update(ctx context.Context, fn func(tx kv.Txn) error) error {
	return r.Store.Update(ctx, fn)
}
