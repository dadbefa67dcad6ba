// Package kv is the durable byte store the entity maps are written through.
// Every collection lives in its own namespace so they can share one backend.
package kv

import (
	"context"
	"errors"
	"fmt"
)

// Namespace addresses one keyed collection inside a Store.
type Namespace uint8

const (
	NSCounter             Namespace = 0
	NSAirstrips           Namespace = 10
	NSFlights             Namespace = 11
	NSPilots              Namespace = 12
	NSMaintenanceSchedule Namespace = 13
	NSPilotSchedules      Namespace = 14
	NSEmergencyProtocols  Namespace = 15
	NSFuelInventories     Namespace = 16
	NSRevenues            Namespace = 17
	NSEvents              Namespace = 20
)

// Namespaces lists every namespace in a fixed order. Snapshots rely on it.
var Namespaces = []Namespace{
	NSCounter,
	NSAirstrips,
	NSFlights,
	NSPilots,
	NSMaintenanceSchedule,
	NSPilotSchedules,
	NSEmergencyProtocols,
	NSFuelInventories,
	NSRevenues,
	NSEvents,
}

var names = map[Namespace]string{
	NSCounter:             "counter",
	NSAirstrips:           "airstrips",
	NSFlights:             "flights",
	NSPilots:              "pilots",
	NSMaintenanceSchedule: "maintenance_schedules",
	NSPilotSchedules:      "pilot_schedules",
	NSEmergencyProtocols:  "emergency_protocols",
	NSFuelInventories:     "fuel_inventories",
	NSRevenues:            "revenues",
	NSEvents:              "events",
}

func (n Namespace) String() string {
	if s, ok := names[n]; ok {
		return s
	}
	return fmt.Sprintf("ns(%d)", uint8(n))
}

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("kv: key not found")
	// ErrConflict is returned by Update when concurrent writers kept
	// invalidating the transaction.
	ErrConflict = errors.New("kv: concurrent update")
)

// Reader is the read side shared by stores and transactions.
type Reader interface {
	Get(ctx context.Context, ns Namespace, key uint64) ([]byte, error)
	Has(ctx context.Context, ns Namespace, key uint64) (bool, error)
	// Scan visits every entry of ns in ascending key order. Returning a
	// non-nil error from fn stops the scan and Scan returns that error.
	Scan(ctx context.Context, ns Namespace, fn func(key uint64, val []byte) error) error
}

// Txn is a write transaction. Reads observe the transaction's own writes.
type Txn interface {
	Reader
	Put(ctx context.Context, ns Namespace, key uint64, val []byte) error
}

// Store is a persistent namespaced byte store.
type Store interface {
	Reader
	// Update runs fn in a transaction. Writes become visible only if fn
	// returns nil and the commit succeeds. Updates are serializable against
	// other writers of the same backend, including other processes; fn may
	// be called more than once.
	Update(ctx context.Context, fn func(Txn) error) error
	Close() error
}
