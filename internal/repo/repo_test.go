package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airstrip/internal/domain"
	"airstrip/internal/kv"
)

func TestAllocatorMonotonic(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	var got []uint64
	for i := 0; i < 5; i++ {
		err := r.Update(ctx, func(tx kv.Txn) error {
			id, err := r.IDs.Next(ctx, tx)
			got = append(got, id)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, got)

	cur, err := r.IDs.Current(ctx, r.Store)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), cur)
}

func TestAllocatorRolledBackWithTxn(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())
	boom := errors.New("boom")

	err := r.Update(ctx, func(tx kv.Txn) error {
		if _, err := r.IDs.Next(ctx, tx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	cur, err := r.IDs.Current(ctx, r.Store)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cur)
}

func TestAllocatorCountersIndependent(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())
	events := Allocator{Key: EventCounterKey}

	err := r.Update(ctx, func(tx kv.Txn) error {
		for i := 0; i < 3; i++ {
			if _, err := r.IDs.Next(ctx, tx); err != nil {
				return err
			}
		}
		id, err := events.Next(ctx, tx)
		assert.Equal(t, uint64(0), id)
		return err
	})
	require.NoError(t, err)
}

type failingTxn struct {
	kv.Txn
	getErr error
	putErr error
}

func (f failingTxn) Get(ctx context.Context, ns kv.Namespace, key uint64) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Txn.Get(ctx, ns, key)
}

func (f failingTxn) Put(ctx context.Context, ns kv.Namespace, key uint64, val []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Txn.Put(ctx, ns, key, val)
}

func TestAllocatorFaults(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	err := r.Update(ctx, func(tx kv.Txn) error {
		_, err := r.IDs.Next(ctx, failingTxn{Txn: tx, getErr: errors.New("disk gone")})
		return err
	})
	assert.ErrorIs(t, err, ErrCounterFault)

	err = r.Update(ctx, func(tx kv.Txn) error {
		_, err := r.IDs.Next(ctx, failingTxn{Txn: tx, putErr: errors.New("read only")})
		return err
	})
	assert.ErrorIs(t, err, ErrCounterFault)

	err = r.Update(ctx, func(tx kv.Txn) error {
		return tx.Put(ctx, kv.NSCounter, EntityCounterKey, []byte{1, 2})
	})
	require.NoError(t, err)
	_, err = r.IDs.Current(ctx, r.Store)
	assert.ErrorIs(t, err, ErrCounterFault)
}

func TestMapRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())
	in := domain.EmergencyProtocol{
		ID:               7,
		AirstripID:       1,
		ProtocolType:     "weather",
		Description:      "Severe storm",
		ContactNumbers:   []string{"+254700000000"},
		EvacuationRoutes: []string{"north gate", "hangar 2"},
		CreatedAt:        99,
	}
	require.NoError(t, r.Update(ctx, func(tx kv.Txn) error {
		return r.EmergencyProtocols.Insert(ctx, tx, in.ID, in)
	}))

	out, err := r.EmergencyProtocols.Get(ctx, r.Store, 7)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	ok, err := r.EmergencyProtocols.Contains(ctx, r.Store, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.EmergencyProtocols.Get(ctx, r.Store, 8)
	assert.ErrorIs(t, err, ErrNotFound)
	// maps do not share namespaces
	_, err = r.Airstrips.Get(ctx, r.Store, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func seedFlights(t *testing.T, r Repo, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.Update(ctx, func(tx kv.Txn) error {
		for i := 0; i < n; i++ {
			id, err := r.IDs.Next(ctx, tx)
			if err != nil {
				return err
			}
			status := domain.FlightScheduled
			if i%2 == 1 {
				status = domain.FlightCancelled
			}
			f := domain.Flight{ID: id, AirstripID: 1, FlightNumber: "KQ1", Destination: "Lamu", Status: status}
			if err := r.Flights.Insert(ctx, tx, id, f); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestMapScanAndFilter(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())
	seedFlights(t, r, 6)

	var ids []uint64
	require.NoError(t, r.Flights.Scan(ctx, r.Store, func(id uint64, f domain.Flight) error {
		assert.Equal(t, id, f.ID)
		ids = append(ids, id)
		return nil
	}))
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, ids)

	// early stop is not an error
	var first []uint64
	require.NoError(t, r.Flights.Scan(ctx, r.Store, func(id uint64, _ domain.Flight) error {
		first = append(first, id)
		if len(first) == 2 {
			return ErrStopScan
		}
		return nil
	}))
	assert.Equal(t, []uint64{0, 1}, first)

	scheduled, err := r.Flights.Filter(ctx, r.Store, func(f domain.Flight) bool {
		return f.Status == domain.FlightScheduled
	})
	require.NoError(t, err)
	require.Len(t, scheduled, 3)
	assert.Equal(t, uint64(0), scheduled[0].ID)
	assert.Equal(t, uint64(4), scheduled[2].ID)

	none, err := r.Pilots.Filter(ctx, r.Store, func(domain.Pilot) bool { return true })
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMapUpdate(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())
	seedFlights(t, r, 1)

	var updated domain.Flight
	require.NoError(t, r.Update(ctx, func(tx kv.Txn) error {
		var err error
		updated, err = r.Flights.Update(ctx, tx, 0, func(f *domain.Flight) error {
			f.Status = domain.FlightArrived
			return nil
		})
		return err
	}))
	assert.Equal(t, domain.FlightArrived, updated.Status)

	got, err := r.Flights.Get(ctx, r.Store, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.FlightArrived, got.Status)

	err = r.Update(ctx, func(tx kv.Txn) error {
		_, err := r.Flights.Update(ctx, tx, 42, func(*domain.Flight) error { return nil })
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// a rejected mutation leaves the record untouched
	reject := errors.New("reject")
	err = r.Update(ctx, func(tx kv.Txn) error {
		_, err := r.Flights.Update(ctx, tx, 0, func(f *domain.Flight) error {
			f.Status = domain.FlightCompleted
			return reject
		})
		return err
	})
	assert.ErrorIs(t, err, reject)
	got, err = r.Flights.Get(ctx, r.Store, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.FlightArrived, got.Status)
}
