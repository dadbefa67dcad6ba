package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airstrip/internal/engine"
	"airstrip/internal/kv"
)

func seed(t *testing.T, s kv.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx kv.Txn) error {
		if err := tx.Put(ctx, kv.NSCounter, 0, []byte{0, 0, 0, 0, 0, 0, 0, 3}); err != nil {
			return err
		}
		if err := tx.Put(ctx, kv.NSAirstrips, 0, []byte(`{"id":0,"name":"Wilson"}`)); err != nil {
			return err
		}
		if err := tx.Put(ctx, kv.NSFlights, 1, []byte(`{"id":1}`)); err != nil {
			return err
		}
		return tx.Put(ctx, kv.NSFlights, 2, []byte(`{"id":2}`))
	}))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := kv.NewMemoryStore()
	seed(t, src)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	snap, err := Export(ctx, src, at)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Count())
	assert.Len(t, snap.Namespaces, len(kv.Namespaces))

	data, err := Encode(snap)
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)

	dst := kv.NewMemoryStore()
	require.NoError(t, Import(ctx, dst, back, ImportOptions{}))
	got, err := dst.Get(ctx, kv.NSAirstrips, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":0,"name":"Wilson"}`, string(got))
	counter, err := dst.Get(ctx, kv.NSCounter, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 3}, counter)

	// a second import into a populated store is refused
	assert.ErrorIs(t, Import(ctx, dst, back, ImportOptions{}), ErrNotEmpty)
	assert.NoError(t, Import(ctx, dst, back, ImportOptions{Merge: true}))
}

func createAirstrip(t *testing.T, e *engine.Engine, name string) uint64 {
	t.Helper()
	a, err := e.CreateAirstrip(context.Background(), engine.CreateAirstripPayload{
		Name: name, Location: "Lamu", Contact: "+254 20 000", Email: "ops@lamu.test", Capacity: 2,
	})
	require.NoError(t, err)
	return a.ID
}

func TestMergeNeverRewindsCounters(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	e := engine.New(store)

	idA := createAirstrip(t, e, "A")
	snap, err := Export(ctx, store, time.Now())
	require.NoError(t, err)
	idB := createAirstrip(t, e, "B")

	require.NoError(t, Import(ctx, store, snap, ImportOptions{Merge: true}))
	idC := createAirstrip(t, e, "C")
	assert.Greater(t, idC, idB)

	for id, want := range map[uint64]string{idA: "A", idB: "B", idC: "C"} {
		a, err := e.GetAirstrip(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, a.Name)
	}
	evts, err := e.RecentEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, evts, 3)
}

func TestMergeRejectsCollidingRecords(t *testing.T) {
	ctx := context.Background()
	other := kv.NewMemoryStore()
	createAirstrip(t, engine.New(other), "Other")
	snap, err := Export(ctx, other, time.Now())
	require.NoError(t, err)

	store := kv.NewMemoryStore()
	e := engine.New(store)
	id := createAirstrip(t, e, "Live")
	before, err := Export(ctx, store, time.Now())
	require.NoError(t, err)

	err = Import(ctx, store, snap, ImportOptions{Merge: true})
	assert.ErrorIs(t, err, ErrCollision)

	after, err := Export(ctx, store, before.TakenAt)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	a, err := e.GetAirstrip(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Live", a.Name)
}

func TestImportRaisesCounterPastImportedKeys(t *testing.T) {
	ctx := context.Background()
	snap := Snapshot{Version: Version, Namespaces: []Namespace{
		{ID: kv.NSCounter, Entries: []Entry{{Key: 0, Value: []byte{0, 0, 0, 0, 0, 0, 0, 1}}}},
		{ID: kv.NSFlights, Entries: []Entry{{Key: 6, Value: []byte(`{"id":6}`)}}},
	}}
	store := kv.NewMemoryStore()
	require.NoError(t, Import(ctx, store, snap, ImportOptions{}))
	counter, err := store.Get(ctx, kv.NSCounter, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 7}, counter)

	bad := Snapshot{Version: Version, Namespaces: []Namespace{
		{ID: kv.NSCounter, Entries: []Entry{{Key: 0, Value: []byte{1}}}},
	}}
	assert.Error(t, Import(ctx, kv.NewMemoryStore(), bad, ImportOptions{}))
}

func TestImportRejectsUnknownShape(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, Import(ctx, kv.NewMemoryStore(), Snapshot{Version: 99}, ImportOptions{}))
	bad := Snapshot{Version: Version, Namespaces: []Namespace{{ID: kv.Namespace(200)}}}
	assert.Error(t, Import(ctx, kv.NewMemoryStore(), bad, ImportOptions{}))
}

func TestDirSink(t *testing.T) {
	ctx := context.Background()
	sink := DirSink{Dir: t.TempDir() + "/snaps"}
	name := Name(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "airstrip-20250301T120000Z.json", name)

	require.NoError(t, sink.Write(ctx, name, []byte(`{}`)))
	got, err := sink.Read(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	assert.Error(t, sink.Write(ctx, "../escape.json", []byte(`{}`)))
	_, err = sink.Read(ctx, "missing.json")
	assert.Error(t, err)
}

type fakeObjects struct {
	objects map[string][]byte
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestS3Sink(t *testing.T) {
	ctx := context.Background()
	fake := &fakeObjects{objects: map[string][]byte{}}
	sink := &S3Sink{client: fake, bucket: "ops", prefix: "backups/"}

	require.NoError(t, sink.Write(ctx, "a.json", []byte(`{"version":1}`)))
	assert.Contains(t, fake.objects, "ops/backups/a.json")
	got, err := sink.Read(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(got))

	_, err = sink.Read(ctx, "b.json")
	assert.Error(t, err)
}

func TestNewS3SinkRequiresBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.Error(t, err)
}
