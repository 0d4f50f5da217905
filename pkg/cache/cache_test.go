package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"retail-rfm/pkg/models"
)

func dataset(id string, loaded time.Time) models.Dataset {
	return models.Dataset{
		ID: id,
		Table: models.Table{
			Schema: models.Schema{CustomerID: true},
			Rows: []models.Transaction{{
				InvoiceNo:   "536365",
				Quantity:    6,
				InvoiceDate: time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC),
				UnitPrice:   2.55,
				CustomerID:  models.Some("17850"),
				Revenue:     15.3,
			}},
		},
		Report:   models.CleaningReport{RawRows: 2, CleanedRows: 1, DroppedRows: 1, Dropped: models.DropReasons{Cancelled: 1}},
		LoadedAt: loaded,
	}
}

func TestKey(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Key([]byte("abc")); got != want {
		t.Fatalf("Key = %s, want %s", got, want)
	}
	if Key([]byte("a")) == Key([]byte("b")) {
		t.Fatal("distinct inputs share a key")
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	if err := store.Put(ctx, dataset("one", time.Now())); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Get(ctx, "one")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Table.Len() != 1 {
		t.Fatalf("got %d rows, want 1", got.Table.Len())
	}
	if _, ok, _ := store.Get(ctx, "missing"); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	base := time.Now()

	_ = store.Put(ctx, dataset("old", base))
	_ = store.Put(ctx, dataset("mid", base.Add(time.Minute)))
	_ = store.Put(ctx, dataset("new", base.Add(2*time.Minute)))

	if store.Count() != 2 {
		t.Fatalf("count = %d, want 2", store.Count())
	}
	if _, ok, _ := store.Get(ctx, "old"); ok {
		t.Fatal("oldest dataset not evicted")
	}
	if _, ok, _ := store.Get(ctx, "new"); !ok {
		t.Fatal("newest dataset evicted")
	}
}

func TestMemoryStore_Unlimited(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	for _, id := range []string{"a", "b", "c", "d"} {
		_ = store.Put(ctx, dataset(id, time.Now()))
	}
	if store.Count() != 4 {
		t.Fatalf("count = %d, want 4", store.Count())
	}
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	want := dataset("abc", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("rfm:dataset:abc") {
		t.Fatal("expected key rfm:dataset:abc")
	}
	if ttl := mr.TTL("rfm:dataset:abc"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}

	got, ok, err := store.Get(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	row := got.Table.Rows[0]
	if id, _ := row.CustomerID.Get(); id != "17850" || row.StockCode.Set {
		t.Fatalf("optional fields not preserved: %+v", row)
	}
	if got.Report.Dropped.Cancelled != 1 || !got.LoadedAt.Equal(want.LoadedAt) {
		t.Fatalf("report not preserved: %+v", got.Report)
	}
}

func TestRedisStore_Miss(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	if _, ok, err := store.Get(context.Background(), "nope"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)
	_ = store.Put(ctx, dataset("ttl", time.Now()))
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, "ttl"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = client.Close()

	if _, err := OpenRedis(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
