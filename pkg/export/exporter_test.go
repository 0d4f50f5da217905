package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"retail-rfm/pkg/models"
)

func delivery() models.Delivery {
	return models.Delivery{
		DatasetID:   "abc123",
		GeneratedAt: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		Report:      models.CleaningReport{RawRows: 3, CleanedRows: 2, DroppedRows: 1},
		Customers: []models.CustomerRFM{{
			CustomerID: "17850",
			Frequency:  2,
			Monetary:   40.5,
			Recency:    3,
			Scores:     models.Scores{R: 5, F: 2, M: 3},
			RFMScore:   "523",
			Segment:    models.SegmentNewCustomers,
		}},
		Segments: []models.SegmentSummary{{Segment: models.SegmentNewCustomers, Customers: 1, Revenue: 40.5, CustomerShare: 1, RevenueShare: 1}},
	}
}

func TestTimestampedFilename(t *testing.T) {
	got := TimestampedFilename("reports", "rfm", time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC))
	if want := filepath.Join("reports", "rfm_20240305_140709.json"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestJSONSink_Deliver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink := NewJSONSink(dir)
	d := delivery()

	if err := sink.Deliver(context.Background(), d); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "rfm_20240305_140709.json"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var back models.Delivery
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if back.DatasetID != "abc123" || len(back.Customers) != 1 || back.Customers[0].RFMScore != "523" {
		t.Fatalf("unexpected export: %+v", back)
	}
	if back.Customers[0].R != 5 || back.Segments[0].Segment != models.SegmentNewCustomers {
		t.Fatalf("scores or segments lost: %+v", back)
	}
}

type fakeStore struct {
	exists  bool
	made    []string
	objects map[string][]byte
	putErr  error
}

func (f *fakeStore) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, _ := io.ReadAll(r)
	if int64(len(data)) != size || opts.ContentType != "application/json" {
		return minio.UploadInfo{}, errors.New("bad upload")
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[bucket+"/"+object] = data
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func TestArchiveSink_EnsureBucket(t *testing.T) {
	store := &fakeStore{}
	sink := &ArchiveSink{client: store, bucket: "rfm-reports"}
	if err := sink.ensureBucket(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(store.made) != 1 || store.made[0] != "rfm-reports" {
		t.Fatalf("bucket not created: %v", store.made)
	}

	existing := &fakeStore{exists: true}
	sink = &ArchiveSink{client: existing, bucket: "rfm-reports"}
	_ = sink.ensureBucket(context.Background())
	if len(existing.made) != 0 {
		t.Fatal("existing bucket recreated")
	}
}

func TestArchiveSink_Deliver(t *testing.T) {
	store := &fakeStore{exists: true}
	sink := &ArchiveSink{client: store, bucket: "rfm-reports"}
	if err := sink.Deliver(context.Background(), delivery()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	data, ok := store.objects["rfm-reports/abc123/rfm_20240305_140709.json"]
	if !ok {
		t.Fatalf("object not uploaded: %v", store.objects)
	}
	var back models.Delivery
	if err := json.Unmarshal(data, &back); err != nil || back.DatasetID != "abc123" {
		t.Fatalf("unexpected object: %v %s", err, data)
	}

	failing := &ArchiveSink{client: &fakeStore{putErr: errors.New("boom")}, bucket: "b"}
	if err := failing.Deliver(context.Background(), delivery()); err == nil {
		t.Fatal("expected upload error")
	}
}
