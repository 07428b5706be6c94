package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"github.com/mmynk/dutchpay/internal/models"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type fakeEndpoint struct {
	calls    int
	analysis *Analysis
	err      error
}

func (f *fakeEndpoint) Analyze(ctx context.Context, image []byte, filename, contentType string) (*Analysis, error) {
	f.calls++
	return f.analysis, f.err
}

type memoryArchive struct {
	keys []string
}

func (m *memoryArchive) Put(ctx context.Context, key, contentType string, image []byte) error {
	m.keys = append(m.keys, key)
	return nil
}

func TestDetectImage(t *testing.T) {
	if _, err := DetectImage(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("DetectImage(nil) error = %v, want ErrEmptyImage", err)
	}
	if _, err := DetectImage([]byte("plain text, not a photo")); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("DetectImage(text) error = %v, want ErrUnsupportedImage", err)
	}
	got, err := DetectImage(pngImage)
	if err != nil {
		t.Fatalf("DetectImage(png) error = %v", err)
	}
	if got != "image/png" {
		t.Errorf("DetectImage(png) = %s, want image/png", got)
	}
}

func TestPipeline_CachesSuccessfulAnalysis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCache(db, 10*time.Minute)

	analysis := &Analysis{
		TotalPrice: models.NewNumber(9000),
		Items:      []models.RawItem{{Name: "Bibimbap", Price: models.NewNumber(9000)}},
	}
	encoded, err := json.Marshal(analysis)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	key := cacheKeyPrefix + Digest(pngImage)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(encoded), 10*time.Minute).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(encoded))

	endpoint := &fakeEndpoint{analysis: analysis}
	archive := &memoryArchive{}
	var outcomes []string
	p := NewPipeline(endpoint,
		WithCache(cache),
		WithArchive(archive),
		WithObserver(func(outcome string, _ time.Duration) { outcomes = append(outcomes, outcome) }),
	)

	first, err := p.Analyze(context.Background(), pngImage, "receipt.png")
	if err != nil {
		t.Fatalf("first Analyze() error = %v", err)
	}
	second, err := p.Analyze(context.Background(), pngImage, "receipt.png")
	if err != nil {
		t.Fatalf("second Analyze() error = %v", err)
	}

	if endpoint.calls != 1 {
		t.Errorf("endpoint calls = %d, want 1", endpoint.calls)
	}
	if first.Total() != 9000 || second.Total() != 9000 {
		t.Errorf("totals = %v, %v, want 9000", first.Total(), second.Total())
	}
	if len(second.Items) != 1 || second.Items[0].Name != "Bibimbap" {
		t.Errorf("cached items = %+v", second.Items)
	}
	if len(archive.keys) != 1 || archive.keys[0] != Digest(pngImage)+".png" {
		t.Errorf("archived keys = %v", archive.keys)
	}
	if len(outcomes) != 2 || outcomes[0] != OutcomeOK || outcomes[1] != OutcomeCached {
		t.Errorf("outcomes = %v", outcomes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

type countingCache struct {
	sets int
}

func (c *countingCache) Get(ctx context.Context, digest string) (*Analysis, bool, error) {
	return nil, false, nil
}

func (c *countingCache) Set(ctx context.Context, digest string, analysis *Analysis) error {
	c.sets++
	return nil
}

func TestPipeline_DoesNotCacheRejections(t *testing.T) {
	endpoint := &fakeEndpoint{analysis: &Analysis{Error: "blurry photo"}}
	cache := &countingCache{}
	p := NewPipeline(endpoint, WithCache(cache))

	analysis, err := p.Analyze(context.Background(), pngImage, "receipt.png")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !errors.Is(analysis.Err(), ErrRejected) {
		t.Errorf("Err() = %v, want ErrRejected", analysis.Err())
	}
	if cache.sets != 0 {
		t.Errorf("rejected analysis cached %d times", cache.sets)
	}
}

func TestPipeline_RejectsInvalidUpload(t *testing.T) {
	endpoint := &fakeEndpoint{}
	p := NewPipeline(endpoint)

	if _, err := p.Analyze(context.Background(), []byte("hello"), "notes.txt"); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("Analyze() error = %v, want ErrUnsupportedImage", err)
	}
	if endpoint.calls != 0 {
		t.Errorf("endpoint called %d times for an invalid upload", endpoint.calls)
	}
}
