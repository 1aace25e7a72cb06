package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/connector/core"
	"github.com/ajitpratap0/nova/pkg/pool"
)

// memorySource serves a fixed set of records through the Source interface.
type memorySource struct {
	records   []*pool.Record
	schema    *core.Schema
	readErr   error
	streamErr error
}

func (s *memorySource) Initialize(ctx context.Context, cfg *config.BaseConfig) error { return nil }

func (s *memorySource) Discover(ctx context.Context) (*core.Schema, error) {
	if s.schema != nil {
		return s.schema, nil
	}
	return &core.Schema{
		Name: "memory",
		Fields: []core.Field{
			{Name: "day", Type: core.FieldTypeDate, Primary: true},
			{Name: "campaign", Type: core.FieldTypeString},
			{Name: "impressions", Type: core.FieldTypeInt},
		},
	}, nil
}

func (s *memorySource) Read(ctx context.Context) (*core.RecordStream, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	records := make(chan *pool.Record, len(s.records))
	errors := make(chan error, 1)
	go func() {
		defer close(records)
		defer close(errors)
		for _, r := range s.records {
			select {
			case records <- r:
			case <-ctx.Done():
				return
			}
		}
		if s.streamErr != nil {
			errors <- s.streamErr
		}
	}()
	return &core.RecordStream{Records: records, Errors: errors}, nil
}

func (s *memorySource) ReadBatch(ctx context.Context, batchSize int) (*core.BatchStream, error) {
	return nil, fmt.Errorf("not supported")
}

func (s *memorySource) Close(ctx context.Context) error          { return nil }
func (s *memorySource) GetPosition() core.Position               { return nil }
func (s *memorySource) SetPosition(position core.Position) error { return nil }
func (s *memorySource) GetState() core.State                     { return nil }
func (s *memorySource) SetState(state core.State) error          { return nil }
func (s *memorySource) SupportsIncremental() bool                { return false }
func (s *memorySource) SupportsRealtime() bool                   { return false }
func (s *memorySource) SupportsBatch() bool                      { return true }
func (s *memorySource) Health(ctx context.Context) error         { return nil }
func (s *memorySource) Metrics() map[string]interface{}          { return nil }

// memoryDestination records everything written to it.
type memoryDestination struct {
	mu      sync.Mutex
	schema  *core.Schema
	batches [][]*pool.Record
}

func (d *memoryDestination) Initialize(ctx context.Context, cfg *config.BaseConfig) error { return nil }

func (d *memoryDestination) CreateSchema(ctx context.Context, schema *core.Schema) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.schema = schema
	return nil
}

func (d *memoryDestination) Write(ctx context.Context, stream *core.RecordStream) error {
	return fmt.Errorf("not supported")
}

func (d *memoryDestination) WriteBatch(ctx context.Context, stream *core.BatchStream) error {
	for {
		select {
		case batch, ok := <-stream.Batches:
			if !ok {
				return nil
			}
			copied := make([]*pool.Record, len(batch))
			copy(copied, batch)
			d.mu.Lock()
			d.batches = append(d.batches, copied)
			d.mu.Unlock()

		case err := <-stream.Errors:
			if err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *memoryDestination) Close(ctx context.Context) error  { return nil }
func (d *memoryDestination) SupportsBatch() bool              { return true }
func (d *memoryDestination) SupportsStreaming() bool          { return true }
func (d *memoryDestination) Health(ctx context.Context) error { return nil }
func (d *memoryDestination) Metrics() map[string]interface{}  { return nil }

func (d *memoryDestination) allRecords() []*pool.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*pool.Record
	for _, batch := range d.batches {
		out = append(out, batch...)
	}
	return out
}

func makeRecords(n int) []*pool.Record {
	records := make([]*pool.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, pool.NewRecord("memory", map[string]interface{}{
			"day":         "2026-08-01",
			"campaign":    fmt.Sprintf("campaign_%d", i),
			"impressions": i,
		}))
	}
	return records
}

func testPipelineConfig(batchSize, workers int) *PipelineConfig {
	return &PipelineConfig{
		BatchSize:     batchSize,
		WorkerCount:   workers,
		FlushInterval: 50 * time.Millisecond,
	}
}

func TestPipelineMovesRecordsEndToEnd(t *testing.T) {
	source := &memorySource{records: makeRecords(10)}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(100, 2), zap.NewNop())
	require.NoError(t, p.Run(context.Background()))

	got := dest.allRecords()
	require.Len(t, got, 10)

	campaigns := make([]string, 0, len(got))
	for _, r := range got {
		campaigns = append(campaigns, r.Data["campaign"].(string))
	}
	sort.Strings(campaigns)
	assert.Equal(t, "campaign_0", campaigns[0])
	assert.Equal(t, "campaign_9", campaigns[9])

	m := p.Metrics()
	assert.Equal(t, int64(10), m["records_processed"])
	assert.Equal(t, int64(0), m["records_failed"])
}

func TestPipelinePassesSchemaToDestination(t *testing.T) {
	source := &memorySource{records: makeRecords(1)}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(10, 1), zap.NewNop())
	require.NoError(t, p.Run(context.Background()))

	require.NotNil(t, dest.schema)
	assert.Equal(t, "memory", dest.schema.Name)
	require.Len(t, dest.schema.Fields, 3)
	assert.Equal(t, "day", dest.schema.Fields[0].Name)
}

func TestPipelineBatchesBySize(t *testing.T) {
	source := &memorySource{records: makeRecords(10)}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(4, 1), zap.NewNop())
	require.NoError(t, p.Run(context.Background()))

	dest.mu.Lock()
	defer dest.mu.Unlock()
	require.NotEmpty(t, dest.batches)
	total := 0
	for _, batch := range dest.batches {
		assert.LessOrEqual(t, len(batch), 4)
		total += len(batch)
	}
	assert.Equal(t, 10, total)
}

func TestPipelineFilterTransformDropsRecords(t *testing.T) {
	source := &memorySource{records: makeRecords(10)}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(100, 1), zap.NewNop())
	p.AddTransform(FilterTransform(func(r *pool.Record) bool {
		return r.Data["impressions"].(int)%2 == 0
	}))
	require.NoError(t, p.Run(context.Background()))

	got := dest.allRecords()
	require.Len(t, got, 5)
	for _, r := range got {
		assert.Zero(t, r.Data["impressions"].(int)%2)
	}
}

func TestPipelineFieldMapperTransform(t *testing.T) {
	source := &memorySource{records: makeRecords(3)}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(100, 1), zap.NewNop())
	p.AddTransform(FieldMapperTransform(map[string]string{"campaign": "campaign_name"}))
	require.NoError(t, p.Run(context.Background()))

	got := dest.allRecords()
	require.Len(t, got, 3)
	for _, r := range got {
		assert.NotContains(t, r.Data, "campaign")
		assert.Contains(t, r.Data, "campaign_name")
		assert.Contains(t, r.Data, "impressions")
	}
}

func TestPipelineTypeConverterTransform(t *testing.T) {
	source := &memorySource{records: makeRecords(3)}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(100, 1), zap.NewNop())
	p.AddTransform(TypeConverterTransform("impressions", func(v interface{}) (interface{}, error) {
		return int64(v.(int)) * 2, nil
	}))
	require.NoError(t, p.Run(context.Background()))

	got := dest.allRecords()
	require.Len(t, got, 3)
	doubled := make([]int64, 0, 3)
	for _, r := range got {
		doubled = append(doubled, r.Data["impressions"].(int64))
	}
	sort.Slice(doubled, func(i, j int) bool { return doubled[i] < doubled[j] })
	assert.Equal(t, []int64{0, 2, 4}, doubled)
}

func TestPipelineTransformErrorCountsAsFailure(t *testing.T) {
	source := &memorySource{records: makeRecords(4)}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(100, 1), zap.NewNop())
	p.AddTransform(func(ctx context.Context, r *pool.Record) (*pool.Record, error) {
		if r.Data["impressions"].(int) == 2 {
			return nil, fmt.Errorf("bad record")
		}
		return r, nil
	})
	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, dest.allRecords(), 3)

	m := p.Metrics()
	assert.Equal(t, int64(3), m["records_processed"])
	assert.Equal(t, int64(1), m["records_failed"])
}

func TestPipelineTransformOrder(t *testing.T) {
	source := &memorySource{records: makeRecords(6)}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(100, 1), zap.NewNop())
	// The filter must see the renamed field to prove insertion order.
	p.AddTransform(FieldMapperTransform(map[string]string{"impressions": "imps"}))
	p.AddTransform(FilterTransform(func(r *pool.Record) bool {
		return r.Data["imps"].(int) < 3
	}))
	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, dest.allRecords(), 3)
}

func TestPipelineDiscoverFailureAborts(t *testing.T) {
	source := &memorySource{schema: nil, readErr: nil}
	dest := &memoryDestination{}

	failing := &failingDiscoverSource{memorySource: source}
	p := NewSimplePipeline(failing, dest, testPipelineConfig(10, 1), zap.NewNop())
	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to discover source schema")
	assert.Nil(t, dest.schema)
}

type failingDiscoverSource struct {
	*memorySource
}

func (s *failingDiscoverSource) Discover(ctx context.Context) (*core.Schema, error) {
	return nil, fmt.Errorf("discovery unavailable")
}

func TestPipelineReadFailureSurfacesThroughErrorHandler(t *testing.T) {
	source := &memorySource{readErr: fmt.Errorf("stream unavailable")}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(10, 1), zap.NewNop())
	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, dest.allRecords())
}

func TestPipelineDrainsTerminalSourceError(t *testing.T) {
	observed, logs := observer.New(zap.ErrorLevel)
	source := &memorySource{records: makeRecords(2), streamErr: fmt.Errorf("quota exhausted")}
	dest := &memoryDestination{}

	p := NewSimplePipeline(source, dest, testPipelineConfig(10, 1), zap.New(observed))
	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, dest.allRecords(), 2)

	// The error is buffered when the record channel closes; it must still
	// surface instead of being lost to select ordering.
	entries := logs.FilterMessage("pipeline error").All()
	require.NotEmpty(t, entries, "terminal source error was dropped")
	assert.Contains(t, fmt.Sprintf("%v", entries[0].ContextMap()["error"]), "quota exhausted")
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	assert.Equal(t, 5000, cfg.BatchSize)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
}
