package applovin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/errors"
	"github.com/ajitpratap0/nova/pkg/pool"
	stringpool "github.com/ajitpratap0/nova/pkg/strings"
)

func newTestConfig(baseURL string, extra map[string]string) *config.BaseConfig {
	cfg := config.NewBaseConfig("applovin", "applovin")
	cfg.Security.Credentials = map[string]string{
		"api_key":  "test-key",
		"base_url": baseURL,
	}
	for k, v := range extra {
		cfg.Security.Credentials[k] = v
	}
	cfg.Reliability.RetryDelay = time.Millisecond
	cfg.Reliability.CircuitBreaker = false
	cfg.Reliability.HealthCheck = false
	return cfg
}

func newTestSource(t *testing.T, cfg *config.BaseConfig) *ApplovinSource {
	t.Helper()

	source, err := NewApplovinSource("applovin", cfg)
	require.NoError(t, err)
	require.NoError(t, source.Initialize(context.Background(), cfg))

	src, ok := source.(*ApplovinSource)
	require.True(t, ok)
	t.Cleanup(func() { _ = src.Close(context.Background()) })
	return src
}

func drainStream(t *testing.T, src *ApplovinSource) ([]*pool.Record, error) {
	t.Helper()

	stream, err := src.Read(context.Background())
	require.NoError(t, err)

	var records []*pool.Record
	for record := range stream.Records {
		records = append(records, record)
	}
	return records, <-stream.Errors
}

func TestInitialize_ConfigValidation(t *testing.T) {
	t.Run("missing api_key", func(t *testing.T) {
		cfg := newTestConfig("http://localhost", nil)
		delete(cfg.Security.Credentials, "api_key")

		source, err := NewApplovinSource("applovin", cfg)
		require.NoError(t, err)
		err = source.Initialize(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_key is required")
	})

	t.Run("unknown stream", func(t *testing.T) {
		cfg := newTestConfig("http://localhost", map[string]string{"stream": "nope"})

		source, err := NewApplovinSource("applovin", cfg)
		require.NoError(t, err)
		err = source.Initialize(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown report stream")
	})

	t.Run("invalid report_range_days falls back to default", func(t *testing.T) {
		cfg := newTestConfig("http://localhost", map[string]string{"report_range_days": "abc"})
		src := newTestSource(t, cfg)
		assert.Equal(t, defaultRangeDays, src.config.RangeDays)
	})

	t.Run("invalid start_date falls back to report_range_days", func(t *testing.T) {
		cfg := newTestConfig("http://localhost", map[string]string{
			"start_date":        "08/01/2026",
			"report_range_days": "7",
		})
		src := newTestSource(t, cfg)
		assert.False(t, src.config.HasStartDate)
		assert.Equal(t, 7, src.config.RangeDays)
	})

	t.Run("custom columns are trimmed", func(t *testing.T) {
		cfg := newTestConfig("http://localhost", map[string]string{"columns": "day, campaign , cost"})
		src := newTestSource(t, cfg)
		assert.Equal(t, []string{"day", "campaign", "cost"}, src.config.Columns)
	})
}

func TestDiscover(t *testing.T) {
	cfg := newTestConfig("http://localhost", nil)
	src := newTestSource(t, cfg)

	schema, err := src.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "applovin_reports", schema.Name)
	require.Len(t, schema.Fields, len(src.config.Stream.Columns))

	fieldsByName := map[string]int{}
	for i, f := range schema.Fields {
		fieldsByName[f.Name] = i
	}

	day := schema.Fields[fieldsByName["day"]]
	assert.True(t, day.Primary)
	assert.False(t, day.Nullable)

	cost := schema.Fields[fieldsByName["cost"]]
	assert.Equal(t, "decimal", string(cost.Type))
	assert.False(t, cost.Primary)
}

func TestRead_DailyChunkWindowsInOrder(t *testing.T) {
	var starts []string
	var ends []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		starts = append(starts, q.Get("start"))
		ends = append(ends, q.Get("end"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results":[{"day":"` + q.Get("start") + `","hour":1,"campaign":"c"}]}`))
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL, map[string]string{
		"stream":     "ad_reports",
		"start_date": "2026-08-26",
	})
	src := newTestSource(t, cfg)
	src.now = func() time.Time { return date(2026, 8, 29) }

	records, err := drainStream(t, src)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	assert.Equal(t, []string{"2026-08-26", "2026-08-27", "2026-08-28"}, starts)
	assert.Equal(t, []string{"2026-08-27", "2026-08-28", "now"}, ends, "final window extends to the current time")

	assert.EqualValues(t, 3, src.RequestCount())
	assert.True(t, src.GetState()["is_complete"].(bool))
}

func TestRead_PaginationFollowsTokens(t *testing.T) {
	var pages []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		w.WriteHeader(http.StatusOK)
		switch page {
		case "":
			_, _ = w.Write([]byte(`{"results":[{"day":"2026-08-01","campaign":"a"}],"next_page":"2"}`))
		case "2":
			_, _ = w.Write([]byte(`{"results":[{"day":"2026-08-01","campaign":"b"}],"next_page":"3"}`))
		default:
			_, _ = w.Write([]byte(`{"results":[{"day":"2026-08-01","campaign":"c"}]}`))
		}
	}))
	defer server.Close()

	src := newTestSource(t, newTestConfig(server.URL, nil))

	records, err := drainStream(t, src)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"", "2", "3"}, pages)
	assert.Equal(t, "a", records[0].Data["campaign"])
	assert.Equal(t, "b", records[1].Data["campaign"])
	assert.Equal(t, "c", records[2].Data["campaign"])

	// Record metadata carries stream, window and page provenance.
	assert.Equal(t, "reports", records[0].Metadata.StreamID)
	assert.Equal(t, 2, records[1].Metadata.Page)
}

func TestRead_EmptyPageStopsDespiteToken(t *testing.T) {
	var requests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusOK)
		if n == 1 {
			_, _ = w.Write([]byte(`{"results":[{"day":"2026-08-01"},{"day":"2026-08-02"}],"next_page":"2"}`))
			return
		}
		// Token present but no records: the window must terminate here.
		_, _ = w.Write([]byte(`{"results":[],"next_page":"2"}`))
	}))
	defer server.Close()

	src := newTestSource(t, newTestConfig(server.URL, nil))

	records, err := drainStream(t, src)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
	assert.EqualValues(t, 2, src.RequestCount())
}

func TestRead_FatalClientErrorIsNotRetried(t *testing.T) {
	var requests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such report"}`))
	}))
	defer server.Close()

	src := newTestSource(t, newTestConfig(server.URL, nil))

	records, err := drainStream(t, src)
	require.Error(t, err)
	assert.Empty(t, records)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
	assert.Contains(t, err.Error(), "404 Client Error")
	assert.EqualValues(t, 1, atomic.LoadInt32(&requests), "a definitive server answer must not be retried")
}

func TestRead_DecimalValuesSurviveToRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results":[{"day":"2026-08-01","cost":12.30,"sales":"99.9900"}]}`))
	}))
	defer server.Close()

	src := newTestSource(t, newTestConfig(server.URL, nil))

	records, err := drainStream(t, src)
	require.NoError(t, err)
	require.Len(t, records, 1)

	cost, ok := records[0].Data["cost"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, cost.Equal(decimal.RequireFromString("12.30")))
	assert.Equal(t, "12.30", stringpool.ValueToString(cost), "file sinks see the original scale")

	sales, ok := records[0].Data["sales"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, sales.Equal(decimal.RequireFromString("99.9900")))
	assert.Equal(t, "99.9900", stringpool.ValueToString(sales))
}

func TestReadBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results":[{"day":"1"},{"day":"2"},{"day":"3"},{"day":"4"},{"day":"5"}]}`))
	}))
	defer server.Close()

	src := newTestSource(t, newTestConfig(server.URL, nil))

	stream, err := src.ReadBatch(context.Background(), 2)
	require.NoError(t, err)

	var total int
	var batches int
	for batch := range stream.Batches {
		batches++
		total += len(batch)
		assert.LessOrEqual(t, len(batch), 2)
	}
	require.NoError(t, <-stream.Errors)

	assert.Equal(t, 5, total)
	assert.Equal(t, 3, batches)
}

func TestHealth(t *testing.T) {
	src := newTestSource(t, newTestConfig("http://localhost", nil))
	assert.NoError(t, src.Health(context.Background()))

	bare := &ApplovinSource{}
	err := bare.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeAuthentication, errors.TypeOf(err))
}

func TestPositionAndState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results":[{"day":"2026-08-01"}]}`))
	}))
	defer server.Close()

	src := newTestSource(t, newTestConfig(server.URL, nil))

	_, err := drainStream(t, src)
	require.NoError(t, err)

	pos, ok := src.GetPosition().(*ApplovinPosition)
	require.True(t, ok)
	assert.EqualValues(t, 1, pos.ProcessedRecords)
	assert.Equal(t, 1, pos.Page)

	state := src.GetState()
	assert.Equal(t, "reports", state["stream"])
	assert.EqualValues(t, 1, state["processed_records"])
	assert.True(t, state["is_complete"].(bool))
}

func TestCapabilities(t *testing.T) {
	src := newTestSource(t, newTestConfig("http://localhost", nil))
	assert.True(t, src.SupportsIncremental())
	assert.False(t, src.SupportsRealtime())
	assert.True(t, src.SupportsBatch())
}
