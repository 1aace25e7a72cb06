// Package applovin implements the AppLovin reporting API source connector.
// It partitions the requested date range into fetch windows, drives a
// paginated request/response cycle per window, classifies HTTP outcomes into
// retriable and fatal failures, and streams decoded report rows to the
// caller while tracking pagination cursors and request counts.
package applovin

import (
	"context"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nova/pkg/clients"
	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/connector/base"
	"github.com/ajitpratap0/nova/pkg/connector/core"
	"github.com/ajitpratap0/nova/pkg/errors"
	"github.com/ajitpratap0/nova/pkg/metrics"
	"github.com/ajitpratap0/nova/pkg/pool"
	stringpool "github.com/ajitpratap0/nova/pkg/strings"
)

const (
	defaultBaseURL   = "https://r.applovin.com/"
	defaultRangeDays = 30
	defaultStream    = "reports"
	connectorVersion = "1.0.0"
	sourceName       = "applovin"
)

type applovinConfig struct {
	APIKey       string
	BaseURL      string
	StartDate    time.Time
	HasStartDate bool
	RangeDays    int
	Columns      []string // nil means the stream's default set
	Stream       streamDescriptor
}

// ApplovinSource extracts report rows from the AppLovin reporting API.
// One source processes one logical report stream, one window at a time, one
// page at a time. Consumption is pull-based: an unconsumed record channel
// blocks further requests.
type ApplovinSource struct {
	*base.BaseConnector

	config  *applovinConfig
	client  *clients.HTTPClient
	builder *requestBuilder
	schema  *core.Schema

	// now is swappable so window planning is testable across date boundaries.
	now func() time.Time

	requestCount     int64
	processedRecords int64
	lastWindow       string
	lastPage         int
	isComplete       bool
}

// NewApplovinSource creates a new AppLovin source connector.
func NewApplovinSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	return &ApplovinSource{
		BaseConnector: base.NewBaseConnector(sourceName, core.ConnectorTypeSource, connectorVersion),
		now:           time.Now,
	}, nil
}

// Initialize validates configuration and prepares the HTTP client. All
// configuration faults surface here, before any request is sent.
func (s *ApplovinSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := s.BaseConnector.Initialize(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize base connector")
	}

	if err := s.validateAndExtractConfig(cfg); err != nil {
		return err
	}

	httpCfg := clients.DefaultHTTPConfig()
	if cfg.Timeouts.Request > 0 {
		httpCfg.RequestTimeout = cfg.Timeouts.Request
	}
	if cfg.Reliability.RateLimitPerSec > 0 {
		httpCfg.RateLimit = float64(cfg.Reliability.RateLimitPerSec)
		httpCfg.RateBurst = cfg.Reliability.RateLimitPerSec * 2
	}
	httpCfg.CircuitBreakerEnabled = cfg.Reliability.CircuitBreaker
	s.client = clients.NewHTTPClient(httpCfg, s.GetLogger())

	columns := s.config.Columns
	if len(columns) == 0 {
		columns = s.config.Stream.Columns
	}
	s.builder = &requestBuilder{
		apiKey:  s.config.APIKey,
		baseURL: s.config.BaseURL,
		path:    s.config.Stream.Path,
		columns: columns,
		sortKey: s.config.Stream.ReplicationKey,
	}

	s.discoverSchema()

	if hc := s.GetHealthChecker(); hc != nil {
		hc.SetCheckFunc(s.Health)
	}

	s.UpdateHealth(true, map[string]interface{}{
		"stream":        s.config.Stream.Name,
		"columns_count": len(columns),
		"window_mode":   string(s.config.Stream.WindowMode),
	})

	s.GetLogger().Info("AppLovin source initialized",
		zap.String("stream", s.config.Stream.Name),
		zap.String("window_mode", string(s.config.Stream.WindowMode)),
		zap.Int("columns", len(columns)),
		zap.Int("report_range_days", s.config.RangeDays))

	return nil
}

// validateAndExtractConfig reads the connector configuration from
// Security.Credentials.
func (s *ApplovinSource) validateAndExtractConfig(cfg *config.BaseConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}

	properties := cfg.Security.Credentials
	if properties == nil {
		return errors.New(errors.ErrorTypeConfig, "credentials are required")
	}

	ac := &applovinConfig{
		BaseURL:   defaultBaseURL,
		RangeDays: defaultRangeDays,
	}

	if apiKey, ok := properties["api_key"]; ok && apiKey != "" {
		ac.APIKey = apiKey
	} else {
		return errors.New(errors.ErrorTypeConfig, "api_key is required")
	}

	if baseURL, ok := properties["base_url"]; ok && baseURL != "" {
		ac.BaseURL = baseURL
	}

	streamName := defaultStream
	if name, ok := properties["stream"]; ok && name != "" {
		streamName = name
	}
	stream, err := streamByName(streamName)
	if err != nil {
		return err
	}
	ac.Stream = stream

	if rangeDays, ok := properties["report_range_days"]; ok && rangeDays != "" {
		n, err := strconv.Atoi(rangeDays)
		if err != nil || n <= 0 {
			s.GetLogger().Warn("invalid report_range_days, using default",
				zap.String("value", rangeDays),
				zap.Int("default", defaultRangeDays))
		} else {
			ac.RangeDays = n
		}
	}

	if startDate, ok := properties["start_date"]; ok && startDate != "" {
		t, err := time.Parse(dateLayout, startDate)
		if err != nil {
			s.GetLogger().Warn("invalid start_date format, using report_range_days instead",
				zap.String("start_date", startDate))
		} else {
			ac.StartDate = t
			ac.HasStartDate = true
		}
	}

	if columnsStr, ok := properties["columns"]; ok && columnsStr != "" {
		cols := stringpool.Split(columnsStr, ",")
		for i, c := range cols {
			cols[i] = stringpool.TrimSpace(c)
		}
		ac.Columns = cols
	}

	s.config = ac
	return nil
}

// timeRange resolves the overall extraction range. start_date wins when set;
// otherwise the range reaches report_range_days into the past. The end is
// always the current time.
func (s *ApplovinSource) timeRange() (time.Time, time.Time) {
	end := s.now()
	if s.config.HasStartDate {
		return s.config.StartDate, end
	}
	return end.AddDate(0, 0, -s.config.RangeDays), end
}

// Discover returns the schema declared by the stream's column table.
func (s *ApplovinSource) Discover(ctx context.Context) (*core.Schema, error) {
	if s.schema == nil {
		if s.builder == nil {
			return nil, errors.New(errors.ErrorTypeConfig, "source is not initialized")
		}
		s.discoverSchema()
	}
	return s.schema, nil
}

func (s *ApplovinSource) discoverSchema() {
	columns := s.builder.columns

	primary := make(map[string]bool, len(s.config.Stream.PrimaryKeys))
	for _, pk := range s.config.Stream.PrimaryKeys {
		primary[pk] = true
	}

	schema := &core.Schema{
		Name:        stringpool.Sprintf("applovin_%s", s.config.Stream.Name),
		Description: stringpool.Sprintf("AppLovin reporting API data for the %s stream", s.config.Stream.Name),
		Fields:      make([]core.Field, 0, len(columns)),
	}

	for _, column := range columns {
		schema.Fields = append(schema.Fields, core.Field{
			Name:     column,
			Type:     columnFieldType(column),
			Nullable: !primary[column],
			Primary:  primary[column],
		})
	}

	s.schema = schema
}

func columnFieldType(column string) core.FieldType {
	switch {
	case column == "day":
		return core.FieldTypeDate
	case decimalColumns[column]:
		return core.FieldTypeDecimal
	case integerColumns[column]:
		return core.FieldTypeInt
	default:
		return core.FieldTypeString
	}
}

// Read streams report rows. Records are produced one page at a time; the
// goroutine blocks on the channel, so a consumer that stops pulling halts
// further requests.
func (s *ApplovinSource) Read(ctx context.Context) (*core.RecordStream, error) {
	bufferSize := 1000
	if cfg := s.GetConfig(); cfg != nil && cfg.Performance.BatchSize > 0 {
		bufferSize = cfg.Performance.BatchSize
	}

	recordsChan := make(chan *pool.Record, bufferSize)
	errorsChan := make(chan error, 1)

	stream := &core.RecordStream{
		Records: recordsChan,
		Errors:  errorsChan,
	}

	go func() {
		defer close(recordsChan)
		defer close(errorsChan)

		if err := s.extract(ctx, recordsChan); err != nil {
			errorsChan <- err
		}
	}()

	return stream, nil
}

// ReadBatch groups the record stream into batches.
func (s *ApplovinSource) ReadBatch(ctx context.Context, batchSize int) (*core.BatchStream, error) {
	batchesChan := make(chan []*pool.Record, 10)
	errorsChan := make(chan error, 1)

	stream := &core.BatchStream{
		Batches: batchesChan,
		Errors:  errorsChan,
	}

	recordsChan := make(chan *pool.Record, batchSize)

	go func() {
		defer close(recordsChan)
		if err := s.extract(ctx, recordsChan); err != nil {
			errorsChan <- err
		}
	}()

	go func() {
		defer close(batchesChan)
		defer close(errorsChan)

		batch := pool.GetBatchSlice(batchSize)
		for record := range recordsChan {
			batch = append(batch, record)

			if len(batch) >= batchSize {
				select {
				case batchesChan <- batch:
					batch = pool.GetBatchSlice(batchSize)
				case <-ctx.Done():
					return
				}
			}
		}

		if len(batch) > 0 {
			select {
			case batchesChan <- batch:
			case <-ctx.Done():
			}
		}
	}()

	return stream, nil
}

// extract visits windows in chronological order and, within a window, pages
// in cursor order. A fatal classification aborts the whole run; records
// already delivered stand.
func (s *ApplovinSource) extract(ctx context.Context, out chan<- *pool.Record) error {
	start, end := s.timeRange()
	windows := planWindows(start, end, s.config.Stream.WindowMode, s.config.Stream.MaxWindowDays, s.now())

	metrics.WindowsPlanned.WithLabelValues(sourceName, s.config.Stream.Name).Add(float64(len(windows)))

	s.GetLogger().Info("planned extraction windows",
		zap.Int("windows", len(windows)),
		zap.String("start", start.Format(dateLayout)),
		zap.String("end", end.Format(dateLayout)))

	for _, window := range windows {
		if err := s.extractWindow(ctx, window, out); err != nil {
			return err
		}
	}

	s.isComplete = true
	return nil
}

// extractWindow drives the request/classify/extract/advance loop for one
// window with fresh pagination state. A page without records terminates the
// window even when the server still hands back a token; that guards against
// an API bug that never signals completion through the token alone.
func (s *ApplovinSource) extractWindow(ctx context.Context, window TimeWindow, out chan<- *pool.Record) error {
	pg := newPaginator()
	pages := 0

	windowLabel := window.StartDate() + "/" + window.EndDate()
	if window.OpenEnded {
		windowLabel = window.StartDate() + "/now"
	}

	for !pg.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.RateLimit(ctx); err != nil {
			return err
		}

		spec := s.builder.Build(pg.Current(), window)
		s.logRequestParams(spec)

		body, err := s.exchange(ctx, spec)
		if err != nil {
			return err
		}

		page := extractPage(body, s.GetLogger())
		pages++
		s.lastWindow = windowLabel
		s.lastPage = pages
		metrics.PagesFetched.WithLabelValues(sourceName, s.config.Stream.Name).Inc()

		if len(page.Records) == 0 {
			s.GetLogger().Info(stringpool.Sprintf(
				"Pagination stopped after %d pages because no records were found in the last response", pages))
			pg.Finish()
			break
		}

		for _, row := range page.Records {
			record := s.convertToRecord(row, windowLabel, pages)

			select {
			case out <- record:
				atomic.AddInt64(&s.processedRecords, 1)
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		pg.Advance(page.NextPage)
	}

	return nil
}

// logRequestParams logs the parameters about to be sent, with the credential
// elided.
func (s *ApplovinSource) logRequestParams(spec RequestSpec) {
	fields := make([]zap.Field, 0, len(spec.Params))
	for _, p := range spec.Params {
		if p.Key == "api_key" {
			continue
		}
		fields = append(fields, zap.String(p.Key, p.Value))
	}
	s.GetLogger().Info("sending report request", fields...)
}

// exchange performs one HTTP exchange, counting every attempt against the
// request counter. Retriable outcomes are retried here with backoff;
// exhausted retries and fatal classifications come back as errors.
func (s *ApplovinSource) exchange(ctx context.Context, spec RequestSpec) ([]byte, error) {
	var body []byte

	op := func() error {
		atomic.AddInt64(&s.requestCount, 1)

		resp, err := s.client.Get(ctx, spec.URL, spec.Headers)
		if err != nil {
			metrics.APIRequests.WithLabelValues(sourceName, s.config.Stream.Name, outcomeRetriable).Inc()
			return errors.Wrap(err, errors.ErrorTypeConnection, "report request failed")
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			metrics.APIRequests.WithLabelValues(sourceName, s.config.Stream.Name, outcomeRetriable).Inc()
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body")
		}

		metrics.APIRequests.WithLabelValues(sourceName, s.config.Stream.Name, outcomeLabel(resp.StatusCode)).Inc()

		s.GetLogger().Info("report request completed",
			zap.String("url", spec.URL),
			zap.Int("status", resp.StatusCode))

		return classify(resp.StatusCode, body, spec.URL, s.GetLogger())
	}

	if err := s.GetErrorHandler().ExecuteWithRetry(ctx, op); err != nil {
		return nil, err
	}
	return body, nil
}

// convertToRecord maps one decoded report row onto a pooled record. Columns
// from the configured set come first; any extra fields in the row pass
// through verbatim.
func (s *ApplovinSource) convertToRecord(row map[string]interface{}, windowLabel string, page int) *pool.Record {
	record := pool.NewRecordFromPool(sourceName)

	seen := make(map[string]bool, len(s.builder.columns))
	for _, column := range s.builder.columns {
		if value, ok := row[column]; ok {
			record.SetData(column, value)
		}
		seen[column] = true
	}
	for key, value := range row {
		if !seen[key] {
			record.SetData(key, value)
		}
	}

	record.SetStreamID(s.config.Stream.Name)
	record.SetWindow(windowLabel)
	record.Metadata.Page = page
	record.SetTimestamp(time.Now())

	return record
}

// RequestCount returns the number of HTTP exchanges made in this run.
func (s *ApplovinSource) RequestCount() int64 {
	return atomic.LoadInt64(&s.requestCount)
}

// Close closes the source connector.
func (s *ApplovinSource) Close(ctx context.Context) error {
	s.GetLogger().Info("closing AppLovin source connector")

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.GetLogger().Warn("failed to close HTTP client", zap.Error(err))
		}
	}

	return s.BaseConnector.Close(ctx)
}

// ApplovinPosition implements core.Position for the AppLovin source.
type ApplovinPosition struct {
	Window           string `json:"window"`
	Page             int    `json:"page"`
	ProcessedRecords int64  `json:"processed_records"`
}

func (p *ApplovinPosition) String() string {
	return stringpool.Sprintf("window:%s,page:%d,records:%d", p.Window, p.Page, p.ProcessedRecords)
}

func (p *ApplovinPosition) Compare(other core.Position) int {
	otherPos, ok := other.(*ApplovinPosition)
	if !ok {
		return 0
	}
	switch {
	case p.ProcessedRecords < otherPos.ProcessedRecords:
		return -1
	case p.ProcessedRecords > otherPos.ProcessedRecords:
		return 1
	default:
		return 0
	}
}

// GetPosition returns the current position.
func (s *ApplovinSource) GetPosition() core.Position {
	return &ApplovinPosition{
		Window:           s.lastWindow,
		Page:             s.lastPage,
		ProcessedRecords: atomic.LoadInt64(&s.processedRecords),
	}
}

// SetPosition sets the position. Extraction is restartable only from
// scratch, so this only seeds reporting state.
func (s *ApplovinSource) SetPosition(position core.Position) error {
	if pos, ok := position.(*ApplovinPosition); ok {
		s.lastWindow = pos.Window
		s.lastPage = pos.Page
		s.processedRecords = pos.ProcessedRecords
	}
	return nil
}

// GetState returns the current state
func (s *ApplovinSource) GetState() core.State {
	streamName := ""
	if s.config != nil {
		streamName = s.config.Stream.Name
	}
	return core.State{
		"stream":            streamName,
		"last_window":       s.lastWindow,
		"last_page":         s.lastPage,
		"request_count":     atomic.LoadInt64(&s.requestCount),
		"processed_records": atomic.LoadInt64(&s.processedRecords),
		"is_complete":       s.isComplete,
	}
}

// SetState sets the state
func (s *ApplovinSource) SetState(state core.State) error {
	if window, ok := state["last_window"].(string); ok {
		s.lastWindow = window
	}
	if page, ok := state["last_page"].(int); ok {
		s.lastPage = page
	}
	if records, ok := state["processed_records"].(int64); ok {
		s.processedRecords = records
	}
	if complete, ok := state["is_complete"].(bool); ok {
		s.isComplete = complete
	}
	return nil
}

// SupportsIncremental returns true: date-bounded windows allow incremental
// extraction when the host tracks watermarks.
func (s *ApplovinSource) SupportsIncremental() bool {
	return true
}

// SupportsRealtime returns false: the reporting API is poll-only.
func (s *ApplovinSource) SupportsRealtime() bool {
	return false
}

// SupportsBatch returns true
func (s *ApplovinSource) SupportsBatch() bool {
	return true
}

// Health performs a health check.
func (s *ApplovinSource) Health(ctx context.Context) error {
	if s.config == nil || s.config.APIKey == "" {
		return errors.New(errors.ErrorTypeAuthentication, "no API key configured")
	}
	return s.BaseConnector.Health(ctx)
}

// Metrics returns connector metrics.
func (s *ApplovinSource) Metrics() map[string]interface{} {
	m := s.BaseConnector.Metrics()
	if s.config != nil {
		m["stream"] = s.config.Stream.Name
	}
	m["request_count"] = atomic.LoadInt64(&s.requestCount)
	m["processed_records"] = atomic.LoadInt64(&s.processedRecords)
	m["is_complete"] = s.isComplete
	return m
}
