// Package pipeline provides the execution engine that moves report records
// from a source connector to a destination connector.
//
// The flow is: a source reader streams records, transform workers apply
// optional in-flight modifications in parallel, a batch collector groups
// records, and a destination writer persists them. Channels carry the data
// between stages so backpressure propagates naturally.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nova/pkg/connector/core"
	"github.com/ajitpratap0/nova/pkg/metrics"
	"github.com/ajitpratap0/nova/pkg/pool"
)

// SimplePipeline orchestrates data flow from a source to a destination with
// optional transformations applied along the way.
type SimplePipeline struct {
	source      core.Source
	destination core.Destination
	transforms  []Transform

	batchSize     int
	workerCount   int
	flushInterval time.Duration
	sourceName    string
	destName      string

	recordsProcessed int64
	recordsFailed    int64
	startTime        time.Time

	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// Transform modifies records in-flight. Returning nil filters the record
// out; transforms run sequentially in the order they were added.
type Transform func(ctx context.Context, record *pool.Record) (*pool.Record, error)

// PipelineConfig controls batching and parallelism.
type PipelineConfig struct {
	BatchSize     int
	WorkerCount   int
	FlushInterval time.Duration

	// SourceName and DestinationName label pipeline metrics. They default
	// to "source" and "destination" when empty.
	SourceName      string
	DestinationName string
}

// DefaultPipelineConfig returns a configuration suitable for typical report
// extraction runs.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		BatchSize:     5000,
		WorkerCount:   4,
		FlushInterval: 10 * time.Second,
	}
}

// NewSimplePipeline creates a pipeline. It is initialized but not started;
// call Run to begin processing.
func NewSimplePipeline(source core.Source, destination core.Destination, config *PipelineConfig, logger *zap.Logger) *SimplePipeline {
	if config == nil {
		config = DefaultPipelineConfig()
	}
	sourceName := config.SourceName
	if sourceName == "" {
		sourceName = "source"
	}
	destName := config.DestinationName
	if destName == "" {
		destName = "destination"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &SimplePipeline{
		source:        source,
		destination:   destination,
		transforms:    []Transform{},
		batchSize:     config.BatchSize,
		workerCount:   config.WorkerCount,
		flushInterval: config.FlushInterval,
		sourceName:    sourceName,
		destName:      destName,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// AddTransform appends a transformation. Transforms run in insertion order.
func (p *SimplePipeline) AddTransform(transform Transform) {
	p.transforms = append(p.transforms, transform)
}

// Run executes the pipeline until the source is exhausted or the context is
// cancelled. It blocks until all stages have drained.
func (p *SimplePipeline) Run(ctx context.Context) error {
	p.startTime = time.Now()
	p.logger.Info("starting pipeline",
		zap.Int("batch_size", p.batchSize),
		zap.Int("worker_count", p.workerCount),
		zap.Int("transforms", len(p.transforms)))

	schema, err := p.source.Discover(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover source schema: %w", err)
	}
	if err := p.destination.CreateSchema(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize destination schema: %w", err)
	}

	recordChan := make(chan *pool.Record, p.batchSize*2)
	transformedChan := make(chan *pool.Record, p.batchSize*2)
	batchChan := make(chan []*pool.Record, 10)
	errorChan := make(chan error, 100)

	p.wg.Add(1)
	go p.readSource(ctx, recordChan, errorChan)

	transformWg := &sync.WaitGroup{}
	for i := 0; i < p.workerCount; i++ {
		transformWg.Add(1)
		go func(id int) {
			defer transformWg.Done()
			p.transformWorker(ctx, id, recordChan, transformedChan, errorChan)
		}(i)
	}

	// Transformed channel closes once every worker has drained its input.
	go func() {
		transformWg.Wait()
		close(transformedChan)
	}()

	p.wg.Add(1)
	go p.batchCollector(ctx, transformedChan, batchChan)

	p.wg.Add(1)
	go p.writeDestination(ctx, batchChan, errorChan)

	// The error handler runs outside the wait group so closing errorChan
	// after wg.Wait cannot deadlock.
	errorHandlerDone := make(chan struct{})
	go func() {
		p.errorHandler(ctx, errorChan)
		close(errorHandlerDone)
	}()

	p.wg.Wait()
	close(errorChan)
	<-errorHandlerDone

	duration := time.Since(p.startTime)
	throughput := float64(p.recordsProcessed) / duration.Seconds()

	p.logger.Info("pipeline completed",
		zap.Int64("records_processed", p.recordsProcessed),
		zap.Int64("records_failed", p.recordsFailed),
		zap.Duration("duration", duration),
		zap.Float64("throughput_rps", throughput))

	return nil
}

func (p *SimplePipeline) readSource(ctx context.Context, recordChan chan<- *pool.Record, errorChan chan<- error) {
	defer p.wg.Done()
	defer close(recordChan)

	stream, err := p.source.Read(ctx)
	if err != nil {
		errorChan <- fmt.Errorf("failed to start source read: %w", err)
		return
	}

	for {
		select {
		case record, ok := <-stream.Records:
			if !ok {
				// A terminal source error may still be pending; the select
				// picks between a closed channel and a buffered error at
				// random, so drain explicitly before exiting.
				for err := range stream.Errors {
					if err != nil {
						errorChan <- fmt.Errorf("source error: %w", err)
					}
				}
				p.logger.Info("source stream closed")
				return
			}
			select {
			case recordChan <- record:
			case <-ctx.Done():
				return
			}

		case err := <-stream.Errors:
			if err != nil {
				errorChan <- fmt.Errorf("source error: %w", err)
			}

		case <-ctx.Done():
			p.logger.Info("source reader cancelled")
			return
		}
	}
}

func (p *SimplePipeline) transformWorker(ctx context.Context, id int, in <-chan *pool.Record, out chan<- *pool.Record, errorChan chan<- error) {
	logger := p.logger.With(zap.Int("worker", id))

	for {
		select {
		case record, ok := <-in:
			if !ok {
				logger.Debug("input channel closed, worker exiting")
				return
			}

			transformed := record
			for i, transform := range p.transforms {
				result, err := transform(ctx, transformed)
				if err != nil {
					errorChan <- fmt.Errorf("transform %d failed: %w", i, err)
					p.mu.Lock()
					p.recordsFailed++
					p.mu.Unlock()
					metrics.RecordsProcessed.WithLabelValues(p.sourceName, p.destName, "failure").Inc()
					transformed = nil
					break
				}
				transformed = result
				if transformed == nil {
					break
				}
			}

			if transformed != nil {
				select {
				case out <- transformed:
				case <-ctx.Done():
					return
				}
			}

		case <-ctx.Done():
			logger.Debug("transform worker cancelled")
			return
		}
	}
}

func (p *SimplePipeline) batchCollector(ctx context.Context, in <-chan *pool.Record, out chan<- []*pool.Record) {
	defer p.wg.Done()
	defer close(out)

	batch := pool.GetBatchSlice(p.batchSize)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// The consumer is responsible for returning the batch to
			// the pool once written.
			select {
			case out <- batch:
				batch = pool.GetBatchSlice(p.batchSize)
			case <-ctx.Done():
			}
		}
	}

	for {
		select {
		case record, ok := <-in:
			if !ok {
				flush()
				p.logger.Info("batch collector finished")
				return
			}

			batch = append(batch, record)
			if len(batch) >= p.batchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-ctx.Done():
			flush()
			p.logger.Info("batch collector cancelled")
			return
		}
	}
}

func (p *SimplePipeline) writeDestination(ctx context.Context, batchChan <-chan []*pool.Record, errorChan chan<- error) {
	defer p.wg.Done()

	destBatchChan := make(chan []*pool.Record, 10)
	destErrorChan := make(chan error, 10)

	batchStream := &core.BatchStream{
		Batches: destBatchChan,
		Errors:  destErrorChan,
	}

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		if err := p.destination.WriteBatch(ctx, batchStream); err != nil {
			errorChan <- fmt.Errorf("destination write failed: %w", err)
		}
	}()

	for {
		select {
		case batch, ok := <-batchChan:
			if !ok {
				close(destBatchChan)
				<-writeDone
				p.logger.Info("destination writer finished")
				return
			}

			select {
			case destBatchChan <- batch:
				p.mu.Lock()
				p.recordsProcessed += int64(len(batch))
				p.mu.Unlock()
				metrics.RecordsProcessed.WithLabelValues(p.sourceName, p.destName, "success").
					Add(float64(len(batch)))

			case <-ctx.Done():
				close(destBatchChan)
				return
			}

		case err := <-destErrorChan:
			if err != nil {
				errorChan <- err
			}

		case <-ctx.Done():
			close(destBatchChan)
			p.logger.Info("destination writer cancelled")
			return
		}
	}
}

func (p *SimplePipeline) errorHandler(ctx context.Context, errorChan <-chan error) {
	for {
		select {
		case err, ok := <-errorChan:
			if !ok {
				return
			}
			if err != nil {
				p.logger.Error("pipeline error", zap.Error(err))
			}

		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the pipeline and waits for in-flight stages to drain.
func (p *SimplePipeline) Stop() {
	p.logger.Info("stopping pipeline")
	p.cancel()
	p.wg.Wait()
}

// Metrics returns pipeline level statistics.
func (p *SimplePipeline) Metrics() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	duration := time.Since(p.startTime)
	throughput := float64(p.recordsProcessed) / duration.Seconds()

	return map[string]interface{}{
		"records_processed": p.recordsProcessed,
		"records_failed":    p.recordsFailed,
		"duration":          duration.String(),
		"throughput_rps":    throughput,
		"worker_count":      p.workerCount,
		"batch_size":        p.batchSize,
		"flush_interval_ms": p.flushInterval.Milliseconds(),
		"transform_count":   len(p.transforms),
	}
}

// FieldMapperTransform renames record fields according to the provided
// mapping. Unmapped fields are preserved.
func FieldMapperTransform(mapping map[string]string) Transform {
	return func(ctx context.Context, record *pool.Record) (*pool.Record, error) {
		if record.Data == nil {
			return record, nil
		}

		newData := pool.GetMap()
		for oldField, newField := range mapping {
			if value, ok := record.Data[oldField]; ok {
				newData[newField] = value
			}
		}
		for field, value := range record.Data {
			if _, mapped := mapping[field]; !mapped {
				newData[field] = value
			}
		}

		record.Data = newData
		return record, nil
	}
}

// FilterTransform drops records that do not satisfy the predicate.
func FilterTransform(predicate func(*pool.Record) bool) Transform {
	return func(ctx context.Context, record *pool.Record) (*pool.Record, error) {
		if predicate(record) {
			return record, nil
		}
		return nil, nil
	}
}

// TypeConverterTransform converts the value of a single field using the
// provided converter.
func TypeConverterTransform(field string, converter func(interface{}) (interface{}, error)) Transform {
	return func(ctx context.Context, record *pool.Record) (*pool.Record, error) {
		if record.Data == nil {
			return record, nil
		}
		if value, ok := record.Data[field]; ok {
			converted, err := converter(value)
			if err != nil {
				return nil, fmt.Errorf("failed to convert field %s: %w", field, err)
			}
			record.Data[field] = converted
		}
		return record, nil
	}
}
