// Package csv implements a CSV file destination for Nova report pipelines.
//
// Records are written row by row as they arrive from the source stream.
// The header row comes from the declared schema when one is available,
// otherwise from the column order of the first record.
package csv

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/connector/core"
	"github.com/ajitpratap0/nova/pkg/errors"
	"github.com/ajitpratap0/nova/pkg/logger"
	"github.com/ajitpratap0/nova/pkg/pool"
	stringpool "github.com/ajitpratap0/nova/pkg/strings"
)

// CSVDestination writes records to a CSV file.
type CSVDestination struct {
	config *config.BaseConfig
	logger *zap.Logger

	file    *os.File
	writer  *bufio.Writer
	rows    *stringpool.CSVBuilder
	headers []string
	schema  *core.Schema

	filePath       string
	delimiter      byte
	headersWritten bool

	recordsWritten int64
	mu             sync.Mutex
}

// NewCSVDestination creates a CSV destination from a base configuration.
func NewCSVDestination(cfg *config.BaseConfig) (core.Destination, error) {
	return &CSVDestination{
		config:    cfg,
		logger:    logger.With(zap.String("destination", "csv")),
		delimiter: ',',
	}, nil
}

// Initialize opens the output file and prepares the CSV writer.
func (d *CSVDestination) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	d.config = cfg

	if cfg.Security.Credentials == nil || cfg.Security.Credentials["path"] == "" {
		return errors.New(errors.ErrorTypeConfig, "missing required file path in security.credentials")
	}
	d.filePath = cfg.Security.Credentials["path"]

	if delim, ok := cfg.Security.Credentials["delimiter"]; ok && delim != "" {
		d.delimiter = delim[0]
	}

	dir := filepath.Dir(d.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
			WithDetail("dir", dir)
	}

	file, err := os.Create(d.filePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file").
			WithDetail("path", d.filePath)
	}
	d.file = file
	d.writer = bufio.NewWriter(file)
	d.rows = stringpool.NewCSVBuilder(cfg.Performance.BatchSize, 16)
	d.rows.SetDelimiter(d.delimiter)

	d.logger.Info("csv destination initialized",
		zap.String("path", d.filePath))
	return nil
}

// CreateSchema records the schema so the header row follows its field order.
func (d *CSVDestination) CreateSchema(ctx context.Context, schema *core.Schema) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.schema = schema
	if schema != nil && len(schema.Fields) > 0 {
		d.headers = make([]string, 0, len(schema.Fields))
		for _, field := range schema.Fields {
			d.headers = append(d.headers, field.Name)
		}
	}
	return nil
}

// Write consumes the record stream until it is drained or fails.
func (d *CSVDestination) Write(ctx context.Context, stream *core.RecordStream) error {
	for {
		select {
		case record, ok := <-stream.Records:
			if !ok {
				d.flush()
				return nil
			}
			if err := d.writeRecord(record); err != nil {
				return err
			}

		case err := <-stream.Errors:
			if err != nil {
				d.flush()
				return err
			}

		case <-ctx.Done():
			d.flush()
			return ctx.Err()
		}
	}
}

// WriteBatch consumes batches of records until the stream is drained.
func (d *CSVDestination) WriteBatch(ctx context.Context, stream *core.BatchStream) error {
	for {
		select {
		case batch, ok := <-stream.Batches:
			if !ok {
				d.flush()
				return nil
			}
			for _, record := range batch {
				if err := d.writeRecord(record); err != nil {
					return err
				}
			}

		case err := <-stream.Errors:
			if err != nil {
				d.flush()
				return err
			}

		case <-ctx.Done():
			d.flush()
			return ctx.Err()
		}
	}
}

func (d *CSVDestination) writeRecord(record *pool.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.headersWritten {
		if len(d.headers) == 0 {
			d.headers = make([]string, 0, len(record.Data))
			for key := range record.Data {
				d.headers = append(d.headers, key)
			}
		}
		d.rows.WriteHeader(d.headers)
		d.headersWritten = true
	}

	row := pool.GetStringSlice()
	defer pool.PutStringSlice(row)
	for _, header := range d.headers {
		value, exists := record.Data[header]
		if !exists {
			row = append(row, "")
			continue
		}
		row = append(row, stringpool.ValueToString(value))
	}
	d.rows.WriteRow(row)

	if _, err := d.rows.WriteTo(d.writer); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv row")
	}
	atomic.AddInt64(&d.recordsWritten, 1)
	return nil
}

func (d *CSVDestination) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer != nil {
		if err := d.writer.Flush(); err != nil {
			d.logger.Warn("csv flush failed", zap.Error(err))
		}
	}
}

// SupportsBatch reports whether batch writing is supported.
func (d *CSVDestination) SupportsBatch() bool { return true }

// SupportsStreaming reports whether streaming writes are supported.
func (d *CSVDestination) SupportsStreaming() bool { return true }

// Health verifies the destination can still accept writes.
func (d *CSVDestination) Health(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return errors.New(errors.ErrorTypeFile, "output file is not open")
	}
	return nil
}

// Close flushes buffered rows and closes the output file.
func (d *CSVDestination) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rows != nil {
		d.rows.Close()
		d.rows = nil
	}
	if d.writer != nil {
		if err := d.writer.Flush(); err != nil {
			d.logger.Warn("csv flush failed during close", zap.Error(err))
		}
		d.writer = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to close output file")
		}
		d.file = nil
	}

	d.logger.Info("csv destination closed",
		zap.String("path", d.filePath),
		zap.Int64("records_written", atomic.LoadInt64(&d.recordsWritten)))
	return nil
}

// Metrics returns destination level statistics.
func (d *CSVDestination) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"type":            "csv",
		"path":            d.filePath,
		"records_written": atomic.LoadInt64(&d.recordsWritten),
	}
}
