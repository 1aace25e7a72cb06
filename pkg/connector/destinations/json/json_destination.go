// Package json implements a JSON file destination for Nova report pipelines.
//
// Records are streamed to line-delimited JSON (the default) or a single
// JSON array. Output can optionally be compressed with any algorithm the
// compression package supports.
package json

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nova/pkg/compression"
	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/connector/core"
	"github.com/ajitpratap0/nova/pkg/errors"
	jsonpool "github.com/ajitpratap0/nova/pkg/json"
	"github.com/ajitpratap0/nova/pkg/logger"
	"github.com/ajitpratap0/nova/pkg/pool"
	stringpool "github.com/ajitpratap0/nova/pkg/strings"
)

// JSONFormat selects the output file layout.
type JSONFormat string

const (
	// JSONArray writes a single JSON array of objects.
	JSONArray JSONFormat = "array"
	// JSONLines writes line-delimited JSON (JSONL/NDJSON).
	JSONLines JSONFormat = "lines"
)

// JSONDestination writes records to a JSON file.
type JSONDestination struct {
	config *config.BaseConfig
	logger *zap.Logger

	file          *os.File
	writer        *bufio.Writer
	streamEncoder *jsonpool.StreamingEncoder
	schema        *core.Schema

	filePath   string
	format     JSONFormat
	bufferSize int
	pretty     bool
	indent     string

	compressionEnabled   bool
	compressionAlgorithm compression.Algorithm
	compressionLevel     compression.Level
	compressor           compression.Compressor
	compressionWriter    io.WriteCloser

	recordsWritten int64
	mu             sync.Mutex
}

// NewJSONDestination creates a JSON destination from a base configuration.
func NewJSONDestination(cfg *config.BaseConfig) (core.Destination, error) {
	return &JSONDestination{
		config: cfg,
		logger: logger.With(zap.String("destination", "json")),
		format: JSONLines,
		indent: "  ",
	}, nil
}

// Initialize opens the output file and prepares the streaming encoder.
func (d *JSONDestination) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	d.config = cfg

	if cfg.Security.Credentials == nil || cfg.Security.Credentials["path"] == "" {
		return errors.New(errors.ErrorTypeConfig, "missing required file path in security.credentials")
	}
	d.filePath = cfg.Security.Credentials["path"]

	if f, ok := cfg.Security.Credentials["format"]; ok && f != "" {
		switch JSONFormat(f) {
		case JSONArray, JSONLines:
			d.format = JSONFormat(f)
		default:
			return errors.New(errors.ErrorTypeConfig, "unsupported json format").
				WithDetail("format", f)
		}
	}

	if p, ok := cfg.Security.Credentials["pretty"]; ok && p == "true" {
		d.pretty = true
	}
	if i, ok := cfg.Security.Credentials["indent"]; ok && i != "" {
		d.indent = i
	}

	d.bufferSize = cfg.Performance.BufferSize
	if d.bufferSize <= 0 {
		d.bufferSize = 64 * 1024
	}

	if err := d.setupCompression(cfg); err != nil {
		return err
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

	var writer io.Writer = file
	if d.compressionEnabled && d.compressor != nil {
		cw := &compressionWriter{
			dest:       file,
			compressor: d.compressor,
			builder:    stringpool.GetBuilder(stringpool.Medium),
		}
		writer = cw
		d.compressionWriter = cw
	}

	d.writer = bufio.NewWriterSize(writer, d.bufferSize)
	d.streamEncoder = jsonpool.NewStreamingEncoder(d.writer, d.format == JSONArray)
	if d.pretty {
		d.streamEncoder.SetPretty(true, d.indent)
	}

	d.logger.Info("json destination initialized",
		zap.String("path", d.filePath),
		zap.String("format", string(d.format)),
		zap.Bool("compression", d.compressionEnabled))
	return nil
}

func (d *JSONDestination) setupCompression(cfg *config.BaseConfig) error {
	d.compressionEnabled = cfg.Advanced.EnableCompression
	if !d.compressionEnabled {
		return nil
	}

	d.compressionAlgorithm = compression.Gzip
	if cfg.Advanced.CompressionAlgorithm != "" {
		d.compressionAlgorithm = compression.Algorithm(cfg.Advanced.CompressionAlgorithm)
	}
	d.compressionLevel = compression.ParseLevel(cfg.Advanced.CompressionLevel)

	compressor, err := compression.NewCompressor(&compression.Config{
		Algorithm: d.compressionAlgorithm,
		Level:     d.compressionLevel,
	})
	if err != nil {
		d.logger.Warn("compression unavailable, writing uncompressed",
			zap.String("algorithm", string(d.compressionAlgorithm)),
			zap.Error(err))
		d.compressionEnabled = false
		return nil
	}
	d.compressor = compressor

	if ext := compressionExtension(d.compressionAlgorithm); ext != "" && !stringpool.HasSuffix(d.filePath, ext) {
		d.filePath = d.filePath + ext
	}
	return nil
}

// CreateSchema records the schema for downstream readers.
func (d *JSONDestination) CreateSchema(ctx context.Context, schema *core.Schema) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.schema = schema
	return nil
}

// Write consumes the record stream until it is drained or fails.
func (d *JSONDestination) Write(ctx context.Context, stream *core.RecordStream) error {
	for {
		select {
		case record, ok := <-stream.Records:
			if !ok {
				return d.finishStream()
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
func (d *JSONDestination) WriteBatch(ctx context.Context, stream *core.BatchStream) error {
	for {
		select {
		case batch, ok := <-stream.Batches:
			if !ok {
				return d.finishStream()
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

func (d *JSONDestination) writeRecord(record *pool.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.streamEncoder.Encode(record.Data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode record")
	}
	atomic.AddInt64(&d.recordsWritten, 1)
	return nil
}

func (d *JSONDestination) finishStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamEncoder != nil {
		if err := d.streamEncoder.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to finalize json output")
		}
		d.streamEncoder = nil
	}
	if d.writer != nil {
		if err := d.writer.Flush(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush json output")
		}
	}
	return nil
}

func (d *JSONDestination) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer != nil {
		_ = d.writer.Flush()
	}
}

// SupportsBatch reports whether batch writing is supported.
func (d *JSONDestination) SupportsBatch() bool { return true }

// SupportsStreaming reports whether streaming writes are supported.
func (d *JSONDestination) SupportsStreaming() bool { return true }

// Health verifies the destination can still accept writes.
func (d *JSONDestination) Health(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return errors.New(errors.ErrorTypeFile, "output file is not open")
	}
	return nil
}

// Close flushes buffered output, finalizes compression and closes the file.
func (d *JSONDestination) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamEncoder != nil {
		_ = d.streamEncoder.Close()
		d.streamEncoder = nil
	}
	if d.writer != nil {
		_ = d.writer.Flush()
		d.writer = nil
	}
	if d.compressionWriter != nil {
		if err := d.compressionWriter.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to finalize compressed output")
		}
		d.compressionWriter = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to close output file")
		}
		d.file = nil
	}

	d.logger.Info("json destination closed",
		zap.String("path", d.filePath),
		zap.Int64("records_written", atomic.LoadInt64(&d.recordsWritten)))
	return nil
}

// Metrics returns destination level statistics.
func (d *JSONDestination) Metrics() map[string]interface{} {
	metrics := map[string]interface{}{
		"type":            "json",
		"format":          string(d.format),
		"path":            d.filePath,
		"records_written": atomic.LoadInt64(&d.recordsWritten),
	}
	if d.compressionEnabled {
		metrics["compression_algorithm"] = string(d.compressionAlgorithm)
	}
	return metrics
}

func compressionExtension(algorithm compression.Algorithm) string {
	switch algorithm {
	case compression.Gzip:
		return ".gz"
	case compression.LZ4:
		return ".lz4"
	case compression.Zstd:
		return ".zst"
	case compression.S2:
		return ".s2"
	default:
		return ""
	}
}

// compressionWriter buffers output and compresses it in one shot on close.
type compressionWriter struct {
	dest       io.Writer
	compressor compression.Compressor
	builder    *stringpool.Builder
}

func (cw *compressionWriter) Write(p []byte) (n int, err error) {
	return cw.builder.Write(p)
}

func (cw *compressionWriter) Close() error {
	if cw.builder == nil {
		return nil
	}
	if cw.builder.Len() > 0 {
		data := stringpool.StringToBytes(cw.builder.String())
		compressed, err := cw.compressor.Compress(data)
		if err != nil {
			return err
		}
		if _, err := cw.dest.Write(compressed); err != nil {
			return err
		}
	}
	stringpool.PutBuilder(cw.builder, stringpool.Medium)
	cw.builder = nil
	return nil
}
