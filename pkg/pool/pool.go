// Package pool provides unified high-performance object pooling for Nova.
// It offers zero-allocation memory management with automatic object recycling,
// significantly reducing garbage collection pressure during report extraction.
//
// The package provides:
//   - Generic type-safe object pooling with Pool[T]
//   - Pre-configured global pools for common types (Records, Maps, Slices)
//   - Buffer pooling with size-based buckets
//   - Comprehensive statistics and monitoring
//
// Example usage:
//
//	// Using the global Record pool
//	record := pool.GetRecord()
//	defer record.Release()
//
//	record.SetData("campaign", "summer_sale")
//	record.SetData("clicks", 42)
//
//	// Using custom pools
//	myPool := pool.New(
//	    func() *MyType { return &MyType{} },
//	    func(obj *MyType) { obj.Reset() },
//	)
//	obj := myPool.Get()
//	defer myPool.Put(obj)
package pool

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with additional features like statistics tracking
// and automatic reset functionality. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
		misses    int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty and a new object is needed.
// The reset function is called before returning an object to the pool, allowing
// for efficient cleanup and reuse.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool. If the pool is empty, it creates
// a new object using the factory function provided in New. The method is
// safe for concurrent use and updates pool statistics.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse. If a reset function was
// provided during pool creation, it is called to clean up the object
// before returning it to the pool. The method is safe for concurrent use.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics including allocation count,
// objects currently in use, cache hits, and cache misses.
func (p *Pool[T]) Stats() (allocated, inUse, hits, misses int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits),
		atomic.LoadInt64(&p.stats.misses)
}

// RecordMetadata contains structured metadata for records produced by
// report extraction. All fields are optional to support different streams.
type RecordMetadata struct {
	// Source identifies the origin system or connector
	Source string `json:"source,omitempty"`
	// StreamID identifies the report stream for multi-stream sources
	StreamID string `json:"stream_id,omitempty"`
	// Window is the reporting window the record was fetched for,
	// formatted as "start/end"
	Window string `json:"window,omitempty"`
	// Page is the pagination page the record arrived on, starting at 1
	Page int `json:"page,omitempty"`
	// Offset position for streaming sources
	Offset int64 `json:"offset,omitempty"`
	// Timestamp when the record was captured
	Timestamp time.Time `json:"timestamp"`
	// Custom metadata fields for extensibility
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// Record represents the unified record type used throughout Nova for data
// processing. It provides a consistent interface for all data sources and
// destinations. Records are designed to be pooled for maximum performance
// and should be obtained from the global pool using GetRecord() rather than
// created directly.
type Record struct {
	// ID is a unique identifier for the record
	ID string `json:"id"`
	// Data contains the actual record payload
	Data map[string]interface{} `json:"data"`
	// Metadata contains source, timing, and processing information
	Metadata RecordMetadata `json:"metadata"`
	// Schema optionally describes the structure of the data
	Schema interface{} `json:"schema,omitempty"`
	// RawData stores the original raw bytes if needed (not serialized)
	RawData []byte `json:"-"`
}

// Global unified pools for the entire system.
var (
	// RecordPool provides optimized pooling for Record objects.
	// Records are pre-allocated with a 16-capacity map for data fields.
	RecordPool = New(
		func() *Record {
			return &Record{
				Data: make(map[string]interface{}, 16),
			}
		},
		func(r *Record) {
			r.ID = ""
			r.Schema = nil
			r.RawData = nil
			for k := range r.Data {
				delete(r.Data, k)
			}
			if r.Metadata.Custom != nil {
				for k := range r.Metadata.Custom {
					delete(r.Metadata.Custom, k)
				}
			}
			r.Metadata = RecordMetadata{}
		},
	)

	// MapPool provides pooling for map[string]interface{} objects.
	MapPool = New(
		func() map[string]interface{} {
			return make(map[string]interface{}, 16)
		},
		func(m map[string]interface{}) {
			for k := range m {
				delete(m, k)
			}
		},
	)

	// StringSlicePool provides pooling for []string slices.
	StringSlicePool = New(
		func() []string {
			return make([]string, 0, 32)
		},
		func(s []string) {
			for i := range s {
				s[i] = ""
			}
		},
	)

	// ByteSlicePool provides pooling for general-purpose byte slices.
	ByteSlicePool = New(
		func() []byte {
			return make([]byte, 0, 1024)
		},
		func(b []byte) {},
	)

	// IDBufferPool provides pooling for ID generation buffers.
	IDBufferPool = New(
		func() []byte {
			return make([]byte, 0, 64)
		},
		func(b []byte) {},
	)

	// BatchSlicePool provides pooling for record batches used in pipeline processing.
	BatchSlicePool = New(
		func() []*Record {
			return make([]*Record, 0, 1000) // Default batch size
		},
		func(s []*Record) {
			for i := range s {
				s[i] = nil
			}
		},
	)
)

// idCounter provides atomic unique ID generation
var idCounter uint64

// GetRecord retrieves a Record from the global pool with automatic
// initialization. Records must be returned to the pool using PutRecord or
// record.Release() when done.
func GetRecord() *Record {
	r := RecordPool.Get()
	r.Metadata.Timestamp = time.Now()
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = GetMap()
	}
	return r
}

// PutRecord returns a Record to the global pool for reuse.
// It properly cleans up nested maps by returning them to their pools.
// This function is safe to call with nil records.
func PutRecord(record *Record) {
	if record != nil {
		if record.Metadata.Custom != nil {
			PutMap(record.Metadata.Custom)
			record.Metadata.Custom = nil
		}
		RecordPool.Put(record)
	}
}

// GetMap retrieves a map[string]interface{} from the global pool.
func GetMap() map[string]interface{} {
	return MapPool.Get()
}

// PutMap returns a map to the global pool for reuse.
func PutMap(m map[string]interface{}) {
	if m != nil {
		MapPool.Put(m)
	}
}

// GetStringSlice retrieves a string slice from the global pool.
func GetStringSlice() []string {
	return StringSlicePool.Get()
}

// PutStringSlice returns a string slice to the global pool for reuse.
func PutStringSlice(s []string) {
	if s != nil {
		StringSlicePool.Put(s)
	}
}

// GetByteSlice retrieves a byte slice from the global pool.
func GetByteSlice() []byte {
	return ByteSlicePool.Get()
}

// PutByteSlice returns a byte slice to the global pool for reuse.
func PutByteSlice(b []byte) {
	if b != nil {
		ByteSlicePool.Put(b)
	}
}

// GetBatchSlice retrieves a record batch slice from the global pool.
// If the requested capacity exceeds the pooled slice capacity, a new slice
// is allocated. The returned slice always has zero length.
func GetBatchSlice(capacity int) []*Record {
	batch := BatchSlicePool.Get()
	if cap(batch) < capacity {
		batch = make([]*Record, 0, capacity)
	}
	return batch[:0]
}

// PutBatchSlice returns a batch slice to the global pool for reuse.
// All record references are cleared to allow garbage collection.
func PutBatchSlice(batch []*Record) {
	if batch != nil {
		BatchSlicePool.Put(batch)
	}
}

// GenerateID generates a unique ID with the specified prefix using pooled
// buffers. The ID format is "prefix-number" where number is an atomic counter.
// This function is safe for concurrent use.
func GenerateID(prefix string) string {
	buf := IDBufferPool.Get()
	defer IDBufferPool.Put(buf)

	id := atomic.AddUint64(&idCounter, 1)

	buf = append(buf, prefix...)
	buf = append(buf, '-')
	buf = appendUint64(buf, id)

	return string(buf)
}

// appendUint64 efficiently appends uint64 to byte slice
func appendUint64(buf []byte, n uint64) []byte {
	if n == 0 {
		return append(buf, '0')
	}

	temp := n
	digits := 0
	for temp > 0 {
		temp /= 10
		digits++
	}

	start := len(buf)
	buf = buf[:start+digits]

	for i := digits - 1; i >= 0; i-- {
		buf[start+i] = byte('0' + n%10)
		n /= 10
	}

	return buf
}

// BufferPool manages byte buffer pooling with size-based buckets.
// It maintains multiple pools for different buffer sizes, automatically
// selecting the appropriate pool based on requested size.
type BufferPool struct {
	pools []*Pool[[]byte]
	sizes []int
}

// NewBufferPool creates a new buffer pool with predefined size buckets.
// The pool uses power-of-2 sizes from 512 bytes to 16MB. Buffers larger
// than 16MB are allocated directly without pooling.
func NewBufferPool() *BufferPool {
	sizes := []int{
		512,      // 512B
		1024,     // 1KB
		4096,     // 4KB
		16384,    // 16KB
		65536,    // 64KB
		262144,   // 256KB
		1048576,  // 1MB
		4194304,  // 4MB
		16777216, // 16MB
	}

	pools := make([]*Pool[[]byte], len(sizes))
	for i, size := range sizes {
		size := size // capture loop variable
		pools[i] = New(
			func() []byte {
				return make([]byte, size)
			},
			func(b []byte) {},
		)
	}

	return &BufferPool{
		pools: pools,
		sizes: sizes,
	}
}

// Get returns a buffer of at least the requested size from the pool.
// It selects the smallest available buffer that can accommodate the request.
func (p *BufferPool) Get(size int) []byte {
	for i, s := range p.sizes {
		if s >= size {
			buf := p.pools[i].Get()
			return buf[:size]
		}
	}

	// Fallback to allocation for very large buffers
	return make([]byte, size)
}

// Put returns a buffer to the pool for reuse.
// Buffers that don't match any pool size are released to garbage collection.
func (p *BufferPool) Put(buf []byte) {
	size := cap(buf)

	for i, s := range p.sizes {
		if s == size {
			p.pools[i].Put(buf)
			return
		}
	}
}

// Record methods for unified record management

// SetData sets a data field in the record, automatically initializing
// the data map if needed.
func (r *Record) SetData(key string, value interface{}) {
	if r.Data == nil {
		r.Data = GetMap()
	}
	r.Data[key] = value
}

// GetData retrieves a data field from the record.
func (r *Record) GetData(key string) (interface{}, bool) {
	if r.Data == nil {
		return nil, false
	}
	val, ok := r.Data[key]
	return val, ok
}

// SetMetadata sets a custom metadata field, automatically initializing
// the metadata map if needed.
func (r *Record) SetMetadata(key string, value interface{}) {
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = GetMap()
	}
	r.Metadata.Custom[key] = value
}

// GetMetadata retrieves a custom metadata field from the record.
func (r *Record) GetMetadata(key string) (interface{}, bool) {
	if r.Metadata.Custom == nil {
		return nil, false
	}
	val, ok := r.Metadata.Custom[key]
	return val, ok
}

// Release returns the record and all its resources to the appropriate pools.
// This method should be called when the record is no longer needed, typically
// using defer immediately after obtaining the record.
func (r *Record) Release() {
	PutRecord(r)
}

// SetTimestamp sets the record's timestamp.
func (r *Record) SetTimestamp(t time.Time) {
	r.Metadata.Timestamp = t
}

// GetTimestamp returns the record's timestamp.
func (r *Record) GetTimestamp() time.Time {
	return r.Metadata.Timestamp
}

// SetStreamID sets the stream identifier for multi-stream sources.
func (r *Record) SetStreamID(streamID string) {
	r.Metadata.StreamID = streamID
}

// GetStreamID returns the stream identifier.
func (r *Record) GetStreamID() string {
	return r.Metadata.StreamID
}

// SetWindow records the reporting window this record was fetched for.
func (r *Record) SetWindow(window string) {
	r.Metadata.Window = window
}

// GetWindow returns the reporting window this record was fetched for.
func (r *Record) GetWindow() string {
	return r.Metadata.Window
}

// SetOffset sets the stream offset position.
func (r *Record) SetOffset(offset int64) {
	r.Metadata.Offset = offset
}

// GetOffset returns the stream offset position.
func (r *Record) GetOffset() int64 {
	return r.Metadata.Offset
}

// NewRecord creates a new record with the given source and data.
// The record is obtained from the pool and initialized with a unique ID
// and current timestamp. The provided data map is used directly.
//
// Note: The caller should call record.Release() when done.
func NewRecord(source string, data map[string]interface{}) *Record {
	r := GetRecord()
	r.ID = GenerateID("rec")
	r.Data = data
	r.Metadata.Source = source
	r.Metadata.Timestamp = time.Now()
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = GetMap()
	}
	return r
}

// NewRecordFromPool creates a new record using entirely pooled resources.
// Unlike NewRecord, this creates a new pooled map for data fields.
// This is the most efficient way to create records when building data
// incrementally.
//
// Note: The caller should call record.Release() when done.
func NewRecordFromPool(source string) *Record {
	r := GetRecord()
	r.ID = GenerateID("rec")
	r.Data = GetMap()
	r.Metadata.Source = source
	r.Metadata.Timestamp = time.Now()
	r.Metadata.Custom = GetMap()
	return r
}

// GlobalBufferPool provides size-based byte buffer pooling for I/O operations.
// It manages buffers from 512B to 16MB with automatic size selection.
var GlobalBufferPool = NewBufferPool()

// Stats represents pool statistics for monitoring and optimization.
type Stats struct {
	// Allocated is the total number of objects created by the pool
	Allocated int64
	// InUse is the current number of objects checked out from the pool
	InUse int64
	// Hits is the number of successful pool retrievals
	Hits int64
	// Misses is the number of times a new object had to be created
	Misses int64
}

// GetGlobalStats returns comprehensive statistics for all global pools.
// This is useful for monitoring pool efficiency and detecting memory leaks.
func GetGlobalStats() map[string]Stats {
	recordAlloc, recordInUse, recordHits, recordMisses := RecordPool.Stats()
	mapAlloc, mapInUse, mapHits, mapMisses := MapPool.Stats()
	stringAlloc, stringInUse, stringHits, stringMisses := StringSlicePool.Stats()
	byteAlloc, byteInUse, byteHits, byteMisses := ByteSlicePool.Stats()

	return map[string]Stats{
		"record": {
			Allocated: recordAlloc,
			InUse:     recordInUse,
			Hits:      recordHits,
			Misses:    recordMisses,
		},
		"map": {
			Allocated: mapAlloc,
			InUse:     mapInUse,
			Hits:      mapHits,
			Misses:    mapMisses,
		},
		"string_slice": {
			Allocated: stringAlloc,
			InUse:     stringInUse,
			Hits:      stringHits,
			Misses:    stringMisses,
		},
		"byte_slice": {
			Allocated: byteAlloc,
			InUse:     byteInUse,
			Hits:      byteHits,
			Misses:    byteMisses,
		},
	}
}
