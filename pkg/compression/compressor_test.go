package compression

import (
	"bytes"
	"testing"
)

var sampleData = bytes.Repeat([]byte("day,campaign,cost\n2026-08-01,summer,12.30\n"), 200)

func TestRoundTrip(t *testing.T) {
	algorithms := []Algorithm{None, Gzip, LZ4, Zstd, S2}

	for _, algo := range algorithms {
		t.Run(string(algo), func(t *testing.T) {
			c, err := NewCompressor(&Config{Algorithm: algo, Level: Default})
			if err != nil {
				t.Fatalf("failed to create compressor: %v", err)
			}

			compressed, err := c.Compress(sampleData)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}

			decompressed, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("decompress failed: %v", err)
			}

			if !bytes.Equal(decompressed, sampleData) {
				t.Error("round trip did not preserve data")
			}

			if algo != None && len(compressed) >= len(sampleData) {
				t.Errorf("expected compression to shrink repetitive data, got %d >= %d",
					len(compressed), len(sampleData))
			}
		})
	}
}

func TestStreamRoundTrip(t *testing.T) {
	for _, algo := range []Algorithm{Gzip, Zstd} {
		t.Run(string(algo), func(t *testing.T) {
			c, err := NewCompressor(&Config{Algorithm: algo, Level: Fastest})
			if err != nil {
				t.Fatalf("failed to create compressor: %v", err)
			}

			var compressed bytes.Buffer
			if err := c.CompressStream(&compressed, bytes.NewReader(sampleData)); err != nil {
				t.Fatalf("stream compress failed: %v", err)
			}

			var decompressed bytes.Buffer
			if err := c.DecompressStream(&decompressed, &compressed); err != nil {
				t.Fatalf("stream decompress failed: %v", err)
			}

			if !bytes.Equal(decompressed.Bytes(), sampleData) {
				t.Error("stream round trip did not preserve data")
			}
		})
	}
}

func TestNewCompressorUnknownAlgorithm(t *testing.T) {
	if _, err := NewCompressor(&Config{Algorithm: "brotli"}); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestNewCompressorNilConfig(t *testing.T) {
	c, err := NewCompressor(nil)
	if err != nil {
		t.Fatalf("nil config must fall back to defaults: %v", err)
	}
	if c.Algorithm() != Gzip {
		t.Errorf("expected default algorithm gzip, got %s", c.Algorithm())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[int]Level{
		-1: Default,
		0:  Default,
		1:  Fastest,
		5:  Default,
		6:  Better,
		7:  Better,
		9:  Best,
		10: Default,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCompressorPool(t *testing.T) {
	pool := NewCompressorPool(&Config{Algorithm: S2, Level: Default})

	compressed, err := pool.Compress(sampleData)
	if err != nil {
		t.Fatalf("pool compress failed: %v", err)
	}
	decompressed, err := pool.Decompress(compressed)
	if err != nil {
		t.Fatalf("pool decompress failed: %v", err)
	}
	if !bytes.Equal(decompressed, sampleData) {
		t.Error("pool round trip did not preserve data")
	}
}
