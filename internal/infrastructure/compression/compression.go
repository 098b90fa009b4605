// Package compression encodes and decodes HTTP bodies for the query API.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Algo is a Content-Encoding token.
type Algo string

const (
	None Algo = ""
	Gzip Algo = "gzip"
	Zstd Algo = "zstd"
)

// ParseAlgo maps a Content-Encoding header value to an Algo.
func ParseAlgo(s string) (Algo, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "identity", "none":
		return None, nil
	case "gzip", "x-gzip":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unsupported content encoding %q", s)
	}
}

// Encoder compresses payloads above a size threshold.
type Encoder struct {
	algo      Algo
	threshold int
	zstd      *zstd.Encoder
}

// NewEncoder creates an encoder. Payloads shorter than threshold bytes are
// sent uncompressed.
func NewEncoder(algo Algo, threshold int) (*Encoder, error) {
	e := &Encoder{algo: algo, threshold: threshold}
	if algo == Zstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		e.zstd = enc
	}
	return e, nil
}

// Encode returns the possibly compressed payload and the encoding applied.
func (e *Encoder) Encode(data []byte) ([]byte, Algo, error) {
	if e == nil || e.algo == None || len(data) < e.threshold {
		return data, None, nil
	}
	switch e.algo {
	case Gzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, None, fmt.Errorf("gzip body: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, None, fmt.Errorf("gzip body: %w", err)
		}
		return buf.Bytes(), Gzip, nil
	case Zstd:
		return e.zstd.EncodeAll(data, make([]byte, 0, len(data)/2)), Zstd, nil
	default:
		return nil, None, fmt.Errorf("unsupported content encoding %q", e.algo)
	}
}

// NewReader wraps r with a decoder for algo. The returned closer releases
// decoder resources and does not close r.
func NewReader(algo Algo, r io.Reader) (io.ReadCloser, error) {
	switch algo {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}
		return zr, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd body: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", algo)
	}
}
