package ingest

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Content-Encoding values accepted on ingest requests.
const (
	EncodingIdentity = "identity"
	EncodingGzip     = "gzip"
	EncodingDeflate  = "deflate"
	EncodingZstd     = "zstd"
	EncodingSnappy   = "snappy"
)

var (
	errUnsupportedEncoding = errors.New("unsupported content encoding")
	errBodyTooLarge        = errors.New("request body too large")
)

// Decompressor decodes request bodies. It is safe for concurrent use.
type Decompressor struct {
	limit   int64
	decoder *zstd.Decoder
}

// NewDecompressor creates a Decompressor that refuses to produce more
// than limit bytes.
func NewDecompressor(limit int64) (*Decompressor, error) {
	// Pre-create the zstd decoder since it's expensive to create.
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(uint64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Decompressor{limit: limit, decoder: decoder}, nil
}

// Decompress decodes data according to the Content-Encoding value.
func (d *Decompressor) Decompress(encoding string, data []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingIdentity:
		return data, nil
	case EncodingGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()

		return d.readLimited(r)
	case EncodingDeflate:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zlib reader: %w", err)
		}
		defer r.Close()

		return d.readLimited(r)
	case EncodingZstd:
		out, err := d.decoder.DecodeAll(data, nil)
		if err != nil {
			if errors.Is(err, zstd.ErrDecoderSizeExceeded) ||
				errors.Is(err, zstd.ErrWindowSizeExceeded) {
				return nil, errBodyTooLarge
			}

			return nil, fmt.Errorf("zstd decode: %w", err)
		}

		if int64(len(out)) > d.limit {
			return nil, errBodyTooLarge
		}

		return out, nil
	case EncodingSnappy:
		n, err := snappy.DecodedLen(data)
		if err != nil {
			return nil, fmt.Errorf("snappy decode: %w", err)
		}

		if int64(n) > d.limit {
			return nil, errBodyTooLarge
		}

		return snappy.Decode(nil, data)
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEncoding, encoding)
	}
}

// Close releases the zstd decoder.
func (d *Decompressor) Close() {
	d.decoder.Close()
}

func (d *Decompressor) readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, d.limit+1))
	if err != nil {
		return nil, err
	}

	if int64(len(out)) > d.limit {
		return nil, errBodyTooLarge
	}

	return out, nil
}
