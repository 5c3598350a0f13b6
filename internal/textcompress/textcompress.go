// Package textcompress picks the output stream a text record's canonical
// file is written through, per types.text.compression (§4.9 step 12):
// none, brotli, or gzip. Both compressed forms are the compressor used
// elsewhere in the pack for this exact concern, not a bespoke choice.
package textcompress

import (
	"compress/gzip"
	"io"

	"github.com/andybalholm/brotli"

	indexererrors "github.com/mdbarr/indexer/internal/errors"
)

const (
	None   = "none"
	Brotli = "brotli"
	Gzip   = "gzip"
)

// Suffix returns the extra filename suffix a compression mode appends to
// the canonical output path ("" for none).
func Suffix(mode string) string {
	switch mode {
	case Brotli:
		return ".br"
	case Gzip:
		return ".gz"
	default:
		return ""
	}
}

// WriteCloser wraps the writer returned by NewWriter with whatever
// flush/close sequence its underlying compressor needs before dst is
// considered durable.
type WriteCloser interface {
	io.WriteCloser
}

// NewWriter wraps dst with the compressor named by mode. Closing the
// returned writer flushes the compressor; it does not close dst.
func NewWriter(mode string, dst io.Writer) (WriteCloser, error) {
	switch mode {
	case Brotli:
		return brotli.NewWriter(dst), nil
	case Gzip:
		return gzip.NewWriter(dst), nil
	case None, "":
		return nopWriteCloser{dst}, nil
	default:
		return nil, indexererrors.NewConfigError("types.text.compression", mode, errUnknownMode)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type compressionError string

func (e compressionError) Error() string { return string(e) }

const errUnknownMode = compressionError("unknown compression mode")
