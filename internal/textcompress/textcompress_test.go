package textcompress

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuffixPerMode(t *testing.T) {
	assert.Equal(t, "", Suffix(None))
	assert.Equal(t, "", Suffix(""))
	assert.Equal(t, ".br", Suffix(Brotli))
	assert.Equal(t, ".gz", Suffix(Gzip))
}

func TestNewWriterNoneIsPassthrough(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(None, &buf)
	require.NoError(t, err)

	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "hello", buf.String())
}

func TestNewWriterGzipRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(Gzip, &buf)
	require.NoError(t, err)

	_, err = w.Write([]byte("some text content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "some text content", string(out))
}

func TestNewWriterBrotliRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(Brotli, &buf)
	require.NoError(t, err)

	_, err = w.Write([]byte("some other text"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := brotli.NewReader(&buf)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "some other text", string(out))
}

func TestNewWriterRejectsUnknownMode(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewWriter("lz4", &buf)
	assert.Error(t, err)
}
