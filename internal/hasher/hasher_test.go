package hasher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeShasum is a tiny shell script standing in for the real shasum binary:
// it just echoes a fixed fingerprint followed by the filename, matching the
// real tool's output shape.
func writeFakeShasum(t *testing.T, fingerprint string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fakesum")
	script := "#!/bin/sh\necho " + fingerprint + " \"$1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestHashReturnsFirstToken(t *testing.T) {
	bin := writeFakeShasum(t, "deadbeefcafe")
	h := New(bin)

	fp, err := h.Hash(context.Background(), "/some/file.png")
	require.NoError(t, err)
	assert.Equal(t, "deadbeefcafe", fp)
}

func TestHashFailsOnMissingBinary(t *testing.T) {
	h := New("/no/such/executable")
	_, err := h.Hash(context.Background(), "/some/file.png")
	require.Error(t, err)
}

func TestHashBytesReturnsFirstToken(t *testing.T) {
	bin := writeFakeShasum(t, "cafebabe0000")
	h := New(bin)

	fp, err := h.HashBytes(context.Background(), []byte("some text content"))
	require.NoError(t, err)
	assert.Equal(t, "cafebabe0000", fp)
}

func TestHashBytesFailsOnMissingBinary(t *testing.T) {
	h := New("/no/such/executable")
	_, err := h.HashBytes(context.Background(), []byte("x"))
	require.Error(t, err)
}
