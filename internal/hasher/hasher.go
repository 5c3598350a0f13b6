// Package hasher computes the content fingerprint every record is keyed by,
// delegating to an external checksum tool (§4.2) — never a built-in hash —
// so the fingerprint algorithm is an operator-configurable choice.
package hasher

import (
	"context"
	"strings"

	indexererrors "github.com/mdbarr/indexer/internal/errors"
	"github.com/mdbarr/indexer/internal/executil"
)

// Hasher invokes a configured external tool (typically `shasum`) to
// fingerprint a single file.
type Hasher struct {
	bin string
}

// New returns a Hasher that shells out to bin.
func New(bin string) *Hasher {
	return &Hasher{bin: bin}
}

// Hash runs the configured tool against path and returns the first
// whitespace-delimited token of its stdout, trimmed.
func (h *Hasher) Hash(ctx context.Context, path string) (string, error) {
	result, err := executil.Run(ctx, h.bin, []string{path})
	if err != nil {
		return "", indexererrors.NewHashError(path, err)
	}

	fields := strings.Fields(result.Stdout)
	if len(fields) == 0 {
		return "", indexererrors.NewHashError(path, errEmptyOutput)
	}
	return fields[0], nil
}

// HashBytes fingerprints content directly, piping it to the configured
// tool's standard input rather than pointing it at a file on disk — used
// by the text pipeline to fingerprint post-processing text (§4.9 step 8)
// without round-tripping through a temporary file.
func (h *Hasher) HashBytes(ctx context.Context, content []byte) (string, error) {
	result, err := executil.RunWithStdin(ctx, h.bin, nil, content)
	if err != nil {
		return "", indexererrors.NewHashError("-", err)
	}

	fields := strings.Fields(result.Stdout)
	if len(fields) == 0 {
		return "", indexererrors.NewHashError("-", errEmptyOutput)
	}
	return fields[0], nil
}

var errEmptyOutput = hashOutputError("hash tool produced no output")

type hashOutputError string

func (e hashOutputError) Error() string { return string(e) }
