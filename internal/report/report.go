// Package report prints the final run tally spec.md §7 requires
// ("at end of run, print the final tally — converted, failed, duplicates,
// skipped, per-type counts — and exit").
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mdbarr/indexer/internal/common"
)

// Tally formats a Stats snapshot as the final run summary.
type Tally struct {
	Snapshot common.Snapshot
	Elapsed  time.Duration
	Bytes    int64
}

// String renders the tally the way the scanner-style progress printers in
// the corpus render theirs: counts plus a humanized byte total and elapsed
// time.
func (t Tally) String() string {
	return fmt.Sprintf(
		"converted %d, duplicates %d, skipped %d, failed %d (images %d, texts %d, videos %d) — %s written in %.1fs",
		t.Snapshot.Converted, t.Snapshot.Duplicates, t.Snapshot.Skipped, t.Snapshot.Failed,
		t.Snapshot.Images, t.Snapshot.Texts, t.Snapshot.Videos,
		humanize.IBytes(uint64(t.Bytes)),
		t.Elapsed.Seconds(),
	)
}

// Print writes the tally to out followed by a newline.
func Print(out io.Writer, t Tally) {
	fmt.Fprintln(out, t.String())
}
