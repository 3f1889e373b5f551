package extract

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"

	"github.com/grailbio/taxoreads/internal/lineio"
)

// runReader streams the FASTQ file at path, emitting batches of batchSize
// records on out. name is used only for log/error context
// ("read1"/"read2").
func runReader(ctx context.Context, path, name string, batchSize int, out chan<- []Record, errOnce *errors.Once) {
	defer close(out)
	opened, r, err := lineio.Open(ctx, path)
	if err != nil {
		errOnce.Set(errors.E(err, "extract", name))
		return
	}
	fr := newFastqReader(r, path)
	var total int
	for {
		if errOnce.Err() != nil {
			break
		}
		batch, err := fr.readBatch(batchSize)
		if err != nil {
			errOnce.Set(errors.E(err, "extract", name))
			break
		}
		total += len(batch)
		if len(batch) > 0 {
			out <- batch
		}
		if len(batch) < batchSize {
			break
		}
	}
	if cerr := opened.Close(ctx); cerr != nil {
		errOnce.Set(errors.E(cerr, "extract", name))
	}
	log.Printf("extract: %s: %s: %d records read", name, path, total)
}
