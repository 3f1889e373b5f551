package extract

import (
	"github.com/grailbio/base/errors"
)

// runCollator receives one batch at a time from each reader, verifies they
// have matching sizes and that neither stream ended while the other still
// had data, and forwards the paired batch, tagged with a globally
// contiguous sequence number, to one of outs, chosen by route(seq). route
// always returns 0 (len(outs)==1) in the default mode, or a round-robin
// assignment across filter goroutines in strict-order mode.
func runCollator(in1, in2 <-chan []Record, outs []chan<- pairedBatch, route func(seq int) int, errOnce *errors.Once) {
	defer func() {
		// On an early error return the readers may still be blocked
		// sending; keep receiving until they notice the error and
		// close their channels.
		for range in1 {
		}
		for range in2 {
		}
		for _, out := range outs {
			close(out)
		}
	}()
	seq := 0
	for {
		b1, ok1 := <-in1
		b2, ok2 := <-in2
		switch {
		case !ok1 && !ok2:
			return
		case ok1 && !ok2:
			errOnce.Set(errors.E("extract: collator: read2 channel closed before read1 (record count mismatch)"))
			return
		case !ok1 && ok2:
			errOnce.Set(errors.E("extract: collator: read1 channel closed before read2 (record count mismatch)"))
			return
		}
		if len(b1) != len(b2) {
			errOnce.Set(errors.E("extract: collator: paired batch length mismatch", len(b1), len(b2)))
			return
		}
		if errOnce.Err() != nil {
			return
		}
		outs[route(seq)] <- pairedBatch{seq: seq, recs1: b1, recs2: b2}
		seq++
	}
}
