package extract

import (
	"bytes"
	"context"

	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/gzip"

	"github.com/grailbio/taxoreads/classify"
)

// pairedBatch is one collated, index-stamped pair of same-length record
// batches: pairedBatch.recs1[i] pairs with pairedBatch.recs2[i].
type pairedBatch struct {
	seq   int
	recs1 []Record
	recs2 []Record
}

// pack is an output side's completed byte buffer, optionally gzip-framed.
// seq is only meaningful in strict-order mode, where it is the
// index of the batch whose processing produced the flush.
type pack struct {
	seq  int
	data []byte
}

// packPair is what a filter goroutine emits per flush: up to one pack per
// output side, each independently optional (an output may be disabled).
type packPair struct {
	seq   int
	pack1 *pack
	pack2 *pack
}

type filterWorker struct {
	sel              classify.Selection
	hasOut1, hasOut2 bool
	gzip1, gzip2     bool
	chunkBytes       int
	level            int
	pool1, pool2     []byte
	gz               *gzip.Writer
}

func newFilterWorker(sel classify.Selection, hasOut1, hasOut2, gzip1, gzip2 bool, chunkBytes, level int) *filterWorker {
	return &filterWorker{
		sel:        sel,
		hasOut1:    hasOut1,
		hasOut2:    hasOut2,
		gzip1:      gzip1,
		gzip2:      gzip2,
		chunkBytes: chunkBytes,
		level:      level,
		pool1:      make([]byte, 0, chunkBytes),
		pool2:      make([]byte, 0, chunkBytes),
	}
}

// processBatch filters one paired batch against the selection map,
// emitting a packPair on out whenever a flush occurs.
//
// In the default (non-strict) mode, a flush is triggered purely by pool
// capacity and may happen zero, one, or several times within
// a single batch. In strict-order mode, force is true and the byte-capacity
// trigger is bypassed entirely in favor of a single unconditional flush at
// the end of the batch: every batch then produces exactly one pack (which
// may be empty), so pack sequence numbers are contiguous batch indices
// rather than tied to chunk-byte boundaries.
func (w *filterWorker) processBatch(b pairedBatch, force bool, out chan<- packPair) error {
	if len(b.recs1) != len(b.recs2) {
		return errors.E("extract: filter: paired batch length mismatch", len(b.recs1), len(b.recs2))
	}
	for i := range b.recs1 {
		r1, r2 := b.recs1[i], b.recs2[i]
		if !bytes.Equal(r1.ID, r2.ID) {
			return &PairError{Read1ID: string(r1.ID), Read2ID: string(r2.ID)}
		}
		if !w.sel.ContainsID(r1.ID) {
			continue
		}
		if !force {
			need1 := recordSize(r1.ID, r1.Seq, r1.Qual)
			need2 := recordSize(r2.ID, r2.Seq, r2.Qual)
			if cap(w.pool1)-len(w.pool1) < need1 || cap(w.pool2)-len(w.pool2) < need2 {
				pp, err := w.flush(b.seq)
				if err != nil {
					return err
				}
				out <- *pp
			}
		}
		w.pool1 = appendRecord(w.pool1, r1.ID, r1.Seq, r1.Qual)
		w.pool2 = appendRecord(w.pool2, r2.ID, r2.Seq, r2.Qual)
	}
	if force {
		pp, err := w.flush(b.seq)
		if err != nil {
			return err
		}
		out <- *pp
	}
	return nil
}

// flushFinal is called on upstream channel close to drain any non-empty
// pool. Unlike a mid-stream flush, it is never forced when both pools are
// empty.
func (w *filterWorker) flushFinal() (*packPair, error) {
	if len(w.pool1) == 0 && len(w.pool2) == 0 {
		return nil, nil
	}
	return w.flush(-1)
}

// flush swaps out the current pools for fresh ones, gzip-compressing each
// side that targets a compressed output, and returns the resulting
// packPair (nil sides for disabled outputs).
func (w *filterWorker) flush(seq int) (*packPair, error) {
	var p1, p2 *pack
	if w.hasOut1 {
		data := w.pool1
		w.pool1 = make([]byte, 0, w.chunkBytes)
		// An empty pool still yields a pack (strict-order mode needs
		// the sequence number to advance) but is never gzip-framed:
		// an empty gzip member in the output buys nothing.
		if w.gzip1 && len(data) > 0 {
			compressed, err := w.compress(data)
			if err != nil {
				return nil, err
			}
			data = compressed
		}
		p1 = &pack{seq: seq, data: data}
	} else {
		w.pool1 = w.pool1[:0]
	}
	if w.hasOut2 {
		data := w.pool2
		w.pool2 = make([]byte, 0, w.chunkBytes)
		if w.gzip2 && len(data) > 0 {
			compressed, err := w.compress(data)
			if err != nil {
				return nil, err
			}
			data = compressed
		}
		p2 = &pack{seq: seq, data: data}
	} else {
		w.pool2 = w.pool2[:0]
	}
	return &packPair{seq: seq, pack1: p1, pack2: p2}, nil
}

// compress gzip-frames data as an independent gzip member, so filter
// goroutines can compress in parallel and the output file is a valid
// multi-member gzip stream. The gzip.Writer is reused across flushes.
func (w *filterWorker) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if w.gz == nil {
		gz, err := gzip.NewWriterLevel(&buf, w.level)
		if err != nil {
			return nil, errors.E(err, "extract: gzip init")
		}
		w.gz = gz
	} else {
		w.gz.Reset(&buf)
	}
	if _, err := w.gz.Write(data); err != nil {
		return nil, errors.E(err, "extract: gzip write")
	}
	if err := w.gz.Close(); err != nil {
		return nil, errors.E(err, "extract: gzip close")
	}
	return buf.Bytes(), nil
}

// runFilterWorker drains in, applying processBatch to every paired batch
// and forwarding packs on out. force controls whether every batch
// boundary also forces a flush (strict-order mode).
func runFilterWorker(ctx context.Context, in <-chan pairedBatch, out chan<- packPair, w *filterWorker, force bool, errOnce *errors.Once) {
	for b := range in {
		if errOnce.Err() != nil {
			continue
		}
		if err := w.processBatch(b, force, out); err != nil {
			errOnce.Set(err)
			continue
		}
	}
	if errOnce.Err() != nil {
		return
	}
	pp, err := w.flushFinal()
	if err != nil {
		errOnce.Set(err)
		return
	}
	if pp != nil {
		out <- *pp
	}
}
