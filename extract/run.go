package extract

import (
	"bufio"
	"context"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"

	"github.com/grailbio/taxoreads/classify"
	"github.com/grailbio/taxoreads/internal/lineio"
)

// Run streams in1/in2 (paired FASTQ, optionally gzip-compressed) through
// the selection sel, writing matching pairs to out1/out2 (each optionally
// empty to disable that side, optionally gzip-compressed by ".gz" suffix).
//
// The pipeline is: two reader goroutines -> one collator goroutine ->
// opts.Threads filter goroutines -> one writer goroutine per output, with
// the calling goroutine dispatching packs to the writers. All goroutines
// are joined before Run returns; the first error in any stage aborts the
// whole pipeline.
func Run(ctx context.Context, sel classify.Selection, in1, in2, out1, out2 string, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	hasOut1, hasOut2 := out1 != "", out2 != ""
	gzip1 := hasOut1 && lineio.IsGzipPath(out1)
	gzip2 := hasOut2 && lineio.IsGzipPath(out2)

	var errOnce errors.Once
	queueDepth := opts.NQueue
	if queueDepth <= 0 {
		queueDepth = opts.Threads * 2
	}

	// Readers.
	reader1Ch := make(chan []Record, queueDepth)
	reader2Ch := make(chan []Record, queueDepth)
	var readerWG sync.WaitGroup
	readerWG.Add(2)
	go func() { defer readerWG.Done(); runReader(ctx, in1, "read1", opts.BatchSize, reader1Ch, &errOnce) }()
	go func() { defer readerWG.Done(); runReader(ctx, in2, "read2", opts.BatchSize, reader2Ch, &errOnce) }()

	// Collator. In strict-order mode each filter goroutine gets its own
	// input channel and batches are routed round-robin by sequence
	// number; otherwise all goroutines share one channel.
	var (
		filterIn []chan pairedBatch
		route    func(int) int
	)
	if opts.StrictOrder && opts.Threads > 1 {
		filterIn = make([]chan pairedBatch, opts.Threads)
		for i := range filterIn {
			filterIn[i] = make(chan pairedBatch, queueDepth)
		}
		n := opts.Threads
		route = func(seq int) int { return seq % n }
	} else {
		shared := make(chan pairedBatch, queueDepth)
		filterIn = []chan pairedBatch{shared}
		route = func(int) int { return 0 }
	}
	collatorOuts := make([]chan<- pairedBatch, len(filterIn))
	for i, ch := range filterIn {
		collatorOuts[i] = ch
	}
	go runCollator(reader1Ch, reader2Ch, collatorOuts, route, &errOnce)

	// Filter goroutines.
	packCh := make(chan packPair, queueDepth)
	var filterWG sync.WaitGroup
	filterWG.Add(opts.Threads)
	for i := 0; i < opts.Threads; i++ {
		in := filterIn[0]
		if len(filterIn) == opts.Threads {
			in = filterIn[i]
		}
		w := newFilterWorker(sel, hasOut1, hasOut2, gzip1, gzip2, opts.ChunkBytes, opts.CompressionLevel)
		go func(in <-chan pairedBatch, w *filterWorker) {
			defer filterWG.Done()
			runFilterWorker(ctx, in, packCh, w, opts.StrictOrder, &errOnce)
		}(in, w)
	}
	go func() {
		filterWG.Wait()
		close(packCh)
	}()

	// Writers.
	// In strict-order mode, every in-flight batch (buffered in the filter
	// input channels, held by a filter goroutine, or queued on packCh)
	// owns one sequence number, so the reorder queue must hold at least
	// that many pending packs or an Insert far ahead of the next writable
	// sequence could block the dispatcher against itself.
	orderedDepth := opts.Threads*(queueDepth+1) + queueDepth + 1
	var plain1, plain2 *plainSink
	var ordered1, ordered2 *orderedSink
	var out1File, out2File file.File
	var err error
	if hasOut1 {
		if out1File, err = file.Create(ctx, out1); err != nil {
			errOnce.Set(errors.E(err, "extract: create", out1))
		} else {
			bw := bufio.NewWriterSize(out1File.Writer(ctx), opts.ChunkBytes)
			if opts.StrictOrder {
				ordered1 = newOrderedSink(bw, orderedDepth)
			} else {
				plain1 = newPlainSink(bw, queueDepth)
			}
		}
	}
	if hasOut2 {
		if out2File, err = file.Create(ctx, out2); err != nil {
			errOnce.Set(errors.E(err, "extract: create", out2))
		} else {
			bw := bufio.NewWriterSize(out2File.Writer(ctx), opts.ChunkBytes)
			if opts.StrictOrder {
				ordered2 = newOrderedSink(bw, orderedDepth)
			} else {
				plain2 = newPlainSink(bw, queueDepth)
			}
		}
	}

	// Dispatch packs to the writers.
	// The nil-sink checks cover the case where file.Create failed above:
	// the error is already recorded, so packs are simply dropped while
	// the rest of the pipeline unwinds.
	for pp := range packCh {
		if pp.pack1 != nil {
			if ordered1 != nil {
				if ierr := ordered1.insert(pp.pack1.seq, pp.pack1.data); ierr != nil {
					errOnce.Set(errors.E(ierr, "extract: dispatch write1"))
				}
			} else if plain1 != nil {
				plain1.send(pp.pack1.data)
			}
		}
		if pp.pack2 != nil {
			if ordered2 != nil {
				if ierr := ordered2.insert(pp.pack2.seq, pp.pack2.data); ierr != nil {
					errOnce.Set(errors.E(ierr, "extract: dispatch write2"))
				}
			} else if plain2 != nil {
				plain2.send(pp.pack2.data)
			}
		}
	}

	if plain1 != nil {
		errOnce.Set(plain1.close())
	}
	if plain2 != nil {
		errOnce.Set(plain2.close())
	}
	if ordered1 != nil {
		errOnce.Set(ordered1.close())
	}
	if ordered2 != nil {
		errOnce.Set(ordered2.close())
	}
	if out1File != nil {
		if cerr := out1File.Close(ctx); cerr != nil {
			errOnce.Set(errors.E(cerr, "extract: close", out1))
		}
	}
	if out2File != nil {
		if cerr := out2File.Close(ctx); cerr != nil {
			errOnce.Set(errors.E(cerr, "extract: close", out2))
		}
	}

	readerWG.Wait()
	filterWG.Wait()

	if err := errOnce.Err(); err != nil {
		return err
	}
	log.Printf("extract: finished %s + %s -> %s + %s", in1, in2, out1, out2)
	return nil
}
