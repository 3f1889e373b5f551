// Package extract streams two paired, gzip-capable FASTQ inputs through a
// selection filter built by classify.ParseReport and writes the surviving
// pairs to (up to) two FASTQ outputs.
package extract

import (
	"github.com/grailbio/base/errors"
)

// Record is one FASTQ record. ID excludes the leading '@' and any text
// after the first run of whitespace in the header line. Seq and Qual are
// the raw sequence/quality lines; Sep is unused on output (the writer
// always re-emits a bare "+") but is kept for symmetry with the four-line
// FASTQ shape.
type Record struct {
	ID, Seq, Sep, Qual []byte
}

// PairError reports that a read pulled off stream 1 and its counterpart
// from stream 2 do not share an identifier.
type PairError struct {
	Read1ID, Read2ID string
}

func (e *PairError) Error() string {
	return "fastq pair mismatch: read1 id " + e.Read1ID + " != read2 id " + e.Read2ID
}

// Options configures Run.
type Options struct {
	// Threads is the number of filter goroutines. Must be >= 1.
	Threads int
	// BatchSize is the number of records per reader->collator->filter
	// batch.
	BatchSize int
	// ChunkBytes is the output pack capacity and writer buffer size.
	ChunkBytes int
	// NQueue is the depth of the bounded reader/collator/filter/writer
	// queues. <= 0 selects a generous default.
	NQueue int
	// CompressionLevel is the gzip level used for a ".gz" output. Checked
	// against klauspost/compress/gzip's accepted range at entry.
	CompressionLevel int
	// StrictOrder restores global output ordering across multiple filter
	// goroutines, at the cost of force-flushing a pack at every batch
	// boundary. When false (the default), each goroutine's own packs
	// keep their relative order but interleave with other goroutines'.
	StrictOrder bool
}

// DefaultOptions returns reasonable defaults.
func DefaultOptions() Options {
	return Options{
		Threads:          4,
		BatchSize:        2048,
		ChunkBytes:       4 << 20,
		NQueue:           4,
		CompressionLevel: 6,
	}
}

func (o Options) validate() error {
	if o.Threads < 1 {
		return errors.E("extract: threads must be >= 1")
	}
	if o.BatchSize < 1 {
		return errors.E("extract: batch_size must be >= 1")
	}
	if o.ChunkBytes < 1 {
		return errors.E("extract: chunk_bytes must be >= 1")
	}
	if o.CompressionLevel < -2 || o.CompressionLevel > 9 {
		return errors.E("extract: compression_level out of range", o.CompressionLevel)
	}
	return nil
}

// recordSize returns the number of bytes a record occupies in canonical
// "@id\nseq\n+\nqual\n" framing.
func recordSize(id, seq, qual []byte) int {
	return 1 + len(id) + 1 + len(seq) + 1 + 1 + 1 + len(qual) + 1
}

// appendRecord appends a record's canonical framing to pool.
func appendRecord(pool []byte, id, seq, qual []byte) []byte {
	pool = append(pool, '@')
	pool = append(pool, id...)
	pool = append(pool, '\n')
	pool = append(pool, seq...)
	pool = append(pool, '\n')
	pool = append(pool, '+', '\n')
	pool = append(pool, qual...)
	pool = append(pool, '\n')
	return pool
}
