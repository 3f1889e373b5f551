package main

//
// taxoreads
//
// Extracts the FASTQ reads a taxonomic classifier assigned to a chosen set
// of taxa (and their descendants, if the caller expands the taxon list
// itself) into new, optionally gzip-compressed, FASTQ file(s).
//
// Example: pull everything classified under taxon 2697049 out of a paired
// run, writing both mates.
//
//    taxoreads -koutput report.tsv.gz -taxon 2697049 \
//        -r1 run_R1.fastq.gz -r2 run_R2.fastq.gz \
//        -out1 sars2_R1.fastq.gz -out2 sars2_R2.fastq.gz
//

import (
	"flag"
	"strings"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/taxoreads/classify"
	"github.com/grailbio/taxoreads/extract"
)

func main() {
	var (
		koutputPath string
		taxonList   string
		excludeList string
		r1, r2      string
		out1, out2  string
		threads     int
		batchSize   int
		chunkBytes  int
		nqueue      int
		level       int
		strictOrder bool
	)
	flag.StringVar(&koutputPath, "koutput", "", "Path to the classifier's report (TSV, optionally .gz). Required.")
	flag.StringVar(&taxonList, "taxon", "", "Comma-separated list of taxon identifiers to keep. Required.")
	flag.StringVar(&excludeList, "exclude", "", "Comma-separated list of LCA substrings to reject, even if the taxon matched.")
	flag.StringVar(&r1, "r1", "", "Path to the R1 FASTQ file (optionally .gz). Required.")
	flag.StringVar(&r2, "r2", "", "Path to the R2 FASTQ file (optionally .gz). Required.")
	flag.StringVar(&out1, "out1", "", "Output path for matching R1 reads. Empty disables this side.")
	flag.StringVar(&out2, "out2", "", "Output path for matching R2 reads. Empty disables this side.")
	flag.IntVar(&threads, "threads", extract.DefaultOptions().Threads, "Number of filter goroutines.")
	flag.IntVar(&batchSize, "batch-size", extract.DefaultOptions().BatchSize, "Records per reader/collator/filter batch.")
	flag.IntVar(&chunkBytes, "chunk-bytes", extract.DefaultOptions().ChunkBytes, "Output pack capacity, in bytes, before a flush.")
	flag.IntVar(&nqueue, "nqueue", extract.DefaultOptions().NQueue, "Depth of the bounded inter-stage queues.")
	flag.IntVar(&level, "compression-level", extract.DefaultOptions().CompressionLevel, "gzip compression level for .gz outputs.")
	flag.BoolVar(&strictOrder, "strict-order", false, "Preserve global output ordering across filter goroutines, at the cost of one forced flush per batch.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if koutputPath == "" || taxonList == "" || r1 == "" || r2 == "" {
		log.Fatal("taxoreads: -koutput, -taxon, -r1, and -r2 are required")
	}
	if out1 == "" && out2 == "" {
		log.Fatal("taxoreads: at least one of -out1, -out2 must be set")
	}

	include := classify.NewIncludeSet(splitNonEmpty(taxonList))
	var exclusion *classify.Exclusion
	if excludeList != "" {
		exclusion = classify.NewExclusion(splitNonEmpty(excludeList))
	}

	start := time.Now()
	parseOpts := classify.ParseOptions{Threads: threads, BatchSize: batchSize, NQueue: nqueue}
	sel, err := classify.ParseReport(ctx, koutputPath, include, exclusion, parseOpts)
	if err != nil {
		log.Fatalf("taxoreads: %v", err)
	}
	log.Printf("taxoreads: parsed %s in %s, %d reads selected", koutputPath, time.Since(start), len(sel))

	opts := extract.Options{
		Threads:          threads,
		BatchSize:        batchSize,
		ChunkBytes:       chunkBytes,
		NQueue:           nqueue,
		CompressionLevel: level,
		StrictOrder:      strictOrder,
	}
	start = time.Now()
	if err := extract.Run(ctx, sel, r1, r2, out1, out2, opts); err != nil {
		log.Fatalf("taxoreads: %v", err)
	}
	log.Printf("taxoreads: extracted reads in %s", time.Since(start))
	log.Printf("All done")
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
