// Command msggen writes synthetic Senzing message envelopes to stdout, one
// per line, for exercising szmessage. A fraction of the lines can be
// corrupted so that every rejection kind shows up.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"time"

	"golang.org/x/time/rate"
)

func main() {
	count := flag.Int("n", 1000, "Number of lines to write, 0 for no limit")
	duration := flag.Duration("d", 0, "Stop after this long, 0 for no limit")
	rps := flag.Int("rps", 0, "Lines per second limit, 0 for unlimited")
	badRate := flag.Float64("bad", 0, "Fraction of lines to corrupt, between 0 and 1")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()

	ctx := context.Background()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if *rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100
	}

	gen := newGenerator(*seed, *badRate)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	written, corrupted := 0, 0
	for *count == 0 || written < *count {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		line, kind, err := gen.next(time.Now())
		if err != nil {
			log.Fatalf("failed to generate message: %v", err)
		}
		if kind != "" {
			corrupted++
		}
		out.Write(line)
		if err := out.WriteByte('\n'); err != nil {
			log.Fatalf("failed to write: %v", err)
		}
		written++
	}

	log.Printf("Wrote %d lines, %d corrupted", written, corrupted)
}
