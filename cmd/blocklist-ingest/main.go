// Command blocklist-ingest streams gzip-compressed lists of disposable
// e-mail domains and compiles them into a single bloom filter the API server
// loads at startup to screen invite addresses.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

func main() {
	var output string
	flag.StringVar(&output, "output", "blocklist.bloom", "path to write the bloom filter to")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: blocklist-ingest [--output FILE] domains1.gz [domains2.gz ...]")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, output); err != nil {
		slog.Error("blocklist ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("blocklist ingest completed successfully", slog.String("output", output))
}

func run(ctx context.Context, files []string, output string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("building bloom filters", slog.Int("files", len(files)))

	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Merge per-file filters into one. NewWithEstimates with identical
	// parameters yields compatible filters, so Merge cannot fail here.
	merged := filters[0]
	for _, f := range filters[1:] {
		if err := merged.Merge(f); err != nil {
			return errors.Wrap(err, "merge filters")
		}
	}

	return writeFilter(merged, output)
}

// buildFilters builds one bloom filter per input file, concurrently.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			domain := normalizeDomain(line)
			if domain == "" {
				return
			}
			filter.AddString(domain)
			count++
			if count%progressEvery == 0 {
				slog.Info("ingest progress", slog.String("file", path), slog.Uint64("domains", count))
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for %s", path)
		}

		slog.Info("file complete", slog.String("file", path), slog.Uint64("domains", count))

		filters[idx] = filter
		return nil
	}
}

// normalizeDomain lower-cases a list entry and drops comments and blanks.
func normalizeDomain(line string) string {
	domain := strings.ToLower(strings.TrimSpace(line))
	if domain == "" || strings.HasPrefix(domain, "#") {
		return ""
	}
	return domain
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// writeFilter serializes the filter to disk atomically via a temp file.
func writeFilter(filter *bloom.BloomFilter, output string) error {
	tmp := output + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp)
	}

	if _, err := filter.WriteTo(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write filter")
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp)
	}
	if err := os.Rename(tmp, output); err != nil {
		return errors.Wrapf(err, "rename %s", tmp)
	}

	slog.Info("wrote bloom filter",
		slog.String("path", output),
		slog.Uint64("capacity", uint64(filter.Cap())),
	)
	return nil
}
