// Package memory loads pretrained word vectors from GloVe or word2vec text
// files into an in-memory table.
package memory

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tortuosity/internal/embedding"
)

// Config controls how a vector file is read.
type Config struct {
	Path string
	// Limit stops after this many vectors; 0 reads the whole file.
	Limit int
}

// LoadFile reads a vector file. Files ending in .gz are decompressed.
func LoadFile(cfg Config) (*embedding.Table, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(cfg.Path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
		}
		defer gz.Close()
		r = gz
	}
	table, err := Load(r, cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Path, err)
	}
	return table, nil
}

// Load parses "token v1 v2 ..." rows. An optional word2vec "count dim" header
// line is accepted and fixes the dimension.
func Load(r io.Reader, limit int) (*embedding.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	table := embedding.NewTable(0)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 {
			if dim, ok := parseHeader(fields); ok {
				table = embedding.NewTable(dim)
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected token and values", lineNo)
		}
		vec := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			vec[i] = v
		}
		if err := table.Add(fields[0], vec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if limit > 0 && table.Len() >= limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func parseHeader(fields []string) (int, bool) {
	if len(fields) != 2 {
		return 0, false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return 0, false
	}
	dim, err := strconv.Atoi(fields[1])
	if err != nil || dim <= 0 {
		return 0, false
	}
	return dim, true
}
