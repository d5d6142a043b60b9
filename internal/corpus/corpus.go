package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"tortuosity/internal/domain"
)

const (
	FormatBlocks = "blocks"
	FormatFiles  = "files"
	FormatJSON   = "json"
)

// Corpus is a set of parsed documents plus the entries rejected while parsing.
type Corpus struct {
	Documents []domain.Document
	Failed    []domain.Failure
}

// Options configures how input files become documents.
type Options struct {
	Format string
	// RequireHeader drops blocks that do not start with a numeral header line.
	RequireHeader bool
}

var headerRe = regexp.MustCompile(`^(?:[0-9]+|[IVXLCDM]+)\.?$`)

// Load reads every path (globs allowed) with the configured format.
func Load(paths []string, opts Options) (Corpus, error) {
	files, err := expand(paths)
	if err != nil {
		return Corpus{}, err
	}
	if len(files) == 0 {
		return Corpus{}, fmt.Errorf("no input files found")
	}
	var c Corpus
	switch opts.Format {
	case FormatBlocks, "":
		for _, f := range files {
			// headerless blocks are numbered across every file of the load
			offset := len(c.Documents)
			docs, err := readWith(f, func(r io.Reader) ([]domain.Document, error) { return parseBlocks(r, opts.RequireHeader, offset) })
			if err != nil {
				return Corpus{}, err
			}
			c.Documents = append(c.Documents, docs...)
		}
	case FormatFiles:
		for _, f := range files {
			if !strings.HasSuffix(strings.ToLower(f), ".txt") {
				continue
			}
			docs, err := readWith(f, func(r io.Reader) ([]domain.Document, error) {
				lines, err := readLines(r)
				if err != nil {
					return nil, err
				}
				id := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
				return []domain.Document{{ID: id, Lines: lines}}, nil
			})
			if err != nil {
				return Corpus{}, err
			}
			c.Documents = append(c.Documents, docs...)
		}
	case FormatJSON:
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				return Corpus{}, err
			}
			part, err := ParseJSON(data)
			if err != nil {
				return Corpus{}, fmt.Errorf("%s: %w", f, err)
			}
			c.Documents = append(c.Documents, part.Documents...)
			c.Failed = append(c.Failed, part.Failed...)
		}
	default:
		return Corpus{}, fmt.Errorf("unknown corpus format: %s", opts.Format)
	}
	// ordinals run across files in load order
	for i := range c.Documents {
		if c.Documents[i].Ordinal == 0 {
			c.Documents[i].Ordinal = i + 1
		}
	}
	return c, nil
}

// ParseBlocks splits text into documents separated by blank lines. A block
// whose first line is a numeral (18, XVIII, XVIII.) takes it as its id;
// otherwise the block position is used.
func ParseBlocks(r io.Reader, requireHeader bool) ([]domain.Document, error) {
	return parseBlocks(r, requireHeader, 0)
}

// parseBlocks numbers headerless blocks from offset+1.
func parseBlocks(r io.Reader, requireHeader bool, offset int) ([]domain.Document, error) {
	lines, err := readAllLines(r)
	if err != nil {
		return nil, err
	}
	var docs []domain.Document
	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		var id string
		if headerRe.MatchString(block[0]) {
			id = strings.TrimSuffix(block[0], ".")
			block = block[1:]
		} else if requireHeader {
			block = nil
			return
		}
		if len(block) > 0 {
			if id == "" {
				id = strconv.Itoa(offset + len(docs) + 1)
			}
			docs = append(docs, domain.Document{ID: id, Lines: block})
		}
		block = nil
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		block = append(block, trimmed)
	}
	flush()
	return docs, nil
}

// ParseJSON decodes an array of {id, ordinal, lines} objects. Each element is
// decoded on its own so one malformed document does not reject the rest.
func ParseJSON(data []byte) (Corpus, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Corpus{}, err
	}
	var c Corpus
	for i, msg := range raw {
		var doc domain.Document
		if err := json.Unmarshal(msg, &doc); err != nil {
			c.Failed = append(c.Failed, domain.Failure{ID: peekID(msg, i), Reason: err.Error()})
			continue
		}
		if err := doc.Validate(); err != nil {
			c.Failed = append(c.Failed, domain.Failure{ID: doc.ID, Reason: err.Error()})
			continue
		}
		c.Documents = append(c.Documents, doc)
	}
	return c, nil
}

// peekID recovers an id for error reporting from an element that failed to decode.
func peekID(msg json.RawMessage, index int) string {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(msg, &probe); err == nil && probe.ID != nil {
		return fmt.Sprint(probe.ID)
	}
	return fmt.Sprintf("#%d", index+1)
}

func readWith(path string, parse func(io.Reader) ([]domain.Document, error)) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	docs, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// readLines returns the non-blank lines of r, trimmed.
func readLines(r io.Reader) ([]string, error) {
	all, err := readAllLines(r)
	if err != nil {
		return nil, err
	}
	lines := []string{}
	for _, l := range all {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines, nil
}

func readAllLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var out []string
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, err
		}
		if matches == nil {
			matches = []string{p}
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}
