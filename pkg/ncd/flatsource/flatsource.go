// Package flatsource implements ncd.ValueSource over a delimited text file:
// one record per line, with a configurable field to use as the value, the
// whole (trimmed, comment-stripped) line as the key. It mirrors the
// "flat" input format of the original ncd-build tool.
package flatsource

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ens-ds23/ncd/pkg/ncd"
)

// Config controls how lines are parsed into records.
type Config struct {
	// Field is the 1-based index of the whitespace- or Separator-
	// delimited field to use as the value.
	Field int

	// Separator splits fields on this exact string. A nil Separator
	// splits on runs of arbitrary whitespace instead (like strings.Fields).
	Separator *string

	// SkipBlank drops lines that are empty after comment-stripping and
	// trimming.
	SkipBlank bool

	// CommentChar, if non-empty, marks comment lines: a line whose first
	// non-whitespace character is CommentChar is dropped entirely.
	CommentChar string

	// InlineComments additionally strips everything from the first
	// occurrence of CommentChar onward, even mid-line. Requires
	// CommentChar to be set.
	InlineComments bool

	// TrimTail strips trailing whitespace from each line before it is
	// used as the key or split into fields.
	TrimTail bool
}

// DefaultConfig matches the original tool's non-careful defaults: field 1,
// whitespace-separated, blank lines skipped, no comment handling, trailing
// whitespace trimmed.
func DefaultConfig() Config {
	return Config{
		Field:     1,
		SkipBlank: true,
		TrimTail:  true,
	}
}

// Source is an ncd.ValueSource backed by a text file on disk.
type Source struct {
	path string
	cfg  Config

	f       *os.File
	scanner *bufio.Scanner
	lineNo  int
}

// New returns a Source reading path under cfg. It does not open the file
// until the first call to Restart.
func New(path string, cfg Config) (*Source, error) {
	if cfg.InlineComments && cfg.CommentChar == "" {
		return nil, fmt.Errorf("flatsource: InlineComments requires CommentChar")
	}
	if cfg.Field < 1 {
		return nil, fmt.Errorf("flatsource: Field must be >= 1")
	}
	return &Source{path: path, cfg: cfg}, nil
}

// Restart implements ncd.ValueSource.
func (s *Source) Restart() error {
	if s.f != nil {
		s.f.Close()
	}
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	s.f = f
	s.scanner = bufio.NewScanner(f)
	s.scanner.Buffer(make([]byte, 64*1024), 1<<20)
	s.lineNo = 0
	return nil
}

// Next implements ncd.ValueSource.
func (s *Source) Next() (key, value []byte, ok bool, err error) {
	if s.scanner == nil {
		return nil, nil, false, fmt.Errorf("flatsource: Next called before Restart")
	}
	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, nil, false, err
			}
			return nil, nil, false, nil
		}
		s.lineNo++
		line := s.scanner.Text()

		if s.cfg.CommentChar != "" {
			leading := strings.TrimLeft(line, " \t")
			if strings.HasPrefix(leading, s.cfg.CommentChar) {
				continue
			}
			if s.cfg.InlineComments {
				if idx := strings.Index(line, s.cfg.CommentChar); idx >= 0 {
					line = line[:idx]
				}
			}
		}
		if s.cfg.TrimTail {
			line = strings.TrimRight(line, " \t\r")
		}
		if s.cfg.SkipBlank && line == "" {
			continue
		}

		var fields []string
		if s.cfg.Separator == nil {
			fields = strings.Fields(line)
		} else {
			fields = strings.Split(line, *s.cfg.Separator)
		}
		if s.cfg.Field > len(fields) {
			return nil, nil, false, fmt.Errorf("flatsource: line %d has %d fields, field %d requested", s.lineNo, len(fields), s.cfg.Field)
		}
		return []byte(line), []byte(fields[s.cfg.Field-1]), true, nil
	}
}

// Close releases the underlying file. It is safe to call even if Restart
// was never called.
func (s *Source) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

var _ ncd.ValueSource = (*Source)(nil)
