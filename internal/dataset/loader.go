package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"convoqa/internal/domain"
)

// LoadError reports a dataset that is missing, unreadable or malformed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err carries a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// FileLoader reads the knowledge base from a CSV file.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load opens the file and parses it.
func (l *FileLoader) Load() (*domain.KnowledgeBase, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, &LoadError{Source: l.path, Err: goerr.Wrap(err, "failed to open dataset")}
	}
	defer f.Close()
	return ReadCSV(f, l.path)
}

// ReadCSV parses a header-first CSV stream into a knowledge base. The header
// fixes the column order; each record's context joins its non-empty values.
func ReadCSV(r io.Reader, source string) (*domain.KnowledgeBase, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = goerr.New("dataset has no header row")
		} else {
			err = goerr.Wrap(err, "failed to read header")
		}
		return nil, &LoadError{Source: source, Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	kb := &domain.KnowledgeBase{Source: source, Columns: columns}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{
				Source: source,
				Err:    goerr.Wrap(err, "malformed record", goerr.V("row", len(kb.Rows)+1)),
			}
		}
		kb.Rows = append(kb.Rows, newRow(len(kb.Rows), columns, rec))
	}
	return kb, nil
}

func newRow(idx int, columns, values []string) domain.Row {
	fields := make([]domain.Field, len(columns))
	parts := make([]string, 0, len(columns))
	for i, name := range columns {
		v := values[i]
		fields[i] = domain.Field{Name: name, Value: v}
		if strings.TrimSpace(v) == "" {
			continue
		}
		parts = append(parts, v)
	}
	return domain.Row{Index: idx, Fields: fields, Context: strings.Join(parts, " ")}
}
