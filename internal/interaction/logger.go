package interaction

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"convoqa/internal/domain"
)

// TimeLayout is the wall-clock format of the Timestamp column.
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"Timestamp", "Question", "Answer"}

// CSVLogger appends question/answer pairs to a CSV file. Every field is
// quoted and records end with CRLF. The file is created with a header on
// first use and is only ever opened for appending afterwards.
type CSVLogger struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Option configures a CSVLogger.
type Option func(*CSVLogger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *CSVLogger) { l.now = now }
}

func NewCSVLogger(path string, opts ...Option) *CSVLogger {
	l := &CSVLogger{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log appends one entry.
func (l *CSVLogger) Log(question, answer string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureHeader(); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return goerr.Wrap(err, "failed to open interaction log", goerr.V("path", l.path))
	}
	ts := l.now().Local().Format(TimeLayout)
	if _, err := io.WriteString(f, quoteRecord(ts, question, answer)); err != nil {
		_ = f.Close()
		return goerr.Wrap(err, "failed to append interaction", goerr.V("path", l.path))
	}
	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close interaction log", goerr.V("path", l.path))
	}
	return nil
}

// ensureHeader writes the header to a new log, or to an existing empty one
// left behind by an earlier failed write.
func (l *CSVLogger) ensureHeader() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		info, statErr := os.Stat(l.path)
		if statErr != nil || info.Size() > 0 {
			return nil
		}
		f, err = os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	}
	if err != nil {
		return goerr.Wrap(err, "failed to create interaction log", goerr.V("path", l.path))
	}
	if _, err := io.WriteString(f, quoteRecord(header...)); err != nil {
		_ = f.Close()
		_ = os.Remove(l.path)
		return goerr.Wrap(err, "failed to write interaction log header", goerr.V("path", l.path))
	}
	return f.Close()
}

// encoding/csv only quotes when needed, so quoting is done here.
func quoteRecord(fields ...string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	return b.String()
}

// ReadAll parses an interaction log written by CSVLogger.
func ReadAll(path string) ([]domain.InteractionEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open interaction log", goerr.V("path", path))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse interaction log", goerr.V("path", path))
	}
	if len(records) == 0 {
		return nil, nil
	}
	entries := make([]domain.InteractionEntry, 0, len(records)-1)
	for i, rec := range records[1:] {
		ts, err := time.ParseInLocation(TimeLayout, rec[0], time.Local)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid timestamp", goerr.V("path", path), goerr.V("line", i+2))
		}
		entries = append(entries, domain.InteractionEntry{Timestamp: ts, Question: rec[1], Answer: rec[2]})
	}
	return entries, nil
}
