package internal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// CSVReader iterates the rows of a headered CSV file. Rows that fail to
// parse are skipped and counted instead of aborting the import, the
// datasets are known to contain a handful of malformed lines.
type CSVReader struct {
	file    *os.File
	reader  *csv.Reader
	header  map[string]int
	skipped uint64
	err     error
}

// OpenCSV opens path and consumes its header line.
func OpenCSV(path string) (*CSVReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	head, err := reader.Read()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("unable to read header of %s: %w", path, err)
	}
	header := make(map[string]int, len(head))
	for i, name := range head {
		header[strings.TrimPrefix(name, "\uFEFF")] = i
	}
	return &CSVReader{file: file, reader: reader, header: header}, nil
}

// Row is one record with access to its values by column name.
type Row struct {
	header map[string]int
	fields []string
}

// Get returns the value of the named column. Columns missing from the
// file and short rows yield an empty string.
func (r Row) Get(name string) string {
	idx, ok := r.header[name]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return r.fields[idx]
}

// Next returns the next row. ok is false once the file is exhausted or
// a non recoverable read error occurred, see Err.
func (c *CSVReader) Next() (row Row, ok bool) {
	for {
		fields, err := c.reader.Read()
		if err == nil {
			return Row{header: c.header, fields: fields}, true
		}
		if errors.Is(err, io.EOF) {
			return Row{}, false
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			c.skipped++
			zap.S().Debugf("Skipping malformed csv line %d: %s", parseErr.Line, parseErr.Err)
			continue
		}
		c.err = err
		return Row{}, false
	}
}

// ResolveColumn returns the first of the given column names present in
// the header. The datasets name their columns inconsistently.
func (c *CSVReader) ResolveColumn(names ...string) (string, bool) {
	for _, name := range names {
		if _, ok := c.header[name]; ok {
			return name, true
		}
	}
	return "", false
}

// Skipped returns the number of rows dropped due to parse failures.
func (c *CSVReader) Skipped() uint64 {
	return c.skipped
}

// Err returns the error that stopped the iteration, if any.
func (c *CSVReader) Err() error {
	return c.err
}

func (c *CSVReader) Close() error {
	return c.file.Close()
}
