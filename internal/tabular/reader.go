// Package tabular reads delimited text and spreadsheet files as header+rows frames.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DefaultChunkSize is the number of data rows per frame when none is given.
const DefaultChunkSize = 200000

// sniffLines is how many leading lines DetectDelimiter looks at.
const sniffLines = 8

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var delimiterCandidates = []byte{';', ',', '\t', '|'}

// ErrUnsupported is returned for file extensions the package cannot read.
var ErrUnsupported = errors.New("unsupported tabular file")

// Frame is a slice of rows sharing one header.
// Every row has exactly len(Headers) cells.
type Frame struct {
	Source  string
	Headers []string
	Rows    [][]string
}

// Index returns the position of header name, or -1.
func (f Frame) Index(name string) int {
	for i, h := range f.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Len returns the number of data rows.
func (f Frame) Len() int {
	return len(f.Rows)
}

// Supported reports whether path has an extension Read understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".xlsx":
		return true
	}
	return false
}

// Read streams the file at path as frames of at most chunkSize rows.
// XLSX files yield frames per sheet.
func Read(path string, chunkSize int, fn func(Frame) error) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return ReadCSV(path, chunkSize, fn)
	case ".xlsx":
		return ReadXLSX(path, chunkSize, fn)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
}

// ReadAll loads a whole delimited file into a single frame.
func ReadAll(path string) (Frame, error) {
	var out Frame
	first := true
	err := ReadCSV(path, DefaultChunkSize, func(f Frame) error {
		if first {
			out = f
			first = false
			return nil
		}
		out.Rows = append(out.Rows, f.Rows...)
		return nil
	})
	return out, err
}

// DetectDelimiter counts each candidate delimiter over the first lines of
// sample and returns the most frequent one. Ties keep candidate order and
// a sample with none of them yields ';'.
func DetectDelimiter(sample []byte) rune {
	lines := bytes.SplitN(sample, []byte{'\n'}, sniffLines+1)
	if len(lines) > sniffLines {
		lines = lines[:sniffLines]
	}

	best, bestCount := byte(';'), 0
	for _, c := range delimiterCandidates {
		n := 0
		for _, line := range lines {
			n += bytes.Count(line, []byte{c})
		}
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	return rune(best)
}

// IsUTF8 reports whether r holds valid UTF-8 from start to end.
func IsUTF8(r io.Reader) (bool, error) {
	_, err := io.Copy(io.Discard, transform.NewReader(r, encoding.UTF8Validator))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, encoding.ErrInvalidUTF8) {
		return false, nil
	}
	return false, err
}

// openDecoded opens path and returns a UTF-8 reader over it. Files that are
// not valid UTF-8 are decoded as Windows-1252.
func openDecoded(path string) (io.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	valid, err := IsUTF8(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to scan encoding: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}

	if valid {
		return f, f, nil
	}
	return transform.NewReader(f, charmap.Windows1252.NewDecoder()), f, nil
}

// ReadCSV streams a delimited text file. The delimiter is sniffed, a leading
// BOM is dropped and short or long rows are fitted to the header width.
func ReadCSV(path string, chunkSize int, fn func(Frame) error) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	decoded, file, err := openDecoded(path)
	if err != nil {
		return err
	}
	defer file.Close()

	br := bufio.NewReaderSize(decoded, 64*1024)
	sample, err := br.Peek(64 * 1024)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if bytes.HasPrefix(sample, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return err
		}
		sample = sample[len(utf8BOM):]
	}

	reader := csv.NewReader(br)
	reader.Comma = DetectDelimiter(sample)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", filepath.Base(path), err)
	}
	headers := trimAll(header)

	source := filepath.Base(path)
	emitted := false
	rows := make([][]string, 0, min(chunkSize, 4096))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", source, err)
		}
		if blank(record) {
			continue
		}
		rows = append(rows, fit(record, len(headers)))
		if len(rows) == chunkSize {
			if err := fn(Frame{Source: source, Headers: headers, Rows: rows}); err != nil {
				return err
			}
			emitted = true
			rows = make([][]string, 0, min(chunkSize, 4096))
		}
	}

	// A header-only file still yields one empty frame so callers see its columns.
	if len(rows) > 0 || !emitted {
		return fn(Frame{Source: source, Headers: headers, Rows: rows})
	}
	return nil
}

// ReadXLSX streams every sheet of a workbook. The first non-empty row of a
// sheet is its header. Frames are named "file.xlsx#Sheet".
func ReadXLSX(path string, chunkSize int, fn func(Frame) error) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	base := filepath.Base(path)
	for _, sheet := range wb.GetSheetList() {
		if err := readSheet(wb, sheet, base+"#"+sheet, chunkSize, fn); err != nil {
			return err
		}
	}
	return nil
}

func readSheet(wb *excelize.File, sheet, source string, chunkSize int, fn func(Frame) error) error {
	it, err := wb.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	defer it.Close()

	var headers []string
	var rows [][]string
	emitted := false
	for it.Next() {
		cols, err := it.Columns()
		if err != nil {
			return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if blank(cols) {
			continue
		}
		if headers == nil {
			headers = trimAll(cols)
			continue
		}
		rows = append(rows, fit(cols, len(headers)))
		if len(rows) == chunkSize {
			if err := fn(Frame{Source: source, Headers: headers, Rows: rows}); err != nil {
				return err
			}
			emitted = true
			rows = nil
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("failed to iterate sheet %s: %w", sheet, err)
	}

	if headers == nil {
		return nil
	}
	if len(rows) > 0 || !emitted {
		return fn(Frame{Source: source, Headers: headers, Rows: rows})
	}
	return nil
}

func fit(record []string, width int) []string {
	row := make([]string, width)
	copy(row, record)
	return row
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
