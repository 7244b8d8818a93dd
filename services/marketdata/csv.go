package marketdata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/iminoaru/zaphft/services/book"
)

// Exchange L2 export layout: row_index, timestamp_us, datetime, then ten
// (price, qty) pairs per side, bids first.
const (
	csvMetaColumns = 3
	csvColumns     = csvMetaColumns + 4*book.Depth
)

// CSVSource streams snapshots from an L2 export file. Rows are decoded one
// at a time, so file size does not bound run length.
type CSVSource struct {
	f      *os.File
	r      *csv.Reader
	row    int
	sawHdr bool
}

// OpenCSV opens an L2 export. A UTF-16 BOM is detected and transparently
// decoded, matching files produced by spreadsheet tooling.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	br := bufio.NewReader(f)
	if b, _ := br.Peek(2); len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("rewind csv: %w", err)
		}
		tr := transform.NewReader(f, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
		br = bufio.NewReader(tr)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	r.LazyQuotes = true
	return &CSVSource{f: f, r: r}, nil
}

func (s *CSVSource) Close() error { return s.f.Close() }

// Next decodes the next data row. The header row is skipped; a row that is
// too short or fails to parse is reported as an error with its row number
// so the replay can classify it as malformed input.
func (s *CSVSource) Next() (*book.Snapshot, error) {
	for {
		rec, err := s.r.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", s.row, err)
		}
		s.row++
		if !s.sawHdr {
			s.sawHdr = true
			if len(rec) > 0 && !isNumeric(rec[0]) {
				continue
			}
		}
		if len(rec) < csvMetaColumns+2 {
			return nil, fmt.Errorf("csv row %d: %d fields, want at least %d", s.row, len(rec), csvMetaColumns+2)
		}
		return parseRow(rec, s.row)
	}
}

func parseRow(rec []string, row int) (*book.Snapshot, error) {
	ts, err := strconv.ParseUint(cleanField(rec[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("csv row %d: timestamp_us: %w", row, err)
	}
	snap := &book.Snapshot{TimestampUs: ts}

	// Missing trailing levels stay zero-quantity, which Validate treats as
	// absent depth rather than an error.
	for i := 0; i < book.Depth; i++ {
		base := csvMetaColumns + 2*i
		if base+1 < len(rec) {
			snap.Bids[i].Price = parseFloat(rec[base])
			snap.Bids[i].Quantity = parseFloat(rec[base+1])
		}
		base = csvMetaColumns + 2*book.Depth + 2*i
		if base+1 < len(rec) {
			snap.Asks[i].Price = parseFloat(rec[base])
			snap.Asks[i].Quantity = parseFloat(rec[base+1])
		}
	}
	return snap, nil
}

func cleanField(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimPrefix(s, "\uFEFF"), `"`))
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(cleanField(s), 64)
	return v
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(cleanField(s), 64)
	return err == nil
}

// WriteCSV writes snapshots in the exchange export layout, header included.
func WriteCSV(path string, snaps []book.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(bufio.NewWriter(f))
	header := make([]string, 0, csvColumns)
	header = append(header, "row_index", "timestamp_us", "datetime")
	for i := 1; i <= book.Depth; i++ {
		header = append(header, fmt.Sprintf("bid_price_%d", i), fmt.Sprintf("bid_qty_%d", i))
	}
	for i := 1; i <= book.Depth; i++ {
		header = append(header, fmt.Sprintf("ask_price_%d", i), fmt.Sprintf("ask_qty_%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	rec := make([]string, csvColumns)
	for i, snap := range snaps {
		rec[0] = strconv.Itoa(i)
		rec[1] = strconv.FormatUint(snap.TimestampUs, 10)
		rec[2] = ""
		for j := 0; j < book.Depth; j++ {
			rec[csvMetaColumns+2*j] = formatPx(snap.Bids[j].Price)
			rec[csvMetaColumns+2*j+1] = formatPx(snap.Bids[j].Quantity)
			rec[csvMetaColumns+2*book.Depth+2*j] = formatPx(snap.Asks[j].Price)
			rec[csvMetaColumns+2*book.Depth+2*j+1] = formatPx(snap.Asks[j].Quantity)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
