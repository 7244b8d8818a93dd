package marketdata

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/iminoaru/zaphft/services/book"
)

// ClickHouseConfig locates the snapshot store.
type ClickHouseConfig struct {
	Addr     string
	HTTPURL  string // HTTP interface, used for batched staging inserts
	Database string
	Table    string
	Username string
	Password string
}

// ClickHouseSource loads an ordered snapshot stream over the native
// protocol. Prices are stored as Decimal and converted to float64 at the
// boundary, so the store keeps exact values while the engine stays on
// floats.
type ClickHouseSource struct {
	conn  driver.Conn
	cfg   ClickHouseConfig
	snaps []book.Snapshot
	next  int
}

func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSource, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &ClickHouseSource{conn: conn, cfg: cfg}, nil
}

func (s *ClickHouseSource) Close() error { return s.conn.Close() }

// Load pulls the full stream ordered by timestamp, so the replay's
// monotonicity check holds by construction for uncorrupted tables.
func (s *ClickHouseSource) Load(ctx context.Context) error {
	cols := make([]string, 0, 1+4*book.Depth)
	cols = append(cols, "timestamp_us")
	for i := 1; i <= book.Depth; i++ {
		cols = append(cols, fmt.Sprintf("bid_price_%d", i), fmt.Sprintf("bid_qty_%d", i))
	}
	for i := 1; i <= book.Depth; i++ {
		cols = append(cols, fmt.Sprintf("ask_price_%d", i), fmt.Sprintf("ask_qty_%d", i))
	}
	query := fmt.Sprintf("SELECT %s FROM %s.%s ORDER BY timestamp_us",
		strings.Join(cols, ", "), s.cfg.Database, s.cfg.Table)

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("clickhouse query: %w", err)
	}
	defer rows.Close()

	var (
		ts   uint64
		vals [4 * book.Depth]decimal.Decimal
	)
	dest := make([]any, 0, 1+len(vals))
	dest = append(dest, &ts)
	for i := range vals {
		dest = append(dest, &vals[i])
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("clickhouse scan: %w", err)
		}
		var snap book.Snapshot
		snap.TimestampUs = ts
		for i := 0; i < book.Depth; i++ {
			snap.Bids[i] = book.Level{
				Price:    vals[2*i].InexactFloat64(),
				Quantity: vals[2*i+1].InexactFloat64(),
			}
			snap.Asks[i] = book.Level{
				Price:    vals[2*book.Depth+2*i].InexactFloat64(),
				Quantity: vals[2*book.Depth+2*i+1].InexactFloat64(),
			}
		}
		s.snaps = append(s.snaps, snap)
	}
	return rows.Err()
}

func (s *ClickHouseSource) Next() (*book.Snapshot, error) {
	if s.next >= len(s.snaps) {
		return nil, io.EOF
	}
	snap := &s.snaps[s.next]
	s.next++
	return snap, nil
}

// Len is the number of loaded snapshots.
func (s *ClickHouseSource) Len() int { return len(s.snaps) }

// rawSnapshot is the staging-table row. Everything is a string so malformed
// exports land in staging and are filtered during canonicalization instead
// of failing the upload.
type rawSnapshot struct {
	RowIndex    string `json:"row_index"`
	TimestampUs string `json:"timestamp_us"`
	Levels      string `json:"levels"` // flat CSV of the 40 price/qty fields
	FileTag     string `json:"file_tag"`
	IngestedAt  string `json:"ingested_at"`
	Source      string `json:"source"`
}

// BatchInserter uploads snapshots to the staging table over the HTTP
// interface, gzip-compressed JSONEachRow, in fixed-size batches.
type BatchInserter struct {
	cfg        ClickHouseConfig
	httpClient *http.Client
	buffer     []rawSnapshot
	batchSize  int
	fileTag    string
	rowIndex   int
}

func NewBatchInserter(cfg ClickHouseConfig, fileTag string, batchSize int) *BatchInserter {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &BatchInserter{
		cfg:        cfg,
		fileTag:    fileTag,
		batchSize:  batchSize,
		buffer:     make([]rawSnapshot, 0, batchSize),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *BatchInserter) Add(snap *book.Snapshot) error {
	fields := make([]string, 0, 4*book.Depth)
	for _, lv := range snap.Bids {
		fields = append(fields, formatPx(lv.Price), formatPx(lv.Quantity))
	}
	for _, lv := range snap.Asks {
		fields = append(fields, formatPx(lv.Price), formatPx(lv.Quantity))
	}
	b.buffer = append(b.buffer, rawSnapshot{
		RowIndex:    strconv.Itoa(b.rowIndex),
		TimestampUs: strconv.FormatUint(snap.TimestampUs, 10),
		Levels:      strings.Join(fields, ","),
		FileTag:     b.fileTag,
		IngestedAt:  time.Now().UTC().Format("2006-01-02 15:04:05"),
		Source:      "l2_csv",
	})
	b.rowIndex++
	if len(b.buffer) >= b.batchSize {
		return b.Flush()
	}
	return nil
}

func (b *BatchInserter) Flush() error {
	if len(b.buffer) == 0 {
		return nil
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	for _, row := range b.buffer {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal row: %w", err)
		}
		if _, err := gz.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s.raw_snapshots FORMAT JSONEachRow", b.cfg.Database)
	endpoint := fmt.Sprintf("%s/?query=%s&input_format_null_as_default=1", b.cfg.HTTPURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "gzip")
	req.SetBasicAuth(b.cfg.Username, b.cfg.Password)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("clickhouse insert %d: %s", resp.StatusCode, string(body))
	}
	b.buffer = b.buffer[:0]
	return nil
}

func (b *BatchInserter) Close() error { return b.Flush() }

// Ingester runs the staged upload with an idempotency ledger: a file tag
// already present in the ledger is skipped, so re-running an import is safe.
type Ingester struct {
	conn driver.Conn
	cfg  ClickHouseConfig
}

func NewIngester(ctx context.Context, cfg ClickHouseConfig) (*Ingester, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Ingester{conn: conn, cfg: cfg}, nil
}

func (in *Ingester) Close() error { return in.conn.Close() }

// AlreadyIngested reports whether the tag is recorded in the ledger.
func (in *Ingester) AlreadyIngested(ctx context.Context, fileTag string) (bool, error) {
	query := fmt.Sprintf("SELECT count() FROM %s.ingest_ledger WHERE file_tag = ?", in.cfg.Database)
	row := in.conn.QueryRow(ctx, query, fileTag)
	var n uint64
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("ledger check: %w", err)
	}
	return n > 0, nil
}

// RecordIngest writes the ledger entry after a completed upload.
func (in *Ingester) RecordIngest(ctx context.Context, fileTag string, rows int) error {
	query := fmt.Sprintf(
		"INSERT INTO %s.ingest_ledger (file_tag, row_count, source, inserted_at) VALUES (?, ?, ?, now())",
		in.cfg.Database)
	if err := in.conn.Exec(ctx, query, fileTag, uint64(rows), "l2_csv"); err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}

// Canonicalize moves staged rows into the typed snapshot table, casting the
// flat level string into Decimal columns and dropping rows that fail the
// casts. Deduplication is by (timestamp_us, latest ingested_at).
func (in *Ingester) Canonicalize(ctx context.Context) error {
	cols := make([]string, 0, 4*book.Depth)
	sel := make([]string, 0, 4*book.Depth)
	for i := 1; i <= book.Depth; i++ {
		cols = append(cols, fmt.Sprintf("bid_price_%d", i), fmt.Sprintf("bid_qty_%d", i))
	}
	for i := 1; i <= book.Depth; i++ {
		cols = append(cols, fmt.Sprintf("ask_price_%d", i), fmt.Sprintf("ask_qty_%d", i))
	}
	for i, c := range cols {
		sel = append(sel, fmt.Sprintf(
			"toDecimal128OrZero(splitByChar(',', levels)[%d], 8) AS %s", i+1, c))
	}
	query := fmt.Sprintf(`
		INSERT INTO %[1]s.%[2]s
		SELECT
			toUInt64(timestamp_us) AS timestamp_us,
			%[3]s
		FROM %[1]s.raw_snapshots
		WHERE toUInt64OrZero(timestamp_us) > 0
		ORDER BY timestamp_us`,
		in.cfg.Database, in.cfg.Table, strings.Join(sel, ",\n\t\t\t"))
	if err := in.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("canonicalize: %w", err)
	}
	return nil
}
