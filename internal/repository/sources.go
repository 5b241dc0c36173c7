package repository

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"time"

	domrepo "StockML/internal/domain/repository"
	pkgch "StockML/pkg/clickhouse"
	"StockML/pkg/frame"
	xhttp "StockML/pkg/http"
	"StockML/pkg/util"
)

const timestampColumn = "timestamp"

// FileSource reads the raw table from a local CSV file.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource { return &FileSource{path: path} }

func (s *FileSource) Describe() string { return "file:" + s.path }

func (s *FileSource) Load(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	fr, err := frame.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return chronological(fr)
}

// HTTPSource downloads the raw table as CSV, e.g. the AlphaVantage daily
// series with datatype=csv.
type HTTPSource struct {
	url      string
	client   *xhttp.Client
	attempts int
}

const sourceUserAgent = "stockml-prepare/1.0"

func NewHTTPSource(url string, timeout, backoff time.Duration, attempts int) *HTTPSource {
	return &HTTPSource{
		url: url,
		client: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithBackoff(backoff),
			xhttp.WithUserAgent(sourceUserAgent),
		),
		attempts: attempts,
	}
}

func (s *HTTPSource) Describe() string { return "http:" + s.url }

func (s *HTTPSource) Load(ctx context.Context) (*frame.Frame, error) {
	body, err := s.client.Download(ctx, s.url, s.attempts)
	if err != nil {
		return nil, err
	}
	fr, err := frame.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return chronological(fr)
}

// CHBarSource reads daily bars for one symbol from ClickHouse.
type CHBarSource struct {
	db     *sql.DB
	table  string
	symbol string
}

func NewCHBarSource(ch *pkgch.Client, table, symbol string) *CHBarSource {
	return &CHBarSource{db: ch.DB(), table: table, symbol: symbol}
}

func (s *CHBarSource) Describe() string { return fmt.Sprintf("clickhouse:%s/%s", s.table, s.symbol) }

// Schema returns the DDL for the bar table.
func (s *CHBarSource) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            timestamp      DateTime('UTC'),
            symbol         LowCardinality(String),
            open           Float64,
            high           Float64,
            low            Float64,
            close          Float64,
            adjusted_close Float64,
            volume         Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, timestamp)
    `, s.table)}
}

func (s *CHBarSource) Load(ctx context.Context) (*frame.Frame, error) {
	q := fmt.Sprintf(`
        SELECT timestamp, open, high, low, close, adjusted_close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY timestamp ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, s.symbol)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var stamps []string
	var open, high, low, closes, adjusted, volume []float64
	for rows.Next() {
		var ts time.Time
		var o, h, l, c, ac, v float64
		if err := rows.Scan(&ts, &o, &h, &l, &c, &ac, &v); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		stamps = append(stamps, formatStamp(ts))
		open = append(open, o)
		high = append(high, h)
		low = append(low, l)
		closes = append(closes, c)
		adjusted = append(adjusted, ac)
		volume = append(volume, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return frame.New(
		frame.NewText(timestampColumn, stamps),
		frame.NewFloat("open", open),
		frame.NewFloat("high", high),
		frame.NewFloat("low", low),
		frame.NewFloat("close", closes),
		frame.NewFloat("adjusted_close", adjusted),
		frame.NewFloat("volume", volume),
	)
}

// formatStamp writes midnight UTC as a plain date, like the CSV feeds do.
func formatStamp(ts time.Time) string {
	ts = ts.UTC()
	if ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 && ts.Nanosecond() == 0 {
		return ts.Format("2006-01-02")
	}
	return ts.Format(time.RFC3339Nano)
}

// chronological returns f ordered by ascending timestamp. Frames without a
// timestamp column or with unparseable stamps are returned untouched so the
// feature step can report the problem.
func chronological(f *frame.Frame) (*frame.Frame, error) {
	col, err := f.Series(timestampColumn)
	if err != nil {
		return f, nil
	}
	stamps := col.Strings()
	times := make([]time.Time, len(stamps))
	ascending, descending := true, true
	for i, s := range stamps {
		t, ok := util.ParseTime(s)
		if !ok {
			return f, nil
		}
		times[i] = t
		if i > 0 {
			ascending = ascending && !t.Before(times[i-1])
			descending = descending && !t.After(times[i-1])
		}
	}
	switch {
	case ascending:
		return f, nil
	case descending:
		// newest-first feeds such as AlphaVantage
		return f.Reverse(), nil
	}

	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return times[idx[a]].Before(times[idx[b]]) })
	return f.Take(idx)
}

var (
	_ domrepo.DataSource = (*FileSource)(nil)
	_ domrepo.DataSource = (*HTTPSource)(nil)
	_ domrepo.DataSource = (*CHBarSource)(nil)
)
