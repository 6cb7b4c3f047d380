package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
)

// multipartThreshold is the payload size above which uploads switch to the
// multipart manager.
const multipartThreshold = 8 * 1024 * 1024

// TradeArchiver moves trades older than a cutoff out of the primary store:
// serialize to JSONL, upload to blob storage partitioned by month, then
// delete. Rows are removed only after the upload succeeded, so a failed run
// leaves the primary store intact and the next run re-archives.
type TradeArchiver struct {
	writer domain.BlobWriter
	db     domain.TxRunner
	logger *slog.Logger
}

// NewTradeArchiver creates a TradeArchiver.
func NewTradeArchiver(writer domain.BlobWriter, db domain.TxRunner, logger *slog.Logger) *TradeArchiver {
	return &TradeArchiver{
		writer: writer,
		db:     db,
		logger: logger.With(slog.String("component", "trade_archiver")),
	}
}

// ArchiveTrades archives and prunes all trades recorded before the cutoff,
// returning the number archived. No trades in range is a successful no-op.
func (a *TradeArchiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	var trades []domain.Trade
	err := a.db.Do(ctx, func(ctx context.Context, st domain.Store) error {
		ts, err := st.Trades().ListBefore(ctx, before)
		if err != nil {
			return err
		}
		trades = ts
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartThreshold)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	var deleted int64
	err = a.db.InTx(ctx, func(ctx context.Context, st domain.Store) error {
		n, err := st.Trades().DeleteBefore(ctx, before)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades prune: %w", err)
	}

	a.logger.InfoContext(ctx, "trade archive written",
		slog.String("path", path),
		slog.Int("archived", len(trades)),
		slog.Int64("pruned", deleted),
	)
	return int64(len(trades)), nil
}

// archivePath builds the object key for an archive, partitioned by the
// year-month of the cutoff: archive/trades/2025-01.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
