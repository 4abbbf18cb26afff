package monitoring

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type hindcastRecord struct {
	Date           int64   `parquet:"name=date,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	PredictedPrice float64 `parquet:"name=predicted_price,type=DOUBLE"`
	Price          float64 `parquet:"name=price,type=DOUBLE"`
	RunID          string  `parquet:"name=run_id,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// ExportParquet writes the hindcast of a run to a Parquet file at path.
func ExportParquet(res Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(hindcastRecord), 1)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range res.Hindcast {
		rec := hindcastRecord{
			Date:           r.Date.UnixMilli(),
			PredictedPrice: r.PredictedPrice,
			Price:          r.Price.InexactFloat64(),
			RunID:          res.RunID,
		}
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("failed to write hindcast row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file %s: %w", path, err)
	}
	return nil
}
