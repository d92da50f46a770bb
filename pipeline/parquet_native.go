//go:build !js

package pipeline

import (
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetSupported = true

type seriesParquetRow struct {
	SampleIndex  int64   `parquet:"name=sample_index, type=INT64"`
	Timestamp    float64 `parquet:"name=timestamp, type=DOUBLE"`
	TRel         float64 `parquet:"name=t_rel, type=DOUBLE"`
	RawMagnitude float64 `parquet:"name=raw_magnitude, type=DOUBLE"`
	Rolling      float64 `parquet:"name=rolling, type=DOUBLE"`
	RollingValid bool    `parquet:"name=rolling_valid, type=BOOLEAN"`
}

func writeSeriesRows(fw source.ParquetFile, rows []SeriesRow) error {
	pw, err := writer.NewParquetWriter(fw, new(seriesParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, s := range rows {
		row := seriesParquetRow{
			SampleIndex:  int64(s.SampleIndex),
			Timestamp:    s.Timestamp,
			TRel:         s.TRel,
			RawMagnitude: s.RawMagnitude,
			Rolling:      s.Rolling,
			RollingValid: s.RollingValid,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

func writeSeriesParquet(path string, rows []SeriesRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := writeSeriesRows(fw, rows); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func marshalSeriesParquet(rows []SeriesRow) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeSeriesRows(fw, rows); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}
