//go:build js

package pipeline

import "errors"

const parquetSupported = false

var errParquetUnsupported = errors.New("parquet output is not supported in js builds")

func writeSeriesParquet(string, []SeriesRow) error {
	return errParquetUnsupported
}

func marshalSeriesParquet([]SeriesRow) ([]byte, error) {
	return nil, errParquetUnsupported
}
