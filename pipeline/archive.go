package pipeline

import (
	"archive/zip"
	"bytes"
	"sort"
	"strings"
	"time"
)

// Archive groups for RunBytes artifacts, in archive order.
const (
	groupDocument = iota
	groupSeries
	groupChart
)

func artifactGroup(name string) int {
	switch {
	case strings.HasPrefix(name, "series/"):
		return groupSeries
	case strings.HasPrefix(name, "charts/"):
		return groupChart
	default:
		return groupDocument
	}
}

// ArtifactNames lists the in-memory artifacts with top-level documents first,
// then per-sprint series, then charts, each group in name order.
func (r *BytesResult) ArtifactNames() []string {
	names := make([]string, 0, len(r.Files))
	for name := range r.Files {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		gi, gj := artifactGroup(names[i]), artifactGroup(names[j])
		if gi != gj {
			return gi < gj
		}
		return names[i] < names[j]
	})
	return names
}

// SprintCounts reports how many series and chart files the result holds.
func (r *BytesResult) SprintCounts() (series, charts int) {
	for name := range r.Files {
		switch artifactGroup(name) {
		case groupSeries:
			series++
		case groupChart:
			charts++
		}
	}
	return series, charts
}

// Archive zips the artifacts in ArtifactNames order, stamped with the Unix
// epoch.
func (r *BytesResult) Archive() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	epoch := time.Unix(0, 0).UTC()

	for _, name := range r.ArtifactNames() {
		h := &zip.FileHeader{Name: name, Method: zip.Deflate}
		h.SetModTime(epoch)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(r.Files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
