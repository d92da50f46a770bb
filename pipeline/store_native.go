//go:build !js

package pipeline

import (
	"context"
	"fmt"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/detection"
	"github.com/lucasjlepore/sprint-analyzer/store"
)

func saveRun(ctx context.Context, path, source string, params detection.Params, batch *sprintzero.Batch) (string, error) {
	s, err := store.Open(path)
	if err != nil {
		return "", fmt.Errorf("open run store: %w", err)
	}
	defer s.Close()

	run, err := s.SaveRun(ctx, source, params, batch)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	return run.ID, nil
}
