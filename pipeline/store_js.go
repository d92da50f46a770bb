//go:build js

package pipeline

import (
	"context"
	"errors"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

func saveRun(context.Context, string, string, detection.Params, *sprintzero.Batch) (string, error) {
	return "", errors.New("run store is not supported in js builds")
}
