//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/lucasjlepore/sprint-analyzer/pipeline"
)

func main() {
	js.Global().Set("analyzeSprints", js.FuncOf(analyzeSprints))
	select {}
}

// analyzeSprints(fileBytes, options) runs the in-memory pipeline and returns
// the artifacts as a zip alongside per-sprint counts.
func analyzeSprints(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return failure("expected arguments: fileBytes(Uint8Array), options(object)")
	}
	data, err := copyInput(args[0])
	if err != nil {
		return failure(err.Error())
	}

	optsArg := args[1]
	result, err := pipeline.RunBytes(context.Background(), pipeline.BytesOptions{
		SourceFileName: getString(optsArg, "source_file_name", "input.sprintzero"),
		Data:           data,
		Sessions:       getBool(optsArg, "sessions", false),
		Format:         getString(optsArg, "format", "csv"),
		Charts:         getBool(optsArg, "charts", true),
		CopySource:     true,
	})
	if err != nil {
		return failure(err.Error())
	}

	archive, err := result.Archive()
	if err != nil {
		return failure(fmt.Sprintf("create zip: %v", err))
	}
	zipped := js.Global().Get("Uint8Array").New(len(archive))
	js.CopyBytesToJS(zipped, archive)

	series, charts := result.SprintCounts()
	return map[string]any{
		"ok":       true,
		"zip":      zipped,
		"files":    stringsToAny(result.ArtifactNames()),
		"warnings": stringsToAny(result.Warnings),
		"analyzed": len(result.Batch.Results),
		"skipped":  len(result.Batch.Skipped),
		"series":   series,
		"charts":   charts,
	}
}

func copyInput(v js.Value) ([]byte, error) {
	if v.IsUndefined() || v.IsNull() || v.Get("length").Int() == 0 {
		return nil, fmt.Errorf("sprintzero file bytes are required")
	}
	data := make([]byte, v.Get("length").Int())
	if n := js.CopyBytesToGo(data, v); n != len(data) {
		return nil, fmt.Errorf("read %d of %d input bytes from JS", n, len(data))
	}
	return data, nil
}

func failure(msg string) map[string]any {
	return map[string]any{"ok": false, "error": msg}
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.Type() != js.TypeString || out.String() == "" {
		return fallback
	}
	return out.String()
}

func getBool(v js.Value, key string, fallback bool) bool {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.Type() != js.TypeBoolean {
		return fallback
	}
	return out.Bool()
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
