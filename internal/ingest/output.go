package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// WriteArtifact serializes one dataset's per-area document into the output
// directory and returns the written path. Map keys are area ids, which
// encoding/json emits sorted, so reruns over identical input produce
// byte-identical files.
func WriteArtifact(outputDir, filename string, doc any) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "ingest: create output dir %s", outputDir)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "ingest: marshal artifact")
	}
	data = append(data, '\n')

	path := filepath.Join(outputDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "ingest: write artifact %s", path)
	}

	zap.L().Info("wrote artifact",
		zap.String("path", path),
		zap.Int("bytes", len(data)))
	return path, nil
}
