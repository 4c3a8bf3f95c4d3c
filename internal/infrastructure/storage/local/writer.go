package local

import (
	"context"
	"os"
	"path/filepath"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// DatasetWriter is the labeling.Sink that writes the dataset directory.
type DatasetWriter struct {
	dir    string
	logger logging.Logger
}

var _ labeling.Sink = (*DatasetWriter)(nil)

// NewDatasetWriter writes into dir, creating it on first export.
func NewDatasetWriter(dir string, logger logging.Logger) *DatasetWriter {
	return &DatasetWriter{dir: dir, logger: logging.OrNop(logger).Named("local")}
}

// Name implements labeling.Sink.
func (w *DatasetWriter) Name() string { return "local" }

// Dir returns the output directory.
func (w *DatasetWriter) Dir() string { return w.dir }

// Export renders res and replaces every dataset file in the directory. Each
// file is written to a temporary name first and renamed into place.
func (w *DatasetWriter) Export(ctx context.Context, res *labeling.Result) error {
	artifacts, err := Render(res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to create output directory %s", w.dir)
	}
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(w.dir, a.Name)
		if err := writeFileAtomic(path, a.Data); err != nil {
			return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to write %s", path)
		}
		w.logger.Debug("wrote dataset file", logging.String("path", path), logging.Int("bytes", len(a.Data)))
	}
	w.logger.Info("dataset written",
		logging.String("dir", w.dir),
		logging.Int("files", len(artifacts)),
		logging.Int("queries", len(res.Queries)),
	)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
