package index

import (
	"log/slog"
	"time"

	"github.com/starford/schemakit/internal/checksum"
	"github.com/starford/schemakit/internal/parser"
	"github.com/starford/schemakit/internal/storage"
)

// Sync walks the document store and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db Catalog, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses the file stored at path and upserts it into db.
func IndexFile(db Catalog, path string, data []byte, updatedAt time.Time) (*parser.Result, error) {
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	row := DocumentRow{
		Path:        path,
		Kind:        string(res.Kind),
		Name:        res.Family.Name,
		Version:     res.Version,
		Major:       res.Components[0],
		Minor:       res.Components[1],
		Patch:       res.Components[2],
		Enumerators: res.Components[3],
		Locked:      res.Locked,
		Title:       res.Title,
		Checksum:    checksum.Sum(data),
		UpdatedAt:   updatedAt,
	}
	if err := db.UpsertDocument(row, res.Body, res.Refs); err != nil {
		return nil, err
	}
	return res, nil
}
