package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"gallery-backend/models"
	"gallery-backend/storage"
	"gallery-backend/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Rehydrate rebuilds the catalog from what the storage backend already holds,
// so disk uploads survive a restart. Original names are not kept on disk;
// rehydrated entries use the stored filename instead. Files whose content is
// not an allowed image are skipped. Entries already in the catalog are left
// alone, which makes the call safe to repeat.
func (s *ImageService) Rehydrate(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var restored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)

	// one goroutine per category keeps each category's order intact
	for _, category := range s.validator.Categories() {
		category := category
		g.Go(func() error {
			objects, err := s.storage.List(gctx, category)
			if err != nil {
				return fmt.Errorf("list %s: %w", category, err)
			}
			for _, obj := range objects {
				if err := gctx.Err(); err != nil {
					return err
				}
				file, err := s.inspect(gctx, obj)
				if err != nil {
					s.logger.Warn("skipping stored file",
						zap.String("category", obj.Category),
						zap.String("filename", obj.Filename),
						zap.Error(err),
					)
					continue
				}
				if err := s.catalog.Record(gctx, file); err != nil {
					if errors.Is(err, models.ErrDuplicateFile) {
						continue
					}
					return err
				}
				restored.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(restored.Load()), err
	}

	s.logger.Info("catalog rehydrated", zap.Int64("files", restored.Load()))
	return int(restored.Load()), nil
}

// inspect reads a stored file once to sniff its type and compute its checksum
func (s *ImageService) inspect(ctx context.Context, obj storage.ObjectInfo) (models.StoredFile, error) {
	rc, _, err := s.storage.Download(ctx, obj.Category, obj.Filename)
	if err != nil {
		return models.StoredFile{}, err
	}
	defer rc.Close()

	head := make([]byte, validation.SniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return models.StoredFile{}, err
	}
	head = head[:n]

	mediaType, err := s.validator.Detect(head)
	if err != nil {
		return models.StoredFile{}, err
	}

	hasher := newChecksum()
	hasher.Write(head)
	rest, err := io.Copy(hasher, rc)
	if err != nil {
		return models.StoredFile{}, err
	}

	return models.StoredFile{
		Category:     obj.Category,
		Filename:     obj.Filename,
		OriginalName: obj.Filename,
		MediaType:    mediaType,
		SizeBytes:    int64(n) + rest,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt:    obj.ModTime.UTC(),
	}, nil
}
