// internal/session/photos.go
package session

import (
	"context"
	"sync"

	"draft-engine/internal/common/metrics"
	"draft-engine/internal/models"
)

// regeneratePhotos rebuilds every renderable photo URL from its durable path.
//
// This runs unconditionally on every load where photoPaths is present, even
// when photos already look populated: signed URLs expire on their own clock,
// which the draft's lastModified cannot proxy for. Regeneration happens only
// while a snapshot is being adopted, never on re-render, so repeated renders
// of the same load never cause a request storm.
func (s *Session) regeneratePhotos(ctx context.Context, draft *models.Draft) {
	if s.resolver == nil {
		return
	}

	if len(draft.PropertyData.PhotoPaths) > 0 {
		draft.PropertyData.Photos = s.resolveAll(ctx, draft.PropertyData.PhotoPaths)
	}
	s.regenerateAreaPhotos(ctx, draft.Areas)
}

// regenerateAreaPhotos rebuilds area and asset photo URLs in place. Areas
// adopted from durable storage outside Open go through here too, so persisted
// URLs are never trusted regardless of how a snapshot reached memory.
func (s *Session) regenerateAreaPhotos(ctx context.Context, areas []models.Area) {
	if s.resolver == nil {
		return
	}
	for i := range areas {
		area := &areas[i]
		if len(area.PhotoPaths) > 0 {
			area.Photos = s.resolveAll(ctx, area.PhotoPaths)
		}
		for j := range area.Assets {
			asset := &area.Assets[j]
			if len(asset.PhotoPaths) > 0 {
				asset.Photos = s.resolveAll(ctx, asset.PhotoPaths)
			}
		}
	}
}

// resolveAll mints a fresh URL per path with bounded parallelism. The result
// order matches the path order; a path that fails to resolve is dropped, so a
// partially illustrated area is preferred over a load failure.
func (s *Session) resolveAll(ctx context.Context, paths []string) []string {
	concurrency := s.cfg.ResolverConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	type slot struct {
		url string
		ok  bool
	}
	slots := make([]slot, len(paths))

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	for i, path := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			url, err := s.resolver.Resolve(ctx, s.bucket, path)
			if err != nil {
				metrics.ReferenceResolutions.WithLabelValues("failed").Inc()
				s.logger.Warn("photo reference resolution failed, dropping", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
				return
			}
			metrics.ReferenceResolutions.WithLabelValues("ok").Inc()
			slots[i] = slot{url: url, ok: true}
		}(i, path)
	}
	wg.Wait()

	urls := make([]string, 0, len(paths))
	for _, sl := range slots {
		if sl.ok {
			urls = append(urls, sl.url)
		}
	}
	return urls
}
