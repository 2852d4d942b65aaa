package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"smart_climate/internal/logger"
	"smart_climate/internal/models"
	"smart_climate/internal/repository"
)

// ObjectWriter stores one object under key.
type ObjectWriter interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// ArchiveService exports the event log as JSON lines, one object per run,
// containing only events newer than the previous successful export. The
// position is kept in the cursor store under the object prefix, so a restart
// continues where the last export stopped.
type ArchiveService struct {
	eventRepo repository.EventRepo
	cursors   repository.CursorRepo // nil keeps the position in memory only
	writer    ObjectWriter
	prefix    string
	log       *logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	loaded   bool
	since    time.Time
	boundary map[string]struct{} // ids already exported with OccurredAt == since
}

func NewArchiveService(eventRepo repository.EventRepo, cursors repository.CursorRepo, writer ObjectWriter, prefix string, log *logger.Logger) *ArchiveService {
	if log == nil {
		log = logger.Nop()
	}
	return &ArchiveService{
		eventRepo: eventRepo,
		cursors:   cursors,
		writer:    writer,
		prefix:    prefix,
		log:       log.Named("archive"),
		now:       time.Now,
	}
}

// loadCursor reads the stored position once. Must hold s.mu.
func (s *ArchiveService) loadCursor(ctx context.Context) error {
	if s.loaded || s.cursors == nil {
		s.loaded = true
		return nil
	}
	c, err := s.cursors.Load(ctx, s.prefix)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	s.since = c.Since
	s.boundary = make(map[string]struct{}, len(c.Boundary))
	for _, id := range c.Boundary {
		s.boundary[id] = struct{}{}
	}
	s.loaded = true
	if !c.Since.IsZero() {
		s.log.Infow("archive_cursor_loaded", "since", c.Since, "boundary", len(c.Boundary))
	}
	return nil
}

// saveCursor persists the position after a successful put. A failure is
// logged only: the object is already written and the next save catches up.
func (s *ArchiveService) saveCursor(ctx context.Context) {
	if s.cursors == nil {
		return
	}
	ids := make([]string, 0, len(s.boundary))
	for id := range s.boundary {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	err := s.cursors.Save(ctx, models.ArchiveCursor{
		Prefix:    s.prefix,
		Since:     s.since,
		Boundary:  ids,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		s.log.Errorw("archive_cursor_save_failed", "err", err)
	}
}

// Run exports every interval until ctx is canceled.
func (s *ArchiveService) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Export(ctx); err != nil {
				s.log.Errorw("archive_export_failed", "err", err)
			}
		}
	}
}

// Export writes the pending events and returns how many were written.
// Nothing is written when there are no new events.
func (s *ArchiveService) Export(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadCursor(ctx); err != nil {
		return 0, err
	}
	events, err := s.eventRepo.List(ctx, repository.EventFilter{From: s.since})
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}

	var (
		buf      bytes.Buffer
		last     = s.since
		exported = make([]models.ClimateEvent, 0, len(events))
	)
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		// From is inclusive; skip what the previous export already covered
		if ev.OccurredAt.Before(s.since) {
			continue
		}
		if _, done := s.boundary[ev.EventID]; done && ev.OccurredAt.Equal(s.since) {
			continue
		}
		if err := enc.Encode(ev); err != nil {
			return 0, fmt.Errorf("encode event %s: %w", ev.EventID, err)
		}
		if ev.OccurredAt.After(last) {
			last = ev.OccurredAt
		}
		exported = append(exported, ev)
	}
	if len(exported) == 0 {
		return 0, nil
	}

	key := s.objectKey(s.now().UTC())
	if err := s.writer.Put(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	if !last.Equal(s.since) || s.boundary == nil {
		s.boundary = make(map[string]struct{})
	}
	for _, ev := range exported {
		if ev.OccurredAt.Equal(last) {
			s.boundary[ev.EventID] = struct{}{}
		}
	}
	s.since = last
	s.saveCursor(ctx)
	s.log.Infow("archive_exported", "key", key, "events", len(exported))
	return len(exported), nil
}

func (s *ArchiveService) objectKey(now time.Time) string {
	return path.Join(s.prefix, now.Format("2006/01/02"), fmt.Sprintf("events-%s.jsonl", now.Format("150405.000000000")))
}
