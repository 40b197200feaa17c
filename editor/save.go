package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/relations"
	"github.com/horizons-db/archive-backend/storage"
)

// maxTransfers bounds concurrent object store calls during a save.
const maxTransfers = 4

// SaveResult is the freshly loaded record plus non-fatal sync warnings.
type SaveResult struct {
	Project  *models.Project  `json:"project"`
	Sync     relations.Report `json:"sync"`
	Warnings []string         `json:"warnings,omitempty"`
}

// Save validates the draft, applies staged image changes, writes the row and
// rewrites member links, in that order. On any failure the session stays in
// Editing with the draft intact; image steps that already succeeded are
// recorded in the draft so a retry does not repeat them.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	if s.state != Editing {
		return nil, ErrNotEditing
	}
	d := s.draft
	if strings.TrimSpace(d.Title) == "" {
		return nil, ErrTitleRequired
	}
	if len(d.Creators) == 0 {
		return nil, ErrCreatorRequired
	}

	if err := s.applyDeletes(ctx); err != nil {
		return nil, err
	}
	if err := s.applyUploads(ctx); err != nil {
		return nil, err
	}

	p := s.merged()
	if err := s.deps.Store.UpdateProject(ctx, p, s.original.UpdatedAt); err != nil {
		if keys := d.uploadedKeys(); len(keys) > 0 {
			s.logger.Warn().Err(err).Strs("keys", keys).Msg("row update failed after upload; objects kept for retry")
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	// The row is now current; a retry after a sync failure must compare
	// against the new timestamp.
	s.original.UpdatedAt = p.UpdatedAt

	report, err := s.deps.Sync.Synchronize(ctx, s.projectID, d.Creators, d.Instructors)
	if err != nil {
		return nil, fmt.Errorf("sync members: %w", err)
	}

	saved, err := s.deps.Store.GetProject(ctx, s.projectID)
	if err != nil {
		return nil, fmt.Errorf("reload project: %w", err)
	}
	s.original = saved
	s.draft = nil
	s.state = Viewing
	s.logger.Info().Int("images", len(saved.ImageURLs)).Int("linked", report.Linked).Msg("project saved")

	return &SaveResult{
		Project:  saved.Clone(),
		Sync:     report,
		Warnings: report.Warnings(),
	}, nil
}

// merged builds the row to write from the snapshot and the draft.
func (s *Session) merged() *models.Project {
	d := s.draft
	p := s.original.Clone()
	p.Title = strings.TrimSpace(d.Title)
	p.BriefDescription = models.OptionalString(d.BriefDescription)
	p.FullDescription = models.OptionalString(d.FullDescription)
	p.InstitutionID = d.InstitutionID
	p.Institution = nil
	p.ClassNumber = models.OptionalString(d.ClassNumber)
	p.CourseName = models.OptionalString(d.CourseName)
	p.Assignment = models.OptionalString(d.Assignment)
	p.Term = strings.TrimSpace(d.Term)
	p.Year = d.Year
	p.VideoLink = models.OptionalString(d.VideoLink)
	p.DownloadLink = models.OptionalString(d.DownloadLink)
	p.RepoLink = models.OptionalString(d.RepoLink)
	p.ImageURLs = models.NewTagSlice(d.ImageURLs)
	p.Keywords = models.NewTagSlice(d.Keywords)
	p.Genres = models.NewTagSlice(d.Genres)
	p.TechUsed = models.NewTagSlice(d.TechUsed)
	p.Members = nil
	return p
}

// applyDeletes removes every object staged for deletion. Objects that are
// already gone count as removed. A removed image that came from an earlier
// upload in this session is dropped from ToUpload as well.
func (s *Session) applyDeletes(ctx context.Context) error {
	d := s.draft
	if len(d.ToDelete) == 0 {
		return nil
	}
	done := make([]bool, len(d.ToDelete))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTransfers)
	for i, url := range d.ToDelete {
		g.Go(func() error {
			key := s.deps.Objects.KeyFromURL(url)
			err := s.deps.Objects.Remove(gctx, key)
			if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
				return fmt.Errorf("remove image %s: %w", key, err)
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	remaining := []string{}
	for i, url := range d.ToDelete {
		if done[i] {
			d.ImageURLs = removeString(d.ImageURLs, url)
			d.dropUploaded(url)
		} else {
			remaining = append(remaining, url)
		}
	}
	d.ToDelete = remaining
	return err
}

// applyUploads stores every staged image that has no URL yet and appends the
// resulting URLs in staging order.
func (s *Session) applyUploads(ctx context.Context) error {
	d := s.draft
	now := s.deps.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTransfers)
	for i, u := range d.ToUpload {
		if u.URL != "" {
			continue
		}
		key := storage.KeyFor(now, i, u.Name, u.ContentType)
		g.Go(func() error {
			url, err := s.deps.Objects.Upload(gctx, key, u.ContentType, bytes.NewReader(u.data))
			if err != nil {
				return fmt.Errorf("upload image %s: %w", u.Name, err)
			}
			u.Key = key
			u.URL = url
			return nil
		})
	}
	err := g.Wait()

	for _, u := range d.ToUpload {
		if u.URL != "" && !models.ContainsTag(d.ImageURLs, u.URL) {
			d.ImageURLs = append(d.ImageURLs, u.URL)
		}
	}
	return err
}
