package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	dom "github.com/gwa2100/dndnotus/internal/domain"
	"github.com/gwa2100/dndnotus/internal/repo"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrEmptyContent = errors.New("content must not be empty")
	ErrNotDM        = errors.New("dm permission required")
)

// NoteCache caches per-user note lists. A nil list from Get means a miss.
type NoteCache interface {
	GetUserNotes(ctx context.Context, userID int64) ([]dom.Note, error)
	SetUserNotes(ctx context.Context, userID int64, list []dom.Note) error
	InvalidateUser(ctx context.Context, userID int64) error
	InvalidateAll(ctx context.Context) error
}

// NoteService handles note creation, listing, broadcast and deletion.
type NoteService struct {
	notes repo.NoteRepo
	users repo.UserRepo
	cache NoteCache
	sf    singleflight.Group
}

// NewNoteService creates a NoteService. If c is nil, caching is disabled.
func NewNoteService(notes repo.NoteRepo, users repo.UserRepo, c NoteCache) *NoteService {
	return &NoteService{notes: notes, users: users, cache: c}
}

// Create inserts a single note owned by userID.
func (s *NoteService) Create(ctx context.Context, userID int64, content string) (dom.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return dom.Note{}, ErrEmptyContent
	}
	n, err := s.notes.Create(ctx, userID, content)
	if err != nil {
		return dom.Note{}, err
	}
	s.invalidateUser(ctx, userID)
	return n, nil
}

// Broadcast creates one dm_post note per existing user with identical
// content. Only a DM may broadcast. Returns the number of notes created.
func (s *NoteService) Broadcast(ctx context.Context, u dom.User, content string) (int64, error) {
	if !u.IsDM() {
		return 0, ErrNotDM
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, ErrEmptyContent
	}
	n, err := s.notes.CreateBroadcast(ctx, content)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateAll(ctx)
	}
	return n, nil
}

// ListForUser returns the note groups for the home view: every user's notes
// for a DM, only the caller's otherwise. Notes within a group are newest
// first.
func (s *NoteService) ListForUser(ctx context.Context, u dom.User) ([]dom.UserNotes, error) {
	if !u.IsDM() {
		notes, err := s.notesFor(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		return []dom.UserNotes{{User: u, Notes: notes}}, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	groups := make([]dom.UserNotes, 0, len(users))
	for _, user := range users {
		notes, err := s.notesFor(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		groups = append(groups, dom.UserNotes{User: user, Notes: notes})
	}
	return groups, nil
}

// Delete removes a note. The note must exist, belong to userID and not be a
// broadcast; broadcast notes have no deletion path for anyone.
func (s *NoteService) Delete(ctx context.Context, userID, noteID int64) error {
	n, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if n.UserID != userID || n.DMPost {
		return ErrForbidden
	}
	if err := s.notes.Delete(ctx, noteID); err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

func (s *NoteService) notesFor(ctx context.Context, userID int64) ([]dom.Note, error) {
	if s.cache != nil {
		key := "list:" + strconv.FormatInt(userID, 10)
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if list, err := s.cache.GetUserNotes(ctx, userID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.notes.ListByUser(ctx, userID)
			if err != nil {
				return nil, err
			}
			// Empty lists cache as a non-nil slice so they still count as hits.
			if list == nil {
				list = []dom.Note{}
			}
			_ = s.cache.SetUserNotes(ctx, userID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.Note), nil
	}
	return s.notes.ListByUser(ctx, userID)
}

func (s *NoteService) invalidateUser(ctx context.Context, userID int64) {
	if s.cache != nil {
		_ = s.cache.InvalidateUser(ctx, userID)
	}
}
