package store

import (
	"context"
	"errors"
	"time"

	"github.com/grace0927/sccny-live/internal/errs"
	"github.com/grace0927/sccny-live/internal/model"
	"gorm.io/gorm"
)

// gormStore is the PostgreSQL-backed SessionStore.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a SessionStore on the given gorm handle.
func NewGormStore(db *gorm.DB) SessionStore {
	return &gormStore{db: db}
}

func (s *gormStore) CreateSession(ctx context.Context, sess *model.Session) error {
	ent := sessionToEntity(sess)
	return s.db.WithContext(ctx).Create(ent).Error
}

func (s *gormStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var ent model.TranslationSession
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&ent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSessionNotFound
		}
		return nil, err
	}
	return entityToSession(&ent), nil
}

func (s *gormStore) EndSession(ctx context.Context, id string, endedAt time.Time) (*model.Session, error) {
	var ent model.TranslationSession
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&ent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSessionNotFound
		}
		return nil, err
	}
	// Conditional update so concurrent ends race safely: exactly one flips.
	res := s.db.WithContext(ctx).
		Model(&model.TranslationSession{}).
		Where("id = ? AND status = ?", id, string(model.SessionStatusActive)).
		Updates(map[string]interface{}{
			"status":   string(model.SessionStatusEnded),
			"ended_at": endedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.ErrSessionAlreadyEnded
	}
	ent.Status = string(model.SessionStatusEnded)
	ent.EndedAt = &endedAt
	return entityToSession(&ent), nil
}

func (s *gormStore) ListSessions(ctx context.Context, status string, page Page) ([]model.Session, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&model.TranslationSession{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ents []model.TranslationSession
	if err := q.Order("started_at DESC").Offset(page.Offset()).Limit(page.PageSize).Find(&ents).Error; err != nil {
		return nil, 0, err
	}
	out := make([]model.Session, 0, len(ents))
	for i := range ents {
		out = append(out, *entityToSession(&ents[i]))
	}
	return out, total, nil
}

func (s *gormStore) CreateEntry(ctx context.Context, entry *model.Entry) error {
	// Appends are serialized per session by the service, so MAX(seq)+1 is safe.
	var maxSeq int64
	err := s.db.WithContext(ctx).
		Model(&model.TranslationEntry{}).
		Where("session_id = ?", entry.SessionID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return err
	}
	entry.Seq = maxSeq + 1
	ent := &model.TranslationEntry{
		ID:        entry.ID,
		SessionID: entry.SessionID,
		Seq:       entry.Seq,
		Text:      entry.Text,
		Language:  entry.Language,
		CreatedAt: entry.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(ent).Error
}

func (s *gormStore) ListEntries(ctx context.Context, sessionID string, page Page) ([]model.Entry, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&model.TranslationEntry{}).Where("session_id = ?", sessionID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ents []model.TranslationEntry
	if err := q.Order("seq ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&ents).Error; err != nil {
		return nil, 0, err
	}
	return entitiesToEntries(ents), total, nil
}

func (s *gormStore) ListAllEntries(ctx context.Context, sessionID string) ([]model.Entry, error) {
	var ents []model.TranslationEntry
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&ents).Error
	if err != nil {
		return nil, err
	}
	return entitiesToEntries(ents), nil
}

func (s *gormStore) CountEntries(ctx context.Context, sessionID string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&model.TranslationEntry{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	return total, err
}

func sessionToEntity(sess *model.Session) *model.TranslationSession {
	return &model.TranslationSession{
		ID:        sess.ID,
		Title:     sess.Title,
		Language:  sess.Language,
		Status:    string(sess.Status),
		StartedAt: sess.StartedAt,
		EndedAt:   sess.EndedAt,
	}
}

func entityToSession(ent *model.TranslationSession) *model.Session {
	return &model.Session{
		ID:        ent.ID,
		Title:     ent.Title,
		Language:  ent.Language,
		Status:    model.SessionStatus(ent.Status),
		StartedAt: ent.StartedAt,
		EndedAt:   ent.EndedAt,
	}
}

func entitiesToEntries(ents []model.TranslationEntry) []model.Entry {
	out := make([]model.Entry, 0, len(ents))
	for _, e := range ents {
		out = append(out, model.Entry{
			ID:        e.ID,
			SessionID: e.SessionID,
			Seq:       e.Seq,
			Text:      e.Text,
			Language:  e.Language,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
