package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Generation is the local record of a remote generation task, updated
// as polls or webhook events observe new states.
type Generation struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TaskID    string `gorm:"uniqueIndex;not null;default:''"`
	Model     string `gorm:"index;not null;default:''"`
	Operation string `gorm:"not null;default:''"`
	Status    string `gorm:"index;not null;default:''"`

	Prompt string `gorm:"not null;default:''"`
	Lyrics string `gorm:"not null;default:''"`
	Style  string `gorm:"not null;default:''"`
	Title  string `gorm:"not null;default:''"`

	ClipID   string  `gorm:"not null;default:''"`
	Audio    string  `gorm:"not null;default:''"`
	Video    string  `gorm:"not null;default:''"`
	Image    string  `gorm:"not null;default:''"`
	Duration float32 `gorm:"not null;default:0"`
	Error    string  `gorm:"not null;default:''"`

	File       string `gorm:"not null;default:''"`
	Downloaded bool   `gorm:"index"`

	CompletedAt *time.Time
}

func (s *Store) GetGeneration(ctx context.Context, id string) (*Generation, error) {
	var v Generation
	if err := s.db.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get generation %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) GetGenerationByTask(ctx context.Context, taskID string) (*Generation, error) {
	var v Generation
	if err := s.db.First(&v, "task_id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get generation for task %s: %w", taskID, err)
	}
	return &v, nil
}

func (s *Store) SetGeneration(ctx context.Context, v *Generation) error {
	if err := s.db.Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set generation %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteGeneration(ctx context.Context, id string) error {
	if err := s.db.Delete(&Generation{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete generation %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListGenerations(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Generation, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Generation{}

	q := s.db.Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list generations: %w", err)
	}
	return vs, nil
}

// NextGeneration returns the first generation matching the filters,
// used to pick pending work such as completed tasks not yet downloaded.
func (s *Store) NextGeneration(ctx context.Context, filter ...Filter) (*Generation, error) {
	var v Generation

	q := s.db.Order("created_at asc")
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if err := q.First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get next generation: %w", err)
	}
	return &v, nil
}
