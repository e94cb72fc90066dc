package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scormbridge/internal/domain"
	"github.com/yungbote/scormbridge/internal/platform/logger"
)

type AttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.Attempt) (*domain.Attempt, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Attempt, error)
	GetLatest(ctx context.Context, tx *gorm.DB, learnerID, packageRoot string) (*domain.Attempt, error)
	ListByLearner(ctx context.Context, tx *gorm.DB, learnerID string, limit int) ([]*domain.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, row *domain.Attempt) error
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &attemptRepo{db: db, log: baseLog.With("repo", "AttemptRepo")}
}

func (r *attemptRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.Attempt) (*domain.Attempt, error) {
	if row == nil {
		return nil, errors.New("nil attempt")
	}
	if err := r.tx(tx).WithContext(ctx).Create(row).Error; err != nil {
		r.log.Error("Failed to create attempt", "learner_id", row.LearnerID, "error", err)
		return nil, err
	}
	return row, nil
}

// GetByID returns nil without error when the attempt does not exist.
func (r *attemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Attempt, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row domain.Attempt
	err := r.tx(tx).WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetLatest returns the learner's most recent attempt on a package, or nil.
func (r *attemptRepo) GetLatest(ctx context.Context, tx *gorm.DB, learnerID, packageRoot string) (*domain.Attempt, error) {
	if learnerID == "" || packageRoot == "" {
		return nil, nil
	}
	var row domain.Attempt
	err := r.tx(tx).WithContext(ctx).
		Where("learner_id = ? AND package_root = ?", learnerID, packageRoot).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *attemptRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID string, limit int) ([]*domain.Attempt, error) {
	var results []*domain.Attempt
	if learnerID == "" {
		return results, nil
	}
	q := r.tx(tx).WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attemptRepo) Update(ctx context.Context, tx *gorm.DB, row *domain.Attempt) error {
	if row == nil || row.ID == uuid.Nil {
		return errors.New("attempt has no id")
	}
	return r.tx(tx).WithContext(ctx).Save(row).Error
}
