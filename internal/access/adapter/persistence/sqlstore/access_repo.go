package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"
	"scl90-gate/internal/shared/logger"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// SQLAccessRepository implements AccessRepository on a relational database
// through GORM.
type SQLAccessRepository struct {
	db  *gorm.DB
	log logger.Logger
}

// NewSQLiteAccessRepository opens (creating if needed) a SQLite database at
// path and migrates the schema.
func NewSQLiteAccessRepository(ctx context.Context, path string, log logger.Logger) (*SQLAccessRepository, error) {
	// WAL plus a busy timeout lets concurrent writers queue instead of failing
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=10000&_foreign_keys=1", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return NewSQLAccessRepository(ctx, db, log)
}

// NewSQLAccessRepository wraps an open GORM handle and migrates the schema
func NewSQLAccessRepository(ctx context.Context, db *gorm.DB, log logger.Logger) (*SQLAccessRepository, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := db.WithContext(ctx).AutoMigrate(&tableAccessCode{}, &tableSession{}); err != nil {
		return nil, fmt.Errorf("failed to migrate access schema: %w", err)
	}
	return &SQLAccessRepository{db: db, log: log.WithComponent("sqlstore")}, nil
}

func (r *SQLAccessRepository) FindAccessCodeByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	var row tableAccessCode
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccessCodeNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *SQLAccessRepository) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	var row tableSession
	err := r.db.WithContext(ctx).Where("session_token = ?", token).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// InsertSessionIfAbsent uses INSERT ... ON CONFLICT DO NOTHING on the token
func (r *SQLAccessRepository) InsertSessionIfAbsent(ctx context.Context, session *model.Session) error {
	row := &tableSession{
		SessionToken:  session.SessionToken,
		AccessCodeID:  session.AccessCodeID,
		FirstAccessAt: session.FirstAccessAt.UTC(),
		LastAccessAt:  session.LastAccessAt.UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_token"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionExists
	}
	return nil
}

func (r *SQLAccessRepository) SetActivatedAtIfNull(ctx context.Context, accessCodeID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&tableAccessCode{}).
		Where("id = ? AND activated_at IS NULL", accessCodeID).
		Update("activated_at", at.UTC())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *SQLAccessRepository) TouchLastAccess(ctx context.Context, token string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&tableSession{}).
		Where("session_token = ?", token).
		Update("last_access_at", at.UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (r *SQLAccessRepository) ListAccessCodes(ctx context.Context) ([]*model.AccessCode, error) {
	var rows []tableAccessCode
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	codes := make([]*model.AccessCode, 0, len(rows))
	for i := range rows {
		codes = append(codes, rows[i].toModel())
	}
	return codes, nil
}

func (r *SQLAccessRepository) CreateAccessCode(ctx context.Context, code *model.AccessCode) error {
	if code == nil {
		return errors.New("access code cannot be nil")
	}
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	row := &tableAccessCode{
		ID:          code.ID,
		Code:        code.Code,
		IsActive:    code.IsActive,
		ActivatedAt: code.ActivatedAt,
		CreatedAt:   code.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *SQLAccessRepository) ResetAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	return r.updateByCode(ctx, code, map[string]interface{}{
		"is_active":    true,
		"activated_at": nil,
	})
}

func (r *SQLAccessRepository) SetAccessCodeActive(ctx context.Context, code string, active bool) (*model.AccessCode, error) {
	return r.updateByCode(ctx, code, map[string]interface{}{"is_active": active})
}

func (r *SQLAccessRepository) updateByCode(ctx context.Context, code string, updates map[string]interface{}) (*model.AccessCode, error) {
	var row tableAccessCode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&tableAccessCode{}).Where("code = ?", code).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrAccessCodeNotFound
		}
		return tx.Where("code = ?", code).Take(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *SQLAccessRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *SQLAccessRepository) Close(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ repository.AccessRepository = (*SQLAccessRepository)(nil)
