package bloc

import (
	"context"
	defError "errors"
	"time"

	"bloc-editor/internal/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RepositoryImpl struct {
	db *gorm.DB
}

var _ Store = (*RepositoryImpl)(nil)

// NewRepository creates a postgres backed store
func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func notFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Bloc not found", err)
	}
	return err
}

// prepare fills the server-side fields of a new bloc.
func prepare(bloc *Bloc) {
	if bloc.ID == "" {
		bloc.ID = uuid.NewString()
	}
	if bloc.CreatedAt == 0 {
		bloc.CreatedAt = time.Now().UnixMilli()
	}
	if bloc.UpdatedAt == 0 {
		bloc.UpdatedAt = bloc.CreatedAt
	}
	bloc.Checksum = Checksum(bloc.Content)
}

func (r *RepositoryImpl) CreateBloc(ctx context.Context, bloc *Bloc) (string, error) {
	prepare(bloc)
	if err := r.db.WithContext(ctx).Create(bloc).Error; err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return "", errors.Conflict("Bloc already exists", err)
		}
		return "", err
	}
	return bloc.ID, nil
}

func (r *RepositoryImpl) UpdateBloc(ctx context.Context, bloc *Bloc) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Bloc{}).
		Where("id = ?", bloc.ID).
		Updates(map[string]any{
			"position":   bloc.Position,
			"content":    bloc.Content,
			"checksum":   Checksum(bloc.Content),
			"bloc_type":  bloc.BlocType,
			"updated_at": bloc.UpdatedAt,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *RepositoryImpl) UpdateBlocContent(ctx context.Context, id, content string, updatedAt int64) (Status, error) {
	status := StatusNoChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current string
		// 1. compare with the stored checksum
		if err := tx.Model(&Bloc{}).
			Where("id = ?", id).
			Select("checksum").
			Take(&current).Error; err != nil {
			return notFound(err)
		}
		checksum := Checksum(content)
		if current == checksum {
			return nil
		}

		// 2. write the new content
		res := tx.Model(&Bloc{}).
			Where("id = ?", id).
			Updates(map[string]any{"content": content, "checksum": checksum, "updated_at": updatedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			status = StatusSuccess
		}
		return nil
	})
	if err != nil {
		return StatusError, err
	}
	return status, nil
}

func (r *RepositoryImpl) UpdateBlocPosition(ctx context.Context, id, position string, updatedAt int64) (Status, error) {
	status := StatusNoChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current string
		if err := tx.Model(&Bloc{}).
			Where("id = ?", id).
			Select("position").
			Take(&current).Error; err != nil {
			return notFound(err)
		}
		if current == position {
			return nil
		}

		res := tx.Model(&Bloc{}).
			Where("id = ?", id).
			Updates(map[string]any{"position": position, "updated_at": updatedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			status = StatusSuccess
		}
		return nil
	})
	if err != nil {
		return StatusError, err
	}
	return status, nil
}

func (r *RepositoryImpl) UpdateBlocPageID(ctx context.Context, id, pageID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Bloc{}).
		Where("id = ?", id).
		Update("page_id", pageID)
	return res.RowsAffected > 0, res.Error
}

func (r *RepositoryImpl) DeleteBloc(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Bloc{})
	return res.RowsAffected > 0, res.Error
}

func (r *RepositoryImpl) DeleteBlocByPageID(ctx context.Context, pageID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("page_id = ?", pageID).Delete(&Bloc{})
	return res.RowsAffected > 0, res.Error
}

func (r *RepositoryImpl) GetChecksum(ctx context.Context, id string) (string, error) {
	var checksum string
	err := r.db.WithContext(ctx).Model(&Bloc{}).
		Where("id = ?", id).
		Select("checksum").
		Take(&checksum).Error
	return checksum, notFound(err)
}

func (r *RepositoryImpl) GetBlocByID(ctx context.Context, id string) (*Bloc, error) {
	var bloc Bloc
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&bloc).Error; err != nil {
		return nil, notFound(err)
	}
	return &bloc, nil
}

// GetBlocsByPageID lists the blocs of a page in position order. Positions
// are compared bytewise, as fractional keys require.
func (r *RepositoryImpl) GetBlocsByPageID(ctx context.Context, pageID string) ([]Bloc, error) {
	blocs := []Bloc{}
	err := r.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order(`position COLLATE "C"`).
		Find(&blocs).Error
	return blocs, err
}
