package bloc

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Bloc is the persisted form of one top-level node of a page.
type Bloc struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Position  string `gorm:"not null;index:idx_blocs_page_position,priority:2" json:"position"`
	Content   string `gorm:"type:text;not null" json:"content"`
	Checksum  string `gorm:"type:char(64);not null" json:"-"`
	PageID    string `gorm:"not null;index:idx_blocs_page_position,priority:1" json:"page_id"`
	BlocType  string `gorm:"not null" json:"bloc_type"`
	CreatedAt int64  `gorm:"autoCreateTime:false" json:"created_at"` // epoch ms
	UpdatedAt int64  `gorm:"autoUpdateTime:false" json:"updated_at"` // epoch ms
}

// Status is the outcome of a conditional write.
type Status int

const (
	StatusError    Status = -1
	StatusNoChange Status = 0
	StatusSuccess  Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNoChange:
		return "no_change"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Store is the persistence contract used by the sync engine. Bloc ids are
// opaque strings; lookups of an unknown id fail with a NotFound APIError.
type Store interface {
	CreateBloc(ctx context.Context, bloc *Bloc) (string, error)
	UpdateBloc(ctx context.Context, bloc *Bloc) (bool, error)
	UpdateBlocContent(ctx context.Context, id, content string, updatedAt int64) (Status, error)
	UpdateBlocPosition(ctx context.Context, id, position string, updatedAt int64) (Status, error)
	UpdateBlocPageID(ctx context.Context, id, pageID string) (bool, error)
	DeleteBloc(ctx context.Context, id string) (bool, error)
	DeleteBlocByPageID(ctx context.Context, pageID string) (bool, error)
	GetChecksum(ctx context.Context, id string) (string, error)
	GetBlocByID(ctx context.Context, id string) (*Bloc, error)
	GetBlocsByPageID(ctx context.Context, pageID string) ([]Bloc, error)
}

// Checksum fingerprints bloc content.
func Checksum(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
