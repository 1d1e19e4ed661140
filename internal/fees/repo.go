package fees

import (
	"context"
	"errors"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for fee settings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, kind enums.FeeKind) (*models.FeeSetting, error)
	List(ctx context.Context) ([]models.FeeSetting, error)
	Upsert(ctx context.Context, setting *models.FeeSetting) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a fee settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Get returns nil without error when no setting row exists for kind.
func (r *repository) Get(ctx context.Context, kind enums.FeeKind) (*models.FeeSetting, error) {
	var setting models.FeeSetting
	err := r.db.WithContext(ctx).Where("kind = ?", kind).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) List(ctx context.Context) ([]models.FeeSetting, error) {
	var settings []models.FeeSetting
	if err := r.db.WithContext(ctx).Order("kind ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *repository) Upsert(ctx context.Context, setting *models.FeeSetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "active", "updated_by", "updated_at"}),
		}).
		Create(setting).Error
}
