package position

import (
	"context"
	"errors"

	"levee/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type positionStore struct {
	db *db.DB
}

// New new position store
func New(db *db.DB) core.IPositionStore {
	return &positionStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Position{})
		if err := tx.AutoMigrate(core.Position{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *positionStore) Create(ctx context.Context, tx *db.DB, position *core.Position) error {
	return tx.Update().Create(position).Error
}

func (s *positionStore) Find(ctx context.Context, userID, assetID string) (*core.Position, error) {
	if userID == "" || assetID == "" {
		return nil, errors.New("invalid user_id or asset_id")
	}

	var position core.Position
	if err := s.db.View().Where("user_id=? and asset_id=?", userID, assetID).First(&position).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.Position{UserID: userID, AssetID: assetID}, nil
		}
		return nil, err
	}

	return &position, nil
}

func (s *positionStore) FindByUser(ctx context.Context, userID string) ([]*core.Position, error) {
	var positions []*core.Position
	if err := s.db.View().Where("user_id=?", userID).Order("id").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *positionStore) All(ctx context.Context) ([]*core.Position, error) {
	var positions []*core.Position
	if err := s.db.View().Order("id").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *positionStore) Update(ctx context.Context, tx *db.DB, position *core.Position) error {
	version := position.Version
	position.Version++
	updated := tx.Update().Model(core.Position{}).
		Where("user_id=? and asset_id=? and version=?", position.UserID, position.AssetID, version).
		Update(position)
	if updated.Error != nil {
		return updated.Error
	}

	if updated.RowsAffected == 0 {
		return errors.New("optimistic lock of position failed")
	}

	return nil
}
