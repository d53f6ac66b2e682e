package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

func (p *Postgres) conn() (*gorm.DB, error) {
	db := p.DB()
	if db == nil {
		return nil, ErrNotInitialized
	}
	return db, nil
}

func (p *Postgres) AutoMigrate(ctx context.Context, models ...interface{}) error {
	db, err := p.conn()
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, value interface{}) error {
	db, err := p.conn()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(value).Error
}

func (p *Postgres) Count(ctx context.Context, model interface{}, count *int64, conditions ...interface{}) error {
	db, err := p.conn()
	if err != nil {
		return err
	}
	q := db.WithContext(ctx).Model(model)
	if len(conditions) > 0 {
		q = q.Where(conditions[0], conditions[1:]...)
	}
	return q.Count(count).Error
}
