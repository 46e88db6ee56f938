package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/canopyhq/canopy/internal/importer/domain"
	"gorm.io/gorm"
)

type jobRepo struct{}

func ProvideJobs() domain.JobRepository {
	return &jobRepo{}
}

func (r *jobRepo) Create(ctx context.Context, db *gorm.DB, job *domain.ImportJob) error {
	return db.WithContext(ctx).Create(job).Error
}

func (r *jobRepo) FindByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.ImportJob, error) {
	var items []domain.ImportJob
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
