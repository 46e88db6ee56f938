package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImportJob is the persisted audit record of one reconciliation run.
type ImportJob struct {
	ID        string            `gorm:"type:text;primaryKey" json:"id"`
	OrgID     snowflake.ID      `gorm:"column:org_id;not null;index" json:"organization_id"`
	Mode      string            `gorm:"type:text;not null" json:"mode"`
	Source    string            `gorm:"type:text;not null" json:"source"`
	Success   bool              `gorm:"not null" json:"success"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Stats     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"stats"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ImportJob) TableName() string { return "import_jobs" }

type JobRepository interface {
	Create(ctx context.Context, db *gorm.DB, job *ImportJob) error
	FindByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]ImportJob, error)
}
