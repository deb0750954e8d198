package models

import "time"

// ClosureStatus is the lifecycle state of a period closure.
type ClosureStatus string

const (
	ClosurePending   ClosureStatus = "pending"
	ClosureCompleted ClosureStatus = "completed"
)

// PeriodClosureStatus is the single closure record of a period.
type PeriodClosureStatus struct {
	ID          uint          `gorm:"primarykey" json:"id"`
	PeriodDate  string        `gorm:"column:period_date;size:10;not null;uniqueIndex:ux_closure_status_period,priority:1" json:"period_date"`
	PeriodType  string        `gorm:"column:period_type;size:8;not null;uniqueIndex:ux_closure_status_period,priority:2" json:"period_type"`
	Status      ClosureStatus `gorm:"column:status;size:16;not null;default:'pending'" json:"status"`
	Metadata    JSONMap       `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CompletedAt *time.Time    `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PeriodClosureStatus) TableName() string {
	return "calculator_period_closure_status"
}
