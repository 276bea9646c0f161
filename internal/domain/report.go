package domain

import "time"

// DailyReport is a staff member's end-of-day summary. At most one report
// per staff member per calendar day.
type DailyReport struct {
	ID               string
	StaffID          string
	Date             string // YYYY-MM-DD
	Content          string
	CompletedTaskIDs []string
	CreatedAt        time.Time
}

// DailyTaskTemplate describes a recurring checklist item. Activating a
// template synthesizes a fresh task; templates themselves never change
// task state.
type DailyTaskTemplate struct {
	ID        string
	Title     string
	Category  string
	Active    bool
	CreatedAt time.Time
}
