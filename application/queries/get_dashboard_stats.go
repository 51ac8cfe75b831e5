package queries

import (
	"errors"
	"time"
)

// GetDashboardStatsQuery aggregates alert counts for the operations view.
// Admin only.
type GetDashboardStatsQuery struct {
	Since time.Time
}

// Validate checks the query's fields
func (q GetDashboardStatsQuery) Validate() error {
	if q.Since.IsZero() {
		return errors.New("since is required")
	}
	return nil
}

// DashboardStats is the read model for the operations dashboard.
type DashboardStats struct {
	Since              time.Time   `json:"since"`
	TotalSubjects      int         `json:"total_subjects"`
	ActiveSubjects     int         `json:"active_subjects"`
	TotalGuardianLinks int         `json:"total_guardian_links"`
	ZoneExits          int         `json:"zone_exits"`
	ZoneEnters         int         `json:"zone_enters"`
	Emergencies        int         `json:"emergencies"`
	TotalAlerts        int         `json:"total_alerts"`
	RecentEmergencies  []AlertView `json:"recent_emergencies"`
	GeneratedAt        time.Time   `json:"generated_at"`
}
