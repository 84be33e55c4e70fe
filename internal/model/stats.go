package model

import (
	"time"

	"github.com/google/uuid"
)

// TicketStats aggregates tickets of one municipality, or all when MunicipalityID is nil.
type TicketStats struct {
	MunicipalityID     *uuid.UUID             `json:"municipality_id"`
	Total              int64                  `json:"total"`
	ByStatus           map[TicketStatus]int64 `json:"by_status"`
	ByCategory         map[string]int64       `json:"by_category"`
	AvgResolutionHours *float64               `json:"avg_resolution_hours"`
	CreatedThisMonth   int64                  `json:"created_this_month"`
	CompletedThisMonth int64                  `json:"completed_this_month"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

type MunicipalityStats struct {
	Municipality Municipality `json:"municipality"`
	Stats        TicketStats  `json:"stats"`
}

type Overview struct {
	Municipalities int64     `json:"municipalities"`
	Users          int64     `json:"users"`
	Tickets        int64     `json:"tickets"`
	GeneratedAt    time.Time `json:"generated_at"`
}
