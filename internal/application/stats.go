package application

import (
	"time"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// ComputeStats summarises records as of now. Every status and service type
// appears in the distributions, zero counts included.
func ComputeStats(records []*domain.ShipmentRecord, now time.Time) StatsDTO {
	stats := StatsDTO{
		Total:         len(records),
		ByStatus:      make(map[string]int, len(domain.Statuses)),
		ByServiceType: make(map[string]int, len(domain.ServiceTypes)),
	}
	for _, s := range domain.Statuses {
		stats.ByStatus[string(s)] = 0
	}
	for _, t := range domain.ServiceTypes {
		stats.ByServiceType[string(t)] = 0
	}

	year, month, _ := now.UTC().Date()
	for _, r := range records {
		stats.ByStatus[string(r.Status)]++
		stats.ByServiceType[string(r.ServiceType)]++

		switch {
		case r.Status.IsActive():
			stats.Active++
		case r.Status == domain.StatusPending:
			stats.Pending++
		case r.Status == domain.StatusCancelled:
			stats.Cancelled++
		case r.Status == domain.StatusDelivered:
			y, m, _ := r.LastUpdated.UTC().Date()
			if y == year && m == month {
				stats.DeliveredThisMonth++
			}
		}
	}
	return stats
}
