// Package kds builds the snapshots consumed by the kitchen fulfillment
// display. The display polls; there is no push channel. Staff devices
// re-render elapsed time locally between polls and resynchronize against the
// server values carried in each snapshot.
package kds

import (
	"sort"
	"time"

	"github.com/ucfc/fulfillment-app/models"
	"github.com/ucfc/fulfillment-app/services"
)

// statusPriority orders the board: orders already on the stove come first.
var statusPriority = map[models.OrderStatus]int{
	models.OrderStatusPreparing: 0,
	models.OrderStatusConfirmed: 1,
	models.OrderStatusPending:   2,
}

// DisplayOrder is one card on the board.
type DisplayOrder struct {
	Order          models.Order     `json:"order"`
	ElapsedSeconds int64            `json:"elapsed_seconds"`
	Urgency        services.Urgency `json:"urgency"`
}

// Snapshot is one poll response. ServerTime and the per-order elapsed values
// are authoritative; clients tick locally from them until the next poll.
type Snapshot struct {
	ServerTime     time.Time      `json:"server_time"`
	RefreshSeconds int            `json:"refresh_seconds"`
	Orders         []DisplayOrder `json:"orders"`
}

// BuildSnapshot sorts the active orders (preparing, then confirmed, then
// pending, oldest first within a status) and computes elapsed time and
// urgency for each. Urgency is recomputed on every call; nothing is cached.
func BuildSnapshot(orders []models.Order, sla *services.SLACalculator, refreshSeconds int, now time.Time) Snapshot {
	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := statusPriority[sorted[i].Status], statusPriority[sorted[j].Status]
		if pi != pj {
			return pi < pj
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	out := Snapshot{
		ServerTime:     now,
		RefreshSeconds: refreshSeconds,
		Orders:         make([]DisplayOrder, 0, len(sorted)),
	}
	for _, order := range sorted {
		elapsed := now.Sub(order.CreatedAt)
		out.Orders = append(out.Orders, DisplayOrder{
			Order:          order,
			ElapsedSeconds: int64(elapsed.Seconds()),
			Urgency:        sla.Urgency(order.Type, elapsed.Minutes()),
		})
	}
	return out
}

// DisplayedElapsed is the pure reducer behind the client-side per-second
// tick: the elapsed value shown is the server-reported elapsed at the last
// sync plus the local ticks since. Each poll resets the pair, which bounds
// clock drift to one refresh interval.
func DisplayedElapsed(serverElapsedAtSync time.Duration, ticksSinceSync int) time.Duration {
	return serverElapsedAtSync + time.Duration(ticksSinceSync)*time.Second
}
