package model

import (
	"regexp"
	"time"
)

type TrackingEventStatus string

const (
	TrackingManifested        TrackingEventStatus = "MANIFESTED"
	TrackingInTransit         TrackingEventStatus = "IN_TRANSIT"
	TrackingOutForDelivery    TrackingEventStatus = "OUT_FOR_DELIVERY"
	TrackingAttemptedDelivery TrackingEventStatus = "ATTEMPTED_DELIVERY"
	TrackingDelivered         TrackingEventStatus = "DELIVERED"
	TrackingException         TrackingEventStatus = "EXCEPTION"
	TrackingStatusUnknown     TrackingEventStatus = "UNKNOWN"
)

// TrackingCarrier matches tracking numbers by regex; the first matching
// carrier wins.
type TrackingCarrier struct {
	ID                  int64  `db:"id"`
	Name                string `db:"name"`
	TrackingNumberMatch string `db:"tracking_number_match"`
}

func (c *TrackingCarrier) Matches(trackingNumber string) bool {
	matched, err := regexp.MatchString(c.TrackingNumberMatch, trackingNumber)
	return err == nil && matched
}

type TrackedPackage struct {
	ID             string    `db:"id"`
	ScurriID       string    `db:"scurri_id"`
	CarrierID      int64     `db:"carrier_id"`
	TrackingNumber string    `db:"tracking_number"`
	CreatedAt      time.Time `db:"created_at"`
	OrderRef       *string   `db:"order_ref"`

	Events []TrackingEvent `db:"-"`
}

// LatestEvent returns the event with the greatest timestamp, nil when the
// package has none.
func (p *TrackedPackage) LatestEvent() *TrackingEvent {
	var latest *TrackingEvent
	for i := range p.Events {
		e := &p.Events[i]
		if latest == nil || e.Timestamp.After(latest.Timestamp) {
			latest = e
		}
	}
	return latest
}

// Delivered reports whether any event marks the package delivered.
func (p *TrackedPackage) Delivered() bool {
	for _, e := range p.Events {
		if e.Status == TrackingDelivered {
			return true
		}
	}
	return false
}

// TrackingEvent is append-only per package, unique by EventID.
type TrackingEvent struct {
	ID          string              `db:"id"`
	PackageID   string              `db:"package_id"`
	EventID     string              `db:"event_id"`
	Status      TrackingEventStatus `db:"status"`
	CarrierCode string              `db:"carrier_code"`
	Description string              `db:"description"`
	Timestamp   time.Time           `db:"timestamp"`
	Location    string              `db:"location"`
}
