// File: models/records.go
package models

import "time"

// FinancialRecord is a booking payout written by the backend once a payment settles.
type FinancialRecord struct {
	ProviderID  string    `bson:"providerId" json:"providerId"`
	GrossAmount float64   `bson:"grossAmount" json:"grossAmount"` // Amount paid by the customer
	NetAmount   float64   `bson:"netAmount" json:"netAmount"`     // Amount kept by the provider after fees
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

func (r FinancialRecord) Timestamp() time.Time { return r.CreatedAt }

// BookingRecord is the read-only view of a booking as the dashboards see it.
type BookingRecord struct {
	ID          string        `bson:"id" json:"id"`
	CustomerID  string        `bson:"customerId" json:"customerId"`
	ProviderID  string        `bson:"providerId" json:"providerId"`
	ServiceID   string        `bson:"serviceId" json:"serviceId"`
	Status      BookingStatus `bson:"status" json:"status"`
	TotalAmount float64       `bson:"totalAmount" json:"totalAmount"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
}

func (r BookingRecord) Timestamp() time.Time { return r.CreatedAt }

// ReviewRecord carries a single customer rating for a provider.
type ReviewRecord struct {
	ProviderID string    `bson:"providerId" json:"providerId"`
	Rating     float64   `bson:"rating" json:"rating"` // Expected value between 1 and 5.
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

func (r ReviewRecord) Timestamp() time.Time { return r.CreatedAt }

// SearchEvent is one query typed into the marketplace search box.
type SearchEvent struct {
	UserID    string    `bson:"userId" json:"userId"`
	Query     string    `bson:"query" json:"query"`
	Category  string    `bson:"category,omitempty" json:"category,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (e SearchEvent) Timestamp() time.Time { return e.CreatedAt }

// ServiceRecord holds the attributes of a listed service that scoring reads.
type ServiceRecord struct {
	ID              string  `bson:"id" json:"id"`
	ProviderID      string  `bson:"providerId" json:"providerId"`
	Name            string  `bson:"name" json:"name"`
	Category        string  `bson:"category" json:"category"`
	Price           float64 `bson:"price" json:"price"`
	Rating          float64 `bson:"rating" json:"rating"`
	ResponseMinutes float64 `bson:"responseMinutes" json:"responseMinutes"` // Typical time to accept a booking

	// DistanceKm is the distance to the requesting user. It is set per
	// request from caller-supplied distances and is nil when unknown.
	DistanceKm *float64 `bson:"-" json:"distanceKm,omitempty"`
}

// UserPreference stores how much a user cares about each matching dimension.
// Every importance is expected in [0,1].
type UserPreference struct {
	UserID             string  `bson:"userId" json:"userId"`
	PriceImportance    float64 `bson:"priceImportance" json:"priceImportance"`
	LocationImportance float64 `bson:"locationImportance" json:"locationImportance"`
	RatingImportance   float64 `bson:"ratingImportance" json:"ratingImportance"`
	SpeedImportance    float64 `bson:"speedImportance" json:"speedImportance"`
}
