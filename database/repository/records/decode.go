package recordsRepo

import (
	"bloomify-insights/models"
)

// Stored records are mapped field by field through the Document accessors,
// so a malformed field reads as its zero value instead of failing the fetch.

func mapAll[T any](docs []models.Document, from func(models.Document) T) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		out = append(out, from(d))
	}
	return out
}

func financialRecordFrom(d models.Document) models.FinancialRecord {
	return models.FinancialRecord{
		ProviderID:  d.String("providerId"),
		GrossAmount: d.Number("grossAmount"),
		NetAmount:   d.Number("netAmount"),
		CreatedAt:   d.Time("createdAt"),
	}
}

func bookingRecordFrom(d models.Document) models.BookingRecord {
	status, _ := models.ParseBookingStatus(d.String("status"))
	return models.BookingRecord{
		ID:          d.String("id"),
		CustomerID:  d.String("customerId"),
		ProviderID:  d.String("providerId"),
		ServiceID:   d.String("serviceId"),
		Status:      status,
		TotalAmount: d.Number("totalAmount"),
		CreatedAt:   d.Time("createdAt"),
	}
}

func reviewRecordFrom(d models.Document) models.ReviewRecord {
	return models.ReviewRecord{
		ProviderID: d.String("providerId"),
		Rating:     d.Number("rating"),
		CreatedAt:  d.Time("createdAt"),
	}
}

func searchEventFrom(d models.Document) models.SearchEvent {
	return models.SearchEvent{
		UserID:    d.String("userId"),
		Query:     d.String("query"),
		Category:  d.String("category"),
		CreatedAt: d.Time("createdAt"),
	}
}

func serviceRecordFrom(d models.Document) models.ServiceRecord {
	return models.ServiceRecord{
		ID:              d.String("id"),
		ProviderID:      d.String("providerId"),
		Name:            d.String("name"),
		Category:        d.String("category"),
		Price:           d.Number("price"),
		Rating:          d.Number("rating"),
		ResponseMinutes: d.Number("responseMinutes"),
	}
}

func userPreferenceFrom(d models.Document) models.UserPreference {
	return models.UserPreference{
		UserID:             d.String("userId"),
		PriceImportance:    d.Number("priceImportance"),
		LocationImportance: d.Number("locationImportance"),
		RatingImportance:   d.Number("ratingImportance"),
		SpeedImportance:    d.Number("speedImportance"),
	}
}
