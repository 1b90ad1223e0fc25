package analytics

import (
	"time"

	"bloomify-insights/models"
)

const demandPeriodDays = 30

// BuildPricingInputs derives one PricingInput per service from a trailing
// year of the provider's bookings. Competitors are other providers' services
// in the same category.
func BuildPricingInputs(own, market []models.ServiceRecord, bookings []models.BookingRecord, now time.Time, loc *time.Location) []models.PricingInput {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	recent := models.Window{Start: local.AddDate(0, 0, -demandPeriodDays), End: local}
	previous := models.Window{Start: local.AddDate(0, 0, -2*demandPeriodDays), End: recent.Start}
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	month := models.Window{Start: monthStart, End: monthStart.AddDate(0, 1, 0)}
	year := models.LastDays(local, 365)

	byService := map[string][]models.BookingRecord{}
	for _, b := range bookings {
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		byService[b.ServiceID] = append(byService[b.ServiceID], b)
	}

	owner := map[string]string{}
	for _, s := range own {
		owner[s.ID] = s.ProviderID
	}

	inputs := make([]models.PricingInput, 0, len(own))
	for _, s := range own {
		sb := byService[s.ID]
		inputs = append(inputs, models.PricingInput{
			ServiceID:          s.ID,
			CurrentPrice:       s.Price,
			RecentBookings:     Count(sb, recent, nil),
			PreviousBookings:   Count(sb, previous, nil),
			MonthBookings:      Count(sb, month, nil),
			YearBookings:       Count(sb, year, nil),
			CompetitorAvgPrice: competitorAverage(s, market, owner),
		})
	}
	return inputs
}

func competitorAverage(s models.ServiceRecord, market []models.ServiceRecord, owner map[string]string) float64 {
	var prices []float64
	for _, m := range market {
		if m.Category != s.Category || m.Price <= 0 {
			continue
		}
		if _, mine := owner[m.ID]; mine || m.ProviderID == s.ProviderID {
			continue
		}
		prices = append(prices, m.Price)
	}
	return Average(prices, func(p float64) float64 { return p })
}
