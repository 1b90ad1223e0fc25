package analytics

import (
	"math"
	"sort"

	"bloomify-insights/models"

	"github.com/shopspring/decimal"
)

// Factor names reported on suggestions.
const (
	FactorPriceAffinity = "price_affinity"
	FactorProximity     = "proximity"
	FactorRating        = "rating"
	FactorSpeed         = "speed"
	FactorDemand        = "demand"
	FactorSeasonal      = "seasonal"
	FactorCompetition   = "competition"
)

const (
	maxDistanceKm      = 25.0
	maxResponseMinutes = 120.0
	neutralAttribute   = 0.5

	demandSwing      = 0.2  // demand factor spans [0.8, 1.2]
	seasonalSwing    = 0.1  // seasonal factor spans [0.9, 1.1]
	competitionSwing = 0.15 // competition factor spans [0.85, 1.15]

	minPricingConfidence = 60.0
	maxPricingConfidence = 95.0
	confidenceHalfSample = 20.0
)

// Extreme multipliers a pricing suggestion can apply.
var (
	MinPriceMultiplier = (1 - demandSwing) * (1 - seasonalSwing) * (1 - competitionSwing)
	MaxPriceMultiplier = (1 + demandSwing) * (1 + seasonalSwing) * (1 + competitionSwing)
)

type weightedAttribute struct {
	name    string
	weight  float64
	value   float64
	present bool
}

// Recommend scores every service against the user's preference weights and
// returns suggestions ordered from best to worst match. A nil preference
// weighs every dimension equally.
func Recommend(pref *models.UserPreference, services []models.ServiceRecord) ([]models.ScoreSuggestion, error) {
	if len(services) == 0 {
		return nil, NewContractViolation("recommend", "at least one service is required")
	}
	weights := preferenceWeights(pref)

	minPrice, maxPrice := math.Inf(1), math.Inf(-1)
	for _, s := range services {
		if s.Price <= 0 {
			continue
		}
		minPrice = math.Min(minPrice, s.Price)
		maxPrice = math.Max(maxPrice, s.Price)
	}

	out := make([]models.ScoreSuggestion, 0, len(services))
	for _, s := range services {
		distance := 0.0
		if s.DistanceKm != nil {
			distance = *s.DistanceKm
		}
		attrs := []weightedAttribute{
			priceAttribute(s.Price, minPrice, maxPrice, weights[0]),
			{name: FactorProximity, weight: weights[1], value: 1 - math.Min(distance, maxDistanceKm)/maxDistanceKm, present: s.DistanceKm != nil && *s.DistanceKm >= 0},
			{name: FactorRating, weight: weights[2], value: clamp(s.Rating/5, 0, 1), present: s.Rating > 0},
			{name: FactorSpeed, weight: weights[3], value: 1 - math.Min(s.ResponseMinutes, maxResponseMinutes)/maxResponseMinutes, present: s.ResponseMinutes > 0},
		}
		out = append(out, scoreAttributes(s.ID, attrs))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SuggestedValue != out[j].SuggestedValue {
			return out[i].SuggestedValue > out[j].SuggestedValue
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out, nil
}

func preferenceWeights(pref *models.UserPreference) [4]float64 {
	if pref == nil {
		return [4]float64{1, 1, 1, 1}
	}
	w := [4]float64{
		clamp(pref.PriceImportance, 0, 1),
		clamp(pref.LocationImportance, 0, 1),
		clamp(pref.RatingImportance, 0, 1),
		clamp(pref.SpeedImportance, 0, 1),
	}
	if w[0]+w[1]+w[2]+w[3] == 0 {
		return [4]float64{1, 1, 1, 1}
	}
	return w
}

func priceAttribute(price, minPrice, maxPrice, weight float64) weightedAttribute {
	attr := weightedAttribute{name: FactorPriceAffinity, weight: weight, value: neutralAttribute}
	if price <= 0 || math.IsInf(minPrice, 0) {
		return attr
	}
	attr.present = true
	if maxPrice == minPrice {
		attr.value = 1
		return attr
	}
	attr.value = (maxPrice - price) / (maxPrice - minPrice)
	return attr
}

// scoreAttributes turns weighted attributes into a 0-100 score whose factors
// are the points each attribute contributed.
func scoreAttributes(subjectID string, attrs []weightedAttribute) models.ScoreSuggestion {
	totalWeight := 0.0
	for _, a := range attrs {
		totalWeight += a.weight
	}
	score := 0.0
	present := 0
	factors := make([]models.Factor, 0, len(attrs))
	for _, a := range attrs {
		value := a.value
		if !a.present {
			value = neutralAttribute
		} else {
			present++
		}
		points := 0.0
		if totalWeight > 0 {
			points = 100 * a.weight * clamp(value, 0, 1) / totalWeight
		}
		score += points
		factors = append(factors, models.Factor{Name: a.name, Magnitude: round2(points)})
	}
	return models.ScoreSuggestion{
		SubjectID:      subjectID,
		SuggestedValue: round2(clamp(score, 0, 100)),
		Confidence:     clamp(Rate(float64(present), float64(len(attrs))), 0, 100),
		Factors:        factors,
	}
}

// SuggestPrices evaluates each service price against demand, seasonality and competition.
func SuggestPrices(inputs []models.PricingInput) ([]models.ScoreSuggestion, error) {
	if len(inputs) == 0 {
		return nil, NewContractViolation("suggest prices", "at least one service is required")
	}
	out := make([]models.ScoreSuggestion, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, SuggestPrice(in))
	}
	return out, nil
}

// SuggestPrice computes a single pricing suggestion.
func SuggestPrice(in models.PricingInput) models.ScoreSuggestion {
	demand := DemandFactor(in.RecentBookings, in.PreviousBookings)
	seasonal := SeasonalFactor(in.MonthBookings, in.YearBookings)
	competition := CompetitionFactor(in.CurrentPrice, in.CompetitorAvgPrice)

	suggested := 0.0
	if in.CurrentPrice > 0 {
		suggested = boundedPrice(in.CurrentPrice, in.CurrentPrice*demand*seasonal*competition)
	}

	sample := in.YearBookings
	if recent := in.RecentBookings + in.PreviousBookings; recent > sample {
		sample = recent
	}

	return models.ScoreSuggestion{
		SubjectID:      in.ServiceID,
		SuggestedValue: math.Max(0, suggested),
		Confidence:     clamp(PricingConfidence(sample), 0, 100),
		Factors: []models.Factor{
			{Name: FactorDemand, Magnitude: demand},
			{Name: FactorSeasonal, Magnitude: seasonal},
			{Name: FactorCompetition, Magnitude: competition},
		},
	}
}

// DemandFactor compares the latest period's bookings with the period before.
func DemandFactor(recent, previous int) float64 {
	if recent < 0 {
		recent = 0
	}
	if previous < 0 {
		previous = 0
	}
	growth := float64(recent-previous) / math.Max(float64(previous), 1)
	return 1 + demandSwing*clamp(growth, -1, 1)
}

// SeasonalFactor compares this month's share of yearly bookings with an even spread.
func SeasonalFactor(monthBookings, yearBookings int) float64 {
	if yearBookings <= 0 || monthBookings < 0 {
		return 1
	}
	share := float64(monthBookings) / float64(yearBookings)
	return 1 + seasonalSwing*clamp(share*12-1, -1, 1)
}

// CompetitionFactor nudges the price toward what competitors charge.
func CompetitionFactor(current, competitorAvg float64) float64 {
	if current <= 0 || competitorAvg <= 0 {
		return 1
	}
	return 1 + competitionSwing*clamp((competitorAvg-current)/current, -1, 1)
}

// PricingConfidence grows with the booking sample size, from 60 toward 95.
func PricingConfidence(sample int) float64 {
	if sample < 0 {
		sample = 0
	}
	n := float64(sample)
	return minPricingConfidence + (maxPricingConfidence-minPricingConfidence)*n/(n+confidenceHalfSample)
}

// boundedPrice rounds raw to cents without leaving the range the multipliers
// allow for current. Bounds are rounded inward; when no whole cent fits,
// the unrounded price is clamped instead.
func boundedPrice(current, raw float64) float64 {
	lo, hi := current*MinPriceMultiplier, current*MaxPriceMultiplier
	centLo := decimal.NewFromFloat(lo).RoundCeil(2).InexactFloat64()
	centHi := decimal.NewFromFloat(hi).RoundFloor(2).InexactFloat64()
	if centLo > centHi {
		return clamp(finite(raw), lo, hi)
	}
	return clamp(roundMoney(raw), centLo, centHi)
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(finite(v)).Round(2).InexactFloat64()
}

func round2(v float64) float64 {
	return math.Round(finite(v)*100) / 100
}
