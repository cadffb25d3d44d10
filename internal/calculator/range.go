package calculator

import (
	"errors"

	"SolarBudget/internal/model"
)

// PriceRange scans the series and returns its lowest and highest points.
// Ties keep the earliest point.
func PriceRange(prices model.PriceSeries) (low, high model.PricePoint, err error) {
	if len(prices) == 0 {
		return low, high, errors.New("no prices provided")
	}
	low, high = prices[0], prices[0]
	for _, p := range prices[1:] {
		if p.Price < low.Price {
			low = p
		}
		if p.Price > high.Price {
			high = p
		}
	}
	return low, high, nil
}

// MeanPrice is the unweighted average over the series.
func MeanPrice(prices model.PriceSeries) (float64, error) {
	if len(prices) == 0 {
		return 0, errors.New("no prices provided")
	}
	sum := 0.0
	for _, p := range prices {
		sum += p.Price
	}
	return sum / float64(len(prices)), nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, low, high float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
