package notifier

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"SolarBudget/internal/calculator"
	"SolarBudget/internal/model"
)

// Money renders an amount in the given ISO currency, e.g. "12,34 zł" for PLN.
// Unknown currencies fall back to a plain number with the code appended.
func Money(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

func band(e model.Estimate, format func(float64) string) string {
	return fmt.Sprintf("%s (%s – %s)", format(e.Central), format(e.P10), format(e.P90))
}

func kWh(v float64) string { return fmt.Sprintf("%.2f kWh", v) }

// FormatDailyReport formats today's produced/remaining split and tomorrow's outlook.
func FormatDailyReport(sum *model.Summary, currency string) string {
	var b strings.Builder
	cash := func(v float64) string { return Money(v, currency) }
	today := model.DateOf(sum.GeneratedAt, sum.GeneratedAt.Location())

	b.WriteString(fmt.Sprintf("☀️ <b>SolarBudget</b> | %s\n\n", today))
	b.WriteString("<b>Produced so far:</b>\n")
	b.WriteString(fmt.Sprintf("  Energy: %s\n", band(sum.Produced.Energy, kWh)))
	b.WriteString(fmt.Sprintf("  Value: %s\n", band(sum.Produced.Value, cash)))
	b.WriteString("<b>Remaining today:</b>\n")
	b.WriteString(fmt.Sprintf("  Energy: %s\n", band(sum.Remaining.Energy, kWh)))
	b.WriteString(fmt.Sprintf("  Value: %s\n", band(sum.Remaining.Value, cash)))

	tomorrow := model.DateOf(sum.GeneratedAt.AddDate(0, 0, 1), sum.GeneratedAt.Location())
	if d, ok := sum.DailyTotal(tomorrow); ok {
		b.WriteString(fmt.Sprintf("\n<b>Tomorrow</b> (%s):\n", tomorrow))
		b.WriteString(fmt.Sprintf("  Energy: %s\n", band(d.Energy, kWh)))
		if len(sum.PricesTomorrow) > 0 {
			b.WriteString(fmt.Sprintf("  Value: %s\n", band(d.Value, cash)))
		} else {
			b.WriteString("  Value: prices not published yet\n")
		}
	}
	return b.String()
}

// FormatDay formats one day's totals and its most valuable hour.
func FormatDay(sum *model.Summary, points []model.ValuedPoint, date, currency string) string {
	var b strings.Builder
	cash := func(v float64) string { return Money(v, currency) }

	b.WriteString(fmt.Sprintf("📅 <b>%s</b>\n\n", date))
	d, ok := sum.DailyTotal(date)
	if !ok {
		b.WriteString("No forecast for this day.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Energy: %s\n", band(d.Energy, kWh)))
	if len(points) == 0 {
		b.WriteString("Value: prices not published yet\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Value: %s\n", band(d.Value, cash)))

	best := points[0]
	for _, p := range points[1:] {
		if p.Value > best.Value {
			best = p
		}
	}
	b.WriteString(fmt.Sprintf("Best slot: %s, %s at %s/MWh\n",
		best.Timestamp.Format("15:04"), cash(best.Value), cash(best.Price)))
	return b.String()
}

// FormatPrice formats the current spot price and today's range.
func FormatPrice(sum *model.Summary, currency string) string {
	if sum.CurrentPrice == nil || len(sum.PricesToday) == 0 {
		return "💱 No price published for today."
	}
	lo, hi, err := calculator.PriceRange(sum.PricesToday)
	if err != nil {
		return "💱 No price published for today."
	}
	mean, _ := calculator.MeanPrice(sum.PricesToday)
	pos, _ := calculator.RangePosition(sum.CurrentPrice.Price, lo.Price, hi.Price)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("💱 <b>Spot price</b> %s: %s/MWh (%s)\n\n",
		sum.CurrentPrice.Timestamp.Format("15:04"), Money(sum.CurrentPrice.Price, currency), priceLevel(pos)))
	b.WriteString(fmt.Sprintf("Today low: %s/MWh at %s\n", Money(lo.Price, currency), lo.Timestamp.Format("15:04")))
	b.WriteString(fmt.Sprintf("Today high: %s/MWh at %s\n", Money(hi.Price, currency), hi.Timestamp.Format("15:04")))
	b.WriteString(fmt.Sprintf("Today average: %s/MWh\n", Money(mean, currency)))
	return b.String()
}

// priceLevel labels a position within the day's price range.
func priceLevel(pos float64) string {
	switch {
	case pos <= 0.25:
		return "cheap"
	case pos >= 0.75:
		return "expensive"
	default:
		return "average"
	}
}

// FormatUnavailable is the reply when the pipeline cannot produce a summary.
func FormatUnavailable(err error) string {
	return fmt.Sprintf("❌ Data unavailable: %v", err)
}
