package analytics

import (
	"sort"

	"fintrack/internal/core"
)

// OthersLabel collects categories below the merge threshold.
const OthersLabel = "Others"

const mergeThresholdPercent = 1.0

// palette is cycled in output order, so colors are stable for a given ordering.
var palette = [...]string{
	"#4E79A7", "#F28E2B", "#E15759", "#76B7B2",
	"#59A14F", "#EDC948", "#B07AA1", "#FF9DA7",
	"#9C755F", "#BAB0AC", "#1F77B4", "#17BECF",
}

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

type ConcentrationLevel string

const (
	ConcentrationLow      ConcentrationLevel = "Low"
	ConcentrationModerate ConcentrationLevel = "Moderate"
	ConcentrationHigh     ConcentrationLevel = "High"
)

type CategoryShare struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

type Concentration struct {
	Index float64            `json:"index"`
	Level ConcentrationLevel `json:"level"`
}

type WeekdaySpend struct {
	Day    int     `json:"day"` // Sunday=1
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type Distribution struct {
	Labels         []string       `json:"labels"`
	Values         []float64      `json:"values"`
	Colors         []string       `json:"colors"`
	Percentages    []float64      `json:"percentages"`
	Total          float64        `json:"total"`
	Largest        *CategoryShare `json:"largest_category,omitempty"`
	Smallest       *CategoryShare `json:"smallest_category,omitempty"`
	Concentration  Concentration  `json:"concentration"`
	WeekdayPattern []WeekdaySpend `json:"weekday_pattern"`
	PeakDay        string         `json:"peak_spending_day"`
	AverageDaily   float64        `json:"average_daily_spend"`
	Range          core.DateRange `json:"range"`
}

// HHI is the Herfindahl-Hirschman index of amounts, in [0, 10000].
func HHI(amounts []float64) float64 {
	var total float64
	for _, a := range amounts {
		if a > 0 {
			total += a
		}
	}
	if total == 0 {
		return 0
	}
	var sum float64
	for _, a := range amounts {
		if a <= 0 {
			continue
		}
		share := a / total
		sum += share * share
	}
	return clamp(sum*10000, 0, 10000)
}

func ConcentrationLevelFor(index float64) ConcentrationLevel {
	switch {
	case index < 1500:
		return ConcentrationLow
	case index <= 2500:
		return ConcentrationModerate
	default:
		return ConcentrationHigh
	}
}

// WeekdayPattern spreads amounts over seven buckets, index 0 being Sunday.
func WeekdayPattern(rows []core.WeekdayAmount) []WeekdaySpend {
	out := make([]WeekdaySpend, 7)
	for i := range out {
		out[i] = WeekdaySpend{Day: i + 1, Name: weekdayNames[i]}
	}
	for _, row := range rows {
		if row.Weekday < 1 || row.Weekday > 7 {
			continue
		}
		out[row.Weekday-1].Amount += core.Float(row.Amount)
	}
	return out
}

// PeakDay names the weekday with the most spending, the earliest on ties.
// It is empty when nothing was spent.
func PeakDay(pattern []WeekdaySpend) string {
	peak := -1
	for i, d := range pattern {
		if d.Amount > 0 && (peak < 0 || d.Amount > pattern[peak].Amount) {
			peak = i
		}
	}
	if peak < 0 {
		return ""
	}
	return pattern[peak].Name
}

// BuildDistribution groups category spend for charting. Shares below one
// percent are folded into Others; largest, smallest and the concentration
// index use the unmerged categories.
func BuildDistribution(r core.DateRange, stats []core.CategoryStat, weekdays []core.WeekdayAmount) Distribution {
	shares := make([]CategoryShare, 0, len(stats))
	var total float64
	for _, s := range stats {
		amount := core.Float(s.Spent)
		if amount <= 0 {
			continue
		}
		shares = append(shares, CategoryShare{Category: s.Name, Amount: amount})
		total += amount
	}
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Amount != shares[j].Amount {
			return shares[i].Amount > shares[j].Amount
		}
		return shares[i].Category < shares[j].Category
	})

	amounts := make([]float64, len(shares))
	for i := range shares {
		shares[i].Percentage = percentOf(shares[i].Amount, total, 0)
		amounts[i] = shares[i].Amount
	}

	d := Distribution{
		Labels:      []string{},
		Values:      []float64{},
		Colors:      []string{},
		Percentages: []float64{},
		Total:       round2(total),
		Range:       r,
	}

	var others float64
	for _, s := range shares {
		if s.Percentage < mergeThresholdPercent {
			others += s.Amount
			continue
		}
		d.appendSlice(s.Category, s.Amount, s.Percentage)
	}
	if others > 0 {
		d.appendSlice(OthersLabel, others, percentOf(others, total, 0))
	}

	if len(shares) > 0 {
		largest, smallest := shares[0], shares[len(shares)-1]
		largest.Percentage = round2(largest.Percentage)
		smallest.Percentage = round2(smallest.Percentage)
		d.Largest, d.Smallest = &largest, &smallest
	}

	index := HHI(amounts)
	d.Concentration = Concentration{Index: round2(index), Level: ConcentrationLevelFor(index)}

	d.WeekdayPattern = WeekdayPattern(weekdays)
	d.PeakDay = PeakDay(d.WeekdayPattern)
	if days := r.Days(); days > 0 {
		d.AverageDaily = round2(total / float64(days))
	}
	return d
}

func (d *Distribution) appendSlice(label string, amount, percentage float64) {
	d.Labels = append(d.Labels, label)
	d.Values = append(d.Values, round2(amount))
	d.Colors = append(d.Colors, palette[len(d.Colors)%len(palette)])
	d.Percentages = append(d.Percentages, round2(percentage))
}
