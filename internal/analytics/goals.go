package analytics

import (
	"math"
	"time"

	"fintrack/internal/core"
)

type GoalProgressStatus string

const (
	GoalOnTrack   GoalProgressStatus = "on_track"
	GoalAhead     GoalProgressStatus = "ahead_schedule"
	GoalBehind    GoalProgressStatus = "behind_schedule"
	GoalOverdue   GoalProgressStatus = "overdue"
	GoalCompleted GoalProgressStatus = "completed"
)

const (
	scheduleTolerance   = 10.0
	lowSavingsRate      = 10.0
	unrealisticFraction = 0.8
	daysPerMonth        = 30.0
)

type GoalAnalysis struct {
	GoalID              int64              `json:"goal_id"`
	Title               string             `json:"title"`
	Priority            core.GoalPriority  `json:"priority"`
	TargetAmount        float64            `json:"target_amount"`
	CurrentAmount       float64            `json:"current_amount"`
	TargetDate          core.Date          `json:"target_date"`
	ProgressPercentage  float64            `json:"progress_percentage"`
	TimeProgress        float64            `json:"time_progress"`
	Status              GoalProgressStatus `json:"status"`
	Velocity            float64            `json:"velocity"`
	EstimatedCompletion *core.Date         `json:"estimated_completion,omitempty"`
	RequiredMonthly     float64            `json:"required_monthly"`
	RemainingAmount     float64            `json:"remaining_amount"`
	RemainingDays       int                `json:"remaining_days"`
}

type GoalSummary struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	OnTrack         int     `json:"on_track"`
	Ahead           int     `json:"ahead_schedule"`
	Behind          int     `json:"behind_schedule"`
	Overdue         int     `json:"overdue"`
	TotalTarget     float64 `json:"total_target"`
	TotalSaved      float64 `json:"total_saved"`
	OverallProgress float64 `json:"overall_progress"`
}

type GoalProgress struct {
	Goals           []GoalAnalysis   `json:"goals"`
	Summary         GoalSummary      `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Range           core.DateRange   `json:"range"`
}

// GoalContext carries the range figures goal recommendations depend on.
type GoalContext struct {
	SavingsRate    float64
	MonthlySavings []float64
}

// NewGoalContext derives the savings rate and zero-filled monthly savings of r.
func NewGoalContext(r core.DateRange, totals core.Totals, months []core.MonthAmount) GoalContext {
	return GoalContext{
		SavingsRate:    SavingsRate(core.Float(totals.Income), core.Float(totals.Expense)),
		MonthlySavings: savingsSeries(FillMonths(r, months)),
	}
}

func daysBetween(from, to time.Time) int {
	return int(math.Floor(core.Truncate(to).Sub(core.Truncate(from)).Hours() / 24))
}

// AnalyzeGoal projects a single goal as of now.
func AnalyzeGoal(g core.Goal, now time.Time) GoalAnalysis {
	today := core.Truncate(now)
	target := core.Float(g.TargetAmount)
	current := core.Float(g.CurrentAmount)

	progress := percentOf(current, target, 0)

	totalDays := daysBetween(g.CreatedAt, g.TargetDate.Time)
	elapsed := max(daysBetween(g.CreatedAt, today), 0)
	timeProgress := 100.0
	if totalDays > 0 {
		timeProgress = clamp(float64(elapsed)/float64(totalDays)*100, 0, 100)
	}

	var velocity float64
	if elapsed > 0 {
		velocity = current / float64(elapsed) * daysPerMonth
	}

	remaining := math.Max(target-current, 0)
	remainingDays := max(daysBetween(today, g.TargetDate.Time), 0)

	a := GoalAnalysis{
		GoalID:             g.ID,
		Title:              g.Title,
		Priority:           g.Priority,
		TargetAmount:       target,
		CurrentAmount:      current,
		TargetDate:         g.TargetDate,
		ProgressPercentage: round2(progress),
		TimeProgress:       round2(timeProgress),
		Velocity:           round2(velocity),
		RemainingAmount:    round2(remaining),
		RemainingDays:      remainingDays,
		RequiredMonthly:    round2(remaining / math.Max(1, math.Ceil(float64(remainingDays)/daysPerMonth))),
	}

	switch {
	case progress >= 100:
		a.Status = GoalCompleted
	case today.After(g.TargetDate.Time):
		a.Status = GoalOverdue
	case progress < timeProgress-scheduleTolerance:
		a.Status = GoalBehind
	case progress > timeProgress+scheduleTolerance:
		a.Status = GoalAhead
	default:
		a.Status = GoalOnTrack
	}

	if velocity > 0 && remaining > 0 {
		days := int(math.Ceil(remaining / (velocity / daysPerMonth)))
		eta := core.Date{Time: today.AddDate(0, 0, days)}
		a.EstimatedCompletion = &eta
	}
	return a
}

// Rows are all evaluated and appended in order.
var goalRules = []struct {
	id      string
	matches func(GoalProgress, GoalContext) bool
	message string
}{
	{
		id:      "low_savings_rate",
		matches: func(_ GoalProgress, c GoalContext) bool { return c.SavingsRate < lowSavingsRate },
		message: "Your savings rate is below 10%. Trim discretionary spending to fund your goals.",
	},
	{
		id:      "overdue_goals",
		matches: func(p GoalProgress, _ GoalContext) bool { return p.Summary.Overdue > 0 },
		message: "Some goals are past their target date. Extend the deadline or raise contributions.",
	},
	{
		id:      "behind_schedule",
		matches: func(p GoalProgress, _ GoalContext) bool { return p.Summary.Behind > 0 },
		message: "Some goals are behind schedule. Increase monthly contributions to catch up.",
	},
	{
		id:      "ahead_schedule",
		matches: func(p GoalProgress, _ GoalContext) bool { return p.Summary.Ahead > 0 },
		message: "Some goals are ahead of schedule. Consider setting a new goal.",
	},
	{
		id: "unrealistic_goals",
		matches: func(p GoalProgress, c GoalContext) bool {
			threshold := mean(c.MonthlySavings) * unrealisticFraction
			for _, g := range p.Goals {
				if g.Status != GoalCompleted && g.RequiredMonthly > threshold {
					return true
				}
			}
			return false
		},
		message: "Some goals need more than 80% of your average monthly savings. Review their targets or dates.",
	},
	{
		id: "declining_savings",
		matches: func(_ GoalProgress, c GoalContext) bool {
			slope, _ := computeLinearRegression(c.MonthlySavings)
			return slope < 0
		},
		message: "Your monthly savings are trending down.",
	},
}

// AnalyzeGoals projects every goal and evaluates the recommendation rules.
func AnalyzeGoals(goals []core.Goal, now time.Time, ctx GoalContext) GoalProgress {
	p := GoalProgress{
		Goals:           make([]GoalAnalysis, 0, len(goals)),
		Recommendations: []Recommendation{},
	}
	for _, g := range goals {
		a := AnalyzeGoal(g, now)
		p.Goals = append(p.Goals, a)

		p.Summary.Total++
		p.Summary.TotalTarget += a.TargetAmount
		p.Summary.TotalSaved += a.CurrentAmount
		switch a.Status {
		case GoalCompleted:
			p.Summary.Completed++
		case GoalOverdue:
			p.Summary.Overdue++
		case GoalBehind:
			p.Summary.Behind++
		case GoalAhead:
			p.Summary.Ahead++
		default:
			p.Summary.OnTrack++
		}
	}
	p.Summary.OverallProgress = round2(percentOf(p.Summary.TotalSaved, p.Summary.TotalTarget, 0))
	p.Summary.TotalTarget = round2(p.Summary.TotalTarget)
	p.Summary.TotalSaved = round2(p.Summary.TotalSaved)

	for _, rule := range goalRules {
		if rule.matches(p, ctx) {
			p.Recommendations = append(p.Recommendations, Recommendation{ID: rule.id, Message: rule.message})
		}
	}
	return p
}

