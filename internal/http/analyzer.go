// Package http serves the analytics JSON API.
package http

//go:generate mockgen -source=analyzer.go -destination=mock_analyzer.go -package=http

import (
	"context"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

// Analyzer computes the analytics the API exposes.
type Analyzer interface {
	Health(ctx context.Context, req core.Request) (*analytics.HealthScore, error)
	Categories(ctx context.Context, req core.Request) (*analytics.CategoryAnalysis, error)
	Distribution(ctx context.Context, req core.Request) (*analytics.Distribution, error)
	Trends(ctx context.Context, req core.Request) (*analytics.SpendingTrends, error)
	Goals(ctx context.Context, req core.Request) (*analytics.GoalProgress, error)
	Dashboard(ctx context.Context, req core.Request) (*services.Dashboard, error)
}

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

var _ Analyzer = (*services.AnalyticsService)(nil)
