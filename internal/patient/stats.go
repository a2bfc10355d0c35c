package patient

import (
	"context"
	"fmt"
	"time"
)

// CountSummary is the fixed population count block. Total spans every
// record including soft-deleted ones; Active, Pending and Completed count
// the live population only.
type CountSummary struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Deleted   int `json:"deleted"`
	Recent    int `json:"recent"`
}

// ServiceCount is one bucket of the per-service distribution. A record
// registered for N services contributes to N buckets.
type ServiceCount struct {
	Service string `json:"service"`
	Count   int    `json:"count"`
}

// GroupCount is one bucket of the per-family-group distribution.
type GroupCount struct {
	FamilyGroup string `json:"familyGroup"`
	Count       int    `json:"count"`
}

// TrendPoint is one day bucket of a registration or completion series.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats is the aggregate statistics payload.
type Stats struct {
	Total                   int            `json:"total"`
	Active                  int            `json:"active"`
	Pending                 int            `json:"pending"`
	Completed               int            `json:"completed"`
	Deleted                 int            `json:"deleted"`
	CompletionRate          int            `json:"completionRate"`
	RecentRegistrations     int            `json:"recentRegistrations"`
	ServiceDistribution     []ServiceCount `json:"serviceDistribution"`
	FamilyGroupDistribution []GroupCount   `json:"familyGroupDistribution"`
	RegistrationTrend       []TrendPoint   `json:"registrationTrend"`
	CompletionTrend         []TrendPoint   `json:"completionTrend"`
	PeriodDays              int            `json:"periodDays"`
}

func (r *Repository) CountSummary(ctx context.Context, recentSince time.Time) (*CountSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_deleted),
			COUNT(*) FILTER (WHERE NOT is_deleted AND status = $1),
			COUNT(*) FILTER (WHERE NOT is_deleted AND status = $2),
			COUNT(*) FILTER (WHERE is_deleted),
			COUNT(*) FILTER (WHERE NOT is_deleted AND created_at >= $3)
		FROM patients
	`

	var s CountSummary
	err := r.db.QueryRowContext(ctx, query, StatusRegistered, StatusCompleted, recentSince).Scan(
		&s.Total,
		&s.Active,
		&s.Pending,
		&s.Completed,
		&s.Deleted,
		&s.Recent,
	)
	if err != nil {
		return nil, classifyStoreErr("count patients", err)
	}
	return &s, nil
}

// ServiceDistribution unnests each record's service set so a patient
// registered for N services lands in N buckets.
func (r *Repository) ServiceDistribution(ctx context.Context, includeDeleted bool) ([]ServiceCount, error) {
	query := `
		SELECT s.service, COUNT(*)
		FROM patients p
		CROSS JOIN LATERAL unnest(p.services) AS s(service)
	`
	if !includeDeleted {
		query += ` WHERE NOT p.is_deleted`
	}
	query += ` GROUP BY s.service ORDER BY COUNT(*) DESC, s.service ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyStoreErr("query service distribution", err)
	}
	defer rows.Close()

	var counts []ServiceCount
	for rows.Next() {
		var c ServiceCount
		if err := rows.Scan(&c.Service, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan service count: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service counts: %w", err)
	}
	return counts, nil
}

func (r *Repository) FamilyGroupDistribution(ctx context.Context, includeDeleted bool) ([]GroupCount, error) {
	query := `SELECT family_group, COUNT(*) FROM patients`
	if !includeDeleted {
		query += ` WHERE NOT is_deleted`
	}
	query += ` GROUP BY family_group ORDER BY COUNT(*) DESC, family_group ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyStoreErr("query family group distribution", err)
	}
	defer rows.Close()

	var counts []GroupCount
	for rows.Next() {
		var c GroupCount
		if err := rows.Scan(&c.FamilyGroup, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan family group count: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating family group counts: %w", err)
	}
	return counts, nil
}

func (r *Repository) RegistrationTrend(ctx context.Context, since time.Time, includeDeleted bool) ([]TrendPoint, error) {
	query := `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day, COUNT(*)
		FROM patients
		WHERE created_at >= $1
	`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}
	query += ` GROUP BY day ORDER BY day ASC`

	return r.queryTrend(ctx, query, since)
}

// CompletionTrend groups by the stored completion date stamp. Stamps are
// ISO dates, so string comparison against sinceDate is chronological.
func (r *Repository) CompletionTrend(ctx context.Context, sinceDate string, includeDeleted bool) ([]TrendPoint, error) {
	query := `
		SELECT completion_date, COUNT(*)
		FROM patients
		WHERE completion_date IS NOT NULL AND completion_date >= $1
	`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}
	query += ` GROUP BY completion_date ORDER BY completion_date ASC`

	return r.queryTrend(ctx, query, sinceDate)
}

func (r *Repository) queryTrend(ctx context.Context, query string, args ...interface{}) ([]TrendPoint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyStoreErr("query trend", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend points: %w", err)
	}
	return points, nil
}
