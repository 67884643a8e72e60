package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowx/backend/internal/domain"
)

// Wire formats expected by the history filter pickers.
const (
	dateLayout = "02-01-2006" // DD-MM-YYYY
	timeLayout = "15:04"      // HH:mm
)

// PostgresRepository implements domain.TrafficRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveSegmentSamples persists one polled snapshot of all segments
func (r *PostgresRepository) SaveSegmentSamples(ctx context.Context, segments []domain.Segment) error {
	query := `
		INSERT INTO traffic_samples (
			road_id, street_name, lat, lng, current_speed, free_flow_speed,
			intensity, accident_count, congestion_count, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	for _, s := range segments {
		recordedAt := s.LastUpdated
		if recordedAt.IsZero() {
			recordedAt = now
		}
		_, err := r.pool.Exec(ctx, query,
			s.RoadID, s.StreetName, s.Coordinate.Lat, s.Coordinate.Lng,
			s.CurrentSpeed, s.FreeFlowSpeed, s.Intensity,
			s.AccidentCount, s.CongestionCount, recordedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: failed to save traffic sample: %w", err)
		}
	}
	return nil
}

// History retrieves stored samples for one road, newest first
func (r *PostgresRepository) History(ctx context.Context, roadID string) ([]domain.Segment, error) {
	query := `
		SELECT road_id, street_name, lat, lng, current_speed, free_flow_speed,
			   intensity, accident_count, congestion_count, recorded_at
		FROM traffic_samples
		WHERE road_id = $1
		ORDER BY recorded_at DESC
		LIMIT 500
	`

	rows, err := r.pool.Query(ctx, query, roadID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query traffic history: %w", err)
	}
	defer rows.Close()

	var results []domain.Segment
	for rows.Next() {
		var s domain.Segment
		err := rows.Scan(
			&s.RoadID, &s.StreetName, &s.Coordinate.Lat, &s.Coordinate.Lng,
			&s.CurrentSpeed, &s.FreeFlowSpeed, &s.Intensity,
			&s.AccidentCount, &s.CongestionCount, &s.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan traffic sample: %w", err)
		}
		s.Incidents = []domain.Incident{}
		results = append(results, s)
	}

	if len(results) == 0 {
		return nil, &domain.NotFoundError{Kind: "road", ID: roadID}
	}
	return results, nil
}

// Roads lists the distinct roads present in the stored samples
func (r *PostgresRepository) Roads(ctx context.Context) ([]domain.RoadInfo, error) {
	query := `
		SELECT DISTINCT ON (road_id) road_id, street_name
		FROM traffic_samples
		ORDER BY road_id, recorded_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query roads: %w", err)
	}
	defer rows.Close()

	var roads []domain.RoadInfo
	for rows.Next() {
		var ri domain.RoadInfo
		if err := rows.Scan(&ri.RoadID, &ri.StreetName); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan road row: %w", err)
		}
		roads = append(roads, ri)
	}
	return roads, nil
}

// AvailableRanges reports the date/time window covered by storage
func (r *PostgresRepository) AvailableRanges(ctx context.Context) (domain.AvailableRanges, error) {
	query := `SELECT MIN(recorded_at), MAX(recorded_at) FROM traffic_samples`

	var min, max *time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&min, &max); err != nil {
		return domain.AvailableRanges{}, fmt.Errorf("postgres: failed to query ranges: %w", err)
	}
	if min == nil || max == nil {
		return domain.AvailableRanges{}, &domain.NotFoundError{Kind: "traffic samples", ID: "any"}
	}

	return domain.AvailableRanges{
		DateRange: domain.DateRange{
			Start: min.Format(dateLayout),
			End:   max.Format(dateLayout),
		},
		TimeRange: domain.TimeRange{
			Start: min.Format(timeLayout),
			End:   max.Format(timeLayout),
		},
	}, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
