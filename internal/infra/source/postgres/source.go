// Package postgres provides a Postgres-backed measurement source querying the
// results and stations tables of a water-quality warehouse.
package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"

	"watercolumn/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the source satisfies the domain interface.
var _ domain.ResultSource = (*Source)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenResultSource defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/watercolumn?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Source reads measurement and station rows over a database/sql handle backed
// by pgx.
type Source struct {
	db *sql.DB
}

// NewSource opens a Postgres-backed source using the provided DSN (falls back
// to defaultDSN) and verifies connectivity.
func NewSource(dsn string) (*Source, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, domain.SourceError{Op: "open postgres", Err: err}
	}
	if err := db.PingContext(context.Background()); err != nil {
		return nil, domain.SourceError{Op: "ping postgres", Err: err}
	}
	return &Source{db: db}, nil
}

// whereBuilder accumulates parameterized conditions. Filter values travel
// exclusively as bound arguments; caller text never enters SQL text.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (b *whereBuilder) placeholder(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *whereBuilder) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = b.placeholder(v)
	}
	b.conditions = append(b.conditions, column+" IN ("+strings.Join(placeholders, ",")+")")
}

func (b *whereBuilder) where() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conditions, " AND ")
}

func resultWhere(filter domain.ResultFilter) (string, []any) {
	b := &whereBuilder{}
	b.in("water_resource", filter.WaterResources)
	b.in("station_id", filter.StationIDs)
	if len(filter.Years) > 0 {
		placeholders := make([]string, len(filter.Years))
		for i, y := range filter.Years {
			placeholders[i] = b.placeholder(y)
		}
		b.conditions = append(b.conditions, "EXTRACT(YEAR FROM collection_date) IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.DateFrom != nil {
		b.conditions = append(b.conditions, "collection_date >= "+b.placeholder(filter.DateFrom.UTC()))
	}
	if filter.DateTo != nil {
		b.conditions = append(b.conditions, "collection_date <= "+b.placeholder(filter.DateTo.UTC()))
	}
	b.in("parameter_name", filter.Parameters)
	b.in("sample_type", filter.SampleTypes)
	return b.where(), b.args
}

func stationWhere(filter domain.ResultFilter) (string, []any) {
	b := &whereBuilder{}
	b.in("water_resource", filter.WaterResources)
	b.in("station_id", filter.StationIDs)
	return b.where(), b.args
}

// FetchResults returns long-form measurement rows matching the filter.
func (s *Source) FetchResults(ctx context.Context, filter domain.ResultFilter) ([]domain.Measurement, error) {
	where, args := resultWhere(filter)
	query := strings.Builder{}
	query.WriteString("SELECT station_id, random_sample_location_id, sample_id, water_resource, ")
	query.WriteString("collection_date, sample_type, matrix, param_code, parameter_name, ")
	query.WriteString("value, value_qualifier, units ")
	query.WriteString("FROM results ")
	query.WriteString(where + " ")
	query.WriteString("ORDER BY collection_date, station_id, parameter_name")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, domain.SourceError{Op: "query results", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Measurement
	for rows.Next() {
		var m domain.Measurement
		var sampleType, matrix, paramCode, qualifier sql.NullString
		if err := rows.Scan(
			&m.StationID,
			&m.RandomLocationID,
			&m.SampleID,
			&m.WaterResource,
			&m.CollectionDate,
			&sampleType,
			&matrix,
			&paramCode,
			&m.ParameterName,
			&m.Value,
			&qualifier,
			&m.Units,
		); err != nil {
			return nil, domain.SourceError{Op: "scan result row", Err: err}
		}
		m.SampleType = sampleType.String
		m.Matrix = matrix.String
		m.ParamCode = paramCode.String
		m.ValueQualifier = qualifier.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.SourceError{Op: "iterate result rows", Err: err}
	}
	return out, nil
}

// FetchStations returns site metadata for the filter's resources and stations.
func (s *Source) FetchStations(ctx context.Context, filter domain.ResultFilter) ([]domain.Station, error) {
	where, args := stationWhere(filter)
	query := strings.Builder{}
	query.WriteString("SELECT station_id, water_resource, wbid, nutrient_region, bioregion, ")
	query.WriteString("county, latitude, longitude, description ")
	query.WriteString("FROM stations ")
	query.WriteString(where + " ")
	query.WriteString("ORDER BY station_id")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, domain.SourceError{Op: "query stations", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Station
	for rows.Next() {
		var st domain.Station
		if err := rows.Scan(
			&st.StationID,
			&st.WaterResource,
			&st.WBID,
			&st.NutrientRegion,
			&st.Bioregion,
			&st.County,
			&st.Latitude,
			&st.Longitude,
			&st.Description,
		); err != nil {
			return nil, domain.SourceError{Op: "scan station row", Err: err}
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.SourceError{Op: "iterate station rows", Err: err}
	}
	return out, nil
}

// Ping verifies the warehouse is reachable.
func (s *Source) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.SourceError{Op: "ping postgres", Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Source) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
