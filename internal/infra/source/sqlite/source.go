// Package sqlite provides a measurement source backed by an embedded sqlite
// snapshot file. Snapshots hold warehouse extracts for offline runs and
// integration tests; the Import methods populate them.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqldocs "watercolumn/docs/schema/sql"
	"watercolumn/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the source satisfies the domain interface.
var _ domain.ResultSource = (*Source)(nil)

const defaultPath = "watercolumn.db"

// Source reads measurement and station rows from a sqlite snapshot.
type Source struct {
	db   *sql.DB
	path string
}

// NewSource opens (creating if needed) the snapshot at path and ensures the
// schema exists. An empty path falls back to defaultPath.
func NewSource(path string) (*Source, error) {
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, domain.SourceError{Op: "create snapshot dirs", Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.SourceError{Op: "open sqlite", Err: err}
	}
	if _, err := db.Exec(sqldocs.SQLite); err != nil {
		return nil, domain.SourceError{Op: "ensure snapshot schema", Err: err}
	}
	return &Source{db: db, path: path}, nil
}

// ImportResults inserts measurement rows into the snapshot.
func (s *Source) ImportResults(ctx context.Context, rows []domain.Measurement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.SourceError{Op: "begin import", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const insert = `INSERT INTO results(
		station_id, random_sample_location_id, sample_id, water_resource,
		collection_date, sample_type, matrix, param_code, parameter_name,
		value, value_qualifier, units
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`
	for _, m := range rows {
		if _, err := tx.ExecContext(ctx, insert,
			m.StationID,
			m.RandomLocationID,
			m.SampleID,
			m.WaterResource,
			m.CollectionDate.UTC().Format(time.RFC3339),
			m.SampleType,
			m.Matrix,
			m.ParamCode,
			m.ParameterName,
			m.Value,
			m.ValueQualifier,
			m.Units,
		); err != nil {
			return domain.SourceError{Op: "insert result row", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.SourceError{Op: "commit import", Err: err}
	}
	committed = true
	return nil
}

// ImportStations upserts station rows into the snapshot.
func (s *Source) ImportStations(ctx context.Context, stations []domain.Station) error {
	const upsert = `INSERT INTO stations(
		station_id, water_resource, wbid, nutrient_region, bioregion,
		county, latitude, longitude, description
	) VALUES(?,?,?,?,?,?,?,?,?)
	ON CONFLICT(station_id) DO UPDATE SET
		water_resource=excluded.water_resource,
		wbid=excluded.wbid,
		nutrient_region=excluded.nutrient_region,
		bioregion=excluded.bioregion,
		county=excluded.county,
		latitude=excluded.latitude,
		longitude=excluded.longitude,
		description=excluded.description`
	for _, st := range stations {
		if _, err := s.db.ExecContext(ctx, upsert,
			st.StationID,
			st.WaterResource,
			st.WBID,
			st.NutrientRegion,
			st.Bioregion,
			st.County,
			st.Latitude,
			st.Longitude,
			st.Description,
		); err != nil {
			return domain.SourceError{Op: "upsert station row", Err: err}
		}
	}
	return nil
}

// whereBuilder accumulates parameterized conditions with positional
// placeholders. Filter values travel exclusively as bound arguments.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (b *whereBuilder) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		b.args = append(b.args, v)
		placeholders[i] = "?"
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
			b.args = append(b.args, strconv.Itoa(y))
			placeholders[i] = "?"
		}
		b.conditions = append(b.conditions, "strftime('%Y', collection_date) IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.DateFrom != nil {
		b.args = append(b.args, filter.DateFrom.UTC().Format(time.RFC3339))
		b.conditions = append(b.conditions, "datetime(collection_date) >= datetime(?)")
	}
	if filter.DateTo != nil {
		b.args = append(b.args, filter.DateTo.UTC().Format(time.RFC3339))
		b.conditions = append(b.conditions, "datetime(collection_date) <= datetime(?)")
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
		var collected string
		var sampleType, matrix, paramCode, qualifier sql.NullString
		if err := rows.Scan(
			&m.StationID,
			&m.RandomLocationID,
			&m.SampleID,
			&m.WaterResource,
			&collected,
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
		when, err := parseCollectionDate(collected)
		if err != nil {
			return nil, domain.SourceError{Op: "scan result row", Err: err}
		}
		m.CollectionDate = when
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

// parseCollectionDate accepts the snapshot timestamp encodings: RFC 3339 as
// written by ImportResults, plus date-only text from external extracts.
func parseCollectionDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported collection_date %q", s)
}

// Ping verifies the snapshot is readable.
func (s *Source) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.SourceError{Op: "ping sqlite", Err: err}
	}
	return nil
}

// Close releases the snapshot handle.
func (s *Source) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Source) DB() *sql.DB { return s.db }

// Path returns the configured snapshot path.
func (s *Source) Path() string { return s.path }
