package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/postgres"
)

// PostgresSource reads the catalogue from a table whose columns use the
// same snake_case names as the JSON payload.
type PostgresSource struct {
	client *postgres.Client
	query  string
}

func NewPostgres(client *postgres.Client) *PostgresSource {
	return &PostgresSource{
		client: client,
		query:  selectQuery(client.Table()),
	}
}

func selectQuery(table string) string {
	cols := append([]string{"_id", "brand", "model", "size", "year"}, frame.GeometryFields...)
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY _id", strings.Join(cols, ", "), table)
}

func (s *PostgresSource) Name() string {
	return "postgres:" + s.client.Table()
}

// Fetch reads every row in one read-only transaction. Rows come back ordered
// by _id so duplicate tuples resolve the same way on every load.
func (s *PostgresSource) Fetch(ctx context.Context) ([]frame.Record, error) {
	var wire []wireRecord
	err := s.client.ReadOnly(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.query)
		if err != nil {
			return fmt.Errorf("querying frames: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			w, err := scanRow(rows)
			if err != nil {
				return err
			}
			wire = append(wire, w)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return Validate(wire)
}

func scanRow(rows *sql.Rows) (wireRecord, error) {
	var keys [5]sql.NullString
	var geo [16]sql.NullFloat64
	dest := make([]any, 0, len(keys)+len(geo))
	for i := range keys {
		dest = append(dest, &keys[i])
	}
	for i := range geo {
		dest = append(dest, &geo[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return wireRecord{}, fmt.Errorf("scanning frame row: %w", err)
	}

	w := wireRecord{
		ID:    nullKey(keys[0]),
		Brand: nullKey(keys[1]),
		Model: nullKey(keys[2]),
		Size:  nullKey(keys[3]),
		Year:  nullKey(keys[4]),
	}
	fields := []**float64{
		&w.VirtualSeatTube, &w.VirtualTopTube, &w.SeatTube, &w.TopTube,
		&w.HeadTubeAngle, &w.SeatTubeAngle, &w.HeadTubeLength, &w.ChainStayLength,
		&w.FrontCenter, &w.Wheelbase, &w.BottomBracketDrop, &w.BracketHeight,
		&w.Stack, &w.Reach, &w.CrankLength, &w.ForkRate,
	}
	for i, f := range fields {
		if geo[i].Valid {
			v := geo[i].Float64
			*f = &v
		}
	}
	return w, nil
}

func nullKey(ns sql.NullString) Key {
	return Key{Value: ns.String, Set: ns.Valid}
}
