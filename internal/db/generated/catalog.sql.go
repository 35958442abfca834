package dbgen

import (
	"context"
	"time"
)

const createComplex = `-- name: CreateComplex :exec
INSERT INTO complexes (id, name, timezone, created_at)
VALUES (?, ?, ?, ?)
`

type CreateComplexParams struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateComplex(ctx context.Context, arg CreateComplexParams) error {
	_, err := q.db.ExecContext(ctx, createComplex,
		arg.ID,
		arg.Name,
		arg.Timezone,
		arg.CreatedAt,
	)
	return err
}

const getComplex = `-- name: GetComplex :one
SELECT id, name, timezone, created_at FROM complexes WHERE id = ?
`

func (q *Queries) GetComplex(ctx context.Context, id string) (Complex, error) {
	row := q.db.QueryRowContext(ctx, getComplex, id)
	var i Complex
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Timezone,
		&i.CreatedAt,
	)
	return i, err
}

const createSubField = `-- name: CreateSubField :exec
INSERT INTO sub_fields (id, complex_id, name, sport_type, capacity, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateSubFieldParams struct {
	ID        string    `json:"id"`
	ComplexID string    `json:"complex_id"`
	Name      string    `json:"name"`
	SportType string    `json:"sport_type"`
	Capacity  int64     `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateSubField(ctx context.Context, arg CreateSubFieldParams) error {
	_, err := q.db.ExecContext(ctx, createSubField,
		arg.ID,
		arg.ComplexID,
		arg.Name,
		arg.SportType,
		arg.Capacity,
		arg.CreatedAt,
	)
	return err
}

const getSubFieldWithTimezone = `-- name: GetSubFieldWithTimezone :one
SELECT sf.id, sf.complex_id, sf.name, sf.sport_type, sf.capacity, sf.created_at, c.timezone
FROM sub_fields sf
JOIN complexes c ON c.id = sf.complex_id
WHERE sf.id = ?
`

type GetSubFieldWithTimezoneRow struct {
	ID        string    `json:"id"`
	ComplexID string    `json:"complex_id"`
	Name      string    `json:"name"`
	SportType string    `json:"sport_type"`
	Capacity  int64     `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	Timezone  string    `json:"timezone"`
}

func (q *Queries) GetSubFieldWithTimezone(ctx context.Context, id string) (GetSubFieldWithTimezoneRow, error) {
	row := q.db.QueryRowContext(ctx, getSubFieldWithTimezone, id)
	var i GetSubFieldWithTimezoneRow
	err := row.Scan(
		&i.ID,
		&i.ComplexID,
		&i.Name,
		&i.SportType,
		&i.Capacity,
		&i.CreatedAt,
		&i.Timezone,
	)
	return i, err
}

const createPricingRule = `-- name: CreatePricingRule :exec
INSERT INTO pricing_rules (id, sub_field_id, day_of_week, start_minute, end_minute, base_price, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreatePricingRuleParams struct {
	ID          string    `json:"id"`
	SubFieldID  string    `json:"sub_field_id"`
	DayOfWeek   int64     `json:"day_of_week"`
	StartMinute int64     `json:"start_minute"`
	EndMinute   int64     `json:"end_minute"`
	BasePrice   int64     `json:"base_price"`
	CreatedAt   time.Time `json:"created_at"`
}

func (q *Queries) CreatePricingRule(ctx context.Context, arg CreatePricingRuleParams) error {
	_, err := q.db.ExecContext(ctx, createPricingRule,
		arg.ID,
		arg.SubFieldID,
		arg.DayOfWeek,
		arg.StartMinute,
		arg.EndMinute,
		arg.BasePrice,
		arg.CreatedAt,
	)
	return err
}

const listPricingRules = `-- name: ListPricingRules :many
SELECT id, sub_field_id, day_of_week, start_minute, end_minute, base_price, created_at
FROM pricing_rules
WHERE sub_field_id = ?
ORDER BY day_of_week, start_minute, end_minute
`

func (q *Queries) ListPricingRules(ctx context.Context, subFieldID string) ([]PricingRule, error) {
	rows, err := q.db.QueryContext(ctx, listPricingRules, subFieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PricingRule{}
	for rows.Next() {
		var i PricingRule
		if err := rows.Scan(
			&i.ID,
			&i.SubFieldID,
			&i.DayOfWeek,
			&i.StartMinute,
			&i.EndMinute,
			&i.BasePrice,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deletePricingRule = `-- name: DeletePricingRule :execrows
DELETE FROM pricing_rules WHERE id = ?
`

func (q *Queries) DeletePricingRule(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePricingRule, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getSubField = `-- name: GetSubField :one
SELECT id, complex_id, name, sport_type, capacity, created_at FROM sub_fields WHERE id = ?
`

func (q *Queries) GetSubField(ctx context.Context, id string) (SubField, error) {
	row := q.db.QueryRowContext(ctx, getSubField, id)
	var i SubField
	err := row.Scan(
		&i.ID,
		&i.ComplexID,
		&i.Name,
		&i.SportType,
		&i.Capacity,
		&i.CreatedAt,
	)
	return i, err
}

const getPricingRule = `-- name: GetPricingRule :one
SELECT id, sub_field_id, day_of_week, start_minute, end_minute, base_price, created_at
FROM pricing_rules
WHERE id = ?
`

func (q *Queries) GetPricingRule(ctx context.Context, id string) (PricingRule, error) {
	row := q.db.QueryRowContext(ctx, getPricingRule, id)
	var i PricingRule
	err := row.Scan(
		&i.ID,
		&i.SubFieldID,
		&i.DayOfWeek,
		&i.StartMinute,
		&i.EndMinute,
		&i.BasePrice,
		&i.CreatedAt,
	)
	return i, err
}
