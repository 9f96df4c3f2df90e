package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"pairstat/domain/core"
	"pairstat/domain/study"
	"pairstat/internal/errors"
	"pairstat/ports"
)

// ReportRepositoryImpl implements ReportRepository on any sqlx driver that
// understands ON CONFLICT upserts (PostgreSQL, SQLite)
type ReportRepositoryImpl struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB) *ReportRepositoryImpl {
	return &ReportRepositoryImpl{db: db, now: time.Now}
}

var _ ports.ReportRepository = (*ReportRepositoryImpl)(nil)

type reportRow struct {
	ports.ReportRecord
	CreatedAtMillis int64 `db:"created_at"`
}

// Save upserts a report by ID. The first save time is kept on replacement.
func (r *ReportRepositoryImpl) Save(ctx context.Context, report *study.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "failed to encode report")
	}

	var pValue *float64
	if report.MainTest.Available() {
		p := report.MainTest.PValue
		pValue = &p
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO analysis_reports
			(id, mode, condition_a, condition_b, main_test, main_status, p_value, participants, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			mode = excluded.mode,
			condition_a = excluded.condition_a,
			condition_b = excluded.condition_b,
			main_test = excluded.main_test,
			main_status = excluded.main_status,
			p_value = excluded.p_value,
			participants = excluded.participants,
			payload = excluded.payload
	`),
		string(report.ID), string(report.Mode), report.ConditionA, report.ConditionB,
		string(report.MainTest.Kind), string(report.MainTest.Status), pValue,
		len(report.Participants), string(payload), r.now().UnixMilli(),
	)
	if err != nil {
		return errors.Wrap(errors.DatabaseError(err.Error()), "failed to save report")
	}
	return nil
}

// Get retrieves a report by its ID
func (r *ReportRepositoryImpl) Get(ctx context.Context, id core.ReportID) (*study.Report, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, r.db.Rebind(`
		SELECT payload FROM analysis_reports WHERE id = ?
	`), string(id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("report " + string(id))
	}
	if err != nil {
		return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to load report")
	}

	var report study.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, errors.Wrap(err, "failed to decode stored report")
	}
	return &report, nil
}

// List returns report headers, newest first
func (r *ReportRepositoryImpl) List(ctx context.Context, limit int) ([]*ports.ReportRecord, error) {
	query := `
		SELECT id, mode, condition_a, condition_b, main_test, main_status, p_value, participants, created_at
		FROM analysis_reports
		ORDER BY created_at DESC, id ASC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to list reports")
	}

	records := make([]*ports.ReportRecord, len(rows))
	for i := range rows {
		rec := rows[i].ReportRecord
		rec.CreatedAt = time.UnixMilli(rows[i].CreatedAtMillis).UTC()
		records[i] = &rec
	}
	return records, nil
}
