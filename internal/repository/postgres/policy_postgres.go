package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/rules"
	"fleetdocs/internal/storage"
)

// PolicyPostgres is a PostgreSQL implementation of
// repository.PolicyRepository. Activation sweeps run inside the same
// transaction as the insert/update they precede, so the single-active-policy
// invariant holds at every commit point. The locked read in Update also
// serializes concurrent sweeps on the same vehicle.
type PolicyPostgres struct {
	db    *sql.DB
	files storage.FileStore
	now   func() time.Time
}

// NewPolicyPostgres creates a new PolicyPostgres repository.
func NewPolicyPostgres(db *sql.DB, files storage.FileStore) *PolicyPostgres {
	return &PolicyPostgres{db: db, files: files, now: time.Now}
}

var _ repository.PolicyRepository = (*PolicyPostgres)(nil)

const policyColumns = `id, vehicle_id, policy_number, insurer, coverage_type, start_date, expiration_date, coverage_amount, annual_premium, deductible, beneficiary, observations, filename, storage_path, active, created_by, created_at`

func scanPolicyFields(row rowScanner, p *model.Policy, extra ...any) error {
	dest := []any{
		&p.ID,
		&p.VehicleID,
		&p.Number,
		&p.Insurer,
		&p.CoverageType,
		&p.StartDate,
		&p.ExpirationDate,
		&p.CoverageAmount,
		&p.AnnualPremium,
		&p.Deductible,
		&p.Beneficiary,
		&p.Observations,
		&p.Filename,
		&p.StoragePath,
		&p.Active,
		&p.CreatedBy,
		&p.CreatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// enrich fills the derived read-time fields: days until expiry, status, and
// the download pointer for policies that carry a file.
func (r *PolicyPostgres) enrich(p *model.Policy) {
	today := r.now()
	p.DaysUntilExpiry = rules.DaysUntil(p.ExpirationDate, today)
	p.Status = string(rules.Classify(p.ExpirationDate, today))
	if p.HasFile() {
		p.DownloadURL = fmt.Sprintf("/api/vehicles/policies/%d/download", p.ID)
	}
}

func (r *PolicyPostgres) scanPolicy(row rowScanner) (*model.Policy, error) {
	var p model.Policy
	if err := scanPolicyFields(row, &p); err != nil {
		return nil, err
	}
	r.enrich(&p)
	return &p, nil
}

func (r *PolicyPostgres) compensate(ctx context.Context, path string, cause error) error {
	if rmErr := r.files.RemoveStrict(ctx, path); rmErr != nil {
		return errors.Join(cause, rmErr)
	}
	return cause
}

// deactivateOthers flips active=false on every other policy of the vehicle.
// Must run inside the caller's transaction, before the activating write.
// Idempotent; excludeID 0 excludes nothing.
func deactivateOthers(ctx context.Context, tx *sql.Tx, vehicleID, excludeID int64) error {
	const q = `UPDATE insurance_policies SET active = FALSE WHERE vehicle_id = $1 AND id <> $2 AND active`
	_, err := tx.ExecContext(ctx, q, vehicleID, excludeID)
	return err
}

// Add inserts a policy, sweeping the vehicle's other active policies first
// when the new one is active (the default). Any failure removes the uploaded
// file, if one was supplied.
func (r *PolicyPostgres) Add(ctx context.Context, vehicleID int64, input model.PolicyInput, file *model.UploadedFile, createdBy int64) (*model.Policy, error) {
	id, err := r.insert(ctx, vehicleID, input, file, createdBy)
	if err != nil {
		if file != nil {
			return nil, r.compensate(ctx, file.StoragePath, err)
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *PolicyPostgres) insert(ctx context.Context, vehicleID int64, input model.PolicyInput, file *model.UploadedFile, createdBy int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	if active {
		if err := deactivateOthers(ctx, tx, vehicleID, 0); err != nil {
			return 0, err
		}
	}

	var filename, storagePath *string
	if file != nil {
		filename, storagePath = &file.Filename, &file.StoragePath
	}

	const q = `
		INSERT INTO insurance_policies
			(vehicle_id, policy_number, insurer, coverage_type, start_date, expiration_date,
			 coverage_amount, annual_premium, deductible, beneficiary, observations,
			 filename, storage_path, active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, q,
		vehicleID,
		input.Number,
		input.Insurer,
		input.CoverageType,
		input.StartDate,
		input.ExpirationDate,
		input.CoverageAmount,
		input.AnnualPremium,
		input.Deductible,
		input.Beneficiary,
		input.Observations,
		filename,
		storagePath,
		active,
		createdBy,
	).Scan(&id); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// FindByID fetches a single policy with derived expiry fields.
func (r *PolicyPostgres) FindByID(ctx context.Context, id int64) (*model.Policy, error) {
	q := `SELECT ` + policyColumns + ` FROM insurance_policies WHERE id = $1`
	return r.scanPolicy(r.db.QueryRowContext(ctx, q, id))
}

// ListByVehicle returns a vehicle's policies, active first, newest first.
func (r *PolicyPostgres) ListByVehicle(ctx context.Context, vehicleID int64) ([]model.Policy, error) {
	q := `SELECT ` + policyColumns + ` FROM insurance_policies WHERE vehicle_id = $1 ORDER BY active DESC, created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	policies := make([]model.Policy, 0)
	for rows.Next() {
		p, err := r.scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

// Update applies the patch under a row lock. Activating sweeps the vehicle's
// other policies inside the same transaction, excluding this row. The
// previous file is removed only after commit.
func (r *PolicyPostgres) Update(ctx context.Context, id int64, patch model.PolicyPatch) (*model.Policy, error) {
	oldPath, err := r.applyUpdate(ctx, id, patch)
	if err != nil {
		if patch.NewFile != nil {
			return nil, r.compensate(ctx, patch.NewFile.StoragePath, err)
		}
		return nil, err
	}
	if patch.NewFile != nil && oldPath != "" && oldPath != patch.NewFile.StoragePath {
		r.files.Remove(ctx, oldPath)
	}
	return r.FindByID(ctx, id)
}

func (r *PolicyPostgres) applyUpdate(ctx context.Context, id int64, patch model.PolicyPatch) (oldPath string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var existing model.Policy
	qSel := `SELECT ` + policyColumns + ` FROM insurance_policies WHERE id = $1 FOR UPDATE`
	if err := scanPolicyFields(tx.QueryRowContext(ctx, qSel, id), &existing); err != nil {
		return "", err
	}

	if patch.Active != nil && *patch.Active {
		if err := deactivateOthers(ctx, tx, existing.VehicleID, id); err != nil {
			return "", err
		}
	}

	merged := existing
	if patch.Number != nil {
		merged.Number = *patch.Number
	}
	if patch.Insurer != nil {
		merged.Insurer = *patch.Insurer
	}
	if patch.CoverageType != nil {
		merged.CoverageType = patch.CoverageType
	}
	if patch.StartDate != nil {
		merged.StartDate = *patch.StartDate
	}
	if patch.ExpirationDate != nil {
		merged.ExpirationDate = *patch.ExpirationDate
	}
	if patch.CoverageAmount != nil {
		merged.CoverageAmount = patch.CoverageAmount
	}
	if patch.AnnualPremium != nil {
		merged.AnnualPremium = patch.AnnualPremium
	}
	if patch.Deductible != nil {
		merged.Deductible = patch.Deductible
	}
	if patch.Beneficiary != nil {
		merged.Beneficiary = patch.Beneficiary
	}
	if patch.Observations != nil {
		merged.Observations = patch.Observations
	}
	if patch.Active != nil {
		merged.Active = *patch.Active
	}
	if patch.NewFile != nil {
		merged.Filename, merged.StoragePath = &patch.NewFile.Filename, &patch.NewFile.StoragePath
	}

	const qUpd = `
		UPDATE insurance_policies
		SET policy_number = $1, insurer = $2, coverage_type = $3, start_date = $4,
			expiration_date = $5, coverage_amount = $6, annual_premium = $7, deductible = $8,
			beneficiary = $9, observations = $10, filename = $11, storage_path = $12, active = $13
		WHERE id = $14
	`
	if _, err := tx.ExecContext(ctx, qUpd,
		merged.Number,
		merged.Insurer,
		merged.CoverageType,
		merged.StartDate,
		merged.ExpirationDate,
		merged.CoverageAmount,
		merged.AnnualPremium,
		merged.Deductible,
		merged.Beneficiary,
		merged.Observations,
		merged.Filename,
		merged.StoragePath,
		merged.Active,
		id,
	); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	if existing.StoragePath != nil {
		return *existing.StoragePath, nil
	}
	return "", nil
}

// Delete removes the row first, then the file (when present), and returns
// the last snapshot.
func (r *PolicyPostgres) Delete(ctx context.Context, id int64) (*model.Policy, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var p model.Policy
	qSel := `SELECT ` + policyColumns + ` FROM insurance_policies WHERE id = $1 FOR UPDATE`
	if err := scanPolicyFields(tx.QueryRowContext(ctx, qSel, id), &p); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM insurance_policies WHERE id = $1`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if p.StoragePath != nil {
		r.files.Remove(ctx, *p.StoragePath)
	}
	r.enrich(&p)
	return &p, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ListExpiring returns active, not-yet-expired policies due within the given
// window, ordered by expiration ascending and joined with vehicle display
// fields.
func (r *PolicyPostgres) ListExpiring(ctx context.Context, withinDays int) ([]model.ExpiringPolicy, error) {
	today := dateOnly(r.now())
	cutoff := today.AddDate(0, 0, withinDays)

	q := `
		SELECT ` + prefixColumns("p", policyColumns) + `, v.unit_number, v.plates, v.make, v.model
		FROM insurance_policies p
		INNER JOIN vehicles v ON p.vehicle_id = v.id
		WHERE p.active AND p.expiration_date >= $1 AND p.expiration_date <= $2
		ORDER BY p.expiration_date ASC
	`
	rows, err := r.db.QueryContext(ctx, q, today, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ExpiringPolicy, 0)
	for rows.Next() {
		var e model.ExpiringPolicy
		if err := scanPolicyFields(rows, &e.Policy, &e.VehicleUnit, &e.VehiclePlates, &e.VehicleMake, &e.VehicleModel); err != nil {
			return nil, err
		}
		r.enrich(&e.Policy)
		e.VehicleInfo = fmt.Sprintf("%s - %s %s (%s)", e.VehicleUnit, e.VehicleMake, e.VehicleModel, e.VehiclePlates)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByVehicle returns the number of policies attached to a vehicle.
func (r *PolicyPostgres) CountByVehicle(ctx context.Context, vehicleID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM insurance_policies WHERE vehicle_id = $1`, vehicleID).Scan(&n)
	return n, err
}

// CountActiveByVehicle returns the number of active policies for a vehicle.
func (r *PolicyPostgres) CountActiveByVehicle(ctx context.Context, vehicleID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM insurance_policies WHERE vehicle_id = $1 AND active`, vehicleID).Scan(&n)
	return n, err
}

// CountExpiringByVehicle counts the vehicle's active policies due within the
// window, excluding already-expired ones.
func (r *PolicyPostgres) CountExpiringByVehicle(ctx context.Context, vehicleID int64, withinDays int) (int, error) {
	today := dateOnly(r.now())
	cutoff := today.AddDate(0, 0, withinDays)

	const q = `
		SELECT COUNT(*) FROM insurance_policies
		WHERE vehicle_id = $1 AND active AND expiration_date >= $2 AND expiration_date <= $3
	`
	var n int
	err := r.db.QueryRowContext(ctx, q, vehicleID, today, cutoff).Scan(&n)
	return n, err
}

// Summary returns the rollup over the vehicle's not-yet-expired policies.
func (r *PolicyPostgres) Summary(ctx context.Context, vehicleID int64) (*model.PolicySummary, error) {
	today := dateOnly(r.now())

	const q = `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0),
			MIN(expiration_date)
		FROM insurance_policies
		WHERE vehicle_id = $1 AND expiration_date >= $2
	`
	var s model.PolicySummary
	var next sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, vehicleID, today).Scan(&s.Count, &s.Active, &next); err != nil {
		return nil, err
	}
	if next.Valid {
		s.NextExpiration = &next.Time
	}
	return &s, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
