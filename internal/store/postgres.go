package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Intake/internal/scoring"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- Directory ---

func (s *PostgresStore) CreateOrganization(ctx context.Context, org *Organization) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO organizations (id, name, contact_email, contact_phone, address, zones, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		org.ID, org.Name, org.ContactEmail, org.ContactPhone, org.Address, nonNil(org.Zones), org.Active,
	).Scan(&org.CreatedAt)
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	o := &Organization{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, contact_email, contact_phone, address, zones, active, created_at
		FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.ContactEmail, &o.ContactPhone, &o.Address, &o.Zones, &o.Active, &o.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

const caseworkerColumns = `id, organization_id, name, email, phone, zones, active, created_at`

func scanCaseworker(row rowScanner) (*Caseworker, error) {
	cw := &Caseworker{}
	err := row.Scan(&cw.ID, &cw.OrganizationID, &cw.Name, &cw.Email, &cw.Phone, &cw.Zones, &cw.Active, &cw.CreatedAt)
	return cw, err
}

func (s *PostgresStore) CreateCaseworker(ctx context.Context, cw *Caseworker) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO caseworkers (id, organization_id, name, email, phone, zones, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		cw.ID, cw.OrganizationID, cw.Name, cw.Email, cw.Phone, nonNil(cw.Zones), cw.Active,
	).Scan(&cw.CreatedAt)
}

func (s *PostgresStore) GetCaseworker(ctx context.Context, id string) (*Caseworker, error) {
	cw, err := scanCaseworker(s.pool.QueryRow(ctx,
		`SELECT `+caseworkerColumns+` FROM caseworkers WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cw, nil
}

// ListCaseworkers returns caseworkers in directory order (oldest first).
func (s *PostgresStore) ListCaseworkers(ctx context.Context, filter CaseworkerFilter) ([]*Caseworker, error) {
	query := `SELECT ` + caseworkerColumns + ` FROM caseworkers WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.OrganizationID != "" {
		n++
		query += fmt.Sprintf(" AND organization_id = $%d", n)
		args = append(args, filter.OrganizationID)
	}
	if filter.Zone != "" {
		n++
		query += fmt.Sprintf(" AND $%d = ANY(zones)", n)
		args = append(args, filter.Zone)
	}
	if filter.ActiveOnly {
		query += " AND active"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Caseworker
	for rows.Next() {
		cw, err := scanCaseworker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cw)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateQRCode(ctx context.Context, qr *QRCode) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO qr_codes (code, organization_id, location, zone, latitude, longitude, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING scan_count, created_at`,
		qr.Code, qr.OrganizationID, qr.Location, qr.RoutingZone(), qr.Latitude, qr.Longitude, qr.Active,
	).Scan(&qr.ScanCount, &qr.CreatedAt)
}

func (s *PostgresStore) GetQRCode(ctx context.Context, code string) (*QRCode, error) {
	q := &QRCode{}
	err := s.pool.QueryRow(ctx, `
		SELECT code, organization_id, location, zone, latitude, longitude,
			scan_count, last_scanned_at, active, created_at
		FROM qr_codes WHERE code = $1`, code,
	).Scan(&q.Code, &q.OrganizationID, &q.Location, &q.Zone, &q.Latitude, &q.Longitude,
		&q.ScanCount, &q.LastScannedAt, &q.Active, &q.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// IncrementQRScan bumps the durable scan counter and returns the new value.
func (s *PostgresStore) IncrementQRScan(ctx context.Context, code string, at time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		UPDATE qr_codes SET scan_count = scan_count + 1, last_scanned_at = $2
		WHERE code = $1
		RETURNING scan_count`, code, at,
	).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return count, err
}

// --- Clients ---

const clientColumns = `id, organization_id, qr_code, zone,
	first_name, last_name, middle_name, preferred_name,
	phone, email, preferred_contact,
	date_of_birth, gender, race, ethnicity, veteran_status,
	primary_language, needs_interpreter,
	status, assigned_caseworker_id,
	intake_data, vi_spdat_score, current_assessment_id, intake_completed_at,
	matched_housing_id, housing_placed_at,
	notes, created_at, updated_at`

func scanClient(row rowScanner) (*Client, error) {
	c := &Client{}
	var answersJSON, scoreJSON []byte
	if err := row.Scan(
		&c.ID, &c.OrganizationID, &c.QRCode, &c.Zone,
		&c.FirstName, &c.LastName, &c.MiddleName, &c.PreferredName,
		&c.Phone, &c.Email, &c.PreferredContact,
		&c.DateOfBirth, &c.Gender, &c.Race, &c.Ethnicity, &c.VeteranStatus,
		&c.PrimaryLanguage, &c.NeedsInterpreter,
		&c.Status, &c.AssignedCaseworkerID,
		&answersJSON, &scoreJSON, &c.CurrentAssessmentID, &c.IntakeCompletedAt,
		&c.MatchedHousingID, &c.HousingPlacedAt,
		&c.Notes, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if answersJSON != nil {
		c.IntakeAnswers = &scoring.IntakeAnswers{}
		if err := json.Unmarshal(answersJSON, c.IntakeAnswers); err != nil {
			return nil, fmt.Errorf("decode intake_data: %w", err)
		}
	}
	if scoreJSON != nil {
		c.VulnerabilityScore = &scoring.VulnerabilityScore{}
		if err := json.Unmarshal(scoreJSON, c.VulnerabilityScore); err != nil {
			return nil, fmt.Errorf("decode vi_spdat_score: %w", err)
		}
	}
	return c, nil
}

func (s *PostgresStore) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func clientWhere(filter ClientFilter) (string, []interface{}) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.OrganizationID != "" {
		n++
		where += fmt.Sprintf(" AND organization_id = $%d", n)
		args = append(args, filter.OrganizationID)
	}
	if filter.CaseworkerID != "" {
		n++
		where += fmt.Sprintf(" AND assigned_caseworker_id = $%d", n)
		args = append(args, filter.CaseworkerID)
	}
	if filter.Status != nil {
		n++
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.Unassigned {
		where += " AND assigned_caseworker_id IS NULL"
	}
	if filter.After != nil {
		where += fmt.Sprintf(" AND (created_at, id) > ($%d, $%d)", n+1, n+2)
		n += 2
		args = append(args, filter.After.CreatedAt, filter.After.ID)
	}
	return where, args
}

// ListClients returns clients newest first.
func (s *PostgresStore) ListClients(ctx context.Context, filter ClientFilter) ([]*Client, error) {
	where, args := clientWhere(filter)
	query := `SELECT ` + clientColumns + ` FROM clients` + where
	n := len(args)

	// The sweep drains the oldest gaps first and pages by keyset.
	if filter.Unassigned {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountClients(ctx context.Context, filter ClientFilter) (int, error) {
	where, args := clientWhere(filter)
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&count)
	return count, err
}

// UpdateClient applies a caseworker's edit and returns the updated row, or
// (nil, nil) when the client does not exist.
func (s *PostgresStore) UpdateClient(ctx context.Context, id uuid.UUID, upd ClientUpdate) (*Client, error) {
	var status *string
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}
	c, err := scanClient(s.pool.QueryRow(ctx, `
		UPDATE clients SET
			status = COALESCE($2, status),
			matched_housing_id = COALESCE($3, matched_housing_id),
			housing_placed_at = COALESCE($4, housing_placed_at),
			notes = CASE WHEN $5 = '' THEN notes ELSE array_append(notes, $5) END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+clientColumns,
		id, status, upd.MatchedHousingID, upd.HousingPlacedAt, upd.Note,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// --- Assessments ---

func (s *PostgresStore) ListAssessments(ctx context.Context, clientID uuid.UUID) ([]*Assessment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, intake_data, vi_spdat_score, recommendations, created_at
		FROM assessments WHERE client_id = $1
		ORDER BY created_at ASC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Assessment
	for rows.Next() {
		a := &Assessment{}
		var answersJSON, scoreJSON, planJSON []byte
		if err := rows.Scan(&a.ID, &a.ClientID, &answersJSON, &scoreJSON, &planJSON, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode assessment answers: %w", err)
		}
		if err := json.Unmarshal(scoreJSON, &a.Score); err != nil {
			return nil, fmt.Errorf("decode assessment score: %w", err)
		}
		if err := json.Unmarshal(planJSON, &a.Plan); err != nil {
			return nil, fmt.Errorf("decode assessment plan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Action queue ---

const actionItemColumns = `id, caseworker_id, client_id, client_name, action_type, priority,
	description, recommendations, due_date, completed, completed_at, completion_notes, created_at`

// scanActionItem reads actionItemColumns followed by any extra columns.
func scanActionItem(row rowScanner, extra ...interface{}) (*ActionItem, error) {
	a := &ActionItem{}
	var recJSON []byte
	dest := []interface{}{
		&a.ID, &a.CaseworkerID, &a.ClientID, &a.ClientName, &a.ActionType, &a.Priority,
		&a.Description, &recJSON, &a.DueDate, &a.Completed, &a.CompletedAt, &a.CompletionNotes, &a.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if recJSON != nil {
		a.Recommendations = &scoring.InterventionPlan{}
		if err := json.Unmarshal(recJSON, a.Recommendations); err != nil {
			return nil, fmt.Errorf("decode recommendations: %w", err)
		}
	}
	return a, nil
}

// ListActionItems returns a caseworker's queue, most urgent first.
func (s *PostgresStore) ListActionItems(ctx context.Context, filter ActionItemFilter) ([]*ActionItem, error) {
	query := `SELECT ` + actionItemColumns + ` FROM action_items WHERE caseworker_id = $1`
	args := []interface{}{filter.CaseworkerID}
	n := 1

	if filter.Completed != nil {
		n++
		query += fmt.Sprintf(" AND completed = $%d", n)
		args = append(args, *filter.Completed)
	}

	query += " ORDER BY priority DESC, created_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ActionItem
	for rows.Next() {
		a, err := scanActionItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CompleteActionItem marks the item done. It returns (nil, false, nil) when the
// item does not exist or belongs to another caseworker. Completing twice keeps
// the first completion time and reports first=false.
func (s *PostgresStore) CompleteActionItem(ctx context.Context, caseworkerID string, id uuid.UUID, notes string, at time.Time) (*ActionItem, bool, error) {
	var wasCompleted bool
	a, err := scanActionItem(s.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT completed AS was_completed FROM action_items
			WHERE id = $1 AND caseworker_id = $2
			FOR UPDATE
		)
		UPDATE action_items SET
			completed = TRUE,
			completed_at = COALESCE(completed_at, $3),
			completion_notes = CASE WHEN $4 = '' THEN completion_notes ELSE $4 END
		FROM prev
		WHERE id = $1 AND caseworker_id = $2
		RETURNING `+actionItemColumns+`, prev.was_completed`,
		id, caseworkerID, at, notes,
	), &wasCompleted)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, !wasCompleted, nil
}

// --- Metrics ---

func (s *PostgresStore) statusCounts(ctx context.Context, caseworkerID string) (StatusCounts, error) {
	query := `SELECT status, COUNT(*) FROM clients`
	args := []interface{}{}
	if caseworkerID != "" {
		query += ` WHERE assigned_caseworker_id = $1`
		args = append(args, caseworkerID)
	}
	query += ` GROUP BY status`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := StatusCounts{}
	for _, st := range ClientStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var st ClientStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) GetCityMetrics(ctx context.Context) (*CityMetrics, error) {
	counts, err := s.statusCounts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	m := &CityMetrics{ByStatus: counts, TotalClients: counts.Total()}
	m.PlacementRate = PlacementRate(counts[ClientStatusPlaced], m.TotalClients)

	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clients WHERE assigned_caseworker_id IS NULL AND status <> 'inactive'),
			(SELECT COUNT(*) FROM caseworkers WHERE active),
			(SELECT COUNT(*) FROM qr_codes WHERE active)`,
	).Scan(&m.UnassignedClients, &m.ActiveCaseworkers, &m.ActiveQRCodes)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) GetCaseworkerStats(ctx context.Context, caseworkerID string) (*CaseworkerStats, error) {
	counts, err := s.statusCounts(ctx, caseworkerID)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	st := &CaseworkerStats{ByStatus: counts, TotalClients: counts.Total()}
	st.PlacementRate = PlacementRate(counts[ClientStatusPlaced], st.TotalClients)

	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN priority >= 4 THEN 1 ELSE 0 END), 0)
		FROM action_items WHERE caseworker_id = $1 AND NOT completed`, caseworkerID,
	).Scan(&st.PendingActions, &st.HighPriorityActions)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
