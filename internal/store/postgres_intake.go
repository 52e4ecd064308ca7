package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Intake (transactional) ---

// RecordIntake writes the client, its first assessment, and the caseworker's
// action item (if any) in one transaction. Zero IDs are generated.
func (s *PostgresStore) RecordIntake(ctx context.Context, rec *IntakeRecord) error {
	if rec == nil || rec.Client == nil || rec.Assessment == nil {
		return fmt.Errorf("record intake: client and assessment required")
	}
	c := rec.Client
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	a := rec.Assessment
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.ClientID = c.ID
	c.CurrentAssessmentID = &a.ID

	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	scoreJSON, err := json.Marshal(a.Score)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Client
	err = tx.QueryRow(ctx, `
		INSERT INTO clients (id, organization_id, qr_code, zone,
			first_name, last_name, middle_name, preferred_name,
			phone, email, preferred_contact,
			date_of_birth, gender, race, ethnicity, veteran_status,
			primary_language, needs_interpreter,
			status, assigned_caseworker_id,
			intake_data, vi_spdat_score, current_assessment_id, intake_completed_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING created_at, updated_at`,
		c.ID, c.OrganizationID, c.QRCode, c.Zone,
		c.FirstName, c.LastName, c.MiddleName, c.PreferredName,
		c.Phone, c.Email, c.PreferredContact,
		c.DateOfBirth, c.Gender, nonNil(c.Race), c.Ethnicity, c.VeteranStatus,
		c.PrimaryLanguage, c.NeedsInterpreter,
		c.Status, c.AssignedCaseworkerID,
		answersJSON, scoreJSON, c.CurrentAssessmentID, c.IntakeCompletedAt, nonNil(c.Notes),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	// 2. Assessment
	if err := insertAssessment(ctx, tx, a, answersJSON, scoreJSON); err != nil {
		return err
	}

	// 3. Action item
	if rec.Action != nil {
		rec.Action.ClientID = c.ID
		if err := insertActionItem(ctx, tx, rec.Action); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordReassessment stores a new assessment and points the client at it.
// Earlier assessments are left untouched.
func (s *PostgresStore) RecordReassessment(ctx context.Context, rec *ReassessmentRecord) error {
	if rec == nil || rec.Assessment == nil {
		return fmt.Errorf("record reassessment: assessment required")
	}
	a := rec.Assessment
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.ClientID = rec.ClientID

	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	scoreJSON, err := json.Marshal(a.Score)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Lock client
	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM clients WHERE id = $1 FOR UPDATE`, rec.ClientID).Scan(&locked)
	if err != nil {
		return fmt.Errorf("lock client: %w", err)
	}

	// 2. Assessment
	if err := insertAssessment(ctx, tx, a, answersJSON, scoreJSON); err != nil {
		return err
	}

	// 3. Move the client's current score
	_, err = tx.Exec(ctx, `
		UPDATE clients SET
			intake_data = $2, vi_spdat_score = $3, current_assessment_id = $4, updated_at = NOW()
		WHERE id = $1`,
		rec.ClientID, answersJSON, scoreJSON, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}

	// 4. Follow-up
	if rec.Action != nil {
		rec.Action.ClientID = rec.ClientID
		if err := insertActionItem(ctx, tx, rec.Action); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AssignClient attaches a caseworker to a client that has none and queues the
// action item. It returns ErrAlreadyAssigned if another writer got there first.
func (s *PostgresStore) AssignClient(ctx context.Context, clientID uuid.UUID, caseworkerID string, action *ActionItem) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE clients SET assigned_caseworker_id = $2, updated_at = NOW()
		WHERE id = $1 AND assigned_caseworker_id IS NULL`,
		clientID, caseworkerID,
	)
	if err != nil {
		return fmt.Errorf("assign client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyAssigned
	}

	if action != nil {
		action.ClientID = clientID
		action.CaseworkerID = caseworkerID
		if err := insertActionItem(ctx, tx, action); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertAssessment takes answers and score already encoded for the client row.
func insertAssessment(ctx context.Context, tx pgx.Tx, a *Assessment, answersJSON, scoreJSON []byte) error {
	planJSON, err := json.Marshal(a.Plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO assessments (id, client_id, intake_data, vi_spdat_score, recommendations)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.ClientID, answersJSON, scoreJSON, planJSON,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

func insertActionItem(ctx context.Context, tx pgx.Tx, item *ActionItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	var recJSON []byte
	if item.Recommendations != nil {
		var err error
		if recJSON, err = json.Marshal(item.Recommendations); err != nil {
			return fmt.Errorf("encode recommendations: %w", err)
		}
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO action_items (id, caseworker_id, client_id, client_name, action_type,
			priority, description, recommendations, due_date, completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		item.ID, item.CaseworkerID, item.ClientID, item.ClientName, item.ActionType,
		item.Priority, item.Description, recJSON, item.DueDate, item.Completed,
	).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("create action item: %w", err)
	}
	return nil
}
