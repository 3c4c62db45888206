package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// CheckInParams describes a new store visit
type CheckInParams struct {
	StoreID   int64
	StoreName string
	Submitter string
	Place     string
}

// CheckIn opens a session for the store. A store has at most one open
// session; a second check-in fails with domain.ErrSessionAlreadyOpen. The
// check also covers open sessions written before the unique index existed.
func (s *Store) CheckIn(ctx context.Context, p CheckInParams) (domain.Record, error) {
	c, err := s.collection(CollCheckin)
	if err != nil {
		return nil, err
	}
	if p.StoreID <= 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgStoreIDRequired)
	}

	var out domain.Record
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		open, err := activeSession(ctx, tx, c, p.StoreID)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
		if open != nil {
			return sessionOpenError(p.StoreID, open.String(FieldSessionID))
		}

		now := s.now().UTC()
		out, err = s.insertRow(ctx, tx, c, domain.Record{
			domain.FieldStoreID:   p.StoreID,
			FieldStore:            p.StoreName,
			domain.FieldSubmitter: p.Submitter,
			FieldSessionID:        newUUID(),
			FieldCheckinTime:      now.Format(TimeLayout),
			FieldCheckinPlace:     p.Place,
			FieldCheckoutTime:     CheckoutOpen,
			FieldDay:              now.Format("2006-01-02"),
			FieldSingleOpen:       1,
		})
		if errors.Is(err, domain.ErrConstraintViolation) {
			return sessionOpenError(p.StoreID, "")
		}
		return err
	})
	return out, err
}

// CheckOut closes the open session with the given id
func (s *Store) CheckOut(ctx context.Context, sessionID, place string) (domain.Record, error) {
	c, err := s.collection(CollCheckin)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgSessionIDRequired)
	}

	var out domain.Record
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM %s
			WHERE json_extract(data, '$.%s') = ? AND json_extract(data, '$.%s') = ?`,
			selectColumns, quoteIdent(c.Name), FieldSessionID, FieldCheckoutTime)
		rows, err := queryRecords(ctx, tx, query, sessionID, CheckoutOpen)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}

		session := rows[0]
		id, _ := toInt64(session[colID])
		session[FieldCheckoutTime] = s.timestamp()
		session[FieldCheckoutPlace] = place

		payload, err := encodePayload(c, session.Clone())
		if err != nil {
			return err
		}
		update := fmt.Sprintf("UPDATE %s SET data = ?, revision = revision + 1 WHERE id = ?", quoteIdent(c.Name))
		if _, err := tx.ExecContext(ctx, update, payload, id); err != nil {
			return mapError(ErrMsgWriteFailed, err)
		}
		out, err = getRow(ctx, tx, c, id)
		return err
	})
	return out, err
}

// ActiveSession returns the open session of a store, or
// domain.ErrSessionNotFound
func (s *Store) ActiveSession(ctx context.Context, storeID int64) (domain.Record, error) {
	c, err := s.collection(CollCheckin)
	if err != nil {
		return nil, err
	}

	var out domain.Record
	err = s.withDB(func(db *sql.DB) error {
		out, err = activeSession(ctx, db, c, storeID)
		return err
	})
	return out, err
}

func activeSession(ctx context.Context, q queryer, c Collection, storeID int64) (domain.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE json_extract(data, '$.store_id') = ? AND json_extract(data, '$.%s') = ?
		ORDER BY created_on DESC, id DESC LIMIT 1`,
		selectColumns, quoteIdent(c.Name), FieldCheckoutTime)

	rows, err := queryRecords(ctx, q, query, storeID, CheckoutOpen)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: store %d", domain.ErrSessionNotFound, storeID)
	}
	return rows[0], nil
}

func sessionOpenError(storeID int64, sessionID string) error {
	return fmt.Errorf("%w: %w: store %d session %s", domain.ErrSessionAlreadyOpen, domain.ErrConstraintViolation, storeID, sessionID)
}
