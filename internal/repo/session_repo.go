package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/mrecall/internal/model"
	"github.com/xxxsen/mrecall/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
)

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// AppendMessages adds messages to the end of a session's transcript, creating
// the session row on first write. Sequence numbers are assigned inside one
// transaction so concurrent appenders never collide.
func (r *SessionRepo) AppendMessages(ctx context.Context, sessionID string, msgs []model.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	var lastSeq int64
	err = tx.GetContext(ctx, &lastSeq, `SELECT last_seq FROM sessions WHERE id = $1 FOR UPDATE`, sessionID)
	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, last_seq, extracted_seq, mtime) VALUES ($1, 0, 0, $2)`,
			sessionID, now); err != nil {
			return 0, err
		}
		lastSeq = 0
	} else if err != nil {
		return 0, err
	}

	const insert = `INSERT INTO session_messages (session_id, seq, role, content, ts) VALUES ($1, $2, $3, $4, $5)`
	for i, msg := range msgs {
		ts := msg.Ts
		if ts == 0 {
			ts = now
		}
		if _, err := tx.ExecContext(ctx, insert, sessionID, lastSeq+int64(i)+1, msg.Role, msg.Content, ts); err != nil {
			if dbutil.IsConflict(err) {
				return 0, appErr.ErrConflict
			}
			return 0, err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_seq = $1, mtime = $2 WHERE id = $3`,
		lastSeq+int64(len(msgs)), now, sessionID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(msgs), nil
}

func (r *SessionRepo) GetMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	msgs, _, err := r.GetMessagesAfter(ctx, sessionID, 0)
	return msgs, err
}

// GetMessagesAfter returns messages with seq > afterSeq in order, plus the
// last seq seen, which becomes the extraction cursor once the batch is done.
func (r *SessionRepo) GetMessagesAfter(ctx context.Context, sessionID string, afterSeq int64) ([]model.Message, int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, role, content, ts FROM session_messages WHERE session_id = $1 AND seq > $2 ORDER BY seq`,
		sessionID, afterSeq)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var msgs []model.Message
	lastSeq := afterSeq
	for rows.Next() {
		var seq int64
		var msg model.Message
		if err := rows.Scan(&seq, &msg.Role, &msg.Content, &msg.Ts); err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, msg)
		lastSeq = seq
	}
	return msgs, lastSeq, rows.Err()
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	const query = `SELECT id, last_seq, extracted_seq, mtime FROM sessions WHERE id = $1`
	var sess model.Session
	if err := r.db.GetContext(ctx, &sess, query, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// ListPending returns sessions with messages beyond their extraction cursor.
func (r *SessionRepo) ListPending(ctx context.Context, limit int) ([]model.Session, error) {
	const query = `SELECT id, last_seq, extracted_seq, mtime FROM sessions
		WHERE last_seq > extracted_seq ORDER BY mtime LIMIT $1`
	var sessions []model.Session
	if err := r.db.SelectContext(ctx, &sessions, query, limit); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepo) MarkExtracted(ctx context.Context, sessionID string, seq int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET extracted_seq = $1 WHERE id = $2 AND extracted_seq < $1`,
		seq, sessionID)
	return err
}
