package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

type conversations struct{ s *Store }

const conversationColumns = `conversation_id, user_id, title, question, answer, context_urls, ts`

func (c *conversations) Create(ctx context.Context, m *model.Conversation) (*model.Conversation, error) {
	if m.OwnerID == "" {
		return nil, model.Invalid("conversation owner is required")
	}
	out := *m
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Timestamp == 0 {
		out.Timestamp = time.Now().Unix()
	}
	_, err := c.s.db.ExecContext(ctx, c.s.q(`
        INSERT INTO {conversations} (conversation_id, user_id, title, question, answer, context_urls, ts, created_ns)
        VALUES ($1,$2,$3,'','',NULL,$4,$5)
    `), out.ID, out.OwnerID, nullable(out.Title), out.Timestamp, time.Now().UnixNano())
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *conversations) CreateExchange(ctx context.Context, userID, id string, ex *model.LegacyExchange) (*model.Conversation, error) {
	if userID == "" {
		return nil, model.Invalid("conversation owner is required")
	}
	urls := ex.ContextURLs
	if urls == nil {
		urls = []string{}
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return nil, err
	}
	ts := ex.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	if id == "" {
		id = uuid.New().String()
	}
	out := &model.Conversation{ID: id, OwnerID: userID, Timestamp: ts}
	_, err = c.s.db.ExecContext(ctx, c.s.q(`
        INSERT INTO {conversations} (conversation_id, user_id, title, question, answer, context_urls, ts, created_ns)
        VALUES ($1,$2,NULL,$3,$4,$5,$6,$7)
        ON CONFLICT (conversation_id) DO NOTHING
    `), out.ID, userID, ex.Question, ex.Answer, string(raw), ts, time.Now().UnixNano())
	if err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*model.ConversationRecord, error) {
	var (
		rec      model.ConversationRecord
		title    sql.NullString
		question string
		answer   string
		urls     sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &title, &question, &answer, &urls, &rec.Timestamp); err != nil {
		return nil, err
	}
	if title.Valid {
		t := title.String
		rec.Title = &t
	}
	if question != "" {
		ex := &model.LegacyExchange{Question: question, Answer: answer, Timestamp: rec.Timestamp, ContextURLs: []string{}}
		if urls.Valid && urls.String != "" {
			if err := json.Unmarshal([]byte(urls.String), &ex.ContextURLs); err != nil {
				return nil, fmt.Errorf("conversation %s context_urls: %w", rec.ID, err)
			}
		}
		rec.Legacy = ex
	}
	return &rec, nil
}

func (c *conversations) Get(ctx context.Context, userID, conversationID string) (*model.ConversationRecord, error) {
	row := c.s.db.QueryRowContext(ctx, c.s.q(`
        SELECT `+conversationColumns+` FROM {conversations}
        WHERE user_id=$1 AND conversation_id=$2
    `), userID, conversationID)
	rec, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("conversation", conversationID)
	}
	return rec, err
}

func (c *conversations) List(ctx context.Context, userID string) ([]*model.ConversationRecord, error) {
	rows, err := c.s.db.QueryContext(ctx, c.s.q(`
        SELECT `+conversationColumns+` FROM {conversations}
        WHERE user_id=$1
        ORDER BY ts DESC, created_ns DESC
    `), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.ConversationRecord{}
	for rows.Next() {
		rec, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (c *conversations) SetTitleIfEmpty(ctx context.Context, userID, conversationID, title string) (bool, error) {
	res, err := c.s.db.ExecContext(ctx, c.s.q(`
        UPDATE {conversations} SET title=$1
        WHERE user_id=$2 AND conversation_id=$3 AND (title IS NULL OR title='')
    `), title, userID, conversationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *conversations) AppendMessage(ctx context.Context, m *model.StoredMessage) (bool, error) {
	if m.MessageID == "" || m.ConversationID == "" || m.OwnerID == "" {
		return false, model.Invalid("message id, conversation id and owner are required")
	}
	used, err := model.EncodeUsedContext(m.Message.UsedContext)
	if err != nil {
		return false, err
	}
	ts := m.Message.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	var inserted bool
	err = c.s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, c.s.q(`
            SELECT 1 FROM {conversations} WHERE user_id=$1 AND conversation_id=$2
        `), m.OwnerID, m.ConversationID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.NotFound("conversation", m.ConversationID)
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, c.s.q(`
            INSERT INTO {messages} (message_id, conversation_id, user_id, role, content, used_context, ts)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            ON CONFLICT (message_id) DO NOTHING
        `), m.MessageID, m.ConversationID, m.OwnerID, string(m.Message.Role), m.Message.Content, nullable(used), ts)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

func (c *conversations) Messages(ctx context.Context, userID, conversationID string) ([]*model.StoredMessage, error) {
	rows, err := c.s.db.QueryContext(ctx, c.s.q(`
        SELECT message_id, conversation_id, user_id, role, content, used_context, ts
        FROM {messages}
        WHERE user_id=$1 AND conversation_id=$2
        ORDER BY ts, seq
    `), userID, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.StoredMessage{}
	for rows.Next() {
		var (
			m    model.StoredMessage
			role string
			used sql.NullString
		)
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &m.OwnerID, &role, &m.Message.Content, &used, &m.Message.Timestamp); err != nil {
			return nil, err
		}
		m.Message.Role = model.Role(role)
		if used.Valid {
			s := used.String
			if m.Message.UsedContext, err = model.DecodeUsedContext(&s); err != nil {
				return nil, fmt.Errorf("message %s: %w", m.MessageID, err)
			}
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
