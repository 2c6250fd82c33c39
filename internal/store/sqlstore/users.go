package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

type users struct{ s *Store }

func (u *users) Upsert(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	if p.UserID == "" {
		return nil, model.Invalid("user id is required")
	}
	sub := p.SubscriptionType
	if sub == "" {
		sub = "free"
	}
	_, err := u.s.db.ExecContext(ctx, u.s.q(`
        INSERT INTO {users} (user_id, email, name, subscription_type, creation_time)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id) DO UPDATE SET
            email = excluded.email,
            name = excluded.name,
            subscription_type = excluded.subscription_type
    `), p.UserID, p.Email, p.Name, sub, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	return u.Get(ctx, p.UserID)
}

func (u *users) Ensure(ctx context.Context, userID string) error {
	_, err := u.s.db.ExecContext(ctx, u.s.q(`
        INSERT INTO {users} (user_id, creation_time) VALUES ($1,$2)
        ON CONFLICT (user_id) DO NOTHING
    `), userID, time.Now().Unix())
	return err
}

func (u *users) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	var out model.UserProfile
	row := u.s.db.QueryRowContext(ctx, u.s.q(`
        SELECT user_id, email, name, subscription_type FROM {users} WHERE user_id=$1
    `), userID)
	if err := row.Scan(&out.UserID, &out.Email, &out.Name, &out.SubscriptionType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NotFound("user", userID)
		}
		return nil, err
	}
	folders, err := u.listFolders(ctx, userID)
	if err != nil {
		return nil, err
	}
	out.Folders = folders
	return &out, nil
}

func (u *users) Folders(ctx context.Context, userID string) ([]string, error) {
	var exists int
	err := u.s.db.QueryRowContext(ctx, u.s.q(`SELECT 1 FROM {users} WHERE user_id=$1`), userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("user", userID)
	}
	if err != nil {
		return nil, err
	}
	return u.listFolders(ctx, userID)
}

func (u *users) listFolders(ctx context.Context, userID string) ([]string, error) {
	rows, err := u.s.db.QueryContext(ctx, u.s.q(`
        SELECT folder FROM {folders} WHERE user_id=$1 ORDER BY creation_time, folder
    `), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (u *users) AddFolder(ctx context.Context, userID, folder string) error {
	return u.s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().Unix()
		if _, err := tx.ExecContext(ctx, u.s.q(`
            INSERT INTO {users} (user_id, creation_time) VALUES ($1,$2)
            ON CONFLICT (user_id) DO NOTHING
        `), userID, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, u.s.q(`
            INSERT INTO {folders} (user_id, folder, creation_time) VALUES ($1,$2,$3)
            ON CONFLICT (user_id, folder) DO NOTHING
        `), userID, folder, now)
		return err
	})
}

func (u *users) RemoveFolders(ctx context.Context, userID string, folders []string) error {
	if len(folders) == 0 {
		return nil
	}
	return u.s.withTx(ctx, func(tx *sql.Tx) error {
		for _, f := range folders {
			if _, err := tx.ExecContext(ctx, u.s.q(`DELETE FROM {folders} WHERE user_id=$1 AND folder=$2`), userID, f); err != nil {
				return err
			}
		}
		return nil
	})
}
