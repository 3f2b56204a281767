package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cloud-backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	c.ID = uuid.New()
	if c.Title == "" {
		c.Title = models.DefaultConversationTitle
	}

	query := `INSERT INTO conversations (id, user_id, title)
		VALUES ($1, $2, $3) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, c.ID, c.UserID, c.Title).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetByID scopes the lookup to userID; a conversation owned by someone else
// is indistinguishable from a missing one.
func (r *ConversationRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	c := &models.Conversation{}
	query := `SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).
		Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	query := `SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE user_id = $1
		ORDER BY updated_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		c := &models.Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) UpdateTitle(ctx context.Context, id, userID uuid.UUID, title string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE conversations SET title = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		title, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()
	metadata := m.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	query := `INSERT INTO messages (id, conversation_id, role, content, metadata)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	if err := r.pool.QueryRow(ctx, query,
		m.ID, m.ConversationID, m.Role, m.Content, metadata,
	).Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	r.pool.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, m.ConversationID)
	return nil
}

func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	query := `SELECT id, conversation_id, role, content, metadata, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
