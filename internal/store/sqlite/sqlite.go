package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/craftlink/chat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id                TEXT PRIMARY KEY,
	participant_a     TEXT NOT NULL,
	participant_b     TEXT NOT NULL,
	last_message      TEXT NOT NULL DEFAULT '',
	last_message_time DATETIME NOT NULL,
	created_at        DATETIME NOT NULL,
	UNIQUE (participant_a, participant_b)
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	sender          TEXT NOT NULL,
	recipient       TEXT NOT NULL,
	content         TEXT NOT NULL,
	kind            TEXT NOT NULL DEFAULT 'text',
	category_id     TEXT,
	offer_status    TEXT,
	review_id       TEXT,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_offers ON messages(recipient, kind, offer_status, created_at);

CREATE TABLE IF NOT EXISTS reviews (
	id         TEXT PRIMARY KEY,
	message_id TEXT NOT NULL REFERENCES messages(id),
	receiver   TEXT NOT NULL,
	stars      INTEGER NOT NULL,
	comment    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function
// after applying the schema. Useful for tests that seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== ConversationStore implementation ====

// CreateConversation persists a new conversation. The participant pair
// is normalized so the unordered-pair unique constraint holds.
func (s *SQLiteStore) CreateConversation(ctx context.Context, convo *store.Conversation) error {
	convo.ParticipantA, convo.ParticipantB = store.NormalizePair(convo.ParticipantA, convo.ParticipantB)

	query := `
		INSERT INTO conversations (id, participant_a, participant_b, last_message, last_message_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		convo.ID, convo.ParticipantA, convo.ParticipantB,
		convo.LastMessage, convo.LastMessageTime, convo.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// GetConversationByID retrieves a conversation by id.
func (s *SQLiteStore) GetConversationByID(ctx context.Context, id string) (*store.Conversation, error) {
	query := `
		SELECT id, participant_a, participant_b, last_message, last_message_time, created_at
		FROM conversations
		WHERE id = ?
	`
	return scanConversation(s.db.QueryRowContext(ctx, query, id))
}

// FindConversationByParticipants looks up the conversation for an
// unordered participant pair.
func (s *SQLiteStore) FindConversationByParticipants(ctx context.Context, userA, userB string) (*store.Conversation, error) {
	a, b := store.NormalizePair(userA, userB)
	query := `
		SELECT id, participant_a, participant_b, last_message, last_message_time, created_at
		FROM conversations
		WHERE participant_a = ? AND participant_b = ?
	`
	return scanConversation(s.db.QueryRowContext(ctx, query, a, b))
}

// UpdateConversationSummary sets the denormalized last-message fields.
func (s *SQLiteStore) UpdateConversationSummary(ctx context.Context, id, lastMessage string, at time.Time) error {
	query := `
		UPDATE conversations SET last_message = ?, last_message_time = ?
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, lastMessage, at, id); err != nil {
		return fmt.Errorf("update conversation summary: %w", err)
	}
	return nil
}

// ListConversations returns a user's conversations ordered by most
// recent message time descending.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*store.Conversation, error) {
	query := `
		SELECT id, participant_a, participant_b, last_message, last_message_time, created_at
		FROM conversations
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY last_message_time DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convos []*store.Conversation
	for rows.Next() {
		convo := &store.Conversation{}
		if err := rows.Scan(&convo.ID, &convo.ParticipantA, &convo.ParticipantB,
			&convo.LastMessage, &convo.LastMessageTime, &convo.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convos = append(convos, convo)
	}
	return convos, rows.Err()
}

// CountConversations counts a user's conversations.
func (s *SQLiteStore) CountConversations(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM conversations WHERE participant_a = ? OR participant_b = ?`

	var n int
	if err := s.db.QueryRowContext(ctx, query, userID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return n, nil
}

// ==== MessageStore implementation ====

// CreateMessage persists a message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender, recipient, content, kind,
			category_id, offer_status, review_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationID, msg.Sender, msg.Recipient, msg.Content, string(msg.Kind),
		nullString(msg.CategoryID), nullString(string(msg.OfferStatus)), nullString(msg.ReviewID),
		msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessageByID retrieves a message by id.
func (s *SQLiteStore) GetMessageByID(ctx context.Context, id string) (*store.Message, error) {
	query := messageSelect + ` WHERE id = ?`
	return scanMessage(s.db.QueryRowContext(ctx, query, id))
}

// ListMessages returns a conversation's messages newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*store.Message, error) {
	query := messageSelect + `
		WHERE conversation_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// CountMessages counts messages in a conversation.
func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID string) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE conversation_id = ?`

	var n int
	if err := s.db.QueryRowContext(ctx, query, conversationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// UpdateOfferStatus transitions a job offer's status with a
// compare-and-set on the current value. At most one of two racing
// transitions observes rows-affected 1.
func (s *SQLiteStore) UpdateOfferStatus(ctx context.Context, id string, from, to store.OfferStatus) (bool, error) {
	query := `
		UPDATE messages SET offer_status = ?, updated_at = ?
		WHERE id = ? AND kind = 'job_offer' AND offer_status = ?
	`
	result, err := s.db.ExecContext(ctx, query, string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update offer status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// AttachReview sets the message's review id only if none is attached.
func (s *SQLiteStore) AttachReview(ctx context.Context, messageID, reviewID string, at time.Time) (bool, error) {
	query := `
		UPDATE messages SET review_id = ?, updated_at = ?
		WHERE id = ? AND (review_id IS NULL OR review_id = '')
	`
	result, err := s.db.ExecContext(ctx, query, reviewID, at, messageID)
	if err != nil {
		return false, fmt.Errorf("attach review: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// CountJobOffers counts job offers addressed to recipient in status.
func (s *SQLiteStore) CountJobOffers(ctx context.Context, recipient string, status store.OfferStatus) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE recipient = ? AND kind = 'job_offer' AND offer_status = ?
	`
	var n int
	if err := s.db.QueryRowContext(ctx, query, recipient, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count job offers: %w", err)
	}
	return n, nil
}

// ListJobOffers returns the newest job offers addressed to recipient in
// the given status.
func (s *SQLiteStore) ListJobOffers(ctx context.Context, recipient string, status store.OfferStatus, limit int) ([]*store.Message, error) {
	query := messageSelect + `
		WHERE recipient = ? AND kind = 'job_offer' AND offer_status = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, recipient, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list job offers: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// ==== ReviewStore implementation ====

// CreateReview persists a review.
func (s *SQLiteStore) CreateReview(ctx context.Context, rev *store.Review) error {
	query := `
		INSERT INTO reviews (id, message_id, receiver, stars, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rev.ID, rev.MessageID, rev.Receiver, rev.Stars, rev.Comment, rev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetReviewByID retrieves a review by id.
func (s *SQLiteStore) GetReviewByID(ctx context.Context, id string) (*store.Review, error) {
	query := `
		SELECT id, message_id, receiver, stars, comment, created_at
		FROM reviews
		WHERE id = ?
	`
	rev := &store.Review{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rev.ID, &rev.MessageID, &rev.Receiver, &rev.Stars, &rev.Comment, &rev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rev, nil
}

// ==== CategoryStore implementation ====

// GetCategoryByID retrieves a category by id.
func (s *SQLiteStore) GetCategoryByID(ctx context.Context, id string) (*store.Category, error) {
	query := `SELECT id, name FROM categories WHERE id = ?`

	cat := &store.Category{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&cat.ID, &cat.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return cat, nil
}

// CreateCategory persists a category.
func (s *SQLiteStore) CreateCategory(ctx context.Context, cat *store.Category) error {
	query := `INSERT INTO categories (id, name) VALUES (?, ?)`

	if _, err := s.db.ExecContext(ctx, query, cat.ID, cat.Name); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// ==== scan helpers ====

const messageSelect = `
	SELECT id, conversation_id, sender, recipient, content, kind,
		COALESCE(category_id, ''), COALESCE(offer_status, ''), COALESCE(review_id, ''),
		created_at, updated_at
	FROM messages
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*store.Conversation, error) {
	convo := &store.Conversation{}
	err := row.Scan(&convo.ID, &convo.ParticipantA, &convo.ParticipantB,
		&convo.LastMessage, &convo.LastMessageTime, &convo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return convo, nil
}

func scanMessage(row rowScanner) (*store.Message, error) {
	msg := &store.Message{}
	var kind, status string
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Recipient,
		&msg.Content, &kind, &msg.CategoryID, &status, &msg.ReviewID,
		&msg.CreatedAt, &msg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	msg.Kind = store.MessageKind(kind)
	msg.OfferStatus = store.OfferStatus(status)
	return msg, nil
}

func collectMessages(rows *sql.Rows) ([]*store.Message, error) {
	var msgs []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
