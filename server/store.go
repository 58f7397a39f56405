package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage is the persistence boundary used by the service layer. The
// canonical implementation is Store (Postgres); tests provide an
// in-memory fake.
type Storage interface {
	// users
	CreateUser(ctx context.Context, username, email, passwordHash string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, string, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UsersByIDs(ctx context.Context, ids []int64) (map[int64]UserRef, error)

	// boards
	CreateBoard(ctx context.Context, title, description string, createdBy int64) (Board, error)
	GetBoard(ctx context.Context, id int64) (Board, error)
	ListBoards(ctx context.Context) ([]Board, error)
	UpdateBoard(ctx context.Context, id int64, title, description *string) error
	DeleteBoard(ctx context.Context, id int64) error

	// lists
	CreateList(ctx context.Context, boardID int64, title string, position int) (List, error)
	GetList(ctx context.Context, id int64) (List, error)
	ListsByBoard(ctx context.Context, boardID int64) ([]List, error)
	CountLists(ctx context.Context, boardID int64) (int, error)
	UpdateListTitle(ctx context.Context, id int64, title string) error
	DeleteList(ctx context.Context, id int64) error

	// cards
	CreateCard(ctx context.Context, listID int64, title, description string, createdBy int64, position int) (Card, error)
	GetCard(ctx context.Context, id int64) (Card, error)
	CardsByList(ctx context.Context, listID int64) ([]Card, error)
	CountCards(ctx context.Context, listID int64) (int, error)
	UpdateCard(ctx context.Context, id int64, title, description *string) error
	SetCardPlacement(ctx context.Context, id, listID int64, position int) error
	DeleteCard(ctx context.Context, id int64) error
	DeleteCardsByList(ctx context.Context, listID int64) error
	AddAssignee(ctx context.Context, cardID, userID int64) error
	RemoveAssignee(ctx context.Context, cardID, userID int64) error
	Assignees(ctx context.Context, cardID int64) ([]int64, error)
	AddAttachment(ctx context.Context, cardID int64, url, filename string) (Attachment, error)
	AttachmentsByCard(ctx context.Context, cardID int64) ([]Attachment, error)

	// comments & activity
	AddComment(ctx context.Context, cardID int64, text string, authorID int64, act ActivityEntry) (Comment, error)
	GetComment(ctx context.Context, cardID, commentID int64) (Comment, error)
	UpdateComment(ctx context.Context, cardID, commentID int64, text string) (Comment, error)
	DeleteComment(ctx context.Context, cardID, commentID int64) error
	CommentsByCard(ctx context.Context, cardID int64) ([]Comment, error)
	AppendActivity(ctx context.Context, entry ActivityEntry) error
	ActivityByCard(ctx context.Context, cardID int64) ([]ActivityEntry, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Users

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `insert into users(username, email, password_hash) values($1,$2,$3)
		returning id, username, email, created_at`, username, email, passwordHash).
		Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	return u, err
}

// UserByEmail returns the user together with the stored password hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, `select id, username, email, created_at, password_hash
		from users where lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	return u, hash, err
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `select id, username, email, created_at from users where id=$1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) UsersByIDs(ctx context.Context, ids []int64) (map[int64]UserRef, error) {
	out := make(map[int64]UserRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `select id, username, email from users where id = any($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r UserRef
		if err := rows.Scan(&r.ID, &r.Username, &r.Email); err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	return out, rows.Err()
}

// Boards

func (s *Store) CreateBoard(ctx context.Context, title, description string, createdBy int64) (Board, error) {
	var b Board
	err := s.db.QueryRowContext(ctx, `insert into boards(title, description, created_by) values($1,$2,$3)
		returning id, title, description, created_by, created_at, updated_at`, title, description, createdBy).
		Scan(&b.ID, &b.Title, &b.Description, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *Store) GetBoard(ctx context.Context, id int64) (Board, error) {
	var b Board
	err := s.db.QueryRowContext(ctx, `select id, title, description, created_by, created_at, updated_at
		from boards where id=$1`, id).
		Scan(&b.ID, &b.Title, &b.Description, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Board{}, ErrNotFound
	}
	return b, err
}

func (s *Store) ListBoards(ctx context.Context) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `select id, title, description, created_by, created_at, updated_at
		from boards order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Board
	for rows.Next() {
		var b Board
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBoard(ctx context.Context, id int64, title, description *string) error {
	set := []string{}
	args := []any{}
	idx := 1
	if title != nil {
		set = append(set, fmt.Sprintf("title=$%d", idx))
		args = append(args, *title)
		idx++
	}
	if description != nil {
		set = append(set, fmt.Sprintf("description=$%d", idx))
		args = append(args, *description)
		idx++
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at=now()")
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("update boards set %s where id=$%d", joinComma(set), idx), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteBoard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from boards where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Lists

func (s *Store) CreateList(ctx context.Context, boardID int64, title string, position int) (List, error) {
	var l List
	err := s.db.QueryRowContext(ctx, `insert into lists(board_id, title, position) values($1,$2,$3)
		returning id, board_id, title, position, created_at, updated_at`, boardID, title, position).
		Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (s *Store) GetList(ctx context.Context, id int64) (List, error) {
	var l List
	err := s.db.QueryRowContext(ctx, `select id, board_id, title, position, created_at, updated_at
		from lists where id=$1`, id).
		Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return List{}, ErrNotFound
	}
	return l, err
}

func (s *Store) ListsByBoard(ctx context.Context, boardID int64) ([]List, error) {
	rows, err := s.db.QueryContext(ctx, `select id, board_id, title, position, created_at, updated_at
		from lists where board_id=$1 order by position, id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []List
	for rows.Next() {
		var l List
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) CountLists(ctx context.Context, boardID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from lists where board_id=$1`, boardID).Scan(&n)
	return n, err
}

func (s *Store) UpdateListTitle(ctx context.Context, id int64, title string) error {
	res, err := s.db.ExecContext(ctx, `update lists set title=$1, updated_at=now() where id=$2`, title, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteList(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from lists where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Cards

func (s *Store) CreateCard(ctx context.Context, listID int64, title, description string, createdBy int64, position int) (Card, error) {
	var c Card
	err := s.db.QueryRowContext(ctx, `insert into cards(list_id, title, description, created_by, position)
		values($1,$2,$3,$4,$5)
		returning id, list_id, title, description, created_by, position, created_at, updated_at`,
		listID, title, description, createdBy, position).
		Scan(&c.ID, &c.ListID, &c.Title, &c.Description, &c.CreatedBy, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) GetCard(ctx context.Context, id int64) (Card, error) {
	var c Card
	err := s.db.QueryRowContext(ctx, `select id, list_id, title, description, created_by, position, created_at, updated_at
		from cards where id=$1`, id).
		Scan(&c.ID, &c.ListID, &c.Title, &c.Description, &c.CreatedBy, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Card{}, ErrNotFound
	}
	return c, err
}

func (s *Store) CardsByList(ctx context.Context, listID int64) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `select id, list_id, title, description, created_by, position, created_at, updated_at
		from cards where list_id=$1 order by position, id`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.ListID, &c.Title, &c.Description, &c.CreatedBy, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CountCards(ctx context.Context, listID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from cards where list_id=$1`, listID).Scan(&n)
	return n, err
}

func (s *Store) UpdateCard(ctx context.Context, id int64, title, description *string) error {
	set := []string{}
	args := []any{}
	idx := 1
	if title != nil {
		set = append(set, fmt.Sprintf("title=$%d", idx))
		args = append(args, *title)
		idx++
	}
	if description != nil {
		set = append(set, fmt.Sprintf("description=$%d", idx))
		args = append(args, *description)
		idx++
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at=now()")
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("update cards set %s where id=$%d", joinComma(set), idx), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCardPlacement writes the card's list and position directly. It does
// not touch sibling positions on either list; see moveCard in the engine.
func (s *Store) SetCardPlacement(ctx context.Context, id, listID int64, position int) error {
	res, err := s.db.ExecContext(ctx, `update cards set list_id=$1, position=$2, updated_at=now() where id=$3`,
		listID, position, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from cards where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCardsByList(ctx context.Context, listID int64) error {
	_, err := s.db.ExecContext(ctx, `delete from cards where list_id=$1`, listID)
	return err
}

func (s *Store) AddAssignee(ctx context.Context, cardID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `insert into card_assignees(card_id, user_id) values($1,$2)
		on conflict (card_id, user_id) do nothing`, cardID, userID)
	return err
}

func (s *Store) RemoveAssignee(ctx context.Context, cardID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `delete from card_assignees where card_id=$1 and user_id=$2`, cardID, userID)
	return err
}

func (s *Store) Assignees(ctx context.Context, cardID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `select user_id from card_assignees where card_id=$1 order by user_id`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) AddAttachment(ctx context.Context, cardID int64, url, filename string) (Attachment, error) {
	var at Attachment
	err := s.db.QueryRowContext(ctx, `insert into card_attachments(card_id, url, filename) values($1,$2,$3)
		returning id, card_id, url, filename, uploaded_at`, cardID, url, filename).
		Scan(&at.ID, &at.CardID, &at.URL, &at.Filename, &at.UploadedAt)
	return at, err
}

func (s *Store) AttachmentsByCard(ctx context.Context, cardID int64) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `select id, card_id, url, filename, uploaded_at
		from card_attachments where card_id=$1 order by id`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attachment{}
	for rows.Next() {
		var at Attachment
		if err := rows.Scan(&at.ID, &at.CardID, &at.URL, &at.Filename, &at.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

// Comments & activity

// AddComment inserts the comment and its activity entry in one
// transaction: the comment is never visible without its log entry.
func (s *Store) AddComment(ctx context.Context, cardID int64, text string, authorID int64, act ActivityEntry) (Comment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Comment{}, err
	}
	defer func() { _ = tx.Rollback() }()
	var c Comment
	err = tx.QueryRowContext(ctx, `insert into comments(card_id, body, author_id) values($1,$2,$3)
		returning id, card_id, body, author_id, created_at, updated_at`, cardID, text, authorID).
		Scan(&c.ID, &c.CardID, &c.Text, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Comment{}, err
	}
	meta, err := marshalMeta(act.Meta)
	if err != nil {
		return Comment{}, err
	}
	if _, err = tx.ExecContext(ctx, `insert into card_activity(card_id, type, user_id, target_id, meta)
		values($1,$2,$3,$4,$5)`, act.CardID, act.Type, act.UserID, act.TargetID, meta); err != nil {
		return Comment{}, err
	}
	if err = tx.Commit(); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *Store) GetComment(ctx context.Context, cardID, commentID int64) (Comment, error) {
	var c Comment
	err := s.db.QueryRowContext(ctx, `select id, card_id, body, author_id, created_at, updated_at
		from comments where id=$1 and card_id=$2`, commentID, cardID).
		Scan(&c.ID, &c.CardID, &c.Text, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

func (s *Store) UpdateComment(ctx context.Context, cardID, commentID int64, text string) (Comment, error) {
	var c Comment
	err := s.db.QueryRowContext(ctx, `update comments set body=$1, updated_at=now()
		where id=$2 and card_id=$3
		returning id, card_id, body, author_id, created_at, updated_at`, text, commentID, cardID).
		Scan(&c.ID, &c.CardID, &c.Text, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

func (s *Store) DeleteComment(ctx context.Context, cardID, commentID int64) error {
	res, err := s.db.ExecContext(ctx, `delete from comments where id=$1 and card_id=$2`, commentID, cardID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CommentsByCard(ctx context.Context, cardID int64) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `select id, card_id, body, author_id, created_at, updated_at
		from comments where card_id=$1 order by id`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.CardID, &c.Text, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AppendActivity(ctx context.Context, entry ActivityEntry) error {
	meta, err := marshalMeta(entry.Meta)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `insert into card_activity(card_id, type, user_id, target_id, meta)
		values($1,$2,$3,$4,$5)`, entry.CardID, entry.Type, entry.UserID, entry.TargetID, meta)
	return err
}

func (s *Store) ActivityByCard(ctx context.Context, cardID int64) ([]ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `select id, card_id, type, user_id, target_id, meta, created_at
		from card_activity where card_id=$1 order by id`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.CardID, &e.Type, &e.UserID, &e.TargetID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	return json.Marshal(meta)
}

func joinComma(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += ", " + parts[i]
	}
	return out
}

const schema = `
create table if not exists users(
    id bigserial primary key,
    username text not null,
    email text unique not null,
    password_hash text not null default '',
    created_at timestamptz not null default now()
);

create table if not exists boards(
    id bigserial primary key,
    title text not null check (length(title) > 0),
    description text not null default '',
    created_by bigint not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);

-- board_id is a plain reference on purpose: deleting a board leaves its
-- lists and cards in place (see the cascade asymmetry in DESIGN.md).
create table if not exists lists(
    id bigserial primary key,
    board_id bigint not null,
    title text not null check (length(title) > 0),
    position integer not null default 0,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists lists_board_idx on lists(board_id);

-- list_id likewise: card removal on list deletion is the service's job,
-- not the database's.
create table if not exists cards(
    id bigserial primary key,
    list_id bigint not null,
    title text not null check (length(title) > 0),
    description text not null default '',
    created_by bigint not null,
    position integer not null default 0,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists cards_list_idx on cards(list_id);

-- comments and activity are owned by their card and die with it
create table if not exists comments(
    id bigserial primary key,
    card_id bigint not null references cards(id) on delete cascade,
    body text not null check (length(body) > 0),
    author_id bigint not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists comments_card_idx on comments(card_id);

create table if not exists card_activity(
    id bigserial primary key,
    card_id bigint not null references cards(id) on delete cascade,
    type text not null,
    user_id bigint not null,
    target_id bigint not null,
    meta jsonb,
    created_at timestamptz not null default now()
);
create index if not exists card_activity_card_idx on card_activity(card_id);

create table if not exists card_assignees(
    card_id bigint not null references cards(id) on delete cascade,
    user_id bigint not null,
    primary key(card_id, user_id)
);

create table if not exists card_attachments(
    id bigserial primary key,
    card_id bigint not null references cards(id) on delete cascade,
    url text not null,
    filename text not null default '',
    uploaded_at timestamptz not null default now()
);
`
