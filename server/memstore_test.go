package main

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Storage used by the service and handler
// tests. It mirrors the Postgres store's observable behaviour: copy
// semantics on reads, ErrNotFound on misses, insertion-ordered
// collections.
type memStore struct {
	mu          sync.Mutex
	seq         int64
	users       map[int64]User
	hashes      map[int64]string
	boards      map[int64]Board
	lists       map[int64]List
	cards       map[int64]Card
	comments    map[int64]Comment
	activity    []ActivityEntry
	assignees   map[int64]map[int64]struct{}
	attachments []Attachment
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]User{},
		hashes:    map[int64]string{},
		boards:    map[int64]Board{},
		lists:     map[int64]List{},
		cards:     map[int64]Card{},
		comments:  map[int64]Comment{},
		assignees: map[int64]map[int64]struct{}{},
	}
}

func (m *memStore) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *memStore) CreateUser(_ context.Context, username, email, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := User{ID: m.nextID(), Username: username, Email: email, CreatedAt: time.Now()}
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	return u, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, m.hashes[u.ID], nil
		}
	}
	return User{}, "", ErrNotFound
}

func (m *memStore) GetUser(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) UsersByIDs(_ context.Context, ids []int64) (map[int64]UserRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]UserRef, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = UserRef{ID: u.ID, Username: u.Username, Email: u.Email}
		}
	}
	return out, nil
}

func (m *memStore) CreateBoard(_ context.Context, title, description string, createdBy int64) (Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := Board{ID: m.nextID(), Title: title, Description: description, CreatedBy: createdBy,
		CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.boards[b.ID] = b
	return b, nil
}

func (m *memStore) GetBoard(_ context.Context, id int64) (Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return Board{}, ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListBoards(_ context.Context) ([]Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Board
	for _, b := range m.boards {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateBoard(_ context.Context, id int64, title, description *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return ErrNotFound
	}
	if title != nil {
		b.Title = *title
	}
	if description != nil {
		b.Description = *description
	}
	b.UpdatedAt = time.Now()
	m.boards[id] = b
	return nil
}

func (m *memStore) DeleteBoard(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return ErrNotFound
	}
	delete(m.boards, id)
	return nil
}

func (m *memStore) CreateList(_ context.Context, boardID int64, title string, position int) (List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := List{ID: m.nextID(), BoardID: boardID, Title: title, Position: position,
		CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.lists[l.ID] = l
	return l, nil
}

func (m *memStore) GetList(_ context.Context, id int64) (List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return List{}, ErrNotFound
	}
	return l, nil
}

func (m *memStore) ListsByBoard(_ context.Context, boardID int64) ([]List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []List
	for _, l := range m.lists {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) CountLists(_ context.Context, boardID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lists {
		if l.BoardID == boardID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdateListTitle(_ context.Context, id int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return ErrNotFound
	}
	l.Title = title
	l.UpdatedAt = time.Now()
	m.lists[id] = l
	return nil
}

func (m *memStore) DeleteList(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return ErrNotFound
	}
	delete(m.lists, id)
	return nil
}

func (m *memStore) CreateCard(_ context.Context, listID int64, title, description string, createdBy int64, position int) (Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Card{ID: m.nextID(), ListID: listID, Title: title, Description: description,
		CreatedBy: createdBy, Position: position, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.cards[c.ID] = c
	return c, nil
}

func (m *memStore) GetCard(_ context.Context, id int64) (Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return Card{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) CardsByList(_ context.Context, listID int64) ([]Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Card
	for _, c := range m.cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) CountCards(_ context.Context, listID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.cards {
		if c.ListID == listID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdateCard(_ context.Context, id int64, title, description *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return ErrNotFound
	}
	if title != nil {
		c.Title = *title
	}
	if description != nil {
		c.Description = *description
	}
	c.UpdatedAt = time.Now()
	m.cards[id] = c
	return nil
}

func (m *memStore) SetCardPlacement(_ context.Context, id, listID int64, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return ErrNotFound
	}
	c.ListID = listID
	c.Position = position
	c.UpdatedAt = time.Now()
	m.cards[id] = c
	return nil
}

func (m *memStore) DeleteCard(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return ErrNotFound
	}
	delete(m.cards, id)
	return nil
}

func (m *memStore) DeleteCardsByList(_ context.Context, listID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.cards {
		if c.ListID == listID {
			delete(m.cards, id)
		}
	}
	return nil
}

func (m *memStore) AddAssignee(_ context.Context, cardID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignees[cardID] == nil {
		m.assignees[cardID] = map[int64]struct{}{}
	}
	m.assignees[cardID][userID] = struct{}{}
	return nil
}

func (m *memStore) RemoveAssignee(_ context.Context, cardID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignees[cardID], userID)
	return nil
}

func (m *memStore) Assignees(_ context.Context, cardID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []int64{}
	for id := range m.assignees[cardID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memStore) AddAttachment(_ context.Context, cardID int64, url, filename string) (Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at := Attachment{ID: m.nextID(), CardID: cardID, URL: url, Filename: filename, UploadedAt: time.Now()}
	m.attachments = append(m.attachments, at)
	return at, nil
}

func (m *memStore) AttachmentsByCard(_ context.Context, cardID int64) ([]Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Attachment{}
	for _, at := range m.attachments {
		if at.CardID == cardID {
			out = append(out, at)
		}
	}
	return out, nil
}

func (m *memStore) AddComment(_ context.Context, cardID int64, text string, authorID int64, act ActivityEntry) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Comment{ID: m.nextID(), CardID: cardID, Text: text, AuthorID: authorID,
		CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.comments[c.ID] = c
	act.ID = m.nextID()
	act.CreatedAt = time.Now()
	m.activity = append(m.activity, act)
	return c, nil
}

func (m *memStore) GetComment(_ context.Context, cardID, commentID int64) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.CardID != cardID {
		return Comment{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) UpdateComment(_ context.Context, cardID, commentID int64, text string) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.CardID != cardID {
		return Comment{}, ErrNotFound
	}
	c.Text = text
	c.UpdatedAt = time.Now()
	m.comments[commentID] = c
	return c, nil
}

func (m *memStore) DeleteComment(_ context.Context, cardID, commentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.CardID != cardID {
		return ErrNotFound
	}
	delete(m.comments, commentID)
	return nil
}

func (m *memStore) CommentsByCard(_ context.Context, cardID int64) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Comment{}
	for _, c := range m.comments {
		if c.CardID == cardID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) AppendActivity(_ context.Context, entry ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.nextID()
	entry.CreatedAt = time.Now()
	m.activity = append(m.activity, entry)
	return nil
}

func (m *memStore) ActivityByCard(_ context.Context, cardID int64) ([]ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ActivityEntry{}
	for _, e := range m.activity {
		if e.CardID == cardID {
			out = append(out, e)
		}
	}
	return out, nil
}

// compile-time check that the fake tracks the interface
var _ Storage = (*memStore)(nil)
