package main

import "time"

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRef is the resolved identity embedded in read models in place of
// a bare user id.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type Board struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	Creator     *UserRef  `json:"creator,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type List struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Cards     []Card    `json:"cards,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Card struct {
	ID          int64     `json:"id"`
	ListID      int64     `json:"list_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   int64     `json:"created_by"`
	Creator     *UserRef  `json:"creator,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CardDetail is the full read model for a single card: the card plus
// everything scoped to it, with user references resolved.
type CardDetail struct {
	Card
	List        *List           `json:"list,omitempty"`
	Assignees   []int64         `json:"assignees"`
	Comments    []Comment       `json:"comments"`
	Activity    []ActivityEntry `json:"activity"`
	Attachments []Attachment    `json:"attachments"`
}

type Comment struct {
	ID        int64     `json:"id"`
	CardID    int64     `json:"card_id"`
	Text      string    `json:"text"`
	AuthorID  int64     `json:"author_id"`
	Author    *UserRef  `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity entry types. The set is closed: entries are never edited or
// deleted once recorded.
const (
	ActivityEdit          = "edit"
	ActivityMove          = "move"
	ActivityComment       = "comment"
	ActivityEditComment   = "edit_comment"
	ActivityDeleteComment = "delete_comment"
	ActivityAssign        = "assign"
	ActivityUnassign      = "unassign"
)

type ActivityEntry struct {
	ID        int64          `json:"id"`
	CardID    int64          `json:"card_id"`
	Type      string         `json:"type"`
	UserID    int64          `json:"user_id"`
	User      *UserRef       `json:"user,omitempty"`
	TargetID  int64          `json:"target_id"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type Attachment struct {
	ID         int64     `json:"id"`
	CardID     int64     `json:"card_id"`
	URL        string    `json:"url"`
	Filename   string    `json:"filename,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}
