package main

import (
	"context"
	"fmt"
	"strings"
)

// canMutate reports whether callerID may mutate an entity owned by
// ownerID. Every ownership and authorship check in the services goes
// through here.
func canMutate(ownerID, callerID int64) bool {
	return ownerID != 0 && ownerID == callerID
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Hierarchy owns boards and the lists under them, including the
// position sequencing rule for lists within a board.
type Hierarchy struct {
	store Storage
}

func NewHierarchy(store Storage) *Hierarchy { return &Hierarchy{store: store} }

func (h *Hierarchy) CreateBoard(ctx context.Context, title, description string, ownerID int64) (Board, error) {
	if strings.TrimSpace(title) == "" {
		return Board{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	return h.store.CreateBoard(ctx, title, description, ownerID)
}

// Boards returns every board with its creator resolved. Boards are
// globally readable once authenticated; there is no visibility filter.
func (h *Hierarchy) Boards(ctx context.Context) ([]Board, error) {
	boards, err := h.store.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(boards))
	for _, b := range boards {
		ids = append(ids, b.CreatedBy)
	}
	users, err := h.store.UsersByIDs(ctx, dedupeIDs(ids))
	if err != nil {
		return nil, err
	}
	for i := range boards {
		if u, ok := users[boards[i].CreatedBy]; ok {
			ref := u
			boards[i].Creator = &ref
		}
	}
	return boards, nil
}

type BoardPatch struct {
	Title       *string
	Description *string
}

func (h *Hierarchy) UpdateBoard(ctx context.Context, id int64, patch BoardPatch, callerID int64) error {
	b, err := h.store.GetBoard(ctx, id)
	if err != nil {
		return notFoundFor("board", err)
	}
	if !canMutate(b.CreatedBy, callerID) {
		return fmt.Errorf("%w to update this board", ErrForbidden)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return h.store.UpdateBoard(ctx, id, patch.Title, patch.Description)
}

// DeleteBoard removes the board record only. Lists and cards under it
// are left in place; see the cascade asymmetry notes in DESIGN.md.
func (h *Hierarchy) DeleteBoard(ctx context.Context, id, callerID int64) error {
	b, err := h.store.GetBoard(ctx, id)
	if err != nil {
		return notFoundFor("board", err)
	}
	if !canMutate(b.CreatedBy, callerID) {
		return fmt.Errorf("%w to delete this board", ErrForbidden)
	}
	return h.store.DeleteBoard(ctx, id)
}

func (h *Hierarchy) CreateList(ctx context.Context, boardID int64, title string, callerID int64) (List, error) {
	b, err := h.store.GetBoard(ctx, boardID)
	if err != nil {
		return List{}, notFoundFor("board", err)
	}
	if !canMutate(b.CreatedBy, callerID) {
		return List{}, fmt.Errorf("%w to add lists to this board", ErrForbidden)
	}
	if strings.TrimSpace(title) == "" {
		return List{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	// position = current sibling count; concurrent creates can race to
	// the same rank, which the store does not prevent
	n, err := h.store.CountLists(ctx, boardID)
	if err != nil {
		return List{}, err
	}
	return h.store.CreateList(ctx, boardID, title, n)
}

// ListsForBoard returns the board's lists ascending by position, each
// with its cards resolved.
func (h *Hierarchy) ListsForBoard(ctx context.Context, boardID int64) ([]List, error) {
	if _, err := h.store.GetBoard(ctx, boardID); err != nil {
		return nil, notFoundFor("board", err)
	}
	lists, err := h.store.ListsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	var creatorIDs []int64
	for i := range lists {
		cards, err := h.store.CardsByList(ctx, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Cards = cards
		for _, c := range cards {
			creatorIDs = append(creatorIDs, c.CreatedBy)
		}
	}
	users, err := h.store.UsersByIDs(ctx, dedupeIDs(creatorIDs))
	if err != nil {
		return nil, err
	}
	for i := range lists {
		for j := range lists[i].Cards {
			if u, ok := users[lists[i].Cards[j].CreatedBy]; ok {
				ref := u
				lists[i].Cards[j].Creator = &ref
			}
		}
	}
	return lists, nil
}

// boardOwnerForList resolves ownership transitively through the list's
// board.
func (h *Hierarchy) boardOwnerForList(ctx context.Context, listID int64) (List, int64, error) {
	l, err := h.store.GetList(ctx, listID)
	if err != nil {
		return List{}, 0, notFoundFor("list", err)
	}
	b, err := h.store.GetBoard(ctx, l.BoardID)
	if err != nil {
		return List{}, 0, notFoundFor("board", err)
	}
	return l, b.CreatedBy, nil
}

func (h *Hierarchy) UpdateList(ctx context.Context, id int64, title string, callerID int64) error {
	_, owner, err := h.boardOwnerForList(ctx, id)
	if err != nil {
		return err
	}
	if !canMutate(owner, callerID) {
		return fmt.Errorf("%w to update this list", ErrForbidden)
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return h.store.UpdateListTitle(ctx, id, title)
}

// DeleteList purges the list's cards, then the list itself. Unlike
// board deletion this path does cascade; the two writes are sequential,
// not transactional.
func (h *Hierarchy) DeleteList(ctx context.Context, id, callerID int64) error {
	_, owner, err := h.boardOwnerForList(ctx, id)
	if err != nil {
		return err
	}
	if !canMutate(owner, callerID) {
		return fmt.Errorf("%w to delete this list", ErrForbidden)
	}
	if err := h.store.DeleteCardsByList(ctx, id); err != nil {
		return err
	}
	return h.store.DeleteList(ctx, id)
}
