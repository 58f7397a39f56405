package main

import (
	"context"
	"fmt"
	"strings"
)

// CardEngine owns card CRUD, position sequencing within a list, and
// the move-between-lists operation. State-changing operations append
// to the card's activity log as a side effect.
type CardEngine struct {
	store Storage
}

func NewCardEngine(store Storage) *CardEngine { return &CardEngine{store: store} }

// CreateCard is gated on the board owner, not the card-to-be's author:
// only the owner may add cards, while editing is the creator's alone.
func (e *CardEngine) CreateCard(ctx context.Context, listID int64, title, description string, callerID int64) (Card, error) {
	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return Card{}, notFoundFor("list", err)
	}
	b, err := e.store.GetBoard(ctx, l.BoardID)
	if err != nil {
		return Card{}, notFoundFor("board", err)
	}
	if !canMutate(b.CreatedBy, callerID) {
		return Card{}, fmt.Errorf("%w to add cards to this board", ErrForbidden)
	}
	if strings.TrimSpace(title) == "" {
		return Card{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	n, err := e.store.CountCards(ctx, listID)
	if err != nil {
		return Card{}, err
	}
	return e.store.CreateCard(ctx, listID, title, description, callerID, n)
}

// CardsByList returns the list's cards ascending by position with
// creators resolved.
func (e *CardEngine) CardsByList(ctx context.Context, listID int64) ([]Card, error) {
	if _, err := e.store.GetList(ctx, listID); err != nil {
		return nil, notFoundFor("list", err)
	}
	cards, err := e.store.CardsByList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := e.resolveCreators(ctx, cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (e *CardEngine) resolveCreators(ctx context.Context, cards []Card) error {
	ids := make([]int64, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.CreatedBy)
	}
	users, err := e.store.UsersByIDs(ctx, dedupeIDs(ids))
	if err != nil {
		return err
	}
	for i := range cards {
		if u, ok := users[cards[i].CreatedBy]; ok {
			ref := u
			cards[i].Creator = &ref
		}
	}
	return nil
}

// GetCard assembles the full detail view: creator, owning list,
// comments with authors, activity with users, assignees, attachments.
func (e *CardEngine) GetCard(ctx context.Context, id int64) (CardDetail, error) {
	c, err := e.store.GetCard(ctx, id)
	if err != nil {
		return CardDetail{}, notFoundFor("card", err)
	}
	d := CardDetail{Card: c}
	if l, err := e.store.GetList(ctx, c.ListID); err == nil {
		d.List = &l
	}
	if d.Comments, err = e.store.CommentsByCard(ctx, id); err != nil {
		return CardDetail{}, err
	}
	if d.Activity, err = e.store.ActivityByCard(ctx, id); err != nil {
		return CardDetail{}, err
	}
	if d.Assignees, err = e.store.Assignees(ctx, id); err != nil {
		return CardDetail{}, err
	}
	if d.Attachments, err = e.store.AttachmentsByCard(ctx, id); err != nil {
		return CardDetail{}, err
	}
	ids := []int64{c.CreatedBy}
	for _, cm := range d.Comments {
		ids = append(ids, cm.AuthorID)
	}
	for _, a := range d.Activity {
		ids = append(ids, a.UserID)
	}
	users, err := e.store.UsersByIDs(ctx, dedupeIDs(ids))
	if err != nil {
		return CardDetail{}, err
	}
	if u, ok := users[c.CreatedBy]; ok {
		ref := u
		d.Creator = &ref
	}
	for i := range d.Comments {
		if u, ok := users[d.Comments[i].AuthorID]; ok {
			ref := u
			d.Comments[i].Author = &ref
		}
	}
	for i := range d.Activity {
		if u, ok := users[d.Activity[i].UserID]; ok {
			ref := u
			d.Activity[i].User = &ref
		}
	}
	return d, nil
}

// UpdateCard is author-only: the card's creator, not the board owner.
// Empty patch fields leave the stored value untouched.
func (e *CardEngine) UpdateCard(ctx context.Context, id int64, title, description *string, callerID int64) error {
	c, err := e.store.GetCard(ctx, id)
	if err != nil {
		return notFoundFor("card", err)
	}
	if !canMutate(c.CreatedBy, callerID) {
		return fmt.Errorf("%w to update this card", ErrForbidden)
	}
	if title != nil && strings.TrimSpace(*title) == "" {
		title = nil
	}
	if description != nil && *description == "" {
		description = nil
	}
	if err := e.store.UpdateCard(ctx, id, title, description); err != nil {
		return err
	}
	meta := map[string]any{}
	if title != nil {
		meta["title"] = *title
	}
	if description != nil {
		meta["description"] = *description
	}
	return e.store.AppendActivity(ctx, ActivityEntry{
		CardID: id, Type: ActivityEdit, UserID: callerID, TargetID: id, Meta: meta,
	})
}

func (e *CardEngine) DeleteCard(ctx context.Context, id, callerID int64) error {
	c, err := e.store.GetCard(ctx, id)
	if err != nil {
		return notFoundFor("card", err)
	}
	if !canMutate(c.CreatedBy, callerID) {
		return fmt.Errorf("%w to delete this card", ErrForbidden)
	}
	return e.store.DeleteCard(ctx, id)
}

// MoveCard writes the target list and position onto the card directly.
// Sibling positions on the source and destination lists are not
// recomputed: last write wins, gaps and duplicate ranks are possible
// and are the caller's to present consistently.
func (e *CardEngine) MoveCard(ctx context.Context, id, targetListID int64, position int, callerID int64) (Card, error) {
	if err := e.store.SetCardPlacement(ctx, id, targetListID, position); err != nil {
		return Card{}, notFoundFor("card", err)
	}
	if err := e.store.AppendActivity(ctx, ActivityEntry{
		CardID: id, Type: ActivityMove, UserID: callerID, TargetID: id,
		Meta: map[string]any{"listID": targetListID, "position": position},
	}); err != nil {
		return Card{}, err
	}
	c, err := e.store.GetCard(ctx, id)
	if err != nil {
		return Card{}, err
	}
	cards := []Card{c}
	if err := e.resolveCreators(ctx, cards); err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Assign adds userID to the card's assignee set. Adding an existing
// assignee is a no-op for the set but still logs the action.
func (e *CardEngine) Assign(ctx context.Context, cardID, userID, callerID int64) ([]int64, error) {
	if _, err := e.store.GetCard(ctx, cardID); err != nil {
		return nil, notFoundFor("card", err)
	}
	if err := e.store.AddAssignee(ctx, cardID, userID); err != nil {
		return nil, err
	}
	if err := e.store.AppendActivity(ctx, ActivityEntry{
		CardID: cardID, Type: ActivityAssign, UserID: callerID, TargetID: cardID,
		Meta: map[string]any{"assignee": userID},
	}); err != nil {
		return nil, err
	}
	return e.store.Assignees(ctx, cardID)
}

func (e *CardEngine) Unassign(ctx context.Context, cardID, userID, callerID int64) ([]int64, error) {
	if _, err := e.store.GetCard(ctx, cardID); err != nil {
		return nil, notFoundFor("card", err)
	}
	if err := e.store.RemoveAssignee(ctx, cardID, userID); err != nil {
		return nil, err
	}
	if err := e.store.AppendActivity(ctx, ActivityEntry{
		CardID: cardID, Type: ActivityUnassign, UserID: callerID, TargetID: cardID,
		Meta: map[string]any{"assignee": userID},
	}); err != nil {
		return nil, err
	}
	return e.store.Assignees(ctx, cardID)
}

func (e *CardEngine) AddAttachment(ctx context.Context, cardID int64, url, filename string) (Attachment, error) {
	if strings.TrimSpace(url) == "" {
		return Attachment{}, fmt.Errorf("%w: url is required", ErrValidation)
	}
	if _, err := e.store.GetCard(ctx, cardID); err != nil {
		return Attachment{}, notFoundFor("card", err)
	}
	return e.store.AddAttachment(ctx, cardID, url, filename)
}
