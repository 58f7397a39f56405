package main

import (
	"context"
	"fmt"
	"strings"
)

// Audit is the per-card discussion and change log: a mutable-by-author
// comment collection and an append-only activity trail.
type Audit struct {
	store Storage
}

func NewAudit(store Storage) *Audit { return &Audit{store: store} }

// AddComment records the comment and its "comment" activity entry in
// one atomic store write.
func (a *Audit) AddComment(ctx context.Context, cardID int64, text string, authorID int64) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, fmt.Errorf("%w: comment cannot be empty", ErrValidation)
	}
	if _, err := a.store.GetCard(ctx, cardID); err != nil {
		return Comment{}, notFoundFor("card", err)
	}
	c, err := a.store.AddComment(ctx, cardID, text, authorID, ActivityEntry{
		CardID: cardID, Type: ActivityComment, UserID: authorID, TargetID: cardID,
		Meta: map[string]any{"text": text},
	})
	if err != nil {
		return Comment{}, err
	}
	if err := a.resolveAuthor(ctx, &c); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// UpdateComment is author-only; even the card's creator may not touch
// someone else's comment.
func (a *Audit) UpdateComment(ctx context.Context, cardID, commentID int64, text string, callerID int64) (Comment, error) {
	if _, err := a.store.GetCard(ctx, cardID); err != nil {
		return Comment{}, notFoundFor("card", err)
	}
	c, err := a.store.GetComment(ctx, cardID, commentID)
	if err != nil {
		return Comment{}, notFoundFor("comment", err)
	}
	if !canMutate(c.AuthorID, callerID) {
		return Comment{}, fmt.Errorf("%w to edit this comment", ErrForbidden)
	}
	if strings.TrimSpace(text) == "" {
		return Comment{}, fmt.Errorf("%w: comment cannot be empty", ErrValidation)
	}
	updated, err := a.store.UpdateComment(ctx, cardID, commentID, text)
	if err != nil {
		return Comment{}, err
	}
	if err := a.store.AppendActivity(ctx, ActivityEntry{
		CardID: cardID, Type: ActivityEditComment, UserID: callerID, TargetID: commentID,
		Meta: map[string]any{"text": text},
	}); err != nil {
		return Comment{}, err
	}
	if err := a.resolveAuthor(ctx, &updated); err != nil {
		return Comment{}, err
	}
	return updated, nil
}

// DeleteComment removes the comment; its "delete_comment" entry
// outlives it, the log being history rather than a live index.
func (a *Audit) DeleteComment(ctx context.Context, cardID, commentID, callerID int64) error {
	if _, err := a.store.GetCard(ctx, cardID); err != nil {
		return notFoundFor("card", err)
	}
	c, err := a.store.GetComment(ctx, cardID, commentID)
	if err != nil {
		return notFoundFor("comment", err)
	}
	if !canMutate(c.AuthorID, callerID) {
		return fmt.Errorf("%w to delete this comment", ErrForbidden)
	}
	if err := a.store.DeleteComment(ctx, cardID, commentID); err != nil {
		return err
	}
	return a.store.AppendActivity(ctx, ActivityEntry{
		CardID: cardID, Type: ActivityDeleteComment, UserID: callerID, TargetID: commentID,
	})
}

// Comments returns the card's comments in insertion order with authors
// resolved. A missing card yields an empty collection, not an error.
func (a *Audit) Comments(ctx context.Context, cardID int64) ([]Comment, error) {
	comments, err := a.store.CommentsByCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	users, err := a.store.UsersByIDs(ctx, dedupeIDs(ids))
	if err != nil {
		return nil, err
	}
	for i := range comments {
		if u, ok := users[comments[i].AuthorID]; ok {
			ref := u
			comments[i].Author = &ref
		}
	}
	return comments, nil
}

// Activity returns the card's log in insertion (chronological) order,
// users resolved. A card with no recorded activity yields the empty
// sequence.
func (a *Audit) Activity(ctx context.Context, cardID int64) ([]ActivityEntry, error) {
	entries, err := a.store.ActivityByCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	users, err := a.store.UsersByIDs(ctx, dedupeIDs(ids))
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if u, ok := users[entries[i].UserID]; ok {
			ref := u
			entries[i].User = &ref
		}
	}
	return entries, nil
}

func (a *Audit) resolveAuthor(ctx context.Context, c *Comment) error {
	users, err := a.store.UsersByIDs(ctx, []int64{c.AuthorID})
	if err != nil {
		return err
	}
	if u, ok := users[c.AuthorID]; ok {
		c.Author = &u
	}
	return nil
}
