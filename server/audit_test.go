package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddCommentRecordsCommentAndLogEntry(t *testing.T) {
	ctx := context.Background()
	f := newCardFixture(t)
	c, err := f.eng.CreateCard(ctx, f.list.ID, "a", "", f.owner.ID)
	require.NoError(t, err)

	cm, err := f.audit.AddComment(ctx, c.ID, "first!", f.other.ID)
	require.NoError(t, err)
	require.Equal(t, "first!", cm.Text)
	require.Equal(t, f.other.ID, cm.AuthorID)
	require.NotNil(t, cm.Author)
	require.Equal(t, "ben", cm.Author.Username)

	comments, err := f.audit.Comments(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	entries, err := f.audit.Activity(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ActivityComment, entries[0].Type)
	require.Equal(t, f.other.ID, entries[0].UserID)
	require.Equal(t, "first!", entries[0].Meta["text"])
	require.NotNil(t, entries[0].User)
}

func TestAddCommentRejectsEmptyText(t *testing.T) {
	ctx := context.Background()
	f := newCardFixture(t)
	c, err := f.eng.CreateCard(ctx, f.list.ID, "a", "", f.owner.ID)
	require.NoError(t, err)

	_, err = f.audit.AddComment(ctx, c.ID, "   ", f.other.ID)
	require.ErrorIs(t, err, ErrValidation)

	// rejection leaves neither a comment nor a log entry behind
	comments, err := f.audit.Comments(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, comments)
	entries, err := f.audit.Activity(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAddCommentMissingCard(t *testing.T) {
	ctx := context.Background()
	f := newCardFixture(t)
	_, err := f.audit.AddComment(ctx, 9999, "hello", f.other.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "card")
}

func TestUpdateCommentAuthorOnly(t *testing.T) {
	ctx := context.Background()
	f := newCardFixture(t)
	c, err := f.eng.CreateCard(ctx, f.list.ID, "a", "", f.owner.ID)
	require.NoError(t, err)
	cm, err := f.audit.AddComment(ctx, c.ID, "draft", f.other.ID)
	require.NoError(t, err)

	// not even the card's creator may edit someone else's comment
	_, err = f.audit.UpdateComment(ctx, c.ID, cm.ID, "hijacked", f.owner.ID)
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := f.audit.UpdateComment(ctx, c.ID, cm.ID, "final", f.other.ID)
	require.NoError(t, err)
	require.Equal(t, "final", updated.Text)
	require.Equal(t, cm.ID, updated.ID)
	require.True(t, updated.UpdatedAt.After(cm.UpdatedAt) || updated.UpdatedAt.Equal(cm.UpdatedAt))

	listed, err := f.audit.Comments(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "final", listed[0].Text)

	_, err = f.audit.UpdateComment(ctx, c.ID, cm.ID, "  ", f.other.ID)
	require.ErrorIs(t, err, ErrValidation)

	entries, err := f.audit.Activity(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2) // comment, edit_comment
	require.Equal(t, ActivityEditComment, entries[1].Type)
	require.Equal(t, cm.ID, entries[1].TargetID)
	require.Equal(t, "final", entries[1].Meta["text"])
}

func TestDeleteCommentAuthorOnlyAndLogSurvives(t *testing.T) {
	ctx := context.Background()
	f := newCardFixture(t)
	c, err := f.eng.CreateCard(ctx, f.list.ID, "a", "", f.owner.ID)
	require.NoError(t, err)
	cm, err := f.audit.AddComment(ctx, c.ID, "delete me", f.other.ID)
	require.NoError(t, err)

	require.ErrorIs(t, f.audit.DeleteComment(ctx, c.ID, cm.ID, f.owner.ID), ErrForbidden)
	require.NoError(t, f.audit.DeleteComment(ctx, c.ID, cm.ID, f.other.ID))

	comments, err := f.audit.Comments(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, comments)

	// the trail outlives the comment: comment then delete_comment
	entries, err := f.audit.Activity(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, ActivityComment, entries[0].Type)
	require.Equal(t, ActivityDeleteComment, entries[1].Type)
	require.Equal(t, cm.ID, entries[1].TargetID)
}

func TestCommentScopedToItsCard(t *testing.T) {
	ctx := context.Background()
	f := newCardFixture(t)
	c1, err := f.eng.CreateCard(ctx, f.list.ID, "a", "", f.owner.ID)
	require.NoError(t, err)
	c2, err := f.eng.CreateCard(ctx, f.list.ID, "b", "", f.owner.ID)
	require.NoError(t, err)
	cm, err := f.audit.AddComment(ctx, c1.ID, "on the first card", f.other.ID)
	require.NoError(t, err)

	// addressing the comment through the wrong card is a miss
	_, err = f.audit.UpdateComment(ctx, c2.ID, cm.ID, "nope", f.other.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, f.audit.DeleteComment(ctx, c2.ID, cm.ID, f.other.ID), ErrNotFound)
}

func TestActivityEmptyForQuietCard(t *testing.T) {
	ctx := context.Background()
	f := newCardFixture(t)
	c, err := f.eng.CreateCard(ctx, f.list.ID, "a", "", f.owner.ID)
	require.NoError(t, err)

	entries, err := f.audit.Activity(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

// Every state change on a card contributes exactly one entry, in
// order.
func TestActivityTrailAcrossOperations(t *testing.T) {
	ctx := context.Background()
	f := newCardFixture(t)
	dst, err := f.hier.CreateList(ctx, f.board.ID, "doing", f.owner.ID)
	require.NoError(t, err)
	c, err := f.eng.CreateCard(ctx, f.list.ID, "a", "", f.owner.ID)
	require.NoError(t, err)

	title := "b"
	require.NoError(t, f.eng.UpdateCard(ctx, c.ID, &title, nil, f.owner.ID))
	_, err = f.eng.MoveCard(ctx, c.ID, dst.ID, 0, f.owner.ID)
	require.NoError(t, err)
	cm, err := f.audit.AddComment(ctx, c.ID, "hi", f.other.ID)
	require.NoError(t, err)
	_, err = f.audit.UpdateComment(ctx, c.ID, cm.ID, "hi again", f.other.ID)
	require.NoError(t, err)
	require.NoError(t, f.audit.DeleteComment(ctx, c.ID, cm.ID, f.other.ID))
	_, err = f.eng.Assign(ctx, c.ID, f.other.ID, f.owner.ID)
	require.NoError(t, err)
	_, err = f.eng.Unassign(ctx, c.ID, f.other.ID, f.owner.ID)
	require.NoError(t, err)

	entries, err := f.audit.Activity(ctx, c.ID)
	require.NoError(t, err)
	types := make([]string, len(entries))
	for i, e := range entries {
		types[i] = e.Type
	}
	require.Equal(t, []string{
		ActivityEdit, ActivityMove, ActivityComment, ActivityEditComment,
		ActivityDeleteComment, ActivityAssign, ActivityUnassign,
	}, types)
}
