package main

import "net/http"

func (a *api) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	u, errU := a.currentUser(r)
	if errU != nil {
		writeFailure(w, 401, "not authorised, login again")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	c, err := a.audit.AddComment(r.Context(), id, req.Text, u.ID)
	if err != nil {
		a.serviceError(w, "add comment", err)
		return
	}
	writeJSON(w, 201, map[string]any{"success": true, "comment": c})
	a.bus.Publish(Event{Type: "comment.added", Entity: "comment", BoardID: a.boardIDForCard(r, id), CardID: &id, Payload: c})
}

func (a *api) handleCommentsByCard(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	items, err := a.audit.Comments(r.Context(), id)
	if err != nil {
		a.serviceError(w, "comments by card", err)
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	commentID, err := parseID(r.PathValue("commentId"))
	if err != nil {
		writeFailure(w, 400, "bad comment id")
		return
	}
	u, errU := a.currentUser(r)
	if errU != nil {
		writeFailure(w, 401, "not authorised, login again")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	c, err := a.audit.UpdateComment(r.Context(), id, commentID, req.Text, u.ID)
	if err != nil {
		a.serviceError(w, "update comment", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "message": "comment updated successfully", "comment": c})
	a.bus.Publish(Event{Type: "comment.updated", Entity: "comment", BoardID: a.boardIDForCard(r, id), CardID: &id, Payload: c})
}

func (a *api) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	commentID, err := parseID(r.PathValue("commentId"))
	if err != nil {
		writeFailure(w, 400, "bad comment id")
		return
	}
	u, errU := a.currentUser(r)
	if errU != nil {
		writeFailure(w, 401, "not authorised, login again")
		return
	}
	if err := a.audit.DeleteComment(r.Context(), id, commentID, u.ID); err != nil {
		a.serviceError(w, "delete comment", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "message": "comment deleted successfully"})
	a.bus.Publish(Event{Type: "comment.deleted", Entity: "comment", BoardID: a.boardIDForCard(r, id), CardID: &id,
		Payload: map[string]any{"id": commentID}})
}
