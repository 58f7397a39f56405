package main

import "net/http"

func (a *api) handleCardsByList(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	items, err := a.cards.CardsByList(r.Context(), id)
	if err != nil {
		a.serviceError(w, "cards by list", err)
		return
	}
	if items == nil {
		items = []Card{}
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateCard(w http.ResponseWriter, r *http.Request) {
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
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	c, err := a.cards.CreateCard(r.Context(), id, req.Title, req.Description, u.ID)
	if err != nil {
		a.serviceError(w, "create card", err)
		return
	}
	writeJSON(w, 201, map[string]any{"success": true, "message": "card created successfully", "card": c})
	a.bus.Publish(Event{Type: "card.created", Entity: "card", BoardID: a.boardIDForCard(r, c.ID), ListID: &c.ListID, CardID: &c.ID, Payload: c})
}

func (a *api) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	c, err := a.cards.GetCard(r.Context(), id)
	if err != nil {
		a.serviceError(w, "get card", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "card": c})
}

func (a *api) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
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
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	if err := a.cards.UpdateCard(r.Context(), id, req.Title, req.Description, u.ID); err != nil {
		a.serviceError(w, "update card", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "message": "card updated successfully"})
	a.bus.Publish(Event{Type: "card.updated", Entity: "card", BoardID: a.boardIDForCard(r, id), CardID: &id, Payload: map[string]any{"id": id}})
}

func (a *api) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
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
	boardID := a.boardIDForCard(r, id)
	if err := a.cards.DeleteCard(r.Context(), id, u.ID); err != nil {
		a.serviceError(w, "delete card", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "message": "card deleted successfully"})
	a.bus.Publish(Event{Type: "card.deleted", Entity: "card", BoardID: boardID, CardID: &id, Payload: map[string]any{"id": id}})
}

func (a *api) handleMoveCard(w http.ResponseWriter, r *http.Request) {
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
		ListID   int64 `json:"listID"`
		Position int   `json:"position"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	c, err := a.cards.MoveCard(r.Context(), id, req.ListID, req.Position, u.ID)
	if err != nil {
		a.serviceError(w, "move card", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "card": c})
	a.bus.Publish(Event{Type: "card.moved", Entity: "card", BoardID: a.boardIDForCard(r, id), ListID: &c.ListID, CardID: &id,
		Payload: map[string]any{"id": id, "listID": req.ListID, "position": req.Position}})
}

func (a *api) handleAssign(w http.ResponseWriter, r *http.Request) {
	a.handleAssignment(w, r, true)
}

func (a *api) handleUnassign(w http.ResponseWriter, r *http.Request) {
	a.handleAssignment(w, r, false)
}

func (a *api) handleAssignment(w http.ResponseWriter, r *http.Request, add bool) {
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
		UserID int64 `json:"userId"`
	}
	if err := readJSON(w, r, &req); err != nil || req.UserID == 0 {
		writeFailure(w, 400, "invalid payload")
		return
	}
	var assignees []int64
	if add {
		assignees, err = a.cards.Assign(r.Context(), id, req.UserID, u.ID)
	} else {
		assignees, err = a.cards.Unassign(r.Context(), id, req.UserID, u.ID)
	}
	if err != nil {
		a.serviceError(w, "assignment", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "assignees": assignees})
}

func (a *api) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	var req struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	at, err := a.cards.AddAttachment(r.Context(), id, req.URL, req.Filename)
	if err != nil {
		a.serviceError(w, "add attachment", err)
		return
	}
	writeJSON(w, 201, map[string]any{"success": true, "attachment": at})
}

func (a *api) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	entries, err := a.audit.Activity(r.Context(), id)
	if err != nil {
		a.serviceError(w, "activity", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "activity": entries})
}

// boardIDForCard resolves the board the card currently sits under, for
// event routing only. Best effort: 0 means unresolvable.
func (a *api) boardIDForCard(r *http.Request, cardID int64) int64 {
	c, err := a.store.GetCard(r.Context(), cardID)
	if err != nil {
		return 0
	}
	l, err := a.store.GetList(r.Context(), c.ListID)
	if err != nil {
		return 0
	}
	return l.BoardID
}
