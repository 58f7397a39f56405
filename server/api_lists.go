package main

import "net/http"

func (a *api) handleListsByBoard(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	items, err := a.hier.ListsForBoard(r.Context(), id)
	if err != nil {
		a.serviceError(w, "lists by board", err)
		return
	}
	if items == nil {
		items = []List{}
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateList(w http.ResponseWriter, r *http.Request) {
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
		Title string `json:"title"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	l, err := a.hier.CreateList(r.Context(), id, req.Title, u.ID)
	if err != nil {
		a.serviceError(w, "create list", err)
		return
	}
	writeJSON(w, 201, map[string]any{"success": true, "message": "list created successfully"})
	a.bus.Publish(Event{Type: "list.created", Entity: "list", BoardID: l.BoardID, ListID: &l.ID, Payload: l})
}

func (a *api) handleUpdateList(w http.ResponseWriter, r *http.Request) {
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
		Title string `json:"title"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	if err := a.hier.UpdateList(r.Context(), id, req.Title, u.ID); err != nil {
		a.serviceError(w, "update list", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "message": "list updated successfully"})
	if l, e := a.store.GetList(r.Context(), id); e == nil {
		a.bus.Publish(Event{Type: "list.updated", Entity: "list", BoardID: l.BoardID, ListID: &l.ID, Payload: map[string]any{"id": id}})
	}
}

func (a *api) handleDeleteList(w http.ResponseWriter, r *http.Request) {
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
	var boardID int64
	if l, e := a.store.GetList(r.Context(), id); e == nil {
		boardID = l.BoardID
	}
	if err := a.hier.DeleteList(r.Context(), id, u.ID); err != nil {
		a.serviceError(w, "delete list", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "message": "list deleted successfully"})
	if boardID != 0 {
		a.bus.Publish(Event{Type: "list.deleted", Entity: "list", BoardID: boardID, ListID: &id, Payload: map[string]any{"id": id}})
	}
}
