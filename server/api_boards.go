package main

import "net/http"

func (a *api) handleListBoards(w http.ResponseWriter, r *http.Request) {
	items, err := a.hier.Boards(r.Context())
	if err != nil {
		a.serviceError(w, "list boards", err)
		return
	}
	if items == nil {
		items = []Board{}
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
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
	if _, err := a.hier.CreateBoard(r.Context(), req.Title, req.Description, u.ID); err != nil {
		a.serviceError(w, "create board", err)
		return
	}
	writeJSON(w, 201, map[string]any{"success": true, "message": "board created successfully"})
}

func (a *api) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
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
	patch := BoardPatch{Title: req.Title, Description: req.Description}
	if err := a.hier.UpdateBoard(r.Context(), id, patch, u.ID); err != nil {
		a.serviceError(w, "update board", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "message": "board updated successfully"})
	a.bus.Publish(Event{Type: "board.updated", Entity: "board", BoardID: id, Payload: map[string]any{"id": id}})
}

func (a *api) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
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
	if err := a.hier.DeleteBoard(r.Context(), id, u.ID); err != nil {
		a.serviceError(w, "delete board", err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "message": "board deleted successfully"})
	a.bus.Publish(Event{Type: "board.deleted", Entity: "board", BoardID: id, Payload: map[string]any{"id": id}})
}

func (a *api) handleBoardEvents(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, 400, "bad id")
		return
	}
	a.bus.ServeSSE(w, r, id)
}
