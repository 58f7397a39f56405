package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// issueToken signs an identity token for the user, expiring with the
// session TTL.
func (a *api) issueToken(userID int64, expires time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}

// currentUser resolves the caller identity from the signed cookie. The
// core trusts this identity as given.
func (a *api) currentUser(r *http.Request) (*User, error) {
	c, err := r.Cookie(a.sessionCookieName())
	if err != nil || c.Value == "" {
		return nil, ErrNotFound
	}
	claims := jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(c.Value, &claims, func(*jwt.Token) (any, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"})); err != nil {
		return nil, err
	}
	id, err := parseID(claims.Subject)
	if err != nil {
		return nil, err
	}
	u, err := a.store.GetUser(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *api) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, 400, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeFailure(w, 400, "missing details")
		return
	}
	if _, _, err := a.store.UserByEmail(r.Context(), req.Email); err == nil {
		writeFailure(w, 400, "user already exists")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.log.Error("bcrypt", "err", err)
		writeFailure(w, 500, "internal error")
		return
	}
	u, err := a.store.CreateUser(r.Context(), req.Username, req.Email, string(hash))
	if err != nil {
		a.log.Error("signup", "err", err)
		writeFailure(w, 400, "cannot create user")
		return
	}
	expires := time.Now().Add(a.sessionTTL())
	token, err := a.issueToken(u.ID, expires)
	if err != nil {
		a.log.Error("issue token", "err", err)
		writeFailure(w, 500, "internal error")
		return
	}
	a.setSessionCookie(w, token, expires)
	writeJSON(w, 201, map[string]any{"success": true, "message": "user created successfully"})
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeFailure(w, 400, "missing details")
		return
	}
	u, hash, err := a.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		writeFailure(w, 401, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeFailure(w, 401, "invalid credentials")
		return
	}
	expires := time.Now().Add(a.sessionTTL())
	token, err := a.issueToken(u.ID, expires)
	if err != nil {
		a.log.Error("issue token", "err", err)
		writeFailure(w, 500, "internal error")
		return
	}
	a.setSessionCookie(w, token, expires)
	writeJSON(w, 200, map[string]any{"success": true, "message": "logged in"})
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.clearSessionCookie(w)
	writeJSON(w, 200, map[string]any{"success": true, "message": "logged out"})
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeFailure(w, 401, "not authorised, login again")
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "user": u})
}
