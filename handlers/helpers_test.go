package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tourney-engine/services"
)

type readJSONTarget struct {
	Name string `json:"name"`
}

func TestReadJSONValidBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"alpha"}`))
	w := httptest.NewRecorder()
	var dst readJSONTarget
	err := readJSON(w, r, &dst)
	require.NoError(t, err)
	assert.Equal(t, "alpha", dst.Name)
}

func TestReadJSONRejectsUnknownField(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"alpha","extra":1}`))
	w := httptest.NewRecorder()
	var dst readJSONTarget
	err := readJSON(w, r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestReadJSONRejectsTrailingValue(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"alpha"}{"name":"beta"}`))
	w := httptest.NewRecorder()
	var dst readJSONTarget
	err := readJSON(w, r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single JSON value")
}

func TestReadJSONRejectsEmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	w := httptest.NewRecorder()
	var dst readJSONTarget
	err := readJSON(w, r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")
}

func TestReadJSONRejectsMalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	w := httptest.NewRecorder()
	var dst readJSONTarget
	err := readJSON(w, r, &dst)
	require.Error(t, err)
}

func TestWriteJSONSetsContentTypeAndStatus(t *testing.T) {
	w := httptest.NewRecorder()
	err := writeJSON(w, http.StatusCreated, jsonResponse{"ok": true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"ok": true`)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPathInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/tournaments/42", nil)
	r = withURLParam(r, "tournamentID", "42")

	id, err := pathInt(r, "tournamentID")
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestPathIntRejectsNonPositive(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/tournaments/0", nil)
	r = withURLParam(r, "tournamentID", "0")

	_, err := pathInt(r, "tournamentID")
	require.Error(t, err)
}

func TestPathIntFromString(t *testing.T) {
	id, err := pathIntFromString("7")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	_, err = pathIntFromString("not-a-number")
	require.Error(t, err)
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=2&verified_only=true&status=pending", nil)
	assert.Equal(t, 2, queryInt(r, "page", 1))
	assert.Equal(t, 20, queryInt(r, "limit", 20))
	assert.Equal(t, true, queryBool(r, "verified_only", false))
	assert.Equal(t, false, queryBool(r, "missing_flag", false))

	status := queryStringPtr(r, "status")
	require.NotNil(t, status)
	assert.Equal(t, "pending", *status)
	assert.Nil(t, queryStringPtr(r, "missing"))

	require.Nil(t, queryIntPtr(r, "missing"))
	got := queryIntPtr(r, "page")
	require.NotNil(t, got)
	assert.Equal(t, 2, *got)
}

func TestMapServiceErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
	}{
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{services.ErrTournamentNameConflict, http.StatusConflict},
		{services.ErrValidationFailed, http.StatusBadRequest},
		{services.ErrMatchVersionStale, http.StatusUnprocessableEntity},
		{services.ErrAuthenticationFailed, http.StatusUnauthorized},
		{services.ErrTournamentNotOrganizer, http.StatusForbidden},
		{bytes.ErrTooLarge, http.StatusInternalServerError},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		mapServiceError(w, c.err)
		assert.Equal(t, c.wantStatus, w.Code, "err=%v", c.err)
	}
}
