package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSafeRedirect(t *testing.T) {
	tests := []struct {
		next string
		want bool
	}{
		{"/", true},
		{"/items/3", true},
		{"/my-requests?tab=completed", true},
		{"http://example.com/items/3", true},
		{"https://EXAMPLE.com/dashboard", true},
		{"", false},
		{"items/3", false},
		{"//evil.example.org/", false},
		{"/\\evil.example.org", false},
		{"https://evil.example.org/", false},
		{"http://example.com.evil.org/", false},
		{"javascript:alert(1)", false},
		{"ftp://example.com/file", false},
		{"/items/3\r\nSet-Cookie: x=y", false},
	}
	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.want, isSafeRedirect(tt.next, "example.com"))
		})
	}
}

func TestLifecycleOutcome(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrSelfRequest, http.StatusBadRequest},
		{services.ErrDuplicateRequest, http.StatusConflict},
		{services.ErrNotOwner, http.StatusForbidden},
		{services.ErrAlreadyProcessed, http.StatusConflict},
		{services.ErrNotRequester, http.StatusForbidden},
		{services.ErrNotAccepted, http.StatusBadRequest},
		{services.ErrDuplicateReview, http.StatusConflict},
		{services.ErrInvalidRating, http.StatusBadRequest},
		{fmt.Errorf("item request: %w", services.ErrNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		o, ok := lifecycleOutcome(tt.err, "Request not found")
		require.True(t, ok, tt.err.Error())
		assert.Equal(t, tt.status, o.status, tt.err.Error())
		assert.NotEmpty(t, o.message)
	}

	o, _ := lifecycleOutcome(services.ErrNotFound, "Item not found")
	assert.Equal(t, "Item not found", o.message)

	_, ok := lifecycleOutcome(fmt.Errorf("boom"), "")
	assert.False(t, ok)
}

func TestRespondWithoutNextIsJSON(t *testing.T) {
	e := echo.New()
	sessions := middleware.NewSessionManager(middleware.NewCookieStore("secret", false))

	form := url.Values{"next": {"https://evil.example.org/"}}
	req := httptest.NewRequest(http.MethodPost, "/items/1/request", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := respond(c, sessions, outcome{http.StatusConflict, middleware.FlashInfo, "Request already sent"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"Request already sent"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get(echo.HeaderSetCookie))
}

func TestRespondWithNextRedirects(t *testing.T) {
	e := echo.New()
	sessions := middleware.NewSessionManager(middleware.NewCookieStore("secret", false))

	req := httptest.NewRequest(http.MethodPost, "/requests/4/accept?next=/requests-on-my-items", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := respond(c, sessions, outcome{http.StatusOK, middleware.FlashSuccess, "Request accepted"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/requests-on-my-items", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, rec.Header().Get(echo.HeaderSetCookie), middleware.SessionName)
}
