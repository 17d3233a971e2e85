package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dropContext(t *testing.T, id, body string, authed bool) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/registrations/"+id+"/drop", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetPath("/v1/registrations/:id/drop")
	c.SetParamNames("id")
	c.SetParamValues(id)
	if authed {
		c.Set("player_id", int64(7))
	}
	return c, rec
}

func TestDropPlayersRejectsBadRequests(t *testing.T) {
	// No engine or store: every case below fails validation before
	// either is touched.
	h := &RegistrationHandler{Log: zap.NewNop()}

	c, rec := dropContext(t, "50", `{"slotIds":[11]}`, false)
	require.NoError(t, h.DropPlayers(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = dropContext(t, "x", `{"slotIds":[11]}`, true)
	require.NoError(t, h.DropPlayers(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = dropContext(t, "50", `{"slotIds":[]}`, true)
	require.NoError(t, h.DropPlayers(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
