package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusBadRequest, "validation error", map[string]string{"email": "email"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"validation error","details":{"email":"email"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	WriteError(rr, http.StatusNotFound, "endpoint not found", map[string]string{})
	assert.JSONEq(t, `{"error":"endpoint not found"}`, rr.Body.String())
}

func TestWriteMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteMessage(rr, http.StatusOK, "Booking accepted successfully")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Booking accepted successfully"}`, rr.Body.String())
}
