package response

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorOmitsDataAndDetails(t *testing.T) {
	raw, err := json.Marshal(Error(http.StatusNotFound, "Idea not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","status_code":404,"error":"Idea not found"}`, string(raw))
}

func TestErrorWithDetails(t *testing.T) {
	raw, err := json.Marshal(ErrorWithDetails(http.StatusBadRequest, "Invalid request payload", map[string]string{"email": "is required"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","status_code":400,"error":"Invalid request payload","details":{"email":"is required"}}`, string(raw))
}

func TestSuccess(t *testing.T) {
	raw, err := json.Marshal(Success(http.StatusOK, map[string]int{"total": 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","status_code":200,"data":{"total":3}}`, string(raw))
}
