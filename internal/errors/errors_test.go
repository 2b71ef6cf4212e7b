package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *FormatError
		want string
	}{
		{
			name: "cell error",
			err:  NewFormatError("gdp.csv", 12, "value", "abc", "cannot parse as float"),
			want: `format error in gdp.csv row 12 column "value": cannot parse as float (value "abc")`,
		},
		{
			name: "missing column",
			err:  NewFormatError("votes.txt", 0, "state_po", "", "required column is absent"),
			want: `format error in votes.txt column "state_po": required column is absent`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestFormatError_Wrapped(t *testing.T) {
	fe := NewFormatError("gdp.csv", 3, "value", "x", "bad").WithCause(fmt.Errorf("strconv failure"))
	wrapped := fmt.Errorf("load gdp: %w", fe)

	got, ok := AsFormatError(wrapped)
	require.True(t, ok)
	assert.Equal(t, 3, got.Row)
	assert.Equal(t, "gdp.csv", got.File)
	assert.Equal(t, ErrTypeFormat, TypeOf(wrapped))
}

func TestDegenerateFoldError(t *testing.T) {
	err := NewDegenerateFoldError(2, "training split holds a single class").ForSubset([]string{"x1"})
	wrapped := fmt.Errorf("score: %w", err)

	assert.True(t, IsDegenerateFold(wrapped))
	assert.True(t, errors.Is(wrapped, ErrDegenerateFold))
	assert.Equal(t, "degenerate fold 2 for [x1]: training split holds a single class", err.Error())
	assert.Equal(t, ErrTypeDegenerateFold, TypeOf(wrapped))
	assert.False(t, IsDegenerateFold(fmt.Errorf("plain")))
}

func TestCoverageGapError(t *testing.T) {
	err := &CoverageGapError{Gaps: []Gap{{Indicator: "gdp", State: "Ohio", Year: 2004}, {Indicator: "gdp", State: "Utah", Year: 2004}}}
	assert.Equal(t, "coverage incomplete: 2 missing combination(s), first gdp Ohio 2004", err.Error())
	assert.Equal(t, ErrTypeCoverage, TypeOf(err))
}

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("write report", cause).WithContext("path", "/tmp/x")

	assert.Equal(t, "[STORAGE] write report: disk full", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "/tmp/x", err.Context["path"])
	assert.Equal(t, ErrTypeStorage, TypeOf(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, ErrTypeUnknown, TypeOf(errors.New("plain")))
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", NewNotFoundError("run abc"), http.StatusNotFound},
		{"validation", NewAppValidationError("bad id"), http.StatusBadRequest},
		{"format", NewFormatError("r.json", 0, "", "", "bad json"), http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, FromError(tt.err).StatusCode)
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrRunNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "RUN_NOT_FOUND", body.Error.ErrorCode)
}
