package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndicatorTable(t *testing.T) {
	records := []IndicatorRecord{
		{Key: Key{State: "Texas", Year: 2004}, Value: 3},
		{Key: Key{State: "Alabama", Year: 2004}, Value: 2},
		{Key: Key{State: "Alabama", Year: 2000}, Value: math.NaN()},
	}

	table, err := NewIndicatorTable("gdp", "gdp.csv", records)
	require.NoError(t, err)

	got := table.Records()
	require.Len(t, got, 3)
	assert.Equal(t, Key{State: "Alabama", Year: 2000}, got[0].Key)
	assert.Equal(t, Key{State: "Texas", Year: 2004}, got[2].Key)
	assert.True(t, got[0].IsMissing())

	rec, ok := table.Lookup(Key{State: "Alabama", Year: 2004})
	require.True(t, ok)
	assert.Equal(t, 2.0, rec.Value)

	assert.Equal(t, []int{2000, 2004}, table.Years())
	assert.Equal(t, []string{"Alabama", "Texas"}, table.States())

	got[0].Value = 99
	again, _ := table.Lookup(Key{State: "Alabama", Year: 2000})
	assert.True(t, again.IsMissing(), "Records must return a copy")
}

func TestNewIndicatorTableDuplicate(t *testing.T) {
	records := []IndicatorRecord{
		{Key: Key{State: "Ohio", Year: 2000}, Value: 1},
		{Key: Key{State: "Ohio", Year: 2000}, Value: 2},
	}
	_, err := NewIndicatorTable("gdp", "gdp.csv", records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateRecord))
}

func TestScoreJSON(t *testing.T) {
	payload := struct {
		A Score `json:"a"`
		B Score `json:"b"`
	}{A: 0.5, B: Unattainable}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0.5,"b":null}`, string(data))

	var decoded struct {
		A Score `json:"a"`
		B Score `json:"b"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Score(0.5), decoded.A)
	assert.False(t, decoded.B.Finite())
}

func TestFeatureTableMatrix(t *testing.T) {
	table := &FeatureTable{
		Columns: []string{"x1", "x2"},
		Label:   "republican_win",
		Task:    TaskClassification,
		Rows: []FeatureRow{
			{State: "A", Year: 2000, Values: map[string]float64{"x1": 0, "x2": 1}, Label: 1},
			{State: "B", Year: 2000, Values: map[string]float64{"x1": 2, "x2": 3}, Label: 0},
		},
	}

	x, err := table.Matrix([]string{"x2", "x1"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {3, 2}}, x)
	assert.Equal(t, []float64{1, 0}, table.Labels())

	_, err = table.Matrix([]string{"x3"})
	assert.Error(t, err)

	clone := table.Clone()
	clone.Rows[0].Values["x1"] = 42
	assert.Equal(t, 0.0, table.Rows[0].Values["x1"])
}
