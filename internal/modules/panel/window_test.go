package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/replica/internal/domain"
)

func TestWindow_InclusiveBounds(t *testing.T) {
	w := Window{Name: Validation, Start: day("2024-01-03"), End: day("2024-01-05")}
	assert.False(t, w.Contains(day("2024-01-02")))
	assert.True(t, w.Contains(day("2024-01-03")))
	assert.True(t, w.Contains(day("2024-01-05")))
	assert.False(t, w.Contains(day("2024-01-06")))

	open := Window{Name: Train, End: day("2024-01-05")}
	assert.True(t, open.Contains(day("1990-01-01")))
}

func TestRows_UnionOfWindows(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06"}
	p, err := Align([]domain.ReturnSeries{returns(t, "x", dates, []float64{1, 2, 3, 4, 5, 6})})
	require.NoError(t, err)

	ws := Windows{
		Train:      Window{Name: Train, End: day("2024-01-02")},
		Validation: Window{Name: Validation, Start: day("2024-01-03"), End: day("2024-01-04")},
		Test:       Window{Name: Test, Start: day("2024-01-05"), End: day("2024-01-05")},
	}
	require.NoError(t, ws.Validate())

	assert.Equal(t, []int{0, 1}, Rows(p, ws.Train))
	assert.Equal(t, []int{0, 1, 2, 3}, Rows(p, ws.Train, ws.Validation))
	assert.Equal(t, []int{4}, Rows(p, ws.Test))
	assert.Empty(t, Rows(p, Window{Start: day("2025-01-01")}))
}

func TestWindows_Validate(t *testing.T) {
	good := Windows{
		Train:      Window{Name: Train, End: day("2024-06-30")},
		Validation: Window{Name: Validation, Start: day("2024-06-01"), End: day("2024-09-30")},
		Test:       Window{Name: Test, Start: day("2024-10-01")},
	}
	assert.NoError(t, good.Validate(), "train and validation may overlap")

	overlap := good
	overlap.Test.Start = day("2024-09-30")
	assert.True(t, domain.IsDataError(overlap.Validate()))

	inverted := good
	inverted.Validation.End = day("2024-05-01")
	assert.Error(t, inverted.Validate())

	noEnd := good
	noEnd.Train.End = time.Time{}
	assert.Error(t, noEnd.Validate())

	noStart := good
	noStart.Test.Start = time.Time{}
	assert.Error(t, noStart.Validate())
}
