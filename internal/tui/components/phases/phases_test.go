package phases_test

import (
	"testing"

	"github.com/alkime/docucast/internal/tui/components/phases"
	"github.com/alkime/docucast/pkg/collections"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestPhases(t *testing.T) {
	ph := phases.New("Choose", "Upload", "Listen")

	t.Run("starts at the first step", func(t *testing.T) {
		assert.Equal(t, 0, ph.Current())
		assert.Equal(t, "Choose", ph.CurrentName())
		assert.Equal(t, "Choose › Upload › Listen", ph.View())
	})

	t.Run("set clamps", func(t *testing.T) {
		steps := collections.Apply([]int{-1, 0, 1, 2, 7}, func(i int) string {
			return ph.Set(i).CurrentName()
		})

		require.Equal(t, []string{"Choose", "Choose", "Upload", "Listen", "Listen"}, steps)
	})

	t.Run("fail marks the current step until the next set", func(t *testing.T) {
		failed := ph.Set(1).Fail()
		assert.True(t, failed.Failed())
		assert.Equal(t, "Upload", failed.CurrentName())

		assert.False(t, failed.Set(0).Failed())
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, phases.New().CurrentName())
		assert.Empty(t, phases.New().View())
	})
}
