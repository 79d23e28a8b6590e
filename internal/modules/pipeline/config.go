package pipeline

import (
	"fmt"

	"github.com/aristath/replica/internal/modules/filter"
	"github.com/aristath/replica/internal/modules/optimization"
	"github.com/aristath/replica/internal/modules/panel"
	"github.com/aristath/replica/pkg/formulas"
)

// Config carries every model input explicitly. Nothing here has a default;
// the config package is responsible for reading and checking the file.
type Config struct {
	Schema   panel.Schema
	DayFirst bool
	Windows  panel.Windows

	WinsorLower float64
	WinsorUpper float64

	Static  optimization.StaticParams
	Filter  filter.Params
	NavBase float64

	// Workers bounds concurrent price loads; <= 0 loads every asset at once.
	Workers int
}

// Validate checks the config as a whole before any data is touched.
func (c Config) Validate() error {
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	if err := c.Windows.Validate(); err != nil {
		return err
	}
	if !(c.WinsorLower >= 0 && c.WinsorLower < c.WinsorUpper && c.WinsorUpper <= 1) {
		return fmt.Errorf("winsor quantiles must satisfy 0 <= lower < upper <= 1, got %v/%v", c.WinsorLower, c.WinsorUpper)
	}
	if err := c.Static.Validate(); err != nil {
		return err
	}
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	if !formulas.IsFinite(c.NavBase) || c.NavBase <= 0 {
		return fmt.Errorf("nav base must be positive, got %v", c.NavBase)
	}
	return nil
}
