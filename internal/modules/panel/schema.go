package panel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/replica/internal/domain"
)

// Schema names the target column and the ordered basket columns.
type Schema struct {
	Target domain.AssetID
	Basket []domain.AssetID
}

// Assets returns the target followed by the basket.
func (s Schema) Assets() []domain.AssetID {
	out := make([]domain.AssetID, 0, len(s.Basket)+1)
	out = append(out, s.Target)
	return append(out, s.Basket...)
}

// Validate checks the schema itself: a target, a non-empty basket, no repeats.
func (s Schema) Validate() error {
	if s.Target == "" {
		return &domain.DataError{Stage: domain.StageSchema, Reason: "target is empty"}
	}
	if len(s.Basket) == 0 {
		return &domain.DataError{Stage: domain.StageSchema, Reason: "basket is empty"}
	}
	seen := map[domain.AssetID]bool{s.Target: true}
	for _, a := range s.Basket {
		if a == "" {
			return &domain.DataError{Stage: domain.StageSchema, Reason: "basket contains an empty asset id"}
		}
		if seen[a] {
			return &domain.DataError{Stage: domain.StageSchema, Asset: a, Reason: "asset listed twice or equal to target"}
		}
		seen[a] = true
	}
	return nil
}

// Conform checks that p carries exactly the schema's columns. It is the one
// place column names are validated; later stages index by schema position.
func (s Schema) Conform(p *Panel) error {
	if err := s.Validate(); err != nil {
		return err
	}
	for _, a := range s.Assets() {
		if !p.Has(a) {
			return &domain.DataError{Stage: domain.StageSchema, Asset: a, Reason: "missing from panel"}
		}
	}
	if got, want := len(p.assets), len(s.Basket)+1; got != want {
		return &domain.DataError{Stage: domain.StageSchema, Reason: fmt.Sprintf("panel has %d columns, schema names %d", got, want)}
	}
	return nil
}

// Design extracts the basket matrix X (rows × basket) and target vector y for
// the given rows. Rows must be valid indices of p; s must conform to p.
func (s Schema) Design(p *Panel, rows []int) (*mat.Dense, []float64) {
	n := len(s.Basket)
	y := make([]float64, len(rows))
	if len(rows) == 0 {
		return nil, y
	}

	X := mat.NewDense(len(rows), n, nil)
	target := p.values[p.index[s.Target]]
	for k, r := range rows {
		y[k] = target[r]
		for j, a := range s.Basket {
			X.Set(k, j, p.values[p.index[a]][r])
		}
	}
	return X, y
}

// AllRows returns 0..p.Len()-1.
func AllRows(p *Panel) []int {
	rows := make([]int, p.Len())
	for i := range rows {
		rows[i] = i
	}
	return rows
}
