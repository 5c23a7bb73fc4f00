package features

import (
	"fmt"
	"math"
)

// Size is the number of inputs a classifier receives for one vector.
const Size = 9

// Vector is the session-level pupil summary fed to the classifier. The
// brightness correlations are optional and nil when they could not be
// computed.
type Vector struct {
	N      int      `json:"n" validate:"gte=0"`
	LMean  float64  `json:"L_mean"`
	RMean  float64  `json:"R_mean"`
	LStd   float64  `json:"L_std"`
	RStd   float64  `json:"R_std"`
	Asym   float64  `json:"asym"`
	CorrLB *float64 `json:"corr_L_B"`
	CorrRB *float64 `json:"corr_R_B"`
	STV    float64  `json:"stv"`
}

// Slice returns the classifier input in field order. Absent correlations
// become 0.
func (v Vector) Slice() []float64 {
	return []float64{
		float64(v.N),
		v.LMean,
		v.RMean,
		v.LStd,
		v.RStd,
		v.Asym,
		deref(v.CorrLB),
		deref(v.CorrRB),
		v.STV,
	}
}

// Validate rejects non-finite numeric fields.
func (v Vector) Validate() error {
	fields := []struct {
		name  string
		value *float64
	}{
		{"L_mean", &v.LMean},
		{"R_mean", &v.RMean},
		{"L_std", &v.LStd},
		{"R_std", &v.RStd},
		{"asym", &v.Asym},
		{"corr_L_B", v.CorrLB},
		{"corr_R_B", v.CorrRB},
		{"stv", &v.STV},
	}

	if v.N < 0 {
		return fmt.Errorf("n must not be negative, got %d", v.N)
	}

	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			return fmt.Errorf("%s must be a finite number", f.name)
		}
	}

	return nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Float returns a pointer to f, for building vectors with correlations.
func Float(f float64) *float64 {
	return &f
}
