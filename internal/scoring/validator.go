package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ahrav/go-coach/internal/domain"
)

// PlanValidator decodes generator output on the live coaching path. Unlike
// the rubric, which decodes strictly so malformed output scores 0, the
// validator applies a one-shot repair policy: a strict decode first, then a
// single jsonrepair pass for the usual model slips (trailing commas, single
// quotes, unquoted keys, truncated brackets), then a final strict decode.
type PlanValidator struct {
	repair bool
}

// NewPlanValidator creates a validator. With repair disabled the validator
// behaves like domain.DecodePlan.
func NewPlanValidator(repair bool) *PlanValidator {
	return &PlanValidator{repair: repair}
}

// Validate decodes raw into a plan. repaired reports whether the repair pass
// was needed. A plan that decodes but is not structurally valid is still
// returned; the rubric is what judges structure.
func (v *PlanValidator) Validate(raw string) (plan domain.WorkoutPlan, repaired bool, err error) {
	plan, err = domain.DecodePlan(raw)
	if err == nil {
		return plan, false, nil
	}
	if !v.repair {
		return domain.WorkoutPlan{}, false, err
	}

	body := domain.StripCodeFence(raw)
	fixed, repairErr := jsonrepair.JSONRepair(body)
	if repairErr != nil {
		return domain.WorkoutPlan{}, false, fmt.Errorf("%w: repair failed: %w", domain.ErrDecodeFailure, repairErr)
	}
	if fixed == body {
		// Nothing to repair, keep the original decode error.
		return domain.WorkoutPlan{}, false, err
	}

	if err := json.Unmarshal([]byte(fixed), &plan); err != nil {
		return domain.WorkoutPlan{}, false, fmt.Errorf("%w: still invalid after repair: %w", domain.ErrDecodeFailure, err)
	}
	return plan, true, nil
}

// Decode resolves a generator payload, repairing text when allowed.
func (v *PlanValidator) Decode(p domain.PlanPayload) (domain.WorkoutPlan, bool, error) {
	if p.Plan != nil {
		return *p.Plan, false, nil
	}
	return v.Validate(p.Text)
}
