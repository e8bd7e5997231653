package driver

import "fmt"

//go:generate go run github.com/dmarkham/enumer -type Step -trimprefix Step -transform snake -json -output step.gen.go

// Step is one stage of the ERP workflow.
type Step int

const (
	StepLogin Step = iota + 1
	StepOpenList
	StepNewOrder
	StepSetProduct
	StepSetQuantity
	StepConfirm
	StepOpenSerials
	StepFillSerials
	StepGenerate
	StepMarkDone
)

// TotalSteps is the number of steps in the workflow.
const TotalSteps = int(StepMarkDone)

// Label renders the step as "Step n/10".
func (s Step) Label() string {
	return fmt.Sprintf("Step %d/%d", int(s), TotalSteps)
}
