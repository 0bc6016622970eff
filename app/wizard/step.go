package wizard

// Step is the current position of a session in the sale intake dialog.
// The set is closed; the machine switches over it exhaustively.
type Step string

const (
	StepClientName      Step = "client_name"
	StepMasterName      Step = "master_name"
	StepPackage         Step = "package"
	StepPracticesCount  Step = "practices_count"
	StepTotalAmount     Step = "total_amount"
	StepPaidAmount      Step = "paid_amount"
	StepRemainderChoice Step = "remainder_choice"
	StepTrancheCount    Step = "tranche_count"
	StepTrancheAmount   Step = "tranche_amount"
	StepTrancheDate     Step = "tranche_date"
)
