package domain

// Job is a queued unit of work wrapping one order's identifier and its
// immutable fields. The queue owns a job until a worker claims it; after the
// claim, execution ownership belongs to the worker pool and the job can no
// longer be removed.
type Job struct {
	OrderID     string
	Type        OrderType
	InputToken  string
	OutputToken string
	Amount      float64
	LimitPrice  float64
	// Attempt counts infrastructure retries for this job, starting at zero.
	Attempt int
}

// JobFor builds the job for an order, carrying over its immutable fields.
func JobFor(o Order) Job {
	return Job{
		OrderID:     o.ID,
		Type:        o.Type,
		InputToken:  o.InputToken,
		OutputToken: o.OutputToken,
		Amount:      o.Amount,
		LimitPrice:  o.LimitPrice,
	}
}
