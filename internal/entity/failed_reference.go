package entity

// FailedReference records a detail reference that produced no record.
type FailedReference struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}
