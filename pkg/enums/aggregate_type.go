package enums

// AggregateType names a consistency boundary in the ledger store.
type AggregateType string

const (
	AggregateOrder      AggregateType = "order"
	AggregateAssignment AggregateType = "assignment"
	AggregateInvoice    AggregateType = "invoice"
)

// String implements fmt.Stringer.
func (a AggregateType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AggregateType.
func (a AggregateType) IsValid() bool {
	switch a {
	case AggregateOrder, AggregateAssignment, AggregateInvoice:
		return true
	default:
		return false
	}
}
