package messaging

// InvoicesStream captures every invoice lifecycle event.
const InvoicesStream = "INVOICES"

const (
	InvoicesSubjectWildcard = "invoices.>"
	InvoicesCreatedSubject  = "invoices.created"
	InvoicesUpdatedSubject  = "invoices.updated"
	InvoicesDeletedSubject  = "invoices.deleted"
)
