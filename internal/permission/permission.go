package permission

import "sort"

type Permission string

const (
	TransactionHistoryView Permission = "transaction_history.view"
	TransactionTagging     Permission = "transaction.tagging"

	BillsOpenView        Permission = "bills.open.view"
	BillsFullyPaidView   Permission = "bills.fully_paid.view"
	BillsClosedView      Permission = "bills.closed.view"
	BillsPayment         Permission = "bills.payment"
	BillsUploadProof     Permission = "bills.upload_proof"
	BillsDownloadInvoice Permission = "bills.download_invoice"

	ReportsView   Permission = "reports.view"
	ReportsCreate Permission = "reports.create"
	ReportsEdit   Permission = "reports.edit"
	ReportsDelete Permission = "reports.delete"

	UsersView   Permission = "users.view"
	UsersCreate Permission = "users.create"
	UsersEdit   Permission = "users.edit"
	UsersDelete Permission = "users.delete"

	SolutionsView   Permission = "solutions.view"
	SolutionsCreate Permission = "solutions.create"
	SolutionsEdit   Permission = "solutions.edit"
	SolutionsDelete Permission = "solutions.delete"
)

var catalogue = map[Permission]struct{}{
	TransactionHistoryView: {}, TransactionTagging: {},
	BillsOpenView: {}, BillsFullyPaidView: {}, BillsClosedView: {},
	BillsPayment: {}, BillsUploadProof: {}, BillsDownloadInvoice: {},
	ReportsView: {}, ReportsCreate: {}, ReportsEdit: {}, ReportsDelete: {},
	UsersView: {}, UsersCreate: {}, UsersEdit: {}, UsersDelete: {},
	SolutionsView: {}, SolutionsCreate: {}, SolutionsEdit: {}, SolutionsDelete: {},
}

// Known reports whether p is part of the permission catalogue.
func Known(p string) bool {
	_, ok := catalogue[Permission(p)]
	return ok
}

func All() []Permission {
	out := make([]Permission, 0, len(catalogue))
	for p := range catalogue {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Set map[Permission]struct{}

func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func FromStrings(perms []string) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[Permission(p)] = struct{}{}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s Set) ContainsAll(required []Permission) bool {
	for _, p := range required {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Identity is what the auth middleware attaches to a verified request.
type Identity struct {
	UserID      string
	Role        string
	Permissions Set
}
