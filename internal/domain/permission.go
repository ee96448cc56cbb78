package domain

// TargetKind is the wire name of a permission target.
type TargetKind string

const (
	TargetUser            TargetKind = "users"
	TargetDealerUser      TargetKind = "dealer_users"
	TargetAdmin           TargetKind = "admins"
	TargetSolutionPartner TargetKind = "solution_partner"
	TargetSalesPartner    TargetKind = "sale_partner"
)

type Permission struct {
	Name    string `json:"name"`
	Granted bool   `json:"granted"`
}
