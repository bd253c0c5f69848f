package types

// Flavor is an OpenStack flavor. Weight counts against the quota of the
// flavor's group; flavors without a group are never under quota.
type Flavor struct {
	ID          uint32  `json:"id"`
	Name        string  `json:"name"`
	OpenStackID string  `json:"openstack_id"`
	Group       *uint32 `json:"group"`
	GroupName   *string `json:"group_name"`
	Weight      uint32  `json:"weight"`
}

// FlavorGroup bundles flavors that share a quota
type FlavorGroup struct {
	ID      uint32   `json:"id"`
	Name    string   `json:"name"`
	Project uint32   `json:"project"`
	Flavors []uint32 `json:"flavors"`
}

// FlavorGroupUsageParams selects the scope of a usage query
type FlavorGroupUsageParams struct {
	User      *uint32 `validate:"omitempty,gt=0"`
	Project   *uint32 `validate:"omitempty,gt=0"`
	All       bool
	Aggregate bool
}

// FlavorGroupUsageSimple is the usage of one user in one flavor group
type FlavorGroupUsageSimple struct {
	UserID          uint32 `json:"user_id"`
	UserName        string `json:"user_name"`
	FlavorGroupID   uint32 `json:"flavorgroup_id"`
	FlavorGroupName string `json:"flavorgroup_name"`
	Usage           uint32 `json:"usage"`
}

// FlavorGroupUsageAggregate is the usage of one flavor group summed over users
type FlavorGroupUsageAggregate struct {
	FlavorGroupID   uint32 `json:"flavorgroup_id"`
	FlavorGroupName string `json:"flavorgroup_name"`
	Usage           uint32 `json:"usage"`
}
