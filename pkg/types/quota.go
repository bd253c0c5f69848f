package types

// FlavorQuota limits the summed flavor weight a user may run in a group
type FlavorQuota struct {
	ID              uint32 `json:"id"`
	User            uint32 `json:"user"`
	Username        string `json:"username"`
	Quota           int64  `json:"quota"`
	FlavorGroup     uint32 `json:"flavor_group"`
	FlavorGroupName string `json:"flavor_group_name"`
}

// FlavorQuotaCheckParams asks whether a user may start Count more servers
// of a flavor. Either User or OpenStackProject identifies the user.
type FlavorQuotaCheckParams struct {
	User             *uint32 `validate:"omitempty,gt=0"`
	OpenStackProject *string
	Flavor           uint32 `validate:"required,gt=0"`
	Count            *uint32
}

// FlavorQuotaCheck is the answer of a quota check
type FlavorQuotaCheck struct {
	Underquota bool `json:"underquota"`
}
