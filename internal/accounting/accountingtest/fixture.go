package accountingtest

import (
	"time"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
)

var (
	ServerAlice = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	ServerBob   = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	ServerCarol = uuid.MustParse("33333333-3333-4333-8333-333333333333")
)

// Fixture user ids
const (
	Alice uint32 = 1 // plain user in alpha
	Bob   uint32 = 2 // master of alpha
	Carol uint32 = 3 // plain user in beta
	Admin uint32 = 4 // staff user in beta
)

// Fixture project ids
const (
	Alpha uint32 = 1 // UC1
	Beta  uint32 = 2 // UC2
)

// Fixture returns a small cloud. In 2023 alice and bob each ran one tiny
// server from January 1st to November 1st, so each costs 304000/365 with
// the UC1 tiny price of 1000. Carol runs a large server in beta since
// March 1st 2023 that is still open.
func Fixture() *Memory {
	jan1 := Date(2023, time.January, 1)
	nov1 := Date(2023, time.November, 1)
	mar1 := Date(2023, time.March, 1)
	group := uint32(1)
	groupName := "standard"

	return &Memory{
		FlavorList: []types.Flavor{
			{ID: 1, Name: "tiny", OpenStackID: "f-tiny", Group: &group, GroupName: &groupName, Weight: 1},
			{ID: 2, Name: "large", OpenStackID: "f-large", Group: &group, GroupName: &groupName, Weight: 4},
			{ID: 3, Name: "free", OpenStackID: "f-free"},
		},
		Groups: []types.FlavorGroup{
			{ID: 1, Name: "standard", Project: Alpha, Flavors: []uint32{1, 2}},
		},
		Prices: []types.FlavorPrice{
			{ID: 1, Flavor: 1, FlavorName: "tiny", UserClass: types.UserClassUC1, UnitPrice: 1000, StartTime: jan1},
			{ID: 2, Flavor: 2, FlavorName: "large", UserClass: types.UserClassUC1, UnitPrice: 4000, StartTime: jan1},
			{ID: 3, Flavor: 1, FlavorName: "tiny", UserClass: types.UserClassUC2, UnitPrice: 500, StartTime: jan1},
			{ID: 4, Flavor: 2, FlavorName: "large", UserClass: types.UserClassUC2, UnitPrice: 2000, StartTime: jan1},
			{ID: 5, Flavor: 1, FlavorName: "tiny", UserClass: types.UserClassUC1, UnitPrice: 9000, StartTime: Date(2100, time.January, 1)},
		},
		States: []types.ServerState{
			{ID: 1, Begin: jan1, End: &nov1, InstanceID: ServerAlice, InstanceName: "alice-vm", Flavor: 1, FlavorName: "tiny", Status: "ACTIVE", User: Alice, Username: "alice"},
			{ID: 2, Begin: jan1, End: &nov1, InstanceID: ServerBob, InstanceName: "bob-vm", Flavor: 1, FlavorName: "tiny", Status: "ACTIVE", User: Bob, Username: "bob"},
			{ID: 3, Begin: mar1, InstanceID: ServerCarol, InstanceName: "carol-vm", Flavor: 2, FlavorName: "large", Status: "ACTIVE", User: Carol, Username: "carol"},
		},
		UserList: []types.User{
			{ID: Alice, Name: "alice", OpenStackID: "os-alice", Project: Alpha, ProjectName: "alpha", Role: types.RoleUser, IsActive: true},
			{ID: Bob, Name: "bob", OpenStackID: "os-bob", Project: Alpha, ProjectName: "alpha", Role: types.RoleMaster, IsActive: true},
			{ID: Carol, Name: "carol", OpenStackID: "os-carol", Project: Beta, ProjectName: "beta", Role: types.RoleUser, IsActive: true},
			{ID: Admin, Name: "admin", OpenStackID: "os-admin", Project: Beta, ProjectName: "beta", Role: types.RoleUser, IsStaff: true, IsActive: true},
		},
		ProjectList: []types.Project{
			{ID: Alpha, Name: "alpha", OpenStackID: "os-alpha", UserClass: types.UserClassUC1},
			{ID: Beta, Name: "beta", OpenStackID: "os-beta", UserClass: types.UserClassUC2},
		},
		ProjectBudgets: []types.ProjectBudget{
			{ID: 1, Project: Alpha, ProjectName: "alpha", Year: 2023, Amount: 2000},
		},
		UserBudgets: []types.UserBudget{
			{ID: 1, User: Alice, Username: "alice", Year: 2023, Amount: 500},
			{ID: 2, User: Bob, Username: "bob", Year: 2023, Amount: 1000},
		},
		Quotas: []types.FlavorQuota{
			{ID: 1, User: Alice, Username: "alice", Quota: 3, FlavorGroup: 1, FlavorGroupName: "standard"},
			{ID: 2, User: Carol, Username: "carol", Quota: 8, FlavorGroup: 1, FlavorGroupName: "standard"},
		},
	}
}
