package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// UserClass is the tariff tier of a project. Every user of a project is
// billed with the project's class.
type UserClass int

const (
	UserClassNA UserClass = iota
	UserClassUC1
	UserClassUC2
	UserClassUC3
	UserClassUC4
	UserClassUC5
	UserClassUC6
)

// UserClasses lists every tariff tier in ascending order
var UserClasses = []UserClass{
	UserClassNA,
	UserClassUC1,
	UserClassUC2,
	UserClassUC3,
	UserClassUC4,
	UserClassUC5,
	UserClassUC6,
}

var userClassNames = [...]string{"NA", "UC1", "UC2", "UC3", "UC4", "UC5", "UC6"}

// IsValid checks if the class is a known tier
func (c UserClass) IsValid() bool {
	return c >= UserClassNA && c <= UserClassUC6
}

func (c UserClass) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("UserClass(%d)", int(c))
	}
	return userClassNames[c]
}

// ParseUserClass accepts either the tier name ("UC3") or its number ("3")
func ParseUserClass(s string) (UserClass, error) {
	for i, name := range userClassNames {
		if s == name {
			return UserClass(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		if c := UserClass(n); c.IsValid() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid user class %q", s)
}

// MarshalJSON encodes the class by name
func (c UserClass) MarshalJSON() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid user class %d", int(c))
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts the name or the number of a class
func (c *UserClass) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if !UserClass(n).IsValid() {
			return fmt.Errorf("invalid user class %d", n)
		}
		*c = UserClass(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode user class: %w", err)
	}
	parsed, err := ParseUserClass(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalText lets YAML and query decoders read a class
func (c *UserClass) UnmarshalText(text []byte) error {
	parsed, err := ParseUserClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UserRole is the role number synced from the identity provider
type UserRole uint32

const (
	RoleUser   UserRole = 1
	RoleMaster UserRole = 2
)

// User is an OpenStack user known to the accounting service
type User struct {
	ID          uint32   `json:"id"`
	Name        string   `json:"name"`
	OpenStackID string   `json:"openstack_id"`
	Project     uint32   `json:"project"`
	ProjectName string   `json:"project_name"`
	Role        UserRole `json:"role"`
	IsStaff     bool     `json:"is_staff"`
	IsActive    bool     `json:"is_active"`
}

// IsMasterOf reports whether the user administers the given project
func (u *User) IsMasterOf(projectID uint32) bool {
	return u.Role == RoleMaster && u.Project == projectID
}

// Project is an OpenStack project with its tariff tier
type Project struct {
	ID          uint32    `json:"id"`
	Name        string    `json:"name"`
	OpenStackID string    `json:"openstack_id"`
	UserClass   UserClass `json:"user_class"`
}
