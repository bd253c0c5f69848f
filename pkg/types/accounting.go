package types

import (
	"time"

	"github.com/google/uuid"
)

// ServerState binds one server instance to one flavor and one owner for the
// half-open interval [Begin, End). End is nil while the state is still open.
type ServerState struct {
	ID           uint32     `json:"id"`
	Begin        time.Time  `json:"begin"`
	End          *time.Time `json:"end"`
	InstanceID   uuid.UUID  `json:"instance_id"`
	InstanceName string     `json:"instance_name"`
	Flavor       uint32     `json:"flavor"`
	FlavorName   string     `json:"flavor_name"`
	Status       string     `json:"status"`
	User         uint32     `json:"user"`
	Username     string     `json:"username"`
}

// ServerCostSimple is the normal (total only) cost shape
type ServerCostSimple struct {
	Total float64 `json:"total"`
}

// ServerCostServer is the detailed cost of one server
type ServerCostServer struct {
	Total   float64            `json:"total"`
	Flavors map[string]float64 `json:"flavors"`
}

// ServerCostUser is the detailed cost of one user, keyed by server
type ServerCostUser struct {
	Total   float64                         `json:"total"`
	Flavors map[string]float64              `json:"flavors"`
	Servers map[uuid.UUID]*ServerCostServer `json:"servers"`
}

// ServerCostProject is the detailed cost of one project, keyed by user name
type ServerCostProject struct {
	Total   float64                    `json:"total"`
	Flavors map[string]float64         `json:"flavors"`
	Users   map[string]*ServerCostUser `json:"users"`
}

// ServerCostAll is the detailed cost of the whole cloud, keyed by project name
type ServerCostAll struct {
	Total    float64                       `json:"total"`
	Flavors  map[string]float64            `json:"flavors"`
	Projects map[string]*ServerCostProject `json:"projects"`
}

// ServerCostParams selects the scope and window of a cost query
type ServerCostParams struct {
	Begin   *time.Time
	End     *time.Time
	Server  *uuid.UUID
	User    *uint32 `validate:"omitempty,gt=0"`
	Project *uint32 `validate:"omitempty,gt=0"`
	All     bool
	Detail  bool
}

// ServerConsumptionFlavors maps flavor names to occupancy seconds
type ServerConsumptionFlavors map[string]float64

// ServerConsumptionUser is the detailed consumption of one user
type ServerConsumptionUser struct {
	Total   ServerConsumptionFlavors               `json:"total"`
	Servers map[uuid.UUID]ServerConsumptionFlavors `json:"servers"`
}

// ServerConsumptionProject is the detailed consumption of one project
type ServerConsumptionProject struct {
	Total ServerConsumptionFlavors          `json:"total"`
	Users map[string]*ServerConsumptionUser `json:"users"`
}

// ServerConsumptionAll is the detailed consumption of the whole cloud
type ServerConsumptionAll struct {
	Total    ServerConsumptionFlavors             `json:"total"`
	Projects map[string]*ServerConsumptionProject `json:"projects"`
}

// ServerConsumptionParams selects the scope and window of a consumption query
type ServerConsumptionParams = ServerCostParams
