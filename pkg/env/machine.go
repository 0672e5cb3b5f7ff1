package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "telechain"

// MachineID retrieves an ID identifying the machine, hashed with the
// application name so the raw machine ID isn't published.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return "unknown"
	}
	return id[:16]
}
