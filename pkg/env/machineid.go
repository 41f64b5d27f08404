package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves the ID identifying the machine, hashed for this
// application so the raw ID doesn't appear on the broker. Falls back
// to the hostname.
func MachineID() string {
	id, err := machineid.ProtectedID("radiolink")
	if err == nil {
		return id[:12]
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "radio"
}
