package plugin

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// uidNamespace scopes name-based plugin UIDs
var uidNamespace = uuid.MustParse("6f1c2a5e-8d3b-4c7a-9e21-53a0b7d4c810")

// Info contains plugin metadata
type Info struct {
	ID          string // Unique plugin identifier (e.g., "com.example.myplugin")
	Name        string // Display name
	Version     string // Semantic version (e.g., "1.0.0")
	Vendor      string // Company/developer name
	Category    string // Plugin category (e.g., "Instrument|Sampler")
	HasEditor   bool
	AcceptsMIDI bool
}

// UID derives a stable 16-byte class ID from the string ID (UUID version 5)
func (i Info) UID() [16]byte {
	return uuid.NewSHA1(uidNamespace, []byte(i.ID))
}

// UIDString returns the UID in canonical UUID form
func (i Info) UIDString() string {
	return uuid.UUID(i.UID()).String()
}

// ValidateUID checks that a UID can be derived
func (i Info) ValidateUID() error {
	if i.ID == "" {
		return errors.New("plugin ID must not be empty")
	}
	return nil
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", i.Name, i.Version, i.Vendor, i.UIDString())
}
