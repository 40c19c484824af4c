package config

import "fmt"

// DirectoryConfig selects the responder directory backend.
type DirectoryConfig struct {
	// Backend selects the directory type: "sqlite" or "memory".
	Backend string `json:"backend"`
	// Path is the database location for the sqlite backend.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *DirectoryConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "responders.db"
	}
}

// Validate checks mandatory fields.
func (c DirectoryConfig) Validate() error {
	switch c.Backend {
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("directory path is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown directory backend %s", c.Backend)
	}
	return nil
}
