package schema

// ManagementConfig contains management API configuration
type ManagementConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}
