// Package schema defines configuration structure types
package schema

// Root is the top-level configuration structure
type Root struct {
	Responder  ResponderConfig  `yaml:"responder" json:"responder"`
	Prober     ProberConfig     `yaml:"prober" json:"prober"`
	Management ManagementConfig `yaml:"management" json:"management"`
	Log        LogConfig        `yaml:"log" json:"log"`
}
