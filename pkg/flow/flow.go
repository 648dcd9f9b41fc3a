// Package flow handles parsing and representation of sapwiz YAML flow files.
package flow

// Flow represents a parsed flow file.
type Flow struct {
	SourcePath string // Path to the source file
	Config     Config // Flow configuration (name, tags, transaction, etc.)
	Steps      []Step // Steps to execute
}

// Config represents flow-level configuration.
type Config struct {
	Name           string            `yaml:"name"`
	Tags           []string          `yaml:"tags"`
	Env            map[string]string `yaml:"env"`
	Connection     int               `yaml:"connection"`  // Connection index on the scripting engine
	Session        int               `yaml:"session"`     // Session index within the connection
	Transaction    string            `yaml:"transaction"` // Started before the first step when set
	Timeout        int               `yaml:"timeout"`     // Flow timeout in ms
	OnFlowStart    []Step            `yaml:"-"`           // Lifecycle hook: runs before steps
	OnFlowComplete []Step            `yaml:"-"`           // Lifecycle hook: runs after steps
}
