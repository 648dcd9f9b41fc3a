// Package sapgui attaches to the SAP GUI scripting interface over COM.
//
// The implementation is Windows only. On other platforms the constructors
// return ErrScriptingDisabled so the rest of the toolchain still builds and
// runs against the mock backend.
package sapgui

import "github.com/scriptwizard-dev/sapwiz-runner/pkg/core"

var _ core.Backend = (*Session)(nil)

// SessionInfo describes one session of an open connection.
type SessionInfo struct {
	Index       int    `json:"index" yaml:"index"`
	SystemName  string `json:"systemName,omitempty" yaml:"systemName,omitempty"`
	Client      string `json:"client,omitempty" yaml:"client,omitempty"`
	User        string `json:"user,omitempty" yaml:"user,omitempty"`
	Transaction string `json:"transaction,omitempty" yaml:"transaction,omitempty"`
	Busy        bool   `json:"busy,omitempty" yaml:"busy,omitempty"`
}

// ConnectionInfo describes one open connection and its sessions.
type ConnectionInfo struct {
	Index       int           `json:"index" yaml:"index"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Sessions    []SessionInfo `json:"sessions" yaml:"sessions"`
}

// comNames maps canonical property names to their scripting counterparts
// where the two differ. Geometry uses screen coordinates so elements from
// different containers stay comparable.
var comNames = map[string]string{
	core.PropLeft: "ScreenLeft",
	core.PropTop:  "ScreenTop",
}

func comName(name string) string {
	if mapped, ok := comNames[name]; ok {
		return mapped
	}
	return name
}
