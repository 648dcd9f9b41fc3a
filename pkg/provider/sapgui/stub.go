//go:build !windows

package sapgui

import "github.com/scriptwizard-dev/sapwiz-runner/pkg/core"

// Session is a placeholder on platforms without the scripting interface.
type Session struct{}

func errUnsupported() error {
	return core.ErrScriptingDisabled.WithMessage("SAP GUI scripting requires Windows")
}

// Attach always fails off Windows.
func Attach(connectionIndex, sessionIndex int) (*Session, error) {
	return nil, errUnsupported()
}

// Connections always fails off Windows.
func Connections() ([]ConnectionInfo, error) {
	return nil, errUnsupported()
}

// FindSession always fails off Windows.
func FindSession(sid, user string) (*Session, error) {
	return nil, errUnsupported()
}

func (s *Session) ActiveWindowKey() (string, error)             { return "", errUnsupported() }
func (s *Session) RootHandle(windowIndex int) (string, error)   { return "", errUnsupported() }
func (s *Session) EnumerateChildren(id string) ([]string, error) { return nil, errUnsupported() }
func (s *Session) GetProperty(id, name string) (any, error)     { return nil, errUnsupported() }
func (s *Session) SetProperty(id, name string, value any) error { return errUnsupported() }
func (s *Session) Call(id, method string, args ...any) (any, error) {
	return nil, errUnsupported()
}

// OpenNewWindow always fails off Windows.
func (s *Session) OpenNewWindow() error { return errUnsupported() }

// ConnectionIndex returns zero off Windows.
func (s *Session) ConnectionIndex() int { return 0 }

// SessionIndex returns zero off Windows.
func (s *Session) SessionIndex() int { return 0 }

// Close is a no-op off Windows.
func (s *Session) Close() {}
