//go:build windows

package sapgui

import (
	"fmt"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
)

// Session is one attached scripting session. It holds COM references until
// Close is called. A Session is bound to the OS thread that attached it;
// workers must lock their goroutine to a thread before calling Attach.
type Session struct {
	app     *ole.IDispatch
	session *ole.IDispatch
	connIdx int
	sessIdx int
}

// scriptingEngine connects to the running scripting engine. The caller owns
// the returned dispatch.
func scriptingEngine() (*ole.IDispatch, error) {
	// Repeated initialization on the same thread returns S_FALSE.
	_ = ole.CoInitialize(0)

	unknown, err := oleutil.GetActiveObject("SAPGUI")
	if err != nil {
		return nil, core.ErrScriptingDisabled.WithCause(err).
			WithMessage("SAP GUI is not running or scripting is disabled")
	}
	defer unknown.Release()

	wrapper, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, core.ErrScriptingDisabled.WithCause(err)
	}
	defer wrapper.Release()

	engine, err := oleutil.CallMethod(wrapper, "GetScriptingEngine")
	if err != nil {
		return nil, core.ErrScriptingDisabled.WithCause(err)
	}
	app := engine.ToIDispatch()
	if app == nil {
		return nil, core.ErrScriptingDisabled.WithMessage("scripting engine unavailable")
	}
	return app, nil
}

// Attach binds to an existing session by connection and session index.
func Attach(connectionIndex, sessionIndex int) (*Session, error) {
	app, err := scriptingEngine()
	if err != nil {
		return nil, err
	}

	conn, err := childDispatch(app, connectionIndex)
	if err != nil {
		app.Release()
		return nil, core.ErrAttachFailed.WithCause(err).WithDetails(map[string]interface{}{
			"connection": connectionIndex,
		})
	}
	defer conn.Release()

	sess, err := childDispatch(conn, sessionIndex)
	if err != nil {
		app.Release()
		return nil, core.ErrAttachFailed.WithCause(err).WithDetails(map[string]interface{}{
			"connection": connectionIndex,
			"session":    sessionIndex,
		})
	}

	return &Session{app: app, session: sess, connIdx: connectionIndex, sessIdx: sessionIndex}, nil
}

// Connections lists every open connection and its sessions.
func Connections() ([]ConnectionInfo, error) {
	app, err := scriptingEngine()
	if err != nil {
		return nil, err
	}
	defer app.Release()

	conns, count, err := collection(app, "Children")
	if err != nil {
		return nil, core.ErrAttachFailed.WithCause(err)
	}
	defer conns.Release()

	infos := make([]ConnectionInfo, 0, count)
	for i := 0; i < count; i++ {
		conn, err := itemDispatch(conns, i)
		if err != nil {
			continue
		}
		info := ConnectionInfo{Index: i}
		info.Description, _ = stringProp(conn, "Description")
		info.Sessions = sessionInfos(conn)
		infos = append(infos, info)
		conn.Release()
	}
	return infos, nil
}

func sessionInfos(conn *ole.IDispatch) []SessionInfo {
	sessions, count, err := collection(conn, "Children")
	if err != nil {
		return nil
	}
	defer sessions.Release()

	out := make([]SessionInfo, 0, count)
	for i := 0; i < count; i++ {
		sess, err := itemDispatch(sessions, i)
		if err != nil {
			continue
		}
		si := SessionInfo{Index: i}
		si.Busy, _ = boolProp(sess, "Busy")
		if infoVar, err := oleutil.GetProperty(sess, "Info"); err == nil {
			if info := infoVar.ToIDispatch(); info != nil {
				si.SystemName, _ = stringProp(info, "SystemName")
				si.Client, _ = stringProp(info, "Client")
				si.User, _ = stringProp(info, "User")
				si.Transaction, _ = stringProp(info, "Transaction")
				info.Release()
			}
		}
		out = append(out, si)
		sess.Release()
	}
	return out
}

// FindSession attaches to the first session matching the given system ID
// and user. Empty arguments match anything.
func FindSession(sid, user string) (*Session, error) {
	infos, err := Connections()
	if err != nil {
		return nil, err
	}
	for _, conn := range infos {
		for _, sess := range conn.Sessions {
			if sid != "" && !strings.EqualFold(sess.SystemName, sid) {
				continue
			}
			if user != "" && !strings.EqualFold(sess.User, user) {
				continue
			}
			return Attach(conn.Index, sess.Index)
		}
	}
	return nil, core.ErrAttachFailed.WithMessage("no matching session").WithDetails(map[string]interface{}{
		"sid":  sid,
		"user": user,
	})
}

// OpenNewWindow opens a follow-on session in a new window.
func (s *Session) OpenNewWindow() error {
	if _, err := oleutil.CallMethod(s.session, "createSession"); err != nil {
		return core.ErrAttachFailed.WithCause(err).WithMessage("could not create a new session")
	}
	return nil
}

// ConnectionIndex returns the connection index the session was attached with.
func (s *Session) ConnectionIndex() int { return s.connIdx }

// SessionIndex returns the session index the session was attached with.
func (s *Session) SessionIndex() int { return s.sessIdx }

// Close releases the COM references held by the session.
func (s *Session) Close() {
	if s.session != nil {
		s.session.Release()
		s.session = nil
	}
	if s.app != nil {
		s.app.Release()
		s.app = nil
	}
}

// ActiveWindowKey implements core.Provider. The key combines the active
// window ID with the transaction, program and screen number, so both popup
// windows and in-place screen changes rotate it.
func (s *Session) ActiveWindowKey() (string, error) {
	winVar, err := oleutil.GetProperty(s.session, "ActiveWindow")
	if err != nil {
		return "", fmt.Errorf("active window: %w", err)
	}
	win := winVar.ToIDispatch()
	if win == nil {
		return "", fmt.Errorf("active window unavailable")
	}
	defer win.Release()

	windowID, err := stringProp(win, "Id")
	if err != nil {
		return "", fmt.Errorf("active window id: %w", err)
	}

	infoVar, err := oleutil.GetProperty(s.session, "Info")
	if err != nil {
		return windowID, nil
	}
	info := infoVar.ToIDispatch()
	if info == nil {
		return windowID, nil
	}
	defer info.Release()

	transaction, _ := stringProp(info, "Transaction")
	program, _ := stringProp(info, "Program")
	screen, _ := stringProp(info, "ScreenNumber")
	return fmt.Sprintf("%s|%s|%s|%s", windowID, transaction, program, screen), nil
}

// RootHandle implements core.Provider.
func (s *Session) RootHandle(windowIndex int) (string, error) {
	id := fmt.Sprintf("wnd[%d]", windowIndex)
	obj, err := s.findByID(id)
	if err != nil {
		return "", err
	}
	obj.Release()
	return id, nil
}

// EnumerateChildren implements core.Provider. Leaf controls report no
// children instead of failing.
func (s *Session) EnumerateChildren(id string) ([]string, error) {
	obj, err := s.findByID(id)
	if err != nil {
		return nil, err
	}
	defer obj.Release()

	children, count, err := collection(obj, "Children")
	if err != nil {
		return nil, nil
	}
	defer children.Release()

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		item, err := itemDispatch(children, i)
		if err != nil {
			continue
		}
		childID, err := stringProp(item, "Id")
		item.Release()
		if err != nil {
			continue
		}
		ids = append(ids, childID)
	}
	return ids, nil
}

// GetProperty implements core.Provider. Dotted names traverse sub-objects.
func (s *Session) GetProperty(id, name string) (any, error) {
	obj, err := s.findByID(id)
	if err != nil {
		return nil, err
	}
	defer obj.Release()

	parts := strings.Split(name, ".")
	current := obj
	ownsCurrent := false
	for i, part := range parts {
		v, err := oleutil.GetProperty(current, comName(part))
		if ownsCurrent {
			current.Release()
			ownsCurrent = false
		}
		if err != nil {
			return nil, fmt.Errorf("property %s of %s: %w", name, id, err)
		}
		if i == len(parts)-1 {
			return variantValue(v), nil
		}
		current = v.ToIDispatch()
		if current == nil {
			return nil, fmt.Errorf("property %s of %s is not an object", part, id)
		}
		ownsCurrent = true
	}
	return nil, fmt.Errorf("empty property name for %s", id)
}

// SetProperty implements core.Actuator. Dotted names traverse sub-objects.
func (s *Session) SetProperty(id, name string, value any) error {
	obj, err := s.findByID(id)
	if err != nil {
		return err
	}
	defer obj.Release()

	parts := strings.Split(name, ".")
	current := obj
	ownsCurrent := false
	for _, part := range parts[:len(parts)-1] {
		v, err := oleutil.GetProperty(current, comName(part))
		if ownsCurrent {
			current.Release()
			ownsCurrent = false
		}
		if err != nil {
			return fmt.Errorf("property %s of %s: %w", name, id, err)
		}
		current = v.ToIDispatch()
		if current == nil {
			return fmt.Errorf("property %s of %s is not an object", part, id)
		}
		ownsCurrent = true
	}
	_, err = oleutil.PutProperty(current, comName(parts[len(parts)-1]), value)
	if ownsCurrent {
		current.Release()
	}
	if err != nil {
		return fmt.Errorf("set property %s of %s: %w", name, id, err)
	}
	return nil
}

// Call implements core.Actuator. An empty ID addresses the session itself.
func (s *Session) Call(id, method string, args ...any) (any, error) {
	obj, err := s.findByID(id)
	if err != nil {
		return nil, err
	}
	defer obj.Release()

	v, err := oleutil.CallMethod(obj, method, args...)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, id, err)
	}
	return variantValue(v), nil
}

// findByID resolves a scripting ID to a dispatch the caller must release.
func (s *Session) findByID(id string) (*ole.IDispatch, error) {
	if id == "" {
		s.session.AddRef()
		return s.session, nil
	}
	v, err := oleutil.CallMethod(s.session, "findById", id)
	if err != nil {
		return nil, fmt.Errorf("findById %s: %w", id, err)
	}
	obj := v.ToIDispatch()
	if obj == nil {
		return nil, fmt.Errorf("findById %s returned no object", id)
	}
	return obj, nil
}

func childDispatch(parent *ole.IDispatch, index int) (*ole.IDispatch, error) {
	v, err := oleutil.CallMethod(parent, "Children", index)
	if err != nil {
		return nil, err
	}
	d := v.ToIDispatch()
	if d == nil {
		return nil, fmt.Errorf("child %d is not an object", index)
	}
	return d, nil
}

// collection reads a collection property and its count. The caller releases
// the returned dispatch.
func collection(parent *ole.IDispatch, name string) (*ole.IDispatch, int, error) {
	v, err := oleutil.GetProperty(parent, name)
	if err != nil {
		return nil, 0, err
	}
	d := v.ToIDispatch()
	if d == nil {
		return nil, 0, fmt.Errorf("property %s is not a collection", name)
	}
	countVar, err := oleutil.GetProperty(d, "Count")
	if err != nil {
		d.Release()
		return nil, 0, err
	}
	return d, variantInt(countVar), nil
}

func itemDispatch(coll *ole.IDispatch, index int) (*ole.IDispatch, error) {
	v, err := oleutil.CallMethod(coll, "Item", index)
	if err != nil {
		return nil, err
	}
	d := v.ToIDispatch()
	if d == nil {
		return nil, fmt.Errorf("item %d is not an object", index)
	}
	return d, nil
}

func stringProp(d *ole.IDispatch, name string) (string, error) {
	v, err := oleutil.GetProperty(d, name)
	if err != nil {
		return "", err
	}
	value := v.Value()
	if value == nil {
		return "", nil
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

func boolProp(d *ole.IDispatch, name string) (bool, error) {
	v, err := oleutil.GetProperty(d, name)
	if err != nil {
		return false, err
	}
	b, _ := v.Value().(bool)
	return b, nil
}

// variantValue converts a VARIANT into a plain Go value. Dispatch results
// are flattened into string slices when they look like collections.
func variantValue(v *ole.VARIANT) any {
	if v == nil {
		return nil
	}
	if v.VT == ole.VT_DISPATCH {
		d := v.ToIDispatch()
		if d == nil {
			return nil
		}
		defer d.Release()
		return collectionValues(d)
	}
	return v.Value()
}

func collectionValues(d *ole.IDispatch) any {
	countVar, err := oleutil.GetProperty(d, "Count")
	if err != nil {
		return nil
	}
	count := variantInt(countVar)
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		item, err := oleutil.CallMethod(d, "Item", i)
		if err != nil {
			continue
		}
		value := item.Value()
		if value == nil {
			continue
		}
		out = append(out, fmt.Sprint(value))
	}
	return out
}

func variantInt(v *ole.VARIANT) int {
	switch value := v.Value().(type) {
	case int:
		return value
	case int16:
		return int(value)
	case int32:
		return int(value)
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return 0
	}
}
