// Package window is the action layer over one attached session window.
//
// Methods taking a locator resolve it through the element engine and
// convert absence into ErrElementNotFound; the engine itself never fails
// for absence. Methods with the ID suffix act on a known scripting ID
// directly. Each Window owns its own engine, so one session worker never
// shares snapshot state with another.
package window

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/engine"
)

// Per-action default target types. An explicit types argument on an action
// replaces its default set.
var (
	PressTypes        = []string{"GuiButton", "GuiTab"}
	WriteTypes        = []string{"GuiTextField", "GuiCTextField", "GuiPasswordField", "GuiComboBox"}
	ReadTypes         = []string{"GuiTextField", "GuiCTextField", "GuiPasswordField", "GuiComboBox", "GuiLabel"}
	SelectTypes       = []string{"GuiCheckBox", "GuiRadioButton", "GuiTab", "GuiMenu"}
	SelectedReadTypes = []string{"GuiCheckBox", "GuiRadioButton"}
	CheckboxTypes     = []string{"GuiCheckBox"}
)

// Default status bar polling parameters.
const (
	DefaultStatusBarTimeout  = 5 * time.Second
	DefaultStatusBarInterval = 250 * time.Millisecond
)

// NavigateAction is a fixed virtual-key shortcut.
type NavigateAction string

const (
	NavigateEnter  NavigateAction = "enter"
	NavigateBack   NavigateAction = "back"
	NavigateEnd    NavigateAction = "end"
	NavigateCancel NavigateAction = "cancel"
	NavigateSave   NavigateAction = "save"
)

// VKey returns the virtual key code sent for the action.
func (a NavigateAction) VKey() (int, bool) {
	switch a {
	case NavigateEnter:
		return 0, true
	case NavigateBack:
		return 3, true
	case NavigateSave:
		return 11, true
	case NavigateCancel:
		return 12, true
	case NavigateEnd:
		return 15, true
	default:
		return 0, false
	}
}

// StatusBar is one status bar message. Kind is one of S (success),
// W (warning), E (error), A (abort) or I (information).
type StatusBar struct {
	Kind string
	Text string
}

// IsError reports whether the message kind aborts the current operation.
func (s StatusBar) IsError() bool {
	return s.Kind == "E" || s.Kind == "A"
}

// Config controls a Window.
type Config struct {
	Index  int           // Window index (wnd[N])
	Engine engine.Config // Element engine settings
}

// Window drives one attached session window.
type Window struct {
	backend core.Backend
	engine  *engine.Engine
	index   int
}

// New creates the action layer over one attached session.
func New(backend core.Backend, cfg Config) *Window {
	engCfg := cfg.Engine
	engCfg.WindowIndex = cfg.Index
	return &Window{
		backend: backend,
		engine:  engine.New(backend, engCfg),
		index:   cfg.Index,
	}
}

// ID returns the scripting ID of the window itself.
func (w *Window) ID() string {
	return fmt.Sprintf("wnd[%d]", w.index)
}

// FindElement resolves a locator without acting on it. Absence returns
// (nil, nil), matching the engine contract.
func (w *Window) FindElement(loc string, types ...string) (*core.ElementSnapshot, error) {
	return w.engine.FindElement(loc, types...)
}

// Snapshot returns the current element snapshot of the window.
func (w *Window) Snapshot() (*core.SnapshotSet, error) {
	return w.engine.Snapshot()
}

// Invalidate drops the engine's cached snapshot.
func (w *Window) Invalidate() {
	w.engine.Invalidate()
}

// find resolves a locator and converts absence into ErrElementNotFound.
func (w *Window) find(loc string, types []string) (*core.ElementSnapshot, error) {
	snap, err := w.engine.FindElement(loc, types...)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, core.ErrElementNotFound.WithDetails(map[string]interface{}{
			"locator": loc,
		})
	}
	return snap, nil
}

// Exists reports whether the locator resolves to an element. Absence is a
// plain false, never an error.
func (w *Window) Exists(loc string, types ...string) (bool, error) {
	snap, err := w.engine.FindElement(loc, types...)
	if err != nil {
		return false, err
	}
	return snap != nil, nil
}

// ExistsID reports whether an element with the given scripting ID is
// present. An ID whose type cannot be read counts as absent.
func (w *Window) ExistsID(id string) bool {
	_, err := w.backend.GetProperty(id, core.PropType)
	return err == nil
}

// Press presses a button or tab.
func (w *Window) Press(loc string, types ...string) error {
	snap, err := w.find(loc, defaultTypes(types, PressTypes))
	if err != nil {
		return err
	}
	return w.PressID(snap.ID)
}

// PressID presses the element with the given scripting ID.
func (w *Window) PressID(id string) error {
	if _, err := w.backend.Call(id, "press"); err != nil {
		return actionFailed("press", id, err)
	}
	return nil
}

// Write sets the text of a changeable input element.
func (w *Window) Write(loc, text string, types ...string) error {
	snap, err := w.find(loc, defaultTypes(types, WriteTypes))
	if err != nil {
		return err
	}
	if !snap.Changeable {
		return core.ErrElementNotChangeable.WithDetails(map[string]interface{}{
			"locator": loc,
			"id":      snap.ID,
		})
	}
	return w.WriteID(snap.ID, text)
}

// WriteID sets the text of the element with the given scripting ID.
func (w *Window) WriteID(id, text string) error {
	if err := w.backend.SetProperty(id, core.PropText, text); err != nil {
		return actionFailed("write", id, err)
	}
	return nil
}

// Read returns the current text of an element.
func (w *Window) Read(loc string, types ...string) (string, error) {
	snap, err := w.find(loc, defaultTypes(types, ReadTypes))
	if err != nil {
		return "", err
	}
	return w.ReadID(snap.ID)
}

// ReadID returns the current text of the element with the given ID.
func (w *Window) ReadID(id string) (string, error) {
	return w.stringProp(id, core.PropText)
}

// Select selects a checkbox, radio button, tab or menu entry.
func (w *Window) Select(loc string, types ...string) error {
	snap, err := w.find(loc, defaultTypes(types, SelectTypes))
	if err != nil {
		return err
	}
	return w.SelectID(snap.ID)
}

// SelectID selects the element with the given scripting ID. Checkboxes are
// set through their selected property; everything else uses the select
// method of the scripting interface.
func (w *Window) SelectID(id string) error {
	typ, err := w.stringProp(id, core.PropType)
	if err != nil {
		return err
	}
	if typ == "GuiCheckBox" {
		if err := w.backend.SetProperty(id, "selected", true); err != nil {
			return actionFailed("select", id, err)
		}
		return nil
	}
	if _, err := w.backend.Call(id, "select"); err != nil {
		return actionFailed("select", id, err)
	}
	return nil
}

// IsSelected reports whether a checkbox or radio button is selected.
func (w *Window) IsSelected(loc string, types ...string) (bool, error) {
	snap, err := w.find(loc, defaultTypes(types, SelectedReadTypes))
	if err != nil {
		return false, err
	}
	return w.boolProp(snap.ID, "selected")
}

// SetCheckbox sets a checkbox to the given state.
func (w *Window) SetCheckbox(loc string, checked bool, types ...string) error {
	snap, err := w.find(loc, defaultTypes(types, CheckboxTypes))
	if err != nil {
		return err
	}
	return w.SetCheckboxID(snap.ID, checked)
}

// SetCheckboxID sets the checkbox with the given scripting ID.
func (w *Window) SetCheckboxID(id string, checked bool) error {
	if err := w.backend.SetProperty(id, "selected", checked); err != nil {
		return actionFailed("setCheckbox", id, err)
	}
	return nil
}

// IsChangeable reports whether the element accepts input.
func (w *Window) IsChangeable(loc string, types ...string) (bool, error) {
	snap, err := w.find(loc, defaultTypes(types, ReadTypes))
	if err != nil {
		return false, err
	}
	return snap.Changeable, nil
}

// IsChangeableID reports whether the element with the given ID accepts input.
func (w *Window) IsChangeableID(id string) (bool, error) {
	return w.boolProp(id, core.PropChangeable)
}

// GetElementProperty reads an arbitrary property of a located element.
func (w *Window) GetElementProperty(loc, name string, types ...string) (any, error) {
	snap, err := w.find(loc, types)
	if err != nil {
		return nil, err
	}
	raw, err := w.backend.GetProperty(snap.ID, name)
	if err != nil {
		return nil, core.ErrPropertyUnavailable.WithCause(err).WithDetails(map[string]interface{}{
			"id":       snap.ID,
			"property": name,
		})
	}
	return raw, nil
}

// SetElementProperty writes an arbitrary property of a located element.
// Dotted names address sub-objects of the element.
func (w *Window) SetElementProperty(loc, name string, value any, types ...string) error {
	snap, err := w.find(loc, types)
	if err != nil {
		return err
	}
	if err := w.backend.SetProperty(snap.ID, name, value); err != nil {
		return core.ErrPropertyUnavailable.WithCause(err).WithDetails(map[string]interface{}{
			"id":       snap.ID,
			"property": name,
		})
	}
	return nil
}

// ScrollVertically moves the vertical scrollbar of a container element.
func (w *Window) ScrollVertically(loc string, position int, types ...string) error {
	return w.SetElementProperty(loc, "verticalScrollbar.position", position, types...)
}

// ScrollVerticallyID moves the vertical scrollbar of the element with the
// given scripting ID.
func (w *Window) ScrollVerticallyID(id string, position int) error {
	if err := w.backend.SetProperty(id, "verticalScrollbar.position", position); err != nil {
		return actionFailed("scroll", id, err)
	}
	return nil
}

// SendVKey sends a virtual key to the window.
func (w *Window) SendVKey(code int) error {
	if _, err := w.backend.Call(w.ID(), "sendVKey", code); err != nil {
		return actionFailed("sendVKey", w.ID(), err)
	}
	return nil
}

// Navigate sends the virtual key bound to a navigation action.
func (w *Window) Navigate(action NavigateAction) error {
	code, ok := action.VKey()
	if !ok {
		return core.NewAutomationError(core.ErrCategoryAction, "unknown_navigate",
			fmt.Sprintf("unknown navigate action %q", action))
	}
	return w.SendVKey(code)
}

// Maximize maximizes the window.
func (w *Window) Maximize() error {
	if _, err := w.backend.Call(w.ID(), "maximize"); err != nil {
		return actionFailed("maximize", w.ID(), err)
	}
	return nil
}

// Close closes the window.
func (w *Window) Close() error {
	if _, err := w.backend.Call(w.ID(), "close"); err != nil {
		return actionFailed("close", w.ID(), err)
	}
	return nil
}

// Screenshot saves a hardcopy of the window to the given path.
func (w *Window) Screenshot(path string) error {
	if _, err := w.backend.Call(w.ID(), "hardCopy", path); err != nil {
		return actionFailed("screenshot", w.ID(), err)
	}
	return nil
}

// DumpElements writes the current snapshot set to a file. Format is
// "yaml" (the default) or "json".
func (w *Window) DumpElements(path, format string) error {
	set, err := w.Snapshot()
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "json":
		data, err = json.MarshalIndent(set, "", "  ")
	case "", "yaml":
		data, err = yaml.Marshal(set)
	default:
		return core.ErrInvalidConfig.WithDetails(map[string]interface{}{
			"format": format,
		})
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StartTransaction starts a transaction on the session and fails when the
// status bar reports an error afterwards.
func (w *Window) StartTransaction(code string) error {
	if _, err := w.backend.Call("", "startTransaction", code); err != nil {
		return core.ErrTransactionFailed.WithCause(err).WithDetails(map[string]interface{}{
			"transaction": code,
		})
	}
	w.engine.Invalidate()
	if sb, err := w.ReadStatusBar(); err == nil && sb.IsError() {
		return core.ErrTransactionFailed.WithDetails(map[string]interface{}{
			"transaction": code,
			"statusbar":   sb.Text,
		})
	}
	return nil
}

// EndTransaction ends the current transaction.
func (w *Window) EndTransaction() error {
	if _, err := w.backend.Call("", "endTransaction"); err != nil {
		return core.ErrTransactionFailed.WithCause(err)
	}
	w.engine.Invalidate()
	return nil
}

// ReadStatusBar returns the current status bar message.
func (w *Window) ReadStatusBar() (StatusBar, error) {
	id := fmt.Sprintf("wnd[%d]/sbar", w.index)
	kind, err := w.stringProp(id, "messageType")
	if err != nil {
		return StatusBar{}, err
	}
	text, err := w.stringProp(id, core.PropText)
	if err != nil {
		return StatusBar{}, err
	}
	return StatusBar{Kind: kind, Text: text}, nil
}

// AssertStatusBar polls the status bar until it shows a message of the
// given kind (optionally containing a substring) or the timeout elapses.
// Polling lives here in the action layer; the element engine never waits.
func (w *Window) AssertStatusBar(kind, contains string, timeout, interval time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultStatusBarTimeout
	}
	if interval <= 0 {
		interval = DefaultStatusBarInterval
	}

	deadline := time.Now().Add(timeout)
	var last StatusBar
	for {
		sb, err := w.ReadStatusBar()
		if err == nil {
			last = sb
			if sb.Kind == kind && (contains == "" || strings.Contains(sb.Text, contains)) {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return core.ErrStatusBarTimeout.WithDetails(map[string]interface{}{
				"wantKind":     kind,
				"wantContains": contains,
				"lastKind":     last.Kind,
				"lastText":     last.Text,
			})
		}
		time.Sleep(interval)
	}
}

// SelectMenu walks the menu bar along the given path of entry texts and
// selects the final entry.
func (w *Window) SelectMenu(path ...string) error {
	if len(path) == 0 {
		return core.ErrMenuNotFound.WithMessage("empty menu path")
	}

	current := fmt.Sprintf("wnd[%d]/mbar", w.index)
	for _, segment := range path {
		children, err := w.backend.EnumerateChildren(current)
		if err != nil {
			return core.ErrMenuNotFound.WithCause(err).WithDetails(map[string]interface{}{
				"entry": segment,
			})
		}
		next := ""
		for _, child := range children {
			text, err := w.stringProp(child, core.PropText)
			if err != nil {
				continue
			}
			if text == segment {
				next = child
				break
			}
		}
		if next == "" {
			return core.ErrMenuNotFound.WithDetails(map[string]interface{}{
				"entry": segment,
				"path":  strings.Join(path, " > "),
			})
		}
		current = next
	}

	if _, err := w.backend.Call(current, "select"); err != nil {
		return actionFailed("selectMenu", current, err)
	}
	return nil
}

func (w *Window) stringProp(id, name string) (string, error) {
	raw, err := w.backend.GetProperty(id, name)
	if err != nil {
		return "", core.ErrPropertyUnavailable.WithCause(err).WithDetails(map[string]interface{}{
			"id":       id,
			"property": name,
		})
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (w *Window) boolProp(id, name string) (bool, error) {
	raw, err := w.backend.GetProperty(id, name)
	if err != nil {
		return false, core.ErrPropertyUnavailable.WithCause(err).WithDetails(map[string]interface{}{
			"id":       id,
			"property": name,
		})
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return v == "true" || v == "True" || v == "X", nil
	case int:
		return v != 0, nil
	default:
		return false, nil
	}
}

func actionFailed(op, id string, err error) error {
	return core.NewAutomationError(core.ErrCategoryAction, op+"_failed", op+" failed").
		WithCause(err).
		WithDetails(map[string]interface{}{"id": id})
}

func defaultTypes(override, def []string) []string {
	if len(override) > 0 {
		return override
	}
	return def
}
