package engine

import (
	"errors"
	"testing"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/provider/mock"
)

func loginTree() *mock.Node {
	return &mock.Node{
		ID: "wnd[0]", Type: "GuiMainWindow", Width: 800, Height: 600,
		Children: []*mock.Node{
			{ID: "lblUser", Type: "GuiLabel", Text: "User", Left: 10, Top: 10, Width: 50, Height: 10},
			{ID: "txtUser", Type: "GuiTextField", Left: 70, Top: 10, Width: 120, Height: 10, Changeable: true},
			{ID: "btnLogon", Type: "GuiButton", Text: "Logon", Left: 10, Top: 40, Width: 60, Height: 12},
		},
	}
}

func newEngine(t *testing.T) (*Engine, *mock.Backend) {
	t.Helper()
	backend := mock.New(mock.Config{WindowKey: "screen-1", Windows: []*mock.Node{loginTree()}})
	return New(backend, Config{}), backend
}

func TestFindElementContentRoundTrip(t *testing.T) {
	e, _ := newEngine(t)

	snap, err := e.FindElement("=Logon")
	if err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	if snap == nil || snap.ID != "btnLogon" {
		t.Errorf("got %v, want btnLogon", snap)
	}
}

func TestFindElementByLabel(t *testing.T) {
	e, _ := newEngine(t)

	snap, err := e.FindElement("User")
	if err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	if snap == nil || snap.ID != "txtUser" {
		t.Errorf("got %v, want txtUser", snap)
	}
}

func TestFindElementAbsenceIsNotAnError(t *testing.T) {
	e, _ := newEngine(t)

	snap, err := e.FindElement("No Such Label")
	if err != nil {
		t.Fatalf("absence must not error, got %v", err)
	}
	if snap != nil {
		t.Errorf("got %v, want nil", snap)
	}
}

func TestFindElementSyntaxError(t *testing.T) {
	e, backend := newEngine(t)

	_, err := e.FindElement("   ")
	if err == nil {
		t.Fatal("empty locator must fail")
	}
	var autoErr *core.AutomationError
	if !errors.As(err, &autoErr) || autoErr.Code != "invalid_locator" {
		t.Errorf("error = %v, want invalid_locator", err)
	}
	if backend.RootCalls != 0 {
		t.Errorf("syntax errors must not trigger a scan, got %d scans", backend.RootCalls)
	}
}

func TestCacheReusedWhileKeyUnchanged(t *testing.T) {
	e, backend := newEngine(t)

	for i := 0; i < 3; i++ {
		if _, err := e.FindElement("User"); err != nil {
			t.Fatalf("FindElement error: %v", err)
		}
	}
	if backend.RootCalls != 1 {
		t.Errorf("scan count = %d, want 1 (cache must be reused)", backend.RootCalls)
	}
}

func TestCacheRescansOnKeyChange(t *testing.T) {
	e, backend := newEngine(t)

	if _, err := e.FindElement("User"); err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	backend.SetWindowKey("screen-2")
	if _, err := e.FindElement("User"); err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	if _, err := e.FindElement("User"); err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	if backend.RootCalls != 2 {
		t.Errorf("scan count = %d, want 2 (exactly one rescan per key change)", backend.RootCalls)
	}
}

func TestCacheSeesChangesAfterKeyChange(t *testing.T) {
	e, backend := newEngine(t)

	if snap, _ := e.FindElement("=Continue"); snap != nil {
		t.Fatal("button should not exist yet")
	}

	backend.Node("btnLogon").Text = "Continue"
	backend.SetWindowKey("screen-2")

	snap, err := e.FindElement("=Continue")
	if err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	if snap == nil || snap.ID != "btnLogon" {
		t.Errorf("got %v, want btnLogon after rescan", snap)
	}
}

func TestInvalidateForcesRescan(t *testing.T) {
	e, backend := newEngine(t)

	if _, err := e.FindElement("User"); err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	e.Invalidate()
	if _, err := e.FindElement("User"); err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	if backend.RootCalls != 2 {
		t.Errorf("scan count = %d, want 2 after Invalidate", backend.RootCalls)
	}
}

func TestFindElementSourceUnavailable(t *testing.T) {
	backend := mock.New(mock.Config{
		Windows: []*mock.Node{loginTree()},
		KeyErr:  errors.New("connection dropped"),
	})
	e := New(backend, Config{})

	_, err := e.FindElement("User")
	var autoErr *core.AutomationError
	if !errors.As(err, &autoErr) || autoErr.Code != "source_unavailable" {
		t.Errorf("error = %v, want source_unavailable", err)
	}
}

func TestFindElementTargetTypesOverride(t *testing.T) {
	e, _ := newEngine(t)

	// The label itself is only reachable when label types are targets.
	snap, err := e.FindElement("=User", "GuiLabel")
	if err != nil {
		t.Fatalf("FindElement error: %v", err)
	}
	if snap == nil || snap.ID != "lblUser" {
		t.Errorf("got %v, want lblUser", snap)
	}
}

func TestSnapshotExposesScan(t *testing.T) {
	e, backend := newEngine(t)

	set, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if set.Len() != 4 {
		t.Errorf("snapshot has %d elements, want 4", set.Len())
	}
	if backend.RootCalls != 1 {
		t.Errorf("scan count = %d, want 1", backend.RootCalls)
	}
}
