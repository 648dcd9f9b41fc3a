package scanner

import (
	"errors"
	"testing"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/provider/mock"
)

func demoTree() *mock.Node {
	return &mock.Node{
		ID: "wnd[0]", Type: "GuiMainWindow", Width: 800, Height: 600,
		Children: []*mock.Node{
			{
				ID: "wnd[0]/usr", Type: "GuiUserArea", Width: 800, Height: 560,
				Children: []*mock.Node{
					{ID: "wnd[0]/usr/lblUser", Type: "GuiLabel", Text: "User", Left: 10, Top: 10, Width: 50, Height: 10},
					{ID: "wnd[0]/usr/txtUser", Type: "GuiTextField", Left: 70, Top: 10, Width: 120, Height: 10, Changeable: true},
				},
			},
			{ID: "wnd[0]/tbar[0]", Type: "GuiToolbar", Top: 570, Width: 800, Height: 20},
		},
	}
}

func TestScanOrderIsBreadthFirst(t *testing.T) {
	backend := mock.New(mock.Config{WindowKey: "screen-1", Windows: []*mock.Node{demoTree()}})
	s := New(backend, Config{})

	set, err := s.Scan(0)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	wantOrder := []string{
		"wnd[0]",
		"wnd[0]/usr",
		"wnd[0]/tbar[0]",
		"wnd[0]/usr/lblUser",
		"wnd[0]/usr/txtUser",
	}
	if len(set.Elements) != len(wantOrder) {
		t.Fatalf("got %d elements, want %d", len(set.Elements), len(wantOrder))
	}
	for i, want := range wantOrder {
		if set.Elements[i].ID != want {
			t.Errorf("element[%d].ID = %q, want %q", i, set.Elements[i].ID, want)
		}
	}
	if set.WindowKey != "screen-1" {
		t.Errorf("WindowKey = %q, want screen-1", set.WindowKey)
	}
}

func TestScanDepthBound(t *testing.T) {
	backend := mock.New(mock.Config{Windows: []*mock.Node{demoTree()}})
	s := New(backend, Config{MaxDepth: 1})

	set, err := s.Scan(0)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	for _, el := range set.Elements {
		if el.ID == "wnd[0]/usr/txtUser" {
			t.Error("depth-2 element should not be scanned with MaxDepth 1")
		}
	}
	if set.Len() != 3 {
		t.Errorf("got %d elements, want 3 (root plus direct children)", set.Len())
	}
}

func TestScanUnreachableRoot(t *testing.T) {
	backend := mock.New(mock.Config{Windows: []*mock.Node{demoTree()}})
	s := New(backend, Config{})

	_, err := s.Scan(5)
	if err == nil {
		t.Fatal("Scan of missing window should fail")
	}
	var autoErr *core.AutomationError
	if !errors.As(err, &autoErr) || autoErr.Code != "source_unavailable" {
		t.Errorf("error = %v, want source_unavailable", err)
	}
}

func TestScanWindowKeyFailure(t *testing.T) {
	backend := mock.New(mock.Config{
		Windows: []*mock.Node{demoTree()},
		KeyErr:  errors.New("session gone"),
	})
	s := New(backend, Config{})

	_, err := s.Scan(0)
	var autoErr *core.AutomationError
	if !errors.As(err, &autoErr) || autoErr.Code != "source_unavailable" {
		t.Errorf("error = %v, want source_unavailable", err)
	}
}

func TestScanSkipsElementWithUnreadablePosition(t *testing.T) {
	tree := demoTree()
	tree.Children[0].Children[0].FailProps = []string{core.PropLeft}
	backend := mock.New(mock.Config{Windows: []*mock.Node{tree}})
	s := New(backend, Config{})

	set, err := s.Scan(0)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	for _, el := range set.Elements {
		if el.ID == "wnd[0]/usr/lblUser" {
			t.Error("element with unreadable position must be dropped")
		}
	}
	// Sibling subtree is unaffected.
	found := false
	for _, el := range set.Elements {
		if el.ID == "wnd[0]/usr/txtUser" {
			found = true
		}
	}
	if !found {
		t.Error("sibling element missing from scan")
	}
}

func TestScanKeepsElementWithUnreadableOptionalProps(t *testing.T) {
	tree := demoTree()
	tree.Children[0].Children[1].FailProps = []string{core.PropTooltip, core.PropName, core.PropChangeable}
	backend := mock.New(mock.Config{Windows: []*mock.Node{tree}})
	s := New(backend, Config{})

	set, err := s.Scan(0)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	var snap *core.ElementSnapshot
	for i := range set.Elements {
		if set.Elements[i].ID == "wnd[0]/usr/txtUser" {
			snap = &set.Elements[i]
		}
	}
	if snap == nil {
		t.Fatal("element with unreadable optional props must stay in the scan")
	}
	if snap.Tooltip != "" || snap.Name != "" || snap.Changeable {
		t.Errorf("optional props should be zero values, got %+v", snap)
	}
}

func TestScanClampsNegativeSizes(t *testing.T) {
	tree := &mock.Node{
		ID: "wnd[0]", Type: "GuiMainWindow",
		Children: []*mock.Node{
			{ID: "bad", Type: "GuiLabel", Left: 10, Top: 10, Width: -5, Height: -1},
		},
	}
	backend := mock.New(mock.Config{Windows: []*mock.Node{tree}})
	s := New(backend, Config{})

	set, err := s.Scan(0)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	for _, el := range set.Elements {
		if el.Position.Width < 0 || el.Position.Height < 0 {
			t.Errorf("negative size not clamped: %+v", el.Position)
		}
	}
}

func TestScanDefaultDepth(t *testing.T) {
	s := New(mock.New(mock.Config{Windows: []*mock.Node{demoTree()}}), Config{})
	if s.maxDepth != DefaultMaxDepth {
		t.Errorf("maxDepth = %d, want %d", s.maxDepth, DefaultMaxDepth)
	}
}
