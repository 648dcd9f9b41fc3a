package cli

import (
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/provider/mock"
)

// demoBackend builds the screen --mock runs execute against: a logon-style
// window with labeled input rows, a checkbox, buttons, a menu bar and a
// status bar, so every step kind has something to act on.
func demoBackend() *mock.Backend {
	root := &mock.Node{
		ID: "wnd[0]", Type: "GuiMainWindow", Name: "wnd_0", Width: 1024, Height: 768,
		Children: []*mock.Node{
			{
				ID: "wnd[0]/mbar", Type: "GuiMenubar", Width: 1024, Height: 20,
				Children: []*mock.Node{
					{
						ID: "wnd[0]/mbar/menu[0]", Type: "GuiMenu", Text: "System",
						Children: []*mock.Node{
							{ID: "wnd[0]/mbar/menu[0]/menu[0]", Type: "GuiMenu", Text: "New GUI Window"},
							{ID: "wnd[0]/mbar/menu[0]/menu[1]", Type: "GuiMenu", Text: "Log Off"},
						},
					},
					{ID: "wnd[0]/mbar/menu[1]", Type: "GuiMenu", Text: "Help"},
				},
			},
			{
				ID: "wnd[0]/sbar", Type: "GuiStatusbar", Top: 748, Width: 1024, Height: 20,
				Text:  "Ready",
				Props: map[string]any{"messageType": "S"},
			},
			{ID: "wnd[0]/usr/lblClient", Type: "GuiLabel", Text: "Client", Left: 20, Top: 60, Width: 80, Height: 14},
			{ID: "wnd[0]/usr/txtClient", Type: "GuiTextField", Text: "100", Left: 120, Top: 60, Width: 60, Height: 14, Changeable: true},
			{ID: "wnd[0]/usr/lblUser", Type: "GuiLabel", Text: "User", Left: 20, Top: 84, Width: 80, Height: 14},
			{ID: "wnd[0]/usr/txtUser", Type: "GuiTextField", Left: 120, Top: 84, Width: 160, Height: 14, Changeable: true},
			{ID: "wnd[0]/usr/lblPass", Type: "GuiLabel", Text: "Password", Left: 20, Top: 108, Width: 80, Height: 14},
			{ID: "wnd[0]/usr/pwdPass", Type: "GuiPasswordField", Left: 120, Top: 108, Width: 160, Height: 14, Changeable: true},
			{ID: "wnd[0]/usr/lblLang", Type: "GuiLabel", Text: "Language", Left: 20, Top: 132, Width: 80, Height: 14},
			{ID: "wnd[0]/usr/cmbLang", Type: "GuiComboBox", Text: "EN", Left: 120, Top: 132, Width: 80, Height: 14, Changeable: true},
			{
				ID: "wnd[0]/usr/chkRemember", Type: "GuiCheckBox", Text: "Remember me",
				Left: 120, Top: 160, Width: 120, Height: 14, Changeable: true,
				Props: map[string]any{"selected": false},
			},
			{
				ID: "wnd[0]/usr/btnLogon", Type: "GuiButton", Text: "Log On", Tooltip: "Log on to the system",
				Left: 120, Top: 190, Width: 80, Height: 20,
			},
			{
				ID: "wnd[0]/usr/btnReset", Type: "GuiButton", Text: "Reset", Tooltip: "Clear all fields",
				Left: 220, Top: 190, Width: 80, Height: 20,
			},
		},
	}
	return mock.New(mock.Config{WindowKey: "wnd[0]:S000:LOGON", Windows: []*mock.Node{root}})
}
