package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/window"
)

func newScriptEngine(t *testing.T) *ScriptEngine {
	t.Helper()
	se := NewScriptEngine()
	t.Cleanup(se.Close)
	return se
}

func TestScriptEngineVariables(t *testing.T) {
	se := newScriptEngine(t)

	se.SetVariable("TCODE", "VA01")
	if got := se.GetVariable("TCODE"); got != "VA01" {
		t.Errorf("GetVariable(TCODE) = %q, want %q", got, "VA01")
	}

	se.SetVariables(map[string]string{"CLIENT": "100", "LANG": "EN"})
	if got := se.GetVariable("CLIENT"); got != "100" {
		t.Errorf("GetVariable(CLIENT) = %q, want %q", got, "100")
	}
	if got := se.GetVariable("MISSING"); got != "" {
		t.Errorf("GetVariable(MISSING) = %q, want empty", got)
	}
}

func TestImportSystemEnv(t *testing.T) {
	t.Setenv("SAPWIZ_TEST_ORDER", "4711")

	se := newScriptEngine(t)
	se.ImportSystemEnv()

	if got := se.GetVariable("SAPWIZ_TEST_ORDER"); got != "4711" {
		t.Errorf("GetVariable(SAPWIZ_TEST_ORDER) = %q, want %q", got, "4711")
	}
}

func TestExpandVariables(t *testing.T) {
	se := newScriptEngine(t)
	se.SetVariable("TCODE", "VA01")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"expression", "${1 + 1}", "2"},
		{"bare variable", "run $TCODE now", "run VA01 now"},
		{"variable in expression", "${TCODE.toLowerCase()}", "va01"},
		{"unknown stays", "$UNKNOWN_NAME", "$UNKNOWN_NAME"},
		{"unclosed stays", "${unclosed", "${unclosed"},
		{"plain text", "no variables here", "no variables here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := se.ExpandVariables(tt.in); got != tt.want {
				t.Errorf("ExpandVariables(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEvalCondition(t *testing.T) {
	se := newScriptEngine(t)
	se.SetVariable("MODE", "batch")

	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{"true literal", "true", true},
		{"false literal", "false", false},
		{"comparison", "1 === 1", true},
		{"string compare", "'a' === 'b'", false},
		{"wrapped expression", "${2 < 3}", true},
		{"truthy number", "1", true},
		{"zero is false", "0", false},
		{"defined variable", "MODE === 'batch'", true},
		{"undefined env name", "TOTAL_ROWS === undefined", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := se.EvalCondition(tt.script)
			if err != nil {
				t.Fatalf("EvalCondition(%q) error = %v", tt.script, err)
			}
			if got != tt.want {
				t.Errorf("EvalCondition(%q) = %v, want %v", tt.script, got, tt.want)
			}
		})
	}
}

func TestEvalConditionSyntaxError(t *testing.T) {
	se := newScriptEngine(t)
	if _, err := se.EvalCondition("this is not js (("); err == nil {
		t.Error("EvalCondition() error = nil, want syntax error")
	}
}

func TestResolvePath(t *testing.T) {
	se := newScriptEngine(t)

	if got := se.ResolvePath("sub.yaml"); got != "sub.yaml" {
		t.Errorf("ResolvePath with no flow dir = %q, want %q", got, "sub.yaml")
	}

	se.SetFlowDir(filepath.Join("flows", "orders"))
	if got, want := se.ResolvePath("sub.yaml"), filepath.Join("flows", "orders", "sub.yaml"); got != want {
		t.Errorf("ResolvePath(sub.yaml) = %q, want %q", got, want)
	}

	abs := filepath.Join(string(filepath.Separator), "tmp", "x.yaml")
	if got := se.ResolvePath(abs); got != abs {
		t.Errorf("ResolvePath(%q) = %q, want unchanged", abs, got)
	}
}

func TestParseInt(t *testing.T) {
	se := newScriptEngine(t)
	se.SetVariable("COUNT", "3")

	tests := []struct {
		in         string
		defaultVal int
		want       int
	}{
		{"42", 0, 42},
		{"10_000", 0, 10000},
		{"", 7, 7},
		{"abc", 7, 7},
		{"$COUNT", 0, 3},
		{"${2 * 5}", 0, 10},
	}
	for _, tt := range tests {
		if got := se.ParseInt(tt.in, tt.defaultVal); got != tt.want {
			t.Errorf("ParseInt(%q, %d) = %d, want %d", tt.in, tt.defaultVal, got, tt.want)
		}
	}
}

func TestWithEnvVars(t *testing.T) {
	se := newScriptEngine(t)
	se.SetVariable("MODE", "live")

	restore := se.withEnvVars(map[string]string{"MODE": "test", "EXTRA": "1"})
	if got := se.GetVariable("MODE"); got != "test" {
		t.Errorf("MODE during override = %q, want %q", got, "test")
	}
	if got := se.GetVariable("EXTRA"); got != "1" {
		t.Errorf("EXTRA during override = %q, want %q", got, "1")
	}

	restore()
	if got := se.GetVariable("MODE"); got != "live" {
		t.Errorf("MODE after restore = %q, want %q", got, "live")
	}
	if got := se.GetVariable("EXTRA"); got != "" {
		t.Errorf("EXTRA after restore = %q, want empty", got)
	}
}

func TestRunScriptSyncsOutput(t *testing.T) {
	se := newScriptEngine(t)

	if err := se.RunScript("output.RESULT = 40 + 2", nil); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}
	if got := se.GetVariable("RESULT"); got != "42" {
		t.Errorf("GetVariable(RESULT) = %q, want %q", got, "42")
	}
}

func TestExecuteDefineVariables(t *testing.T) {
	se := newScriptEngine(t)

	res := se.ExecuteDefineVariables(&flow.DefineVariablesStep{
		BaseStep: base(flow.StepDefineVariables),
		Env:      map[string]string{"ORDER": "4711", "DOUBLED": "${2 * 21}"},
	})

	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if want := "Defined 2 variable(s)"; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
	if got := se.GetVariable("DOUBLED"); got != "42" {
		t.Errorf("GetVariable(DOUBLED) = %q, want %q", got, "42")
	}
}

func TestExecuteRunScriptInline(t *testing.T) {
	se := newScriptEngine(t)

	res := se.ExecuteRunScript(&flow.RunScriptStep{
		BaseStep: base(flow.StepRunScript),
		Script:   "output.SUM = 1 + 2",
	})

	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if got := se.GetVariable("SUM"); got != "3" {
		t.Errorf("GetVariable(SUM) = %q, want %q", got, "3")
	}
}

func TestExecuteRunScriptFile(t *testing.T) {
	dir := t.TempDir()
	script := "output.GREETING = 'hello ' + NAME;\n"
	if err := os.WriteFile(filepath.Join(dir, "init.js"), []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	se := newScriptEngine(t)
	se.SetFlowDir(dir)

	res := se.ExecuteRunScript(&flow.RunScriptStep{
		BaseStep: base(flow.StepRunScript),
		Script:   "init.js",
		Env:      map[string]string{"NAME": "ada"},
	})

	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if got := se.GetVariable("GREETING"); got != "hello ada" {
		t.Errorf("GetVariable(GREETING) = %q, want %q", got, "hello ada")
	}
}

func TestExecuteRunScriptFileNotFound(t *testing.T) {
	se := newScriptEngine(t)

	res := se.ExecuteRunScript(&flow.RunScriptStep{
		BaseStep: base(flow.StepRunScript),
		Script:   "missing.js",
	})

	if res.Success {
		t.Fatal("result success = true, want failure")
	}
	if !strings.Contains(res.Message, "Cannot read script file") {
		t.Errorf("message = %q, want read failure", res.Message)
	}
}

func TestExecuteEvalScript(t *testing.T) {
	se := newScriptEngine(t)

	res := se.ExecuteEvalScript(&flow.EvalScriptStep{
		BaseStep: base(flow.StepEvalScript),
		Script:   "${output.TOTAL = 2 + 3}",
	})

	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if got := se.GetVariable("TOTAL"); got != "5" {
		t.Errorf("GetVariable(TOTAL) = %q, want %q", got, "5")
	}
}

func TestExecuteEvalScriptError(t *testing.T) {
	se := newScriptEngine(t)

	res := se.ExecuteEvalScript(&flow.EvalScriptStep{
		BaseStep: base(flow.StepEvalScript),
		Script:   "this is not js ((",
	})

	if res.Success {
		t.Fatal("result success = true, want failure")
	}
	if !strings.Contains(res.Message, "Eval failed") {
		t.Errorf("message = %q, want eval failure", res.Message)
	}
}

func TestExecuteAssertTrue(t *testing.T) {
	se := newScriptEngine(t)
	se.SetVariable("ROWS", "5")

	t.Run("passes", func(t *testing.T) {
		res := se.ExecuteAssertTrue(&flow.AssertTrueStep{
			BaseStep: base(flow.StepAssertTrue),
			Script:   "Number(ROWS) === 5",
		})
		if !res.Success {
			t.Fatalf("result = %+v, want success", res)
		}
	})

	t.Run("fails as assertion", func(t *testing.T) {
		res := se.ExecuteAssertTrue(&flow.AssertTrueStep{
			BaseStep: base(flow.StepAssertTrue),
			Script:   "Number(ROWS) === 6",
		})
		if res.Success {
			t.Fatal("result success = true, want failure")
		}
		var autoErr *core.AutomationError
		if !errors.As(res.Error, &autoErr) || autoErr.Code != "assertion_failed" {
			t.Errorf("error = %v, want code assertion_failed", res.Error)
		}
		if got := statusForError(res.Error); got != core.StatusFailed {
			t.Errorf("status = %v, a false assertion is a failure, not an error", got)
		}
	})

	t.Run("eval error", func(t *testing.T) {
		res := se.ExecuteAssertTrue(&flow.AssertTrueStep{
			BaseStep: base(flow.StepAssertTrue),
			Script:   "broken ((",
		})
		if res.Success {
			t.Fatal("result success = true, want failure")
		}
		if got := statusForError(res.Error); got != core.StatusErrored {
			t.Errorf("status = %v, a broken condition is an error", got)
		}
	})
}

func TestCheckCondition(t *testing.T) {
	b := orderBackend()
	w := window.New(b, window.Config{})
	se := newScriptEngine(t)
	se.SetVariable("MODE", "batch")
	ctx := context.Background()

	tests := []struct {
		name string
		cond flow.Condition
		want bool
	}{
		{"exists holds", flow.Condition{Exists: &flow.Target{Locator: "=Save"}}, true},
		{"exists fails", flow.Condition{Exists: &flow.Target{Locator: "=Nope"}}, false},
		{"exists by id", flow.Condition{Exists: &flow.Target{ID: "wnd[0]/usr/txtOrder"}}, true},
		{"not exists holds", flow.Condition{NotExists: &flow.Target{Locator: "=Nope"}}, true},
		{"not exists fails", flow.Condition{NotExists: &flow.Target{Locator: "=Save"}}, false},
		{"script holds", flow.Condition{Script: "MODE === 'batch'"}, true},
		{"script fails", flow.Condition{Script: "MODE === 'dialog'"}, false},
		{"script error is false", flow.Condition{Script: "broken (("}, false},
		{"combined", flow.Condition{
			Exists: &flow.Target{Locator: "=Save"},
			Script: "MODE === 'batch'",
		}, true},
		{"empty condition holds", flow.Condition{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := se.CheckCondition(ctx, tt.cond, w); got != tt.want {
				t.Errorf("CheckCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBindWindowHostFuncs(t *testing.T) {
	b := orderBackend()
	w := window.New(b, window.Config{})
	se := newScriptEngine(t)
	se.BindWindow(w)

	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{"exists", "sapwiz.exists('=Save')", true},
		{"exists misses", "sapwiz.exists('=Nope')", false},
		{"read", "sapwiz.read('Order') === '4711'", true},
		{"status bar", "sapwiz.statusBar().kind === 'S'", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := se.EvalCondition(tt.script)
			if err != nil {
				t.Fatalf("EvalCondition(%q) error = %v", tt.script, err)
			}
			if got != tt.want {
				t.Errorf("EvalCondition(%q) = %v, want %v", tt.script, got, tt.want)
			}
		})
	}
}

func TestExpandStep(t *testing.T) {
	se := newScriptEngine(t)
	se.SetVariable("FIELD", "Order")
	se.SetVariable("VAL", "99")

	write := &flow.WriteStep{
		BaseStep: base(flow.StepWrite),
		Target:   flow.Target{Locator: "$FIELD"},
		Text:     "count ${1 + 1} of $VAL",
	}
	se.ExpandStep(write)
	if write.Target.Locator != "Order" {
		t.Errorf("locator = %q, want %q", write.Target.Locator, "Order")
	}
	if want := "count 2 of 99"; write.Text != want {
		t.Errorf("text = %q, want %q", write.Text, want)
	}

	// Into names variables, it must never be expanded.
	read := &flow.ReadStep{
		BaseStep: base(flow.StepRead),
		Target:   flow.Target{Locator: "$FIELD"},
		Into:     "$KEEP",
	}
	se.ExpandStep(read)
	if read.Into != "$KEEP" {
		t.Errorf("into = %q, want untouched %q", read.Into, "$KEEP")
	}

	menu := &flow.SelectMenuStep{
		BaseStep: base(flow.StepSelectMenu),
		Path:     []string{"System", "$FIELD"},
	}
	se.ExpandStep(menu)
	if menu.Path[1] != "Order" {
		t.Errorf("menu path = %v, want second entry expanded", menu.Path)
	}
}

func TestExtractJS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"${a + b}", "a + b"},
		{"  ${x}  ", "x"},
		{"plain", "plain"},
		{"${a} + b", "${a} + b"},
	}
	for _, tt := range tests {
		if got := extractJS(tt.in); got != tt.want {
			t.Errorf("extractJS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
