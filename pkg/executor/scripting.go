package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/jsengine"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/window"
)

// envVarPattern matches ALL_CAPS identifiers that look like env variables
var envVarPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9_]{2,})\b`)

// ScriptEngine handles JavaScript execution and variable management for
// one flow run: ${expr} and $VAR expansion in step fields, condition
// evaluation and output-to-variable syncing.
type ScriptEngine struct {
	js        *jsengine.Engine
	variables map[string]string
	flowDir   string // Base for resolving relative script paths
}

// NewScriptEngine creates an engine with no variables bound.
func NewScriptEngine() *ScriptEngine {
	return &ScriptEngine{
		js:        jsengine.New(),
		variables: make(map[string]string),
	}
}

// Close releases the underlying JS runtime.
func (eng *ScriptEngine) Close() {
	if eng.js != nil {
		eng.js.Close()
	}
}

// SetFlowDir sets the current flow directory for relative path resolution.
func (eng *ScriptEngine) SetFlowDir(dir string) {
	eng.flowDir = dir
}

// SetVariable sets a variable in both the Go map and the JS engine.
func (eng *ScriptEngine) SetVariable(name, value string) {
	eng.variables[name] = value
	eng.js.SetVariable(name, value)
}

// SetVariables sets multiple variables.
func (eng *ScriptEngine) SetVariables(vars map[string]string) {
	for k, v := range vars {
		eng.SetVariable(k, v)
	}
}

// ImportSystemEnv imports system environment variables into the script
// engine. Only names matching the ALL_CAPS pattern are imported.
func (eng *ScriptEngine) ImportSystemEnv() {
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 && envVarPattern.MatchString(parts[0]) {
			eng.SetVariable(parts[0], parts[1])
		}
	}
}

// GetVariable returns a variable value.
func (eng *ScriptEngine) GetVariable(name string) string {
	return eng.variables[name]
}

// SetPlatform sets the platform exposed as sapwiz.platform.
func (eng *ScriptEngine) SetPlatform(platform string) {
	eng.js.SetPlatform(platform)
}

// SetCopiedText stores the given text as sapwiz.copiedText.
func (eng *ScriptEngine) SetCopiedText(text string) {
	eng.js.SetCopiedText(text)
}

// GetCopiedText returns the stored copied text.
func (eng *ScriptEngine) GetCopiedText() string {
	return eng.js.GetCopiedText()
}

// GetOutput returns the JS output variables.
func (eng *ScriptEngine) GetOutput() map[string]interface{} {
	return eng.js.GetOutput()
}

// SyncOutputToVariables copies JS output back to flow variables.
func (eng *ScriptEngine) SyncOutputToVariables() {
	for k, v := range eng.js.GetOutput() {
		eng.SetVariable(k, fmt.Sprintf("%v", v))
	}
}

// BindWindow exposes window lookups to scripts as sapwiz host functions,
// so scripts can branch on screen state: sapwiz.exists("=Save"),
// sapwiz.read("Order"), sapwiz.statusBar().
func (eng *ScriptEngine) BindWindow(w *window.Window) {
	eng.js.SetHostFunc("exists", func(args ...string) (interface{}, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("exists requires a locator argument")
		}
		return w.Exists(args[0])
	})
	eng.js.SetHostFunc("read", func(args ...string) (interface{}, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("read requires a locator argument")
		}
		return w.Read(args[0])
	})
	eng.js.SetHostFunc("statusBar", func(args ...string) (interface{}, error) {
		sb, err := w.ReadStatusBar()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"kind": sb.Kind, "text": sb.Text}, nil
	})
}

// ExpandVariables expands ${expr} and $VAR syntax in text. Expressions
// that fail to evaluate stay as written.
func (eng *ScriptEngine) ExpandVariables(text string) string {
	result, err := eng.js.ExpandVariables(text)
	if err != nil {
		return text
	}
	return result
}

// RunScript executes a JavaScript script with optional extra variables.
func (eng *ScriptEngine) RunScript(script string, env map[string]string) error {
	script = eng.ExpandVariables(script)

	for k, v := range env {
		eng.SetVariable(k, v)
	}

	// Pre-define referenced env-style names as undefined so scripts can
	// test them without tripping a ReferenceError.
	for _, name := range envVarPattern.FindAllString(script, -1) {
		eng.js.DefineUndefinedIfMissing(name)
	}

	if err := eng.js.RunScript(script); err != nil {
		return err
	}

	eng.SyncOutputToVariables()
	return nil
}

// EvalCondition evaluates a script condition and returns true/false.
func (eng *ScriptEngine) EvalCondition(script string) (bool, error) {
	// The ${...} wrapper marks a JS expression; strip it and expand only
	// bare $VAR references so quoting inside the expression survives.
	script = extractJS(script)
	script = eng.js.ExpandBareVariables(script)

	for _, name := range envVarPattern.FindAllString(script, -1) {
		eng.js.DefineUndefinedIfMissing(name)
	}

	result, err := eng.js.Eval(script)
	if err != nil {
		return false, err
	}

	switch v := result.(type) {
	case bool:
		return v, nil
	case string:
		return v == "true", nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return result != nil, nil
	}
}

// ResolvePath resolves a relative path against the flow directory.
func (eng *ScriptEngine) ResolvePath(path string) string {
	if filepath.IsAbs(path) || eng.flowDir == "" {
		return path
	}
	return filepath.Join(eng.flowDir, path)
}

// extractJS strips the ${...} wrapper marking a JavaScript expression.
func extractJS(script string) string {
	script = strings.TrimSpace(script)
	if strings.HasPrefix(script, "${") && strings.HasSuffix(script, "}") {
		return script[2 : len(script)-1]
	}
	return script
}

// ============================================
// Step Execution Helpers
// ============================================

// ExecuteDefineVariables handles the defineVariables step.
func (eng *ScriptEngine) ExecuteDefineVariables(step *flow.DefineVariablesStep) *core.ActionResult {
	for k, v := range step.Env {
		eng.SetVariable(k, eng.ExpandVariables(v))
	}
	return &core.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Defined %d variable(s)", len(step.Env)),
	}
}

// ExecuteRunScript handles the runScript step.
func (eng *ScriptEngine) ExecuteRunScript(step *flow.RunScriptStep) *core.ActionResult {
	script := step.ScriptPath()

	if strings.HasSuffix(script, ".js") {
		filePath := eng.ResolvePath(script)
		content, err := os.ReadFile(filePath) //#nosec G304 -- path comes from the flow file
		if err != nil {
			return &core.ActionResult{
				Success: false,
				Error:   err,
				Message: fmt.Sprintf("Cannot read script file: %s", filePath),
			}
		}
		script = string(content)
	}

	if err := eng.RunScript(script, step.Env); err != nil {
		return &core.ActionResult{
			Success: false,
			Error:   err,
			Message: fmt.Sprintf("Script execution failed: %v", err),
		}
	}

	return &core.ActionResult{
		Success: true,
		Message: "Script executed successfully",
	}
}

// ExecuteEvalScript handles the evalScript step.
func (eng *ScriptEngine) ExecuteEvalScript(step *flow.EvalScriptStep) *core.ActionResult {
	script := extractJS(step.Script)
	if err := eng.js.RunScript(script); err != nil {
		return &core.ActionResult{
			Success: false,
			Error:   err,
			Message: fmt.Sprintf("Eval failed: %v", err),
		}
	}

	eng.SyncOutputToVariables()

	return &core.ActionResult{
		Success: true,
		Message: "Eval completed",
	}
}

// ExecuteAssertTrue handles the assertTrue step.
func (eng *ScriptEngine) ExecuteAssertTrue(step *flow.AssertTrueStep) *core.ActionResult {
	ok, err := eng.EvalCondition(step.Script)
	if err != nil {
		return &core.ActionResult{
			Success: false,
			Error:   err,
			Message: fmt.Sprintf("Condition evaluation failed: %v", err),
		}
	}

	if !ok {
		return &core.ActionResult{
			Success: false,
			Error: core.NewAutomationError(core.ErrCategoryAction, "assertion_failed",
				fmt.Sprintf("condition %q is false", step.Script)),
			Message: fmt.Sprintf("assertTrue failed: %s", step.Script),
		}
	}

	return &core.ActionResult{
		Success: true,
		Message: "Assertion passed",
	}
}

// CheckCondition reports whether a flow condition currently holds. Lookup
// errors count as the condition not holding.
func (eng *ScriptEngine) CheckCondition(ctx context.Context, cond flow.Condition, w *window.Window) bool {
	if cond.Exists != nil && !eng.targetExists(w, cond.Exists) {
		return false
	}
	if cond.NotExists != nil && eng.targetExists(w, cond.NotExists) {
		return false
	}
	if cond.Script != "" {
		ok, err := eng.EvalCondition(cond.Script)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// targetExists resolves a condition target against the window.
func (eng *ScriptEngine) targetExists(w *window.Window, t *flow.Target) bool {
	target := eng.expandTarget(*t)
	if target.ID != "" {
		return w.ExistsID(target.ID)
	}
	ok, err := w.Exists(target.Locator, target.Types...)
	return err == nil && ok
}

// withEnvVars applies variables and returns a restore function.
func (eng *ScriptEngine) withEnvVars(env map[string]string) func() {
	oldVars := make(map[string]string)
	for k, v := range env {
		oldVars[k] = eng.GetVariable(k)
		eng.SetVariable(k, v)
	}
	return func() {
		for k, v := range oldVars {
			eng.SetVariable(k, v)
		}
	}
}

// ParseInt parses an integer from a string, supporting variable expansion
// and the 10_000 digit group format.
func (eng *ScriptEngine) ParseInt(s string, defaultVal int) int {
	s = eng.ExpandVariables(s)
	s = strings.ReplaceAll(s, "_", "")
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultVal
}

// ExpandStep expands variables in the string fields of a step in place.
// Variable names (read targets) are left alone; scripts expand when they
// execute.
func (eng *ScriptEngine) ExpandStep(step flow.Step) {
	switch s := step.(type) {
	case *flow.PressStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.WriteStep:
		s.Target = eng.expandTarget(s.Target)
		s.Text = eng.ExpandVariables(s.Text)
	case *flow.ReadStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.SelectStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.SetCheckboxStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.ScrollStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.AssertExistsStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.AssertNotExistsStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.AssertChangeableStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.WaitUntilExistsStep:
		s.Target = eng.expandTarget(s.Target)
	case *flow.AssertStatusBarStep:
		s.Contains = eng.ExpandVariables(s.Contains)
	case *flow.NavigateStep:
		s.Action = eng.ExpandVariables(s.Action)
	case *flow.StartTransactionStep:
		s.Code = eng.ExpandVariables(s.Code)
	case *flow.SelectMenuStep:
		for i, entry := range s.Path {
			s.Path[i] = eng.ExpandVariables(entry)
		}
	case *flow.ScreenshotStep:
		s.Path = eng.ExpandVariables(s.Path)
	case *flow.DumpElementsStep:
		s.Path = eng.ExpandVariables(s.Path)
	}
}

// expandTarget expands variables in a target and returns the copy.
func (eng *ScriptEngine) expandTarget(t flow.Target) flow.Target {
	t.Locator = eng.ExpandVariables(t.Locator)
	t.ID = eng.ExpandVariables(t.ID)
	return t
}
