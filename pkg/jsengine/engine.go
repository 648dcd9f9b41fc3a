// Package jsengine provides JavaScript expression evaluation for sapwiz flows.
package jsengine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Engine wraps a goja runtime with the script surface flows rely on:
// the sapwiz host object, an output map for passing values back to the
// flow, console/timer globals and an http module for test data setup.
type Engine struct {
	runtime    *goja.Runtime
	sapwiz     *goja.Object
	variables  map[string]interface{}
	output     map[string]interface{}
	copiedText string
	platform   string
	timers     timerTable
	mu         sync.Mutex
}

// timerTable tracks live setTimeout/setInterval handles by ID so Close
// and the clear functions can cancel them.
type timerTable struct {
	mu     sync.Mutex
	cancel map[int]func()
	nextID int
	done   chan struct{}
	once   sync.Once
}

func (t *timerTable) register(cancel func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.cancel[id] = cancel
	return id
}

func (t *timerTable) clear(id int) {
	t.mu.Lock()
	cancel := t.cancel[id]
	delete(t.cancel, id)
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *timerTable) shutdown() {
	t.once.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for _, cancel := range t.cancel {
			cancel()
		}
		t.cancel = make(map[int]func())
		close(t.done)
	})
}

// New creates an engine with all globals registered.
func New() *Engine {
	e := &Engine{
		runtime:   goja.New(),
		variables: make(map[string]interface{}),
		output:    make(map[string]interface{}),
		timers: timerTable{
			cancel: make(map[int]func()),
			done:   make(chan struct{}),
		},
	}

	e.installConsole()
	e.installTimers()
	e.runtime.Set("json", e.jsonFunc())
	e.runtime.Set("http", e.httpModule())
	e.runtime.Set("output", e.output)

	e.sapwiz = e.runtime.NewObject()
	e.sapwiz.DefineAccessorProperty("copiedText", e.runtime.ToValue(func() string {
		return e.copiedText
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	e.sapwiz.DefineAccessorProperty("platform", e.runtime.ToValue(func() string {
		return e.platform
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	e.runtime.Set("sapwiz", e.sapwiz)

	return e
}

func (e *Engine) installConsole() {
	console := e.runtime.NewObject()
	for name, prefix := range map[string]string{"log": "", "error": "ERROR:", "warn": "WARN:"} {
		console.Set(name, func(call goja.FunctionCall) goja.Value {
			args := make([]interface{}, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			if prefix != "" {
				fmt.Println(prefix, args)
			} else {
				fmt.Println(args...)
			}
			return goja.Undefined()
		})
	}
	e.runtime.Set("console", console)
}

func (e *Engine) installTimers() {
	// Callbacks take e.mu so they never run concurrently with Eval or
	// RunScript on the shared runtime.
	e.runtime.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		callback, delay := e.timerArgs(call, "setTimeout")
		e.timers.mu.Lock()
		e.timers.nextID++
		id := e.timers.nextID
		timer := time.AfterFunc(delay, func() {
			e.mu.Lock()
			if _, err := callback(goja.Undefined()); err != nil {
				fmt.Printf("setTimeout callback error: %v\n", err)
			}
			e.mu.Unlock()
			e.timers.mu.Lock()
			delete(e.timers.cancel, id)
			e.timers.mu.Unlock()
		})
		e.timers.cancel[id] = func() { timer.Stop() }
		e.timers.mu.Unlock()
		return e.runtime.ToValue(id)
	})

	e.runtime.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		callback, interval := e.timerArgs(call, "setInterval")
		ticker := time.NewTicker(interval)
		id := e.timers.register(func() { ticker.Stop() })
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-e.timers.done:
					return
				case <-ticker.C:
					e.mu.Lock()
					if _, err := callback(goja.Undefined()); err != nil {
						fmt.Printf("setInterval callback error: %v\n", err)
					}
					e.mu.Unlock()
				}
			}
		}()
		return e.runtime.ToValue(id)
	})

	clearFunc := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 {
			e.timers.clear(int(call.Arguments[0].ToInteger()))
		}
		return goja.Undefined()
	}
	e.runtime.Set("clearTimeout", clearFunc)
	e.runtime.Set("clearInterval", clearFunc)
}

func (e *Engine) timerArgs(call goja.FunctionCall, name string) (goja.Callable, time.Duration) {
	if len(call.Arguments) < 2 {
		panic(e.runtime.NewTypeError(name + " requires 2 arguments"))
	}
	callback, ok := goja.AssertFunction(call.Arguments[0])
	if !ok {
		panic(e.runtime.NewTypeError("first argument must be a function"))
	}
	return callback, time.Duration(call.Arguments[1].ToInteger()) * time.Millisecond
}

// jsonFunc parses a JSON string into a JS value, as a shorthand for
// JSON.parse with a clearer error.
func (e *Engine) jsonFunc() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(e.runtime.NewTypeError("json requires 1 argument"))
		}
		result, err := e.runtime.RunString(fmt.Sprintf("JSON.parse(%q)", call.Arguments[0].String()))
		if err != nil {
			panic(e.runtime.NewTypeError(fmt.Sprintf("invalid JSON: %v", err)))
		}
		return result
	}
}

// SetHostFunc exposes fn as sapwiz.<name>(...). Script arguments arrive as
// strings; the return value converts to a JS value. Errors become JS
// exceptions so scripts can try/catch them. fn runs while the runtime is
// executing and must not call back into the Engine.
func (e *Engine) SetHostFunc(name string, fn func(args ...string) (interface{}, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sapwiz.Set(name, func(call goja.FunctionCall) goja.Value {
		args := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.String()
		}
		result, err := fn(args...)
		if err != nil {
			panic(e.runtime.NewGoError(err))
		}
		return e.runtime.ToValue(result)
	})
}

// SetVariable makes value available to scripts as a global.
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variables[name] = value
	e.runtime.Set(name, value)
}

// SetVariables sets multiple globals at once.
func (e *Engine) SetVariables(vars map[string]interface{}) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// SetCopiedText stores the text a read step captured, exposed to scripts
// as sapwiz.copiedText.
func (e *Engine) SetCopiedText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.copiedText = text
}

// GetCopiedText returns the last captured text.
func (e *Engine) GetCopiedText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copiedText
}

// SetPlatform records the backend name scripts see as sapwiz.platform.
func (e *Engine) SetPlatform(platform string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.platform = platform
}

// GetOutput returns a copy of the output object. Scripts may have
// replaced the output global entirely, so the runtime's current value
// wins over the map registered at construction.
func (e *Engine) GetOutput() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	source := e.output
	if val := e.runtime.Get("output"); val != nil && !goja.IsUndefined(val) {
		if m, ok := val.Export().(map[string]interface{}); ok {
			source = m
		}
	}

	result := make(map[string]interface{}, len(source))
	for k, v := range source {
		result[k] = v
	}
	return result
}

// Eval evaluates a JavaScript expression and exports the result.
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", err)
	}
	return result.Export(), nil
}

// EvalString evaluates a JavaScript expression and formats the result as
// a string. A nil result becomes the empty string.
func (e *Engine) EvalString(script string) (string, error) {
	result, err := e.Eval(script)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", result), nil
}

// RunScript executes script source, discarding the result.
func (e *Engine) RunScript(script string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.runtime.RunString(script); err != nil {
		return fmt.Errorf("JS runtime error: %w", err)
	}
	return nil
}

// DefineUndefinedIfMissing defines name as undefined unless it already
// has a value, so conditions can reference optional variables without a
// ReferenceError.
func (e *Engine) DefineUndefinedIfMissing(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	val := e.runtime.Get(name)
	if val == nil || goja.IsUndefined(val) {
		if _, exists := e.variables[name]; !exists {
			e.runtime.Set(name, goja.Undefined())
		}
	}
}

// ExpandVariables expands ${...} expressions using JS evaluation, then
// bare $NAME references for defined ALL_CAPS variables.
func (e *Engine) ExpandVariables(text string) (string, error) {
	result := text
	start := 0

	for {
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		end, ok := matchBrace(result, idx+2)
		if !ok {
			start = idx + 2
			continue
		}

		value, err := e.EvalString(result[idx+2 : end-1])
		if err != nil {
			// Failing expressions stay as written.
			start = end
			continue
		}

		result = result[:idx] + value + result[end:]
		start = idx + len(value)
	}

	return e.expandBareVars(result), nil
}

// matchBrace scans from just past an opening brace to its closing brace,
// honoring nesting. Returns the index one past the closer.
func matchBrace(s string, from int) (int, bool) {
	depth := 1
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// ExpandBareVariables replaces only $NAME references, leaving ${...}
// expressions untouched. Callers that evaluate the text as JavaScript
// afterwards use this so quoting survives.
func (e *Engine) ExpandBareVariables(text string) string {
	return e.expandBareVars(text)
}

// expandBareVars replaces $NAME references for variables that are
// defined. Undefined names stay as written.
func (e *Engine) expandBareVars(text string) string {
	if !strings.Contains(text, "$") {
		return text
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var b strings.Builder
	i := 0
	for i < len(text) {
		if text[i] != '$' || i+1 >= len(text) {
			b.WriteByte(text[i])
			i++
			continue
		}

		end := i + 1
		for end < len(text) && isVarChar(text[end], end > i+1) {
			end++
		}

		name := text[i+1 : end]
		if val, ok := e.variables[name]; name != "" && ok {
			fmt.Fprintf(&b, "%v", val)
			i = end
			continue
		}

		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

// isVarChar reports whether c can appear in a bare variable reference.
// Names are ALL_CAPS to match the environment import convention.
func isVarChar(c byte, notFirst bool) bool {
	if c >= 'A' && c <= 'Z' || c == '_' {
		return true
	}
	return notFirst && c >= '0' && c <= '9'
}

// Close stops all live timers. Safe to call more than once.
func (e *Engine) Close() {
	e.timers.shutdown()
}
