package jsengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dop251/goja"
)

const defaultHTTPTimeout = 30 * time.Second

// httpModule builds the http object flows use to seed or verify test data
// against OData/REST services next to the GUI automation.
func (e *Engine) httpModule() *goja.Object {
	obj := e.runtime.NewObject()

	for _, method := range []string{"GET", "POST", "PUT", "DELETE"} {
		m := method
		name := toLowerASCII(m)
		if err := obj.Set(name, func(call goja.FunctionCall) goja.Value {
			return e.doRequest(m, call)
		}); err != nil {
			panic(e.runtime.NewTypeError(fmt.Sprintf("failed to set http.%s: %v", name, err)))
		}
	}

	// http.request(method, url, [options])
	if err := obj.Set("request", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(e.runtime.NewTypeError("http.request requires method and url"))
		}
		shifted := goja.FunctionCall{This: call.This, Arguments: call.Arguments[1:]}
		return e.doRequest(call.Arguments[0].String(), shifted)
	}); err != nil {
		panic(e.runtime.NewTypeError(fmt.Sprintf("failed to set http.request: %v", err)))
	}

	return obj
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// doRequest performs one blocking HTTP round-trip and returns a JS object
// with status, body, headers, ok and a parsed json field (null when the
// body is not JSON).
func (e *Engine) doRequest(method string, call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 1 {
		panic(e.runtime.NewTypeError(fmt.Sprintf("http.%s requires url", toLowerASCII(method))))
	}
	url := call.Arguments[0].String()

	var body io.Reader
	headers := make(map[string]string)
	timeout := defaultHTTPTimeout

	if len(call.Arguments) > 1 && !goja.IsUndefined(call.Arguments[1]) {
		if opts, ok := call.Arguments[1].Export().(map[string]interface{}); ok {
			if h, ok := opts["headers"].(map[string]interface{}); ok {
				for k, v := range h {
					headers[k] = fmt.Sprintf("%v", v)
				}
			}
			switch b := opts["body"].(type) {
			case string:
				body = bytes.NewBufferString(b)
			case map[string]interface{}:
				raw, _ := json.Marshal(b)
				body = bytes.NewBuffer(raw)
				if _, set := headers["Content-Type"]; !set {
					headers["Content-Type"] = "application/json"
				}
			}
			switch t := opts["timeout"].(type) {
			case int64:
				timeout = time.Duration(t) * time.Millisecond
			case float64:
				timeout = time.Duration(t) * time.Millisecond
			}
		}
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		panic(e.runtime.NewTypeError(fmt.Sprintf("failed to create request: %v", err)))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		panic(e.runtime.NewTypeError(fmt.Sprintf("HTTP request failed: %v", err)))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(e.runtime.NewTypeError(fmt.Sprintf("failed to read response: %v", err)))
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			respHeaders[k] = v[0]
		}
	}

	out := e.runtime.NewObject()
	setOrPanic := func(key string, val interface{}) {
		if err := out.Set(key, val); err != nil {
			panic(e.runtime.NewTypeError(fmt.Sprintf("failed to set response.%s: %v", key, err)))
		}
	}
	setOrPanic("status", resp.StatusCode)
	setOrPanic("body", string(raw))
	setOrPanic("headers", respHeaders)
	setOrPanic("ok", resp.StatusCode >= 200 && resp.StatusCode < 300)

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		setOrPanic("json", parsed)
	} else {
		setOrPanic("json", goja.Null())
	}

	return out
}
