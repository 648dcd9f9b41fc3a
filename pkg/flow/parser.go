// Package flow handles parsing and representation of sapwiz YAML flow files.
package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError carries the file and line a flow failed to parse at.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func parseErrorAt(path string, line int, format string, args ...interface{}) error {
	return &ParseError{Path: path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// ParseFile parses a single YAML flow file.
func ParseFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided flow file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses flow content. A flow is either a bare step sequence or a
// config document followed by `---` and the steps.
func Parse(data []byte, sourcePath string) (*Flow, error) {
	docs := splitDocuments(string(data))

	f := &Flow{SourcePath: sourcePath}

	switch len(docs) {
	case 0:
		return nil, parseErrorAt(sourcePath, 1, "empty flow file")
	case 1:
		if err := parseSteps(docs[0], f); err != nil {
			return nil, err
		}
	default:
		if err := parseConfig(docs[0], f); err != nil {
			return nil, err
		}
		if err := parseSteps(docs[1], f); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// splitDocuments cuts the content at top-level `---` markers. Markers
// inside block scalars (`|`, `>`) must not split, so the scan tracks the
// indent of the current block.
func splitDocuments(content string) []string {
	var docs []string
	var current strings.Builder
	inBlock := false
	blockIndent := 0

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if inBlock {
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if trimmed != "" && indent < blockIndent {
				inBlock = false
			}
		} else if strings.HasSuffix(trimmed, "|") || strings.HasSuffix(trimmed, "|-") ||
			strings.HasSuffix(trimmed, ">") || strings.HasSuffix(trimmed, ">-") {
			inBlock = true
			if i+1 < len(lines) {
				next := lines[i+1]
				blockIndent = len(next) - len(strings.TrimLeft(next, " \t"))
			}
		}

		if !inBlock && trimmed == "---" && strings.TrimLeft(line, " \t") == "---" {
			if current.Len() > 0 {
				docs = append(docs, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}

	if strings.TrimSpace(current.String()) != "" {
		docs = append(docs, current.String())
	}
	return docs
}

func parseConfig(content string, f *Flow) error {
	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return parseErrorAt(f.SourcePath, 0, "invalid config: %v", err)
	}

	// Lifecycle hooks hold steps, which the plain struct decode above
	// cannot produce; pull them out as raw nodes.
	var hooks struct {
		OnFlowStart    []yaml.Node `yaml:"onFlowStart"`
		OnFlowComplete []yaml.Node `yaml:"onFlowComplete"`
	}
	if err := yaml.Unmarshal([]byte(content), &hooks); err != nil {
		return parseErrorAt(f.SourcePath, 0, "invalid config: %v", err)
	}
	var err error
	if cfg.OnFlowStart, err = parseStepNodes(hooks.OnFlowStart, f.SourcePath); err != nil {
		return err
	}
	if cfg.OnFlowComplete, err = parseStepNodes(hooks.OnFlowComplete, f.SourcePath); err != nil {
		return err
	}

	f.Config = cfg
	return nil
}

func parseSteps(content string, f *Flow) error {
	var nodes []yaml.Node
	if err := yaml.Unmarshal([]byte(content), &nodes); err != nil {
		return parseErrorAt(f.SourcePath, 0, "invalid steps: %v", err)
	}
	steps, err := parseStepNodes(nodes, f.SourcePath)
	if err != nil {
		return err
	}
	f.Steps = steps
	return nil
}

func parseStepNodes(nodes []yaml.Node, sourcePath string) ([]Step, error) {
	var steps []Step
	for i := range nodes {
		step, err := parseStep(&nodes[i], sourcePath)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	// Bare command form: "- endTransaction"
	if node.Kind == yaml.ScalarNode {
		if !knownSteps[StepType(node.Value)] {
			return nil, parseErrorAt(sourcePath, node.Line, "unknown step type: %s", node.Value)
		}
		empty := &yaml.Node{Kind: yaml.MappingNode}
		return decodeStep(StepType(node.Value), empty, sourcePath)
	}

	if node.Kind != yaml.MappingNode {
		return nil, parseErrorAt(sourcePath, node.Line, "step must be a mapping or command name")
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		key := StepType(node.Content[i].Value)
		if knownSteps[key] {
			return decodeStep(key, node.Content[i+1], sourcePath)
		}
	}
	return nil, parseErrorAt(sourcePath, node.Line, "unknown step type")
}

var knownSteps = map[StepType]bool{
	StepPress: true, StepWrite: true, StepRead: true, StepSelect: true,
	StepSetCheckbox: true, StepScroll: true,
	StepAssertExists: true, StepAssertNotExists: true, StepAssertChangeable: true,
	StepAssertStatusBar: true, StepAssertTrue: true, StepReadStatusBar: true,
	StepSendVKey: true, StepNavigate: true,
	StepStartTransaction: true, StepEndTransaction: true,
	StepSelectMenu: true, StepMaximize: true,
	StepScreenshot: true, StepDumpElements: true,
	StepWait: true, StepWaitUntilExists: true,
	StepRepeat: true, StepRetry: true, StepRunFlow: true,
	StepRunScript: true, StepEvalScript: true, StepDefineVariables: true,
}

// decodeShorthand decodes the value node into dst, treating a scalar node
// as the step's shorthand form via the setter. Most steps have exactly one
// natural scalar field, which keeps flows terse: `- press: Save`.
func decodeShorthand(node *yaml.Node, sourcePath string, dst Step, scalar func(value string)) (Step, error) {
	if node.Kind == yaml.ScalarNode {
		scalar(node.Value)
		return dst, nil
	}
	if err := node.Decode(dst); err != nil {
		return nil, parseErrorAt(sourcePath, node.Line, "%v", err)
	}
	return dst, nil
}

func decodeStep(stepType StepType, node *yaml.Node, sourcePath string) (Step, error) {
	switch stepType {
	case StepPress:
		s := &PressStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Target.Locator = v })

	case StepWrite:
		s := &WriteStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Text = v })

	case StepRead:
		s := &ReadStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Target.Locator = v })

	case StepSelect:
		s := &SelectStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Target.Locator = v })

	case StepSetCheckbox:
		s := &SetCheckboxStep{BaseStep: BaseStep{StepType: stepType}}
		if err := node.Decode(s); err != nil {
			return nil, parseErrorAt(sourcePath, node.Line, "%v", err)
		}
		return s, nil

	case StepScroll:
		s := &ScrollStep{BaseStep: BaseStep{StepType: stepType}}
		if err := node.Decode(s); err != nil {
			return nil, parseErrorAt(sourcePath, node.Line, "%v", err)
		}
		return s, nil

	case StepAssertExists:
		s := &AssertExistsStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Target.Locator = v })

	case StepAssertNotExists:
		s := &AssertNotExistsStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Target.Locator = v })

	case StepAssertChangeable:
		s := &AssertChangeableStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Target.Locator = v })

	case StepAssertStatusBar:
		s := &AssertStatusBarStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Kind = v })

	case StepAssertTrue:
		s := &AssertTrueStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Script = v })

	case StepReadStatusBar:
		s := &ReadStatusBarStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Into = v })

	case StepSendVKey:
		s := &SendVKeyStep{BaseStep: BaseStep{StepType: stepType}}
		if node.Kind == yaml.ScalarNode {
			// `- sendVKey: 8`; a bad number leaves code 0 (Enter is 0
			// anyway, so there is no safe fallback to invent).
			_ = node.Decode(&s.Code)
			return s, nil
		}
		if err := node.Decode(s); err != nil {
			return nil, parseErrorAt(sourcePath, node.Line, "%v", err)
		}
		return s, nil

	case StepNavigate:
		s := &NavigateStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Action = v })

	case StepStartTransaction:
		s := &StartTransactionStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Code = v })

	case StepEndTransaction:
		return &EndTransactionStep{BaseStep: BaseStep{StepType: stepType}}, nil

	case StepSelectMenu:
		return parseSelectMenuStep(node, sourcePath)

	case StepMaximize:
		return &MaximizeStep{BaseStep: BaseStep{StepType: stepType}}, nil

	case StepScreenshot:
		s := &ScreenshotStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Path = v })

	case StepDumpElements:
		s := &DumpElementsStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Path = v })

	case StepWait:
		s := &WaitStep{BaseStep: BaseStep{StepType: stepType}}
		if node.Kind == yaml.ScalarNode {
			_ = node.Decode(&s.Ms)
			return s, nil
		}
		if err := node.Decode(s); err != nil {
			return nil, parseErrorAt(sourcePath, node.Line, "%v", err)
		}
		return s, nil

	case StepWaitUntilExists:
		s := &WaitUntilExistsStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Target.Locator = v })

	case StepRepeat:
		return parseRepeatStep(node, sourcePath)

	case StepRetry:
		return parseRetryStep(node, sourcePath)

	case StepRunFlow:
		return parseRunFlowStep(node, sourcePath)

	case StepRunScript:
		s := &RunScriptStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Script = v })

	case StepEvalScript:
		s := &EvalScriptStep{BaseStep: BaseStep{StepType: stepType}}
		return decodeShorthand(node, sourcePath, s, func(v string) { s.Script = v })

	case StepDefineVariables:
		s := &DefineVariablesStep{BaseStep: BaseStep{StepType: stepType}}
		s.Env = make(map[string]string)
		if node.Kind == yaml.MappingNode {
			for i := 0; i < len(node.Content)-1; i += 2 {
				s.Env[node.Content[i].Value] = node.Content[i+1].Value
			}
		}
		return s, nil

	default:
		return &UnsupportedStep{
			BaseStep: BaseStep{StepType: stepType},
			Reason:   "unknown step type",
		}, nil
	}
}

// parseSelectMenuStep accepts a ">"-separated path string, a sequence of
// entries, or a mapping.
func parseSelectMenuStep(node *yaml.Node, sourcePath string) (Step, error) {
	s := &SelectMenuStep{BaseStep: BaseStep{StepType: StepSelectMenu}}

	switch node.Kind {
	case yaml.ScalarNode:
		for _, part := range strings.Split(node.Value, ">") {
			if p := strings.TrimSpace(part); p != "" {
				s.Path = append(s.Path, p)
			}
		}
	case yaml.SequenceNode:
		if err := node.Decode(&s.Path); err != nil {
			return nil, parseErrorAt(sourcePath, node.Line, "%v", err)
		}
	default:
		if err := node.Decode(s); err != nil {
			return nil, parseErrorAt(sourcePath, node.Line, "%v", err)
		}
		s.StepType = StepSelectMenu
	}

	return s, nil
}

// compoundFields is the shared shape of the step kinds that nest other
// steps. Counts stay strings so they can hold ${...} expressions.
type compoundFields struct {
	Times       string            `yaml:"times"`
	While       Condition         `yaml:"while"`
	MaxAttempts string            `yaml:"maxAttempts"`
	File        string            `yaml:"file"`
	When        *Condition        `yaml:"when"`
	Env         map[string]string `yaml:"env"`
	Steps       []yaml.Node       `yaml:"steps"`
	Optional    bool              `yaml:"optional"`
	Label       string            `yaml:"label"`
}

func decodeCompound(node *yaml.Node, sourcePath string) (*compoundFields, []Step, error) {
	var raw compoundFields
	if err := node.Decode(&raw); err != nil {
		return nil, nil, parseErrorAt(sourcePath, node.Line, "%v", err)
	}
	steps, err := parseStepNodes(raw.Steps, sourcePath)
	if err != nil {
		return nil, nil, err
	}
	return &raw, steps, nil
}

func parseRepeatStep(node *yaml.Node, sourcePath string) (Step, error) {
	raw, steps, err := decodeCompound(node, sourcePath)
	if err != nil {
		return nil, err
	}
	return &RepeatStep{
		BaseStep: BaseStep{StepType: StepRepeat, Optional: raw.Optional, StepLabel: raw.Label},
		Times:    raw.Times,
		While:    raw.While,
		Steps:    steps,
	}, nil
}

func parseRetryStep(node *yaml.Node, sourcePath string) (Step, error) {
	raw, steps, err := decodeCompound(node, sourcePath)
	if err != nil {
		return nil, err
	}
	return &RetryStep{
		BaseStep:    BaseStep{StepType: StepRetry, Optional: raw.Optional, StepLabel: raw.Label},
		MaxAttempts: raw.MaxAttempts,
		File:        raw.File,
		Env:         raw.Env,
		Steps:       steps,
	}, nil
}

func parseRunFlowStep(node *yaml.Node, sourcePath string) (Step, error) {
	if node.Kind == yaml.ScalarNode {
		return &RunFlowStep{
			BaseStep: BaseStep{StepType: StepRunFlow},
			File:     node.Value,
		}, nil
	}
	raw, steps, err := decodeCompound(node, sourcePath)
	if err != nil {
		return nil, err
	}
	return &RunFlowStep{
		BaseStep: BaseStep{StepType: StepRunFlow, Optional: raw.Optional, StepLabel: raw.Label},
		File:     raw.File,
		When:     raw.When,
		Env:      raw.Env,
		Steps:    steps,
	}, nil
}

// ParseDirectory parses all YAML flows under dir, recursively, applying
// tag filters. Files that fail to parse are skipped with a warning so one
// broken flow does not hide the rest of a suite.
func ParseDirectory(dir string, includeTags, excludeTags []string) ([]*Flow, error) {
	var flows []*Flow

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if ext := strings.ToLower(filepath.Ext(path)); ext != ".yaml" && ext != ".yml" {
			return nil
		}

		f, parseErr := ParseFile(path)
		if parseErr != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, parseErr)
			return nil
		}
		if ShouldIncludeFlow(f, includeTags, excludeTags) {
			flows = append(flows, f)
		}
		return nil
	})

	return flows, err
}

// ShouldIncludeFlow applies tag filtering: with include tags set a flow
// needs at least one of them, and any exclude match drops it.
func ShouldIncludeFlow(f *Flow, includeTags, excludeTags []string) bool {
	for _, tag := range f.Config.Tags {
		for _, exclude := range excludeTags {
			if tag == exclude {
				return false
			}
		}
	}
	if len(includeTags) == 0 {
		return true
	}
	for _, tag := range f.Config.Tags {
		for _, include := range includeTags {
			if tag == include {
				return true
			}
		}
	}
	return false
}
