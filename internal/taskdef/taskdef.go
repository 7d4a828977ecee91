package taskdef

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Task is a YAML-defined pipeline stage: which agent runs it, the prompt
// templates to expand, and the expectations the output is scored against.
type Task struct {
	Name        string `yaml:"name" json:"name"`
	AgentID     string `yaml:"agent_id" json:"agent_id"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	SystemTemplate string `yaml:"system_template" json:"system_template"`
	UserTemplate   string `yaml:"user_template" json:"user_template"`

	OutputFormat     string   `yaml:"output_format,omitempty" json:"output_format,omitempty"`
	RequiredElements []string `yaml:"required_elements,omitempty" json:"required_elements,omitempty"`
	Deliverables     []string `yaml:"deliverables,omitempty" json:"deliverables,omitempty"`
	QualityGates     []string `yaml:"quality_gates,omitempty" json:"quality_gates,omitempty"`

	// PromptRequirements are literals that must survive into the generated
	// prompt; PromptQualityChecks name validator predicates. Both apply to
	// the prompt, not the model output.
	PromptRequirements  []string `yaml:"prompt_requirements,omitempty" json:"prompt_requirements,omitempty"`
	PromptQualityChecks []string `yaml:"prompt_quality_checks,omitempty" json:"prompt_quality_checks,omitempty"`

	// KnowledgeFocus names the knowledge-base areas loaded into the context.
	KnowledgeFocus []string `yaml:"knowledge_focus,omitempty" json:"knowledge_focus,omitempty"`
}

// Load reads and validates one task definition file.
func Load(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file %s: %w", path, err)
	}

	var task Task
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", path, err)
	}
	if err := validateTask(&task); err != nil {
		return nil, fmt.Errorf("invalid task file %s: %w", path, err)
	}
	return &task, nil
}

// LoadByName resolves a task by name inside dir (<dir>/<name>.yaml).
func LoadByName(dir, name string) (*Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("task name is required")
	}
	return Load(filepath.Join(dir, name+".yaml"))
}

func validateTask(task *Task) error {
	if strings.TrimSpace(task.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(task.AgentID) == "" {
		return fmt.Errorf("agent_id is required")
	}
	if strings.TrimSpace(task.SystemTemplate) == "" && strings.TrimSpace(task.UserTemplate) == "" {
		return fmt.Errorf("at least one of system_template or user_template is required")
	}
	return nil
}
