package web

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	instructagent "github.com/instructware/instruct-agent-go"
)

//go:embed widget.html
var widgetHTML string

var widgetTemplate = template.Must(template.New("widget").Parse(widgetHTML))

type widgetData struct {
	Name      string
	Expertise string
	Task      string
	Greeting  string
	Examples  []string
}

// exampleQueries builds the suggestion chips shown under the input box.
func exampleQueries(meta instructagent.AgentMetadata) []string {
	return []string{
		"Hello! What can you help me with?",
		fmt.Sprintf("Tell me about %s", meta.Expertise),
		"What tasks can you perform?",
	}
}

func renderWidget(agent *instructagent.InstructAgent) (string, error) {
	data := widgetData{
		Name:      agent.Meta.Name,
		Expertise: agent.Meta.Expertise,
		Task:      agent.Meta.Task,
		Greeting:  agent.Greeting(),
		Examples:  exampleQueries(agent.Meta),
	}
	var sb strings.Builder
	if err := widgetTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute widget template: %w", err)
	}
	return sb.String(), nil
}
