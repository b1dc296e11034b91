// Package prompt maps life domains to system instructions and tool schemas.
package prompt

import "github.com/lifeos/server/internal/domain"

// Tool describes one function the model may call, in the vendor's
// chat-completions tool format.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function holds the name, description and JSON-schema parameters of a tool.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool names recognized by the relay.
const (
	ToolLogStudyTime    = "log_study_time"
	ToolCreateGoal      = "create_goal"
	ToolGenerateInsight = "generate_insight"
)

var systemPrompts = map[string]string{
	domain.DomainLearn: `You are a helpful learning companion AI with the ability to automatically track study sessions and progress.

When users mention studying or learning activities, ALWAYS use the log_study_time tool to record it automatically - don't ask for permission.
When users express goals or targets, ALWAYS use the create_goal tool to track them.
When you identify learning patterns or insights, ALWAYS use the generate_insight tool.

Be proactive and agentic - take actions to help users without asking for confirmation.`,

	domain.DomainFinance: `You are a financial advisor AI that can track expenses and savings automatically.

When users mention spending or saving money, use the appropriate tools to log it.
Track financial goals and provide insights on spending patterns.
Be proactive in helping users manage their finances.`,

	domain.DomainHealth: `You are a wellness coach AI that tracks health metrics and activities.

When users mention exercise, sleep, mood, or other health activities, automatically log them.
Track wellness goals and provide health insights.
Encourage healthy habits proactively.`,

	domain.DomainGeneral: `You are LIFEOS AI, a proactive personal assistant that automatically tracks activities across all life domains.

Use your tools to log activities, track goals, and generate insights without asking for permission.
Be helpful and take initiative to organize the user's life data.`,
}

// tools is the fixed tool set, identical across all domains.
var tools = []Tool{
	{
		Type: "function",
		Function: Function{
			Name:        ToolLogStudyTime,
			Description: "Log study time and learning activities. Use this AUTOMATICALLY whenever the user mentions studying, learning, or completing educational activities.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"subject": map[string]any{
						"type":        "string",
						"description": "The subject or topic studied",
					},
					"duration_minutes": map[string]any{
						"type":        "number",
						"description": "Duration in minutes",
					},
					"notes": map[string]any{
						"type":        "string",
						"description": "Optional notes about what was learned",
					},
				},
				"required": []string{"subject", "duration_minutes"},
			},
		},
	},
	{
		Type: "function",
		Function: Function{
			Name:        ToolCreateGoal,
			Description: "Create a new goal for tracking progress. Use this when users express targets or objectives.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"domain": map[string]any{
						"type":        "string",
						"enum":        []string{"learn", "finance", "health"},
						"description": "The life domain for this goal",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "Goal title",
					},
					"target_value": map[string]any{
						"type":        "number",
						"description": "Target value to achieve",
					},
					"unit": map[string]any{
						"type":        "string",
						"description": "Unit of measurement (e.g., 'hours', 'dollars', 'steps')",
					},
				},
				"required": []string{"domain", "title", "target_value", "unit"},
			},
		},
	},
	{
		Type: "function",
		Function: Function{
			Name:        ToolGenerateInsight,
			Description: "Generate an insight or recommendation based on user's activities and patterns.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"domain": map[string]any{
						"type":        "string",
						"enum":        []string{"learn", "finance", "health", "general"},
						"description": "The relevant domain",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "Insight title",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Detailed insight content",
					},
					"priority": map[string]any{
						"type":        "string",
						"enum":        []string{"low", "medium", "high"},
						"description": "Priority level",
					},
				},
				"required": []string{"domain", "title", "content", "priority"},
			},
		},
	},
}

// ForDomain returns the system prompt and tool set for a life domain.
// Unknown or empty domains fall back to the general entry.
func ForDomain(dom string) (string, []Tool) {
	sys, ok := systemPrompts[dom]
	if !ok {
		sys = systemPrompts[domain.DomainGeneral]
	}
	return sys, tools
}
