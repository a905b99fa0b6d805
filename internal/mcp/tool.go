package mcp

// ToolName is the single tool this server recognizes.
const ToolName = "sequentialthinking"

// Tool describes a callable tool to clients on tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

const thinkingToolDescription = `A tool for dynamic and reflective problem-solving through a ledger of thoughts.
Each call records one thinking step; the server echoes back the accumulated state so the
calling agent can decide what to do next. Thoughts can build on, question, or revise
previous ones, and the chain can branch into alternative approaches.

When to use this tool:
- Breaking down complex problems into steps
- Planning with room for revision as understanding deepens
- Analysis that might need course correction
- Problems where the full scope is not clear up front

Key behaviors:
- estimatedTotal is a working estimate, not a cap; go past it and it grows with you
- sequenceNumber is yours to assign; it need not be contiguous or unique
- Mark a thought with isRevision/revisesSequenceNumber to reconsider an earlier step
- Give branchOriginSequenceNumber plus a branchId to explore an alternative path
- Set continuationNeeded to false only when you are genuinely done

Parameters:
- text: the content of the current thinking step
- sequenceNumber: position of this step in the sequence (minimum 1)
- estimatedTotal: current estimate of total steps needed (minimum 1)
- continuationNeeded: whether another step is expected after this one
- isRevision: this step reconsiders an earlier one
- revisesSequenceNumber: which step is being reconsidered
- branchOriginSequenceNumber: the step this branch diverges from
- branchId: identifier naming the branch
- moreNeeded: hint that more steps may be needed past the estimate`

// ThinkingTool returns the descriptor served on tools/list.
func ThinkingTool() Tool {
	return Tool{
		Name:        ToolName,
		Description: thinkingToolDescription,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "The current thinking step",
				},
				"sequenceNumber": map[string]any{
					"type":        "integer",
					"description": "Position of this step in the sequence",
					"minimum":     1,
				},
				"estimatedTotal": map[string]any{
					"type":        "integer",
					"description": "Current estimate of total steps needed",
					"minimum":     1,
				},
				"continuationNeeded": map[string]any{
					"type":        "boolean",
					"description": "Whether another step is expected",
				},
				"isRevision": map[string]any{
					"type":        "boolean",
					"description": "Whether this step revises an earlier one",
				},
				"revisesSequenceNumber": map[string]any{
					"type":        "integer",
					"description": "Which step is being reconsidered",
					"minimum":     1,
				},
				"branchOriginSequenceNumber": map[string]any{
					"type":        "integer",
					"description": "The step this branch diverges from",
					"minimum":     1,
				},
				"branchId": map[string]any{
					"type":        "string",
					"description": "Identifier naming the branch",
				},
				"moreNeeded": map[string]any{
					"type":        "boolean",
					"description": "Hint that more steps may be needed",
				},
			},
			"required": []string{"text", "sequenceNumber", "estimatedTotal", "continuationNeeded"},
		},
	}
}
