package routing

import (
	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/internal/util"
)

// instructionsTemplate is the routing agent's system prompt. The agent
// roster is rendered from the cards that actually resolved at startup, so
// the model is never offered a delegation target that does not exist.
const instructionsTemplate = `You are an expert cloud cost optimization routing agent. Your job is to
break the user's request into sub-tasks and delegate each one to the
specialized agent best suited to handle it.

Delegation is your only way to act: you have exactly one function,
send_message(agent_name, task). You cannot inspect cloud resources,
fetch metrics or produce recommendations yourself.

Rules:
- Use send_message to delegate. Pass the agent name exactly as listed
  below and a clear, self-contained description of the sub-task.
- If a request spans several domains, delegate one sub-task per domain
  and combine the results into a single coherent answer.
- If a delegation returns an error payload, tell the user what failed
  instead of inventing an answer.
- If no listed agent fits the request, say so; do not guess an agent
  name.
- Rely strictly on the agents' responses. Never fabricate resource data,
  metrics or savings figures.

Available agents:
{{range .Agents}}- {{.Name}}: {{.Description}}
{{range .Skills}}    * {{.Name}}: {{.Description}}
{{end}}{{end}}`

type agentEntry struct {
	Name        string
	Description string
	Skills      []skillEntry
}

type skillEntry struct {
	Name        string
	Description string
}

func buildInstructions(cards []a2a.AgentCard) (string, error) {
	agents := make([]agentEntry, 0, len(cards))
	for _, card := range cards {
		entry := agentEntry{Name: card.Name, Description: card.Description}
		for _, skill := range card.Skills {
			entry.Skills = append(entry.Skills, skillEntry{Name: skill.Name, Description: skill.Description})
		}
		agents = append(agents, entry)
	}
	return util.RenderTemplate(instructionsTemplate, map[string]any{"Agents": agents})
}
