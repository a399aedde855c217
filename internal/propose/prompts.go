package propose

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/calibrant/scenex/internal/tree"
)

// ProposalPrompt generates a structured prompt asking the generator for up
// to maxProposals candidate modifications to the node's configuration.
func ProposalPrompt(node *tree.Node, sourceContext string, categories []string, maxProposals int) string {
	var lineage strings.Builder
	if node.Action != nil {
		lineage.WriteString(fmt.Sprintf("This design was reached by applying: %q (%s)\n", node.Action.Text, node.Action.Category))
	} else {
		lineage.WriteString("This is the baseline design; no changes have been applied yet.\n")
	}

	var dims strings.Builder
	for _, name := range node.Config.Dimensions() {
		v, _ := node.Config.Value(name)
		dims.WriteString(fmt.Sprintf("- %s: %.2f\n", name, v))
	}

	var outcome string
	if node.Outcome != nil {
		outcome = fmt.Sprintf("Simulated adoption for this design: %.1f%% success, %.1f%% failure, %.1f%% never attempted.",
			node.Outcome.Success*100, node.Outcome.Failure*100, node.Outcome.NotAttempted*100)
	}

	return fmt.Sprintf(`You are proposing product-design changes to improve an adoption outcome.

## Product
%s

## Current Design
%sEach dimension is a score in [0, 1]:
%s
%s

## Task
Propose up to %d distinct design changes. Each change adjusts one or more
dimensions by a delta between -0.10 and +0.10. Categories must be one of: %s.

## Response Format
Respond with ONLY a JSON array (no markdown code blocks, no additional text):
[
  {
    "action": "<one-sentence description of the change>",
    "category": "<category>",
    "rationale": "<why this should improve the outcome>",
    "deltas": {"<dimension>": <float in [-0.10, 0.10]>}
  }
]`,
		sourceContext, lineage.String(), dims.String(), outcome,
		maxProposals, strings.Join(categories, ", "))
}

// ParseProposalsResponse parses a generator response into raw proposals.
// It handles both raw JSON and JSON wrapped in markdown code blocks. The
// result is unvalidated: callers apply Sanitize.
func ParseProposalsResponse(response string) ([]Proposal, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var proposals []Proposal
	if err := json.Unmarshal([]byte(jsonStr), &proposals); err != nil {
		return nil, fmt.Errorf("parsing proposals: %w", err)
	}
	return proposals, nil
}

// ExtractJSON extracts JSON content from a string, handling markdown code
// blocks. It looks for JSON wrapped in ```json...``` or ```...``` blocks,
// or returns the input if it appears to be raw JSON.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	jsonBlockRe := regexp.MustCompile("(?s)```json\\s*\\n?(.*?)\\s*```")
	if matches := jsonBlockRe.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	genericBlockRe := regexp.MustCompile("(?s)```\\s*\\n?(.*?)\\s*```")
	if matches := genericBlockRe.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}

	return ""
}
