package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"
)

const auditSystemPrompt = `You are a forensic auditor for disability and aged-care supplier invoices.
Evaluate the invoice against the purchase order, the client's funding profile,
the domain primer and any policy documents. Check:
- AI-AGING: invoice age and claim window
- AI-FRAUD: fraud indicators
- AI-PRICE: price reasonableness against the price guide
- AI-BUDGET: quarterly and annual budget ceilings
- AI-CONTRACTOR: supplier standing and registration
- AI-POLICY: compliance with the attached policy documents
- AI-FUNDING: alignment of services with the client's funding tier and supplements

Return ONLY valid JSON with exactly these keys:
{
  "report": "markdown audit narrative",
  "riskAssessment": {
    "level": "LOW|MEDIUM|HIGH",
    "score": 0-100,
    "justification": "why",
    "actionRecommendation": "what the reviewer should do"
  },
  "validationResults": [
    {"ruleId": "AI-PRICE", "severity": "INFO|WARNING|BLOCKING", "result": "PASS|WARN|FAIL", "details": "..."}
  ]
}
Use only the rule IDs listed above, at most one result per rule ID.`

// RenderSection writes a titled JSON block, or "none" for a nil value.
func RenderSection(b *strings.Builder, title string, v any) {
	fmt.Fprintf(b, "## %s\n", title)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil || string(data) == "null" {
		b.WriteString("none\n\n")
		return
	}
	b.Write(data)
	b.WriteString("\n\n")
}

// auditPrompt renders the context bundle.
func auditPrompt(b Bundle, knowledge string) string {
	var sb strings.Builder
	sb.WriteString("# Domain primer\n")
	sb.WriteString(knowledge)
	sb.WriteString("\n\n")
	RenderSection(&sb, "Invoice", b.Invoice)
	RenderSection(&sb, "Purchase order", b.PurchaseOrder)
	RenderSection(&sb, "Client funding profile", b.Client)
	sb.WriteString("## Policy documents\n")
	if strings.TrimSpace(b.PolicyText) == "" && len(b.PolicyFiles) == 0 {
		sb.WriteString("none\n")
	} else {
		sb.WriteString(b.PolicyText)
		sb.WriteString("\n")
		for _, f := range b.PolicyFiles {
			fmt.Fprintf(&sb, "(attached: %s)\n", f.Name)
		}
	}
	return sb.String()
}
