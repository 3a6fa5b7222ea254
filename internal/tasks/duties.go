package tasks

import (
	"context"
	"regexp"
	"strings"

	"auditeval/internal/extract"
	"auditeval/internal/model"
)

// Role markers that matter for segregation-of-duties checks.
var roleMarkers = []string{
	"prepared by", "reviewed by", "approved by", "authorized by",
	"submitted by", "verified by", "signed by", "checked by",
}

var roleLinePattern = regexp.MustCompile(`(?i)(prepared|reviewed|approved|authorized|submitted|verified|signed|checked)\s+by\s*[:\-]?\s*([A-Za-z][A-Za-z .'\-]{1,60})`)

// ExtractRoleAssignments scans text for "<role> by: <name>" lines and
// returns role → names. Exported for the strategy tests.
func ExtractRoleAssignments(text string) map[string][]string {
	out := make(map[string][]string)
	for _, m := range roleLinePattern.FindAllStringSubmatch(text, -1) {
		role := strings.ToLower(m[1])
		name := strings.TrimSpace(m[2])
		out[role] = append(out[role], name)
	}
	return out
}

// segregationOfDuties detects the same person occupying conflicting roles
// (preparer and approver of the same record). A deterministic role scan runs
// first; the model then judges with the scan's findings in hand.
type segregationOfDuties struct {
	inf Inference
}

func (s *segregationOfDuties) Type() model.TaskType { return model.TaskSegregationOfDuties }

func (s *segregationOfDuties) Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error) {
	rolesByFile := map[string]any{}
	var conflicts []string
	for _, f := range ec.Evidence {
		if extract.IsImage(f.MediaType) {
			continue
		}
		text, err := extract.Text(f)
		if err != nil {
			continue
		}
		roles := ExtractRoleAssignments(text)
		if len(roles) == 0 {
			continue
		}
		rolesByFile[f.Name] = roles
		for _, c := range detectConflicts(roles) {
			conflicts = append(conflicts, f.Name+": "+c)
		}
	}

	sb := basePrompt("You are a segregation-of-duties analyst.", ec)
	sb.WriteString("TASK: Identify who performed each role in the evidence (preparer, reviewer, approver, authorizer) and flag any person holding conflicting roles for the same record. ")
	sb.WriteString("In details, return {\"assignments\": [{\"role\": \"<role>\", \"person\": \"<name>\", \"file\": \"<filename>\"}], \"conflicts\": [\"<description>\"]}. ")
	sb.WriteString("satisfied is true only when duties are properly segregated as the control requires.\n")
	extra := map[string]any{}
	if len(rolesByFile) > 0 {
		extra["role_scan"] = rolesByFile
	}
	if len(conflicts) > 0 {
		extra["scan_conflicts"] = conflicts
	}
	return runJSONStrategy(ctx, s.inf, s.Type(), sb.String(), extra)
}

// detectConflicts reports persons appearing in both a preparing and an
// approving role.
func detectConflicts(roles map[string][]string) []string {
	preparing := map[string]bool{}
	for _, role := range []string{"prepared", "submitted"} {
		for _, name := range roles[role] {
			preparing[normalizeName(name)] = true
		}
	}
	var out []string
	for _, role := range []string{"approved", "authorized", "reviewed", "verified"} {
		for _, name := range roles[role] {
			if preparing[normalizeName(name)] {
				out = append(out, name+" both prepared and "+role)
			}
		}
	}
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
