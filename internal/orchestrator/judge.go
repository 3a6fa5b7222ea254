package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auditeval/internal/logger"
	"auditeval/internal/model"
)

const (
	// Weighted ties and empty result sets resolve against effectiveness:
	// an unproven control is treated as not demonstrated.
	tieBreakConfidence = 0.2
	// Items with no evidence at all still get a judgment, at reduced
	// confidence.
	noEvidencePenalty  = 0.15
	minConfidenceFloor = 0.05
)

// aggregateJudgment synthesizes the task results into one verdict using a
// confidence-weighted vote over successful tasks. Deterministic on purpose:
// the reviewers are allowed to be model-driven, the arithmetic is not.
func (o *Orchestrator) aggregateJudgment(ec *model.EvaluationContext, results []model.TaskResult) *model.Judgment {
	var forWeight, againstWeight float64
	var votes int
	var basisParts []string
	refSet := make(map[string]bool)
	var refs []string

	for _, r := range results {
		if !r.Success {
			continue
		}
		stance, ok := r.Satisfied()
		if !ok {
			continue
		}
		votes++
		if stance {
			forWeight += r.Confidence
		} else {
			againstWeight += r.Confidence
		}
		if strings.TrimSpace(r.Reasoning) != "" {
			basisParts = append(basisParts, fmt.Sprintf("[%s] %s", r.Task, strings.TrimSpace(r.Reasoning)))
		}
		for _, ref := range r.EvidenceRefs {
			if !refSet[ref] {
				refSet[ref] = true
				refs = append(refs, ref)
			}
		}
	}

	if votes == 0 {
		return &model.Judgment{
			Effective:  false,
			Basis:      "No evaluation task produced a usable result; the control's operation could not be demonstrated.",
			Confidence: tieBreakConfidence,
		}
	}

	effective := forWeight > againstWeight
	total := forWeight + againstWeight
	var confidence float64
	if total > 0 {
		winner := forWeight
		if !effective {
			winner = againstWeight
		}
		confidence = winner / total
	}
	if forWeight == againstWeight {
		effective = false
		confidence = tieBreakConfidence
	}
	if len(ec.Evidence) == 0 {
		confidence -= noEvidencePenalty
	}
	if confidence < minConfidenceFloor {
		confidence = minConfidenceFloor
	}
	if confidence > 1 {
		confidence = 1
	}

	verdictText := "The control is operating effectively based on the evidence reviewed."
	if !effective {
		verdictText = "The control's effective operation was not demonstrated by the evidence reviewed."
	}
	return &model.Judgment{
		Effective:    effective,
		Basis:        verdictText + " " + strings.Join(basisParts, " "),
		Confidence:   confidence,
		EvidenceRefs: refs,
	}
}

// Hedging and placeholder phrases a final judgment must not carry.
var hedgePhrases = []string{
	"as an ai",
	"i cannot determine",
	"unable to determine",
	"it is unclear whether",
	"insert reasoning here",
	"placeholder",
	"tbd",
}

var negativeMarkers = []string{
	"not operating effectively",
	"not demonstrated",
	"ineffective",
	"control failed",
	"deficiency identified",
	"exceptions noted",
}

var positiveMarkers = []string{
	"operating effectively",
	"control is effective",
	"no exceptions noted",
	"requirement was met",
}

// consistencyCheck is the deterministic pre-filter run before the
// model-based judgment review: hedge phrases and polarity mismatches between
// the basis text and the boolean outcome are caught without an inference
// call.
func consistencyCheck(j *model.Judgment) (ok bool, feedback string) {
	basis := strings.ToLower(j.Basis)
	for _, p := range hedgePhrases {
		if strings.Contains(basis, p) {
			return false, fmt.Sprintf("basis contains hedging phrase %q", p)
		}
	}
	if j.Effective && containsAny(basis, negativeMarkers) {
		return false, "outcome says effective but the basis text reads as a failure"
	}
	if !j.Effective && containsAny(basis, positiveMarkers) && !containsAny(basis, negativeMarkers) {
		return false, "outcome says not effective but the basis text reads as a pass"
	}
	return true, ""
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func buildJudgmentReviewPrompt(ec *model.EvaluationContext, j *model.Judgment, results []model.TaskResult) string {
	var sb strings.Builder
	sb.WriteString("You are a critical reviewer of audit judgments. Check the judgment for internal consistency: the basis text must support the boolean outcome and must follow from the task results. Respond ONLY with JSON. No extra text.\n\n")
	sb.WriteString("OUTPUT JSON SCHEMA:\n")
	sb.WriteString("{\"approved\": <bool>, \"feedback\": \"<what is inconsistent, empty if approved>\", \"scores\": {\"consistency\": <0..1>}}\n\n")
	sb.WriteString(fmt.Sprintf("CONTROL DESCRIPTION:\n%s\n\nTEST PROCEDURE:\n%s\n\n", ec.ControlDescription, ec.TestProcedure))
	jj, _ := json.Marshal(j)
	sb.WriteString(fmt.Sprintf("JUDGMENT UNDER REVIEW:\n%s\n\n", jj))
	sb.WriteString("TASK RESULTS:\n")
	for _, r := range results {
		rr, _ := json.Marshal(r)
		sb.WriteString(string(rr))
		sb.WriteString("\n")
	}
	sb.WriteString("\nAssistant: ")
	return sb.String()
}

// judgmentReviewLoop mirrors the plan loop: bounded revisions, hard cap
// enforced here, reviewer faults accept the judgment as-is.
func (o *Orchestrator) judgmentReviewLoop(ctx context.Context, ec *model.EvaluationContext, j *model.Judgment, results []model.TaskResult) (*model.Judgment, string) {
	if o.opts.MaxJudgmentRevisions <= 0 {
		return finalizeJudgment(j), "judgment review skipped (revisions disabled)"
	}

	var summary strings.Builder
	for revision := 0; ; revision++ {
		verdict := o.reviewJudgment(ctx, ec, j, results)
		fmt.Fprintf(&summary, "revision %d: approved=%t %s; ", revision, verdict.Approved, verdict.Feedback)
		if verdict.Approved {
			break
		}
		if revision >= o.opts.MaxJudgmentRevisions {
			logger.Printf(ctx, "[orchestrator] item %s: judgment revision cap reached, force-approving", ec.ID)
			summary.WriteString("force-approved at revision cap")
			break
		}
		j = o.refineJudgment(ctx, ec, j, verdict)
	}
	return finalizeJudgment(j), strings.TrimSuffix(strings.TrimSpace(summary.String()), ";")
}

func (o *Orchestrator) reviewJudgment(ctx context.Context, ec *model.EvaluationContext, j *model.Judgment, results []model.TaskResult) model.ReviewVerdict {
	// Cheap deterministic pre-filter before spending an inference call.
	if ok, feedback := consistencyCheck(j); !ok {
		return model.ReviewVerdict{Approved: false, Feedback: feedback}
	}

	raw, err := o.inf.GenerateJSON(ctx, buildJudgmentReviewPrompt(ec, j, results), o.opts.Model, reviewSchema)
	if err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: judgment review failed, accepting judgment: %v", ec.ID, err)
		return model.ReviewVerdict{Approved: true, Feedback: "auto-approved: reviewer unavailable"}
	}
	var verdict model.ReviewVerdict
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &verdict); err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: judgment review unparseable, accepting judgment: %v", ec.ID, err)
		return model.ReviewVerdict{Approved: true, Feedback: "auto-approved: reviewer response unparseable"}
	}
	return verdict
}

var judgmentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"effective":     map[string]any{"type": "boolean"},
		"basis":         map[string]any{"type": "string"},
		"confidence":    map[string]any{"type": "number"},
		"evidence_refs": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"effective", "basis", "confidence"},
}

// refineJudgment rewrites the judgment from reviewer feedback. A failed
// refinement keeps the current judgment (revision still counts toward the
// cap).
func (o *Orchestrator) refineJudgment(ctx context.Context, ec *model.EvaluationContext, j *model.Judgment, verdict model.ReviewVerdict) *model.Judgment {
	var sb strings.Builder
	sb.WriteString("You are revising an audit judgment that a reviewer rejected. Keep the factual findings; fix the inconsistency the feedback names. Respond ONLY with JSON matching {\"effective\": <bool>, \"basis\": \"<string>\", \"confidence\": <0..1>, \"evidence_refs\": [\"<filename>\"]}.\n\n")
	jj, _ := json.Marshal(j)
	sb.WriteString(fmt.Sprintf("CURRENT JUDGMENT:\n%s\n\nREVIEWER FEEDBACK:\n%s\n\n", jj, verdict.Feedback))
	sb.WriteString(fmt.Sprintf("CONTROL DESCRIPTION:\n%s\n\nTEST PROCEDURE:\n%s\n\nAssistant: ", ec.ControlDescription, ec.TestProcedure))

	raw, err := o.inf.GenerateJSON(ctx, sb.String(), o.opts.Model, judgmentSchema)
	if err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: judgment refinement failed, keeping current judgment: %v", ec.ID, err)
		return bumpJudgmentRevision(j)
	}
	var revised model.Judgment
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &revised); err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: refined judgment unparseable, keeping current judgment: %v", ec.ID, err)
		return bumpJudgmentRevision(j)
	}
	revised.Revision = j.Revision + 1
	if revised.Confidence < 0 {
		revised.Confidence = 0
	}
	if revised.Confidence > 1 {
		revised.Confidence = 1
	}
	if len(revised.EvidenceRefs) == 0 {
		revised.EvidenceRefs = j.EvidenceRefs
	}
	return &revised
}

func bumpJudgmentRevision(j *model.Judgment) *model.Judgment {
	return &model.Judgment{
		Effective:    j.Effective,
		Basis:        j.Basis,
		Confidence:   j.Confidence,
		EvidenceRefs: j.EvidenceRefs,
		Revision:     j.Revision + 1,
	}
}

// finalizeJudgment strips hedging phrases and normalizes wording before the
// judgment leaves the orchestrator.
func finalizeJudgment(j *model.Judgment) *model.Judgment {
	out := *j
	out.Basis = StripHedges(j.Basis)
	return &out
}

// StripHedges drops sentences that carry a hedging or placeholder phrase and
// collapses the remaining whitespace. When everything would be dropped the
// original text survives; an empty basis is worse than a hedged one.
func StripHedges(basis string) string {
	sentences := strings.Split(basis, ".")
	var kept []string
	for _, s := range sentences {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if containsAny(lower, hedgePhrases) {
			continue
		}
		kept = append(kept, trimmed)
	}
	if len(kept) == 0 {
		return strings.TrimSpace(basis)
	}
	return strings.Join(kept, ". ") + "."
}
