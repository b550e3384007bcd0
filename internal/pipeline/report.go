package pipeline

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed report.tmpl
var reportTmpl string

var reportTemplate = template.Must(template.New("report").Parse(reportTmpl))

type reportMedication struct {
	Title        string
	Instructions string
	MatchType    string
	PillLabel    string
	ProductURL   string
	Reasoning    string
}

type reportData struct {
	Conditions  []string
	LabTests    []reportLabTest
	Medications []reportMedication
}

type reportLabTest struct {
	Test           string
	Value          string
	ReferenceRange string
}

// RenderReport fills the HTML report from the state. Rendering is pure
// and deterministic; a template error here means an upstream stage
// produced data outside its documented shape.
func (r *Runner) RenderReport(st *State) error {
	html, err := RenderHTML(st)
	if err != nil {
		return err
	}
	st.HTMLSummary = html
	return nil
}

// RenderHTML renders the report for a state without mutating it.
func RenderHTML(st *State) (string, error) {
	data := reportData{}
	if st.Diagnoses != nil {
		data.Conditions = st.Diagnoses.Conditions
		for _, lt := range st.Diagnoses.LabTests {
			data.LabTests = append(data.LabTests, reportLabTest{
				Test:           lt.Test,
				Value:          lt.Value,
				ReferenceRange: deref(lt.ReferenceRange),
			})
		}
	}

	for _, fm := range st.FixedMedications {
		med := fm.Medication
		title := med.Name
		if s := deref(med.Strength); s != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(s)) {
			title += " " + s
		}
		instructions := med.Instructions
		if d := deref(med.Duration); d != "" {
			instructions = strings.TrimSpace(instructions + " for " + d)
		}

		data.Medications = append(data.Medications, reportMedication{
			Title:        title,
			Instructions: instructions,
			MatchType:    fm.MatchType,
			PillLabel:    pillLabel(fm),
			ProductURL:   deref(fm.ProductURL),
			Reasoning:    fm.Reasoning,
		})
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}

func pillLabel(fm FixedMedication) string {
	switch fm.MatchType {
	case MatchExact:
		return fmt.Sprintf("exact match (%d%%)", fm.Confidence)
	case MatchAlternative:
		return fmt.Sprintf("alternative (%d%%)", fm.Confidence)
	default:
		return "no match"
	}
}
