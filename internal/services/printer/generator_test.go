package printer

import (
	"bytes"
	"testing"

	"github.com/xelth-com/eckclaims/internal/models"
)

func TestGenerateJobLabelsPDF(t *testing.T) {
	jobNo := "J-42"
	var jobs []models.SerialJob
	for i := 0; i < 30; i++ {
		jobs = append(jobs, models.SerialJob{RowKey: "row-" + string(rune('a'+i%26)), SerialNumber: "SN", RoundNumber: 1, JobNo: &jobNo})
	}

	out, err := GenerateJobLabelsPDF(jobs, LabelConfig{})
	if err != nil {
		t.Fatalf("GenerateJobLabelsPDF failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("Output is not a PDF")
	}
}

func TestGenerateJobLabelsPDFRequiresJobs(t *testing.T) {
	if _, err := GenerateJobLabelsPDF(nil, DefaultLabelConfig()); err == nil {
		t.Error("Expected error for empty job list")
	}
}

func TestQRPayload(t *testing.T) {
	cfg := LabelConfig{URLPrefix: "https://claims.example.com/jobs/"}
	got := QRPayload(cfg, models.SerialJob{RowKey: "abc"})
	if got != "https://claims.example.com/jobs/abc" {
		t.Errorf("QRPayload = %q", got)
	}
}
