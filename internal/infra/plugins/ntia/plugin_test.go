package ntia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/plugins"
)

const completeBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "metadata": {
    "timestamp": "2026-02-01T09:00:00Z",
    "authors": [{"name": "Build Pipeline"}]
  },
  "components": [
    {
      "bom-ref": "pkg:npm/left-pad@1.3.0",
      "name": "left-pad",
      "version": "1.3.0",
      "purl": "pkg:npm/left-pad@1.3.0",
      "supplier": {"name": "npm"}
    }
  ]
}`

const incompleteBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "components": [
    {"name": "mystery-lib"}
  ]
}`

func assess(t *testing.T, doc string) *domain.Result {
	t.Helper()
	res, err := New().Assess(context.Background(), plugins.Input{Content: []byte(doc)})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func findingByID(t *testing.T, res *domain.Result, id string) domain.Finding {
	t.Helper()
	for _, f := range res.Findings {
		if f.ID == id {
			return f
		}
	}
	t.Fatalf("finding %s not present", id)
	return domain.Finding{}
}

func TestAssessCompleteDocumentPasses(t *testing.T) {
	res := assess(t, completeBOM)

	assert.Equal(t, 6, res.Summary.Total)
	assert.Equal(t, 6, res.Summary.Pass)
	assert.Zero(t, res.Summary.Fail)
}

func TestAssessIncompleteDocument(t *testing.T) {
	res := assess(t, incompleteBOM)

	assert.Equal(t, domain.FindingFail, findingByID(t, res, "ntia-supplier").Status)
	assert.Equal(t, domain.FindingFail, findingByID(t, res, "ntia-component-version").Status)
	assert.Equal(t, domain.FindingFail, findingByID(t, res, "ntia-unique-ids").Status)
	assert.Equal(t, domain.FindingFail, findingByID(t, res, "ntia-timestamp").Status)
	assert.Equal(t, domain.FindingFail, findingByID(t, res, "ntia-author").Status)
	assert.Equal(t, domain.FindingPass, findingByID(t, res, "ntia-component-name").Status)
	assert.Equal(t, 5, res.Summary.Fail)
}

func TestAssessAuthorViaMetadataSupplier(t *testing.T) {
	res := assess(t, `{
	  "bomFormat": "CycloneDX",
	  "metadata": {"timestamp": "2026-02-01T09:00:00Z", "supplier": {"name": "Acme Corp"}},
	  "components": [{
	    "bom-ref": "a", "name": "a", "version": "1",
	    "supplier": {"name": "Acme Corp"}
	  }]
	}`)

	assert.Equal(t, domain.FindingPass, findingByID(t, res, "ntia-author").Status)
}

func TestAssessRejectsForeignFormat(t *testing.T) {
	_, err := New().Assess(context.Background(), plugins.Input{
		Content: []byte(`{"bomFormat": "SPDX"}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported bomFormat")
}

func TestAssessEmptyComponentListFailsSupplier(t *testing.T) {
	res := assess(t, `{"bomFormat": "CycloneDX", "metadata": {"timestamp": "2026-02-01T09:00:00Z"}, "components": []}`)
	assert.Equal(t, domain.FindingFail, findingByID(t, res, "ntia-supplier").Status)
}
