// Package ntia checks a CycloneDX SBOM for the NTIA minimum elements.
package ntia

import (
	"context"
	"fmt"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/plugins"
	"github.com/sbomify/assessments/internal/infra/plugins/cdx"
)

const (
	Name    = "ntia-minimum-elements"
	Version = "1.2.0"
)

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Metadata() plugins.Metadata {
	return plugins.Metadata{Name: Name, Version: Version, Category: domain.CategoryCompliance}
}

// Catalog is the registry entry for this plugin.
func Catalog() plugins.RegisteredPlugin {
	return plugins.RegisteredPlugin{
		Name:        Name,
		DisplayName: "NTIA Minimum Elements",
		Category:    domain.CategoryCompliance,
		Version:     Version,
		Enabled:     true,
	}
}

func (p *Plugin) Assess(_ context.Context, in plugins.Input) (*domain.Result, error) {
	doc, err := cdx.Decode(in.Content)
	if err != nil {
		return nil, err
	}

	var findings []domain.Finding
	findings = append(findings,
		checkSupplier(doc),
		checkComponentNames(doc),
		checkComponentVersions(doc),
		checkUniqueIDs(doc),
		checkTimestamp(doc),
		checkAuthor(doc),
	)
	return domain.NewResult(findings), nil
}

func checkSupplier(doc *cdx.Document) domain.Finding {
	f := domain.Finding{
		ID:    "ntia-supplier",
		Title: "Supplier name",
	}
	missing := 0
	for _, c := range doc.Components {
		if c.Supplier == nil || c.Supplier.Name == "" {
			missing++
		}
	}
	if len(doc.Components) == 0 || missing > 0 {
		f.Status = domain.FindingFail
		f.Description = fmt.Sprintf("%d of %d components lack a supplier name", missing, len(doc.Components))
		f.Remediation = "Populate supplier.name for every component."
		return f
	}
	f.Status = domain.FindingPass
	f.Description = "All components declare a supplier."
	return f
}

func checkComponentNames(doc *cdx.Document) domain.Finding {
	f := domain.Finding{ID: "ntia-component-name", Title: "Component names"}
	missing := 0
	for _, c := range doc.Components {
		if c.Name == "" {
			missing++
		}
	}
	if missing > 0 {
		f.Status = domain.FindingFail
		f.Description = fmt.Sprintf("%d components have no name", missing)
		return f
	}
	f.Status = domain.FindingPass
	f.Description = "Every component is named."
	return f
}

func checkComponentVersions(doc *cdx.Document) domain.Finding {
	f := domain.Finding{ID: "ntia-component-version", Title: "Component versions"}
	missing := 0
	for _, c := range doc.Components {
		if c.Version == "" {
			missing++
		}
	}
	if missing > 0 {
		f.Status = domain.FindingFail
		f.Description = fmt.Sprintf("%d components have no version", missing)
		f.Remediation = "Pin and record a version for every component."
		return f
	}
	f.Status = domain.FindingPass
	f.Description = "Every component carries a version."
	return f
}

func checkUniqueIDs(doc *cdx.Document) domain.Finding {
	f := domain.Finding{ID: "ntia-unique-ids", Title: "Unique identifiers"}
	missing := 0
	for _, c := range doc.Components {
		if c.Purl == "" && c.CPE == "" && c.BOMRef == "" {
			missing++
		}
	}
	if missing > 0 {
		f.Status = domain.FindingFail
		f.Description = fmt.Sprintf("%d components have no purl, CPE or bom-ref", missing)
		return f
	}
	f.Status = domain.FindingPass
	f.Description = "Every component has at least one unique identifier."
	return f
}

func checkTimestamp(doc *cdx.Document) domain.Finding {
	f := domain.Finding{ID: "ntia-timestamp", Title: "Creation timestamp"}
	if doc.Metadata == nil || doc.Metadata.Timestamp == "" {
		f.Status = domain.FindingFail
		f.Description = "Document metadata carries no creation timestamp."
		return f
	}
	f.Status = domain.FindingPass
	f.Description = "Creation timestamp present."
	return f
}

func checkAuthor(doc *cdx.Document) domain.Finding {
	f := domain.Finding{ID: "ntia-author", Title: "SBOM author"}
	if doc.Metadata != nil {
		if len(doc.Metadata.Authors) > 0 || doc.Metadata.Supplier != nil {
			f.Status = domain.FindingPass
			f.Description = "Document declares its author."
			return f
		}
	}
	f.Status = domain.FindingFail
	f.Description = "Neither metadata.authors nor metadata.supplier is set."
	return f
}
