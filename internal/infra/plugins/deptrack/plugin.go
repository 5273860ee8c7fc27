package deptrack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/mappings"
	"github.com/sbomify/assessments/internal/domain/plugins"
)

const (
	Name    = "dependency-track"
	Version = "2.1.0"
)

// ServerDirectory resolves a configured server name to a client. Dibangun
// di main dari daftar server pada config.
type ServerDirectory interface {
	Client(name string) (*Client, bool)
	Names() []string
}

// StaticDirectory is a fixed name -> client table.
type StaticDirectory struct {
	clients map[string]*Client
	names   []string
}

func NewStaticDirectory(servers map[string]*Client) *StaticDirectory {
	d := &StaticDirectory{clients: servers}
	for name := range servers {
		d.names = append(d.names, name)
	}
	return d
}

func (d *StaticDirectory) Client(name string) (*Client, bool) {
	c, ok := d.clients[name]
	return c, ok
}

func (d *StaticDirectory) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Plugin uploads the SBOM to an external vulnerability analysis server and
// polls for its findings. Each (release, server) pair maps to exactly one
// external project; the mapping store memoizes that identity so re-uploads
// for newer SBOMs of the same release land on the same project.
type Plugin struct {
	Servers  ServerDirectory
	Mappings mappings.Repository
}

func (p *Plugin) Metadata() plugins.Metadata {
	return plugins.Metadata{Name: Name, Version: Version, Category: domain.CategorySecurity}
}

// Catalog is the registry entry for this plugin. Schema-nya menunjuk
// resolver dinamis deptrack_servers untuk daftar pilihan server.
func Catalog() plugins.RegisteredPlugin {
	return plugins.RegisteredPlugin{
		Name:        Name,
		DisplayName: "Dependency-Track Vulnerability Analysis",
		Category:    domain.CategorySecurity,
		Version:     Version,
		Enabled:     true,
		Feature:     "vulnerability-scanning",
		Requires: &plugins.Requirement{
			Mode:       plugins.RequireOneOf,
			Categories: []domain.Category{domain.CategoryCompliance},
		},
		Schema: []plugins.ConfigField{
			{
				Key:           "server",
				Label:         "Analysis server",
				Type:          "choice",
				ChoicesSource: "deptrack_servers",
			},
		},
	}
}

func (p *Plugin) Assess(ctx context.Context, in plugins.Input) (*domain.Result, error) {
	serverName, _ := in.Config["server"].(string)
	if serverName == "" {
		return nil, errors.New("config field server is required")
	}
	client, ok := p.Servers.Client(serverName)
	if !ok {
		return nil, fmt.Errorf("server %q is not configured", serverName)
	}

	releaseID := in.ReleaseID
	if releaseID == "" {
		// artifact tanpa release tetap bisa di-scan; pakai id artifact
		// sebagai owning key supaya mapping tetap stabil
		releaseID = in.SBOMID
	}

	project, err := p.resolveProject(ctx, client, releaseID, serverName, in.TenantID)
	if err != nil {
		return nil, err
	}

	if in.Attempt == 0 {
		if err := client.UploadBOM(ctx, project, in.Content); err != nil {
			return nil, err
		}
		return nil, domain.RetryLater("bom uploaded, analysis in progress")
	}

	processing, err := client.BOMStatus(ctx, project)
	if err != nil {
		return nil, err
	}
	if processing {
		return nil, domain.RetryLater("analysis still in progress")
	}

	raw, err := client.Findings(ctx, project)
	if err != nil {
		return nil, err
	}
	return domain.NewResult(convertFindings(raw)), nil
}

// resolveProject returns the external project uuid for (release, server),
// creating the remote project on first sight. Dua worker bisa sampai sini
// bersamaan; GetOrCreate memastikan hanya satu mapping yang menang dan
// keduanya memakai uuid pemenang.
func (p *Plugin) resolveProject(ctx context.Context, client *Client, releaseID, serverName, tenantID string) (string, error) {
	m, err := p.Mappings.Get(ctx, releaseID, serverName)
	if err == nil {
		return m.ExternalID, nil
	}
	if !errors.Is(err, mappings.ErrNotFound) {
		return "", fmt.Errorf("looking up project mapping: %w", err)
	}

	uuid, err := client.CreateProject(ctx, tenantID+"/"+releaseID, "latest")
	if err != nil {
		return "", err
	}
	m, err = p.Mappings.GetOrCreate(ctx, &mappings.ExternalProject{
		ReleaseID:  releaseID,
		ServerName: serverName,
		ExternalID: uuid,
	})
	if err != nil {
		return "", fmt.Errorf("recording project mapping: %w", err)
	}
	// kalau kalah race, uuid kita jadi project yatim di server; tidak apa
	return m.ExternalID, nil
}

func convertFindings(raw []findingResponse) []domain.Finding {
	out := make([]domain.Finding, 0, len(raw))
	for _, f := range raw {
		if f.Analysis.Suppressed {
			continue
		}
		sev := mapSeverity(f.Vulnerability.Severity)
		component := f.Component.Name
		if f.Component.Version != "" {
			component += "@" + f.Component.Version
		}
		out = append(out, domain.Finding{
			ID:          f.Vulnerability.VulnID,
			Title:       f.Vulnerability.VulnID + " in " + component,
			Description: f.Vulnerability.Description,
			Status:      statusFor(sev),
			Severity:    sev,
			CVSS:        f.Vulnerability.CVSSV3Score,
			Component:   component,
			Remediation: f.Vulnerability.Recommendation,
		})
	}
	return out
}

func mapSeverity(s string) domain.Severity {
	switch strings.ToLower(s) {
	case "critical":
		return domain.SeverityCritical
	case "high":
		return domain.SeverityHigh
	case "medium":
		return domain.SeverityMedium
	case "low":
		return domain.SeverityLow
	case "info", "informational":
		return domain.SeverityInfo
	default:
		return domain.SeverityUnknown
	}
}

// statusFor menentukan apakah sebuah vulnerability menggagalkan run.
// Critical/high dianggap fail, sisanya warning atau info.
func statusFor(sev domain.Severity) domain.FindingStatus {
	switch sev {
	case domain.SeverityCritical, domain.SeverityHigh:
		return domain.FindingFail
	case domain.SeverityMedium, domain.SeverityLow:
		return domain.FindingWarning
	default:
		return domain.FindingInfo
	}
}
