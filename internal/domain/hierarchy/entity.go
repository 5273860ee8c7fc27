package hierarchy

// SBOM is the unit under assessment: a document attached to a component,
// optionally tied to a release.
type SBOM struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	ComponentID   string `json:"component_id"`
	ReleaseID     string `json:"release_id,omitempty"`
	Name          string `json:"name"`
	Format        string `json:"format,omitempty"` // cyclonedx | spdx
	ContentKey    string `json:"content_key"`
	ContentDigest string `json:"content_digest,omitempty"`
}

type Component struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Public   bool   `json:"public"`
}

type Project struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Public   bool   `json:"public"`
}

type Product struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}
