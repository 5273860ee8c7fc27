// Package cdx decodes the subset of CycloneDX JSON the builtin plugins need.
package cdx

import (
	"encoding/json"
	"fmt"
)

type Supplier struct {
	Name string `json:"name"`
}

type LicenseChoice struct {
	License *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"license,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// Value returns the SPDX id, name or expression, whichever is present.
func (lc LicenseChoice) Value() string {
	if lc.Expression != "" {
		return lc.Expression
	}
	if lc.License != nil {
		if lc.License.ID != "" {
			return lc.License.ID
		}
		return lc.License.Name
	}
	return ""
}

type Component struct {
	BOMRef   string          `json:"bom-ref"`
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Purl     string          `json:"purl"`
	CPE      string          `json:"cpe"`
	Supplier *Supplier       `json:"supplier"`
	Licenses []LicenseChoice `json:"licenses"`
}

type Metadata struct {
	Timestamp string `json:"timestamp"`
	Authors   []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Component *Component `json:"component"`
	Supplier  *Supplier  `json:"supplier"`
}

type Document struct {
	BOMFormat    string      `json:"bomFormat"`
	SpecVersion  string      `json:"specVersion"`
	SerialNumber string      `json:"serialNumber"`
	Metadata     *Metadata   `json:"metadata"`
	Components   []Component `json:"components"`
}

// Decode parses a CycloneDX JSON document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing cyclonedx document: %w", err)
	}
	if doc.BOMFormat != "" && doc.BOMFormat != "CycloneDX" {
		return nil, fmt.Errorf("unsupported bomFormat: %s", doc.BOMFormat)
	}
	return &doc, nil
}
