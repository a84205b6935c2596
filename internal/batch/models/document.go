package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Attribute is one trait of a metadata document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Document is the presentation form of a batch. It is recomputed on every
// request so counters and IsActive are current while the snapshot stays frozen.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image,omitempty"`
	Attributes  []Attribute `json:"attributes"`
}

func (b *Batch) Document(image string) Document {
	return Document{
		Name: fmt.Sprintf("Carbon Credit Batch #%d", b.ID),
		Description: fmt.Sprintf("Verified carbon credit batch for project %s with %d credits available for sale at verification time.",
			b.ProjectID, b.Snapshot.AvailableForSale),
		Image: image,
		Attributes: []Attribute{
			{TraitType: "Project ID", Value: b.ProjectID},
			{TraitType: "GS Project ID", Value: b.Snapshot.ExternalProjectID},
			{TraitType: "Available Credits", Value: b.Snapshot.AvailableForSale},
			{TraitType: "Last Updated", Value: b.Snapshot.ExternalTimestamp},
			{TraitType: "Verification Status", Value: statusLabel(b.Snapshot.Status)},
			{TraitType: "Total Credits", Value: b.TotalCredits},
			{TraitType: "Issued Credits", Value: b.IssuedCredits},
			{TraitType: "Retired Credits", Value: b.RetiredCredits},
			{TraitType: "Active", Value: strconv.FormatBool(b.IsActive)},
		},
	}
}

// TokenURI encodes the document as a base64 JSON data URI.
func (d Document) TokenURI() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func statusLabel(status string) string {
	if status == "" {
		return "Unknown"
	}
	return strings.ToUpper(status[:1]) + status[1:]
}
