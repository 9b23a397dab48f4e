package site

import (
	"fmt"
	"strings"
)

// Demandware is a storefront running on Salesforce Commerce Cloud. Images are
// served from the shop host itself under a demandware.static path.
type Demandware struct {
	name       string
	host       string
	idFormat   string
	pathFormat string
	prefix     string
}

// Name implements prober.Target.
func (d Demandware) Name() string { return d.name }

// Host implements prober.Target.
func (d Demandware) Host() string { return d.host }

// MaxDigits implements prober.Target.
func (d Demandware) MaxDigits() int { return 7 }

// ParseID implements prober.Target. A leading catalog prefix is stripped once.
func (d Demandware) ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if d.prefix != "" {
		raw = strings.TrimPrefix(raw, d.prefix)
	}
	return parseInt(raw)
}

// FormatID implements prober.Target.
func (d Demandware) FormatID(id int64) string {
	return fmt.Sprintf(d.idFormat, id)
}

// ResourcePath implements prober.Target.
func (d Demandware) ResourcePath(id int64) string {
	return fmt.Sprintf(d.pathFormat, id)
}

// ResourceURL implements prober.Target.
func (d Demandware) ResourceURL(id int64) string {
	return "https://" + d.host + d.ResourcePath(id)
}
