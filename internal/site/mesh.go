package site

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

const meshHost = "i1.adis.ws"

// Mesh is a storefront whose product images are served from the shared
// adis.ws image host. Ids are six digits, zero padded.
type Mesh struct {
	name   string
	code   string
	suffix string
}

// Name implements prober.Target.
func (m Mesh) Name() string { return m.name }

// Host implements prober.Target.
func (m Mesh) Host() string { return meshHost }

// MaxDigits implements prober.Target.
func (m Mesh) MaxDigits() int { return 6 }

// ParseID implements prober.Target. The formatted suffix, if any, is accepted.
func (m Mesh) ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if m.suffix != "" {
		raw = strings.TrimSuffix(raw, m.suffix)
	}
	return parseInt(raw)
}

// FormatID implements prober.Target.
func (m Mesh) FormatID(id int64) string {
	return fmt.Sprintf("%06d%s", id, m.suffix)
}

// ResourcePath implements prober.Target.
func (m Mesh) ResourcePath(id int64) string {
	return fmt.Sprintf("/i/jpl/%s_%06d_a", m.code, id)
}

// ResourceURL implements prober.Target.
func (m Mesh) ResourceURL(id int64) string {
	return "http://" + meshHost + m.ResourcePath(id)
}

func parseInt(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", prober.ErrInvalidIdentifier, raw)
	}
	return id, nil
}
