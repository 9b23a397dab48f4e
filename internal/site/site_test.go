package site

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

func lookup(t *testing.T, name string) prober.Target {
	t.Helper()
	target, err := DefaultRegistry().Lookup(name)
	require.NoError(t, err)
	return target
}

func TestRegistry_LookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	target, err := DefaultRegistry().Lookup(" FootPatrol ")
	require.NoError(t, err)
	require.Equal(t, "footpatrol", target.Name())
}

func TestRegistry_UnknownTarget(t *testing.T) {
	t.Parallel()

	_, err := DefaultRegistry().Lookup("nowhere")
	require.Error(t, err)
	require.True(t, errors.Is(err, prober.ErrUnsupportedTarget))
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		"courir", "footpatrol", "jdsports", "onygo",
		"size", "snipes", "solebox", "thehipstore",
	}, DefaultRegistry().Names())
}

func TestMesh(t *testing.T) {
	t.Parallel()

	fp := lookup(t, "footpatrol")
	assert.Equal(t, "i1.adis.ws", fp.Host())
	assert.Equal(t, 6, fp.MaxDigits())
	assert.Equal(t, "000042_footpatrolcom", fp.FormatID(42))
	assert.Equal(t, "/i/jpl/fp_000042_a", fp.ResourcePath(42))
	assert.Equal(t, "http://i1.adis.ws/i/jpl/fp_000042_a", fp.ResourceURL(42))

	id, err := fp.ParseID("000042_footpatrolcom")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	size := lookup(t, "size")
	assert.Equal(t, "123456", size.FormatID(123456))
	assert.Equal(t, "http://i1.adis.ws/i/jpl/sz_123456_a", size.ResourceURL(123456))
}

func TestDemandware_Courir(t *testing.T) {
	t.Parallel()

	courir := lookup(t, "courir")
	for _, raw := range []string{"1488941", "01488941", "001488941"} {
		id, err := courir.ParseID(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, int64(1488941), id, raw)
	}
	assert.Equal(t, "1488941", courir.FormatID(1488941))
	assert.Equal(t, 7, courir.MaxDigits())
	assert.Equal(t,
		"https://www.courir.com/on/demandware.static/-/Sites-master-catalog-courir/default/dw227c85ea/images/hi-res/001488941_101.png",
		courir.ResourceURL(1488941))
}

func TestDemandware_Prefixed(t *testing.T) {
	t.Parallel()

	snipes := lookup(t, "snipes")
	assert.Equal(t, "00013800001234", snipes.FormatID(1234))
	id, err := snipes.ParseID("00013800001234")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), id)
	assert.Contains(t, snipes.ResourceURL(1234), "https://www.snipes.com/dw/image/v2/BDCB_PRD/")
	assert.Contains(t, snipes.ResourceURL(1234), "/1234_P.jpg?")

	solebox := lookup(t, "solebox")
	assert.Equal(t, "00001234", solebox.FormatID(1234))
}

func TestParseID_Invalid(t *testing.T) {
	t.Parallel()

	_, err := lookup(t, "onygo").ParseID("abc")
	require.Error(t, err)
	require.True(t, errors.Is(err, prober.ErrInvalidIdentifier))

	id, err := lookup(t, "onygo").ParseID("-1")
	require.NoError(t, err)
	require.Equal(t, int64(-1), id)
}
