package cim_test

import (
	"testing"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWBEMURIRoundTrip(t *testing.T) {
	n := cim.NewInstanceName("PyWBEM_Person")
	n.SetKeybinding("CreationClassName", cim.NewScalar(cim.TypeString, "PyWBEM_Person"))
	n.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "Alice"))

	got := n.WBEMURI()
	assert.Equal(t, `PyWBEM_Person.CreationClassName="PyWBEM_Person",Name="Alice"`, got)

	parsed, err := cim.ParseWBEMURI(got)
	require.NoError(t, err)
	assert.True(t, n.Equal(parsed))
}

func TestWBEMURIWithHostAndNamespace(t *testing.T) {
	n := cim.NewInstanceName("CIM_Foo")
	n.Host = "leonardo"
	n.Namespace = "root/cimv2"
	n.SetKeybinding("InstanceID", cim.NewScalar(cim.TypeSint64, int64(42)))

	got := n.WBEMURI()
	assert.Equal(t, `//leonardo/root/cimv2:CIM_Foo.InstanceID=42`, got)

	parsed, err := cim.ParseWBEMURI(got)
	require.NoError(t, err)
	assert.True(t, n.Equal(parsed))
}

func TestKeybindingCaseInsensitiveLookup(t *testing.T) {
	n := cim.NewInstanceName("CIM_Foo")
	n.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "x"))

	for _, key := range []string{"Name", "NAME", "name", "nAmE"} {
		v, ok := n.Keybinding(key)
		require.True(t, ok)
		assert.Equal(t, "x", v.Scalar())
	}
}
