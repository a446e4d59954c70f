package wbem_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/rob-gra/go-wbem/wbem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionRejectsInvalidConfig(t *testing.T) {
	_, err := wbem.NewConnection(wbem.Config{})
	require.Error(t, err)
}

func TestConnectionRecordsStats(t *testing.T) {
	srv := fixtureServer(t, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0"><SIMPLERSP>
  <IMETHODRESPONSE NAME="DeleteInstance"><IRETURNVALUE/></IMETHODRESPONSE>
 </SIMPLERSP></MESSAGE></CIM>`)
	defer srv.Close()

	cfg := wbem.DefaultConfig(srv.URL)
	cfg.StatsEnabled = true
	conn, err := wbem.NewConnection(cfg)
	require.NoError(t, err)

	path := cim.NewInstanceName("PyWBEM_Person")
	path.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "Fritz"))
	require.NoError(t, conn.DeleteInstance(context.Background(), "", path))

	snap := conn.Stats()
	s, ok := snap["DeleteInstance"]
	require.True(t, ok)
	assert.Equal(t, int64(1), s.Count)
}

func TestConnectionUsesDefaultNamespaceWhenUnset(t *testing.T) {
	var gotNamespace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNamespace = r.Header.Get("CIMObject")
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Write([]byte(`<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0"><SIMPLERSP>
  <IMETHODRESPONSE NAME="EnumerateInstanceNames"><IRETURNVALUE/></IMETHODRESPONSE>
 </SIMPLERSP></MESSAGE></CIM>`))
	}))
	defer srv.Close()

	conn := testConnection(t, srv)
	_, err := conn.EnumerateInstanceNames(context.Background(), "", "PyWBEM_Person")
	require.NoError(t, err)
	assert.Equal(t, "root/cimv2", gotNamespace)
}
