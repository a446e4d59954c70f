package wbem_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/rob-gra/go-wbem/wbem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureServer replies to every /cimom POST with body regardless of
// what was sent, mirroring the literal request/response pairs of spec
// §8.
func fixtureServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		fmt.Fprint(w, body)
	}))
}

func testConnection(t *testing.T, srv *httptest.Server) *wbem.Connection {
	t.Helper()
	cfg := wbem.DefaultConfig(srv.URL)
	conn, err := wbem.NewConnection(cfg)
	require.NoError(t, err)
	return conn
}

func TestGetInstanceSuccess(t *testing.T) {
	// Scenario 1 of spec §8.
	srv := fixtureServer(t, `<?xml version="1.0"?>
<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1001" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="GetInstance">
    <IRETURNVALUE>
     <INSTANCE CLASSNAME="PyWBEM_Person">
      <PROPERTY NAME="Name" TYPE="string"><VALUE>Fritz</VALUE></PROPERTY>
      <PROPERTY NAME="Address" TYPE="string"><VALUE>Fritz Town</VALUE></PROPERTY>
     </INSTANCE>
    </IRETURNVALUE>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`)
	defer srv.Close()

	conn := testConnection(t, srv)
	path := cim.NewInstanceName("PyWBEM_Person")
	path.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "Fritz"))

	inst, err := conn.GetInstance(context.Background(), "", path, false, true, false, nil)
	require.NoError(t, err)

	name, ok := inst.Property("Name")
	require.True(t, ok)
	assert.Equal(t, "Fritz", name.Value.Scalar())
	addr, ok := inst.Property("Address")
	require.True(t, ok)
	assert.Equal(t, "Fritz Town", addr.Value.Scalar())
}

func TestGetInstanceNotFound(t *testing.T) {
	// Scenario 2 of spec §8.
	srv := fixtureServer(t, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1002" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="GetInstance">
    <ERROR CODE="6" DESCRIPTION="Instance not found"/>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`)
	defer srv.Close()

	conn := testConnection(t, srv)
	path := cim.NewInstanceName("PyWBEM_Person")
	path.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "Nonexistent"))

	_, err := conn.GetInstance(context.Background(), "", path, false, true, false, nil)
	require.Error(t, err)

	var werr *wbem.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, wbem.KindCIMError, werr.Kind)
	assert.Equal(t, wbem.ErrNotFound, werr.StatusCode)
}

func TestEnumerateInstancesMultiple(t *testing.T) {
	srv := fixtureServer(t, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="EnumerateInstances">
    <IRETURNVALUE>
     <INSTANCE CLASSNAME="PyWBEM_Person">
      <PROPERTY NAME="Name" TYPE="string"><VALUE>Fritz</VALUE></PROPERTY>
     </INSTANCE>
     <INSTANCE CLASSNAME="PyWBEM_Person">
      <PROPERTY NAME="Name" TYPE="string"><VALUE>Gertrude</VALUE></PROPERTY>
     </INSTANCE>
    </IRETURNVALUE>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`)
	defer srv.Close()

	conn := testConnection(t, srv)
	insts, err := conn.EnumerateInstances(context.Background(), "", "PyWBEM_Person", false, false, true, false, nil)
	require.NoError(t, err)
	require.Len(t, insts, 2)

	n0, _ := insts[0].Property("Name")
	n1, _ := insts[1].Property("Name")
	assert.Equal(t, "Fritz", n0.Value.Scalar())
	assert.Equal(t, "Gertrude", n1.Value.Scalar())
}

func TestDeleteInstanceVoidReturn(t *testing.T) {
	srv := fixtureServer(t, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="DeleteInstance">
    <IRETURNVALUE/>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`)
	defer srv.Close()

	conn := testConnection(t, srv)
	path := cim.NewInstanceName("PyWBEM_Person")
	path.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "Fritz"))

	err := conn.DeleteInstance(context.Background(), "", path)
	require.NoError(t, err)
}

func TestGetQualifierFullyPopulated(t *testing.T) {
	srv := fixtureServer(t, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="GetQualifier">
    <IRETURNVALUE>
     <QUALIFIER.DECLARATION NAME="Key" TYPE="boolean" ISARRAY="false" OVERRIDABLE="false" TOSUBCLASS="true" TOINSTANCE="false" TRANSLATABLE="false">
      <SCOPE PROPERTY="true" REFERENCE="true"/>
      <VALUE>TRUE</VALUE>
     </QUALIFIER.DECLARATION>
    </IRETURNVALUE>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`)
	defer srv.Close()

	conn := testConnection(t, srv)
	qd, err := conn.GetQualifier(context.Background(), "", "Key")
	require.NoError(t, err)

	assert.Equal(t, "Key", qd.QualName)
	assert.Equal(t, cim.TypeBoolean, qd.Type)
	assert.Equal(t, true, qd.Value.Scalar())
	assert.False(t, qd.IsArray)
	assert.False(t, qd.Flavor.Overridable)
	assert.True(t, qd.Flavor.ToSubclass)
	assert.True(t, qd.HasScope(cim.ScopeProperty))
	assert.True(t, qd.HasScope(cim.ScopeReference))
	assert.False(t, qd.HasScope(cim.ScopeMethod))
}

func TestSetQualifierSendsQualifierDeclarationElement(t *testing.T) {
	var captured string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = string(body)
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		fmt.Fprint(w, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0"><SIMPLERSP>
  <IMETHODRESPONSE NAME="SetQualifier"><IRETURNVALUE/></IMETHODRESPONSE>
 </SIMPLERSP></MESSAGE></CIM>`)
	}))
	defer srv.Close()

	conn := testConnection(t, srv)
	qd := &cim.QualifierDeclaration{
		QualName: "Key",
		Type:     cim.TypeBoolean,
		Value:    cim.NewScalar(cim.TypeBoolean, true),
		Scopes:   map[cim.Scope]bool{cim.ScopeProperty: true},
		Flavor:   cim.Flavor{ToSubclass: true},
	}
	err := conn.SetQualifier(context.Background(), "", qd)
	require.NoError(t, err)

	assert.Contains(t, captured, "<QUALIFIER.DECLARATION")
	assert.Contains(t, captured, `NAME="Key"`)
	assert.Contains(t, captured, `<SCOPE`)
	assert.NotContains(t, captured, "IPARAMVALUE NAME=\"Value\"")
}

func TestWrongTopElementSurfacesAsCIMXMLParseError(t *testing.T) {
	// Scenario 8 of spec §8.
	srv := fixtureServer(t, `<CIMX CIMVERSION="2.0" DTDVERSION="2.0"></CIMX>`)
	defer srv.Close()

	conn := testConnection(t, srv)
	_, err := conn.EnumerateInstanceNames(context.Background(), "", "PyWBEM_Person")
	require.Error(t, err)

	var werr *wbem.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, wbem.KindCIMXMLParseError, werr.Kind)
}
