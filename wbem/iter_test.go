package wbem_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/rob-gra/go-wbem/wbem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// notSupportedThenTraditionalServer rejects the first (pull-dialect)
// request with CIM_ERR_NOT_SUPPORTED and serves every later request as
// a traditional EnumerateInstances reply. Scenario 4 of spec §8.
func notSupportedThenTraditionalServer(t *testing.T) *httptest.Server {
	t.Helper()
	var calls int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			fmt.Fprint(w, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0"><SIMPLERSP>
  <IMETHODRESPONSE NAME="OpenEnumerateInstances">
   <ERROR CODE="7" DESCRIPTION="Pull operations are not supported"/>
  </IMETHODRESPONSE>
 </SIMPLERSP></MESSAGE></CIM>`)
			return
		}
		fmt.Fprint(w, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="2" PROTOCOLVERSION="1.0"><SIMPLERSP>
  <IMETHODRESPONSE NAME="EnumerateInstances"><IRETURNVALUE>
   <INSTANCE CLASSNAME="PyWBEM_Person"><PROPERTY NAME="Name" TYPE="string"><VALUE>Fritz</VALUE></PROPERTY></INSTANCE>
  </IRETURNVALUE></IMETHODRESPONSE>
 </SIMPLERSP></MESSAGE></CIM>`)
	}))
}

func TestIterFallsBackToTraditionalOnNotSupported(t *testing.T) {
	srv := notSupportedThenTraditionalServer(t)
	defer srv.Close()

	conn := testConnection(t, srv)
	ctx := context.Background()

	it, err := conn.IterEnumerateInstances(ctx, "", "PyWBEM_Person", false, nil)
	require.NoError(t, err)

	inst, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	name, _ := inst.Property("Name")
	assert.Equal(t, "Fritz", name.Value.Scalar())

	_, ok, err = it.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A second iterator over the same namespace must skip straight to
	// the traditional dialect without retrying the pull operation.
	it2, err := conn.IterEnumerateInstances(ctx, "", "PyWBEM_Person", false, nil)
	require.NoError(t, err)
	inst2, ok, err := it2.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	name2, _ := inst2.Property("Name")
	assert.Equal(t, "Fritz", name2.Value.Scalar())
}

func TestIterAssociatorInstancesPullDialect(t *testing.T) {
	srv := fixtureServer(t, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0"><SIMPLERSP>
  <IMETHODRESPONSE NAME="OpenAssociatorInstances"><IRETURNVALUE>
   <INSTANCE CLASSNAME="PyWBEM_Person"><PROPERTY NAME="Name" TYPE="string"><VALUE>Gertrude</VALUE></PROPERTY></INSTANCE>
   <ENDOFSEQUENCE>TRUE</ENDOFSEQUENCE>
  </IRETURNVALUE></IMETHODRESPONSE>
 </SIMPLERSP></MESSAGE></CIM>`)
	defer srv.Close()

	conn := testConnection(t, srv)
	ctx := context.Background()
	path := cim.NewInstanceName("PyWBEM_Person")
	path.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "Fritz"))

	it, err := conn.IterAssociatorInstances(ctx, "", path, "", "", "", "", nil)
	require.NoError(t, err)

	inst, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	name, _ := inst.Property("Name")
	assert.Equal(t, "Gertrude", name.Value.Scalar())

	_, ok, err = it.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIterReferenceInstancesFallsBackToTraditionalOnNotSupported(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			fmt.Fprint(w, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0"><SIMPLERSP>
  <IMETHODRESPONSE NAME="OpenReferenceInstances">
   <ERROR CODE="7" DESCRIPTION="Pull operations are not supported"/>
  </IMETHODRESPONSE>
 </SIMPLERSP></MESSAGE></CIM>`)
			return
		}
		fmt.Fprint(w, `<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="2" PROTOCOLVERSION="1.0"><SIMPLERSP>
  <IMETHODRESPONSE NAME="References"><IRETURNVALUE>
   <VALUE.NAMEDINSTANCE>
    <INSTANCENAME CLASSNAME="PyWBEM_PersonRef"><KEYBINDING NAME="Name"><KEYVALUE VALUETYPE="string">Hans</KEYVALUE></KEYBINDING></INSTANCENAME>
    <INSTANCE CLASSNAME="PyWBEM_PersonRef"><PROPERTY NAME="Name" TYPE="string"><VALUE>Hans</VALUE></PROPERTY></INSTANCE>
   </VALUE.NAMEDINSTANCE>
  </IRETURNVALUE></IMETHODRESPONSE>
 </SIMPLERSP></MESSAGE></CIM>`)
	}))
	defer srv.Close()

	conn := testConnection(t, srv)
	ctx := context.Background()
	path := cim.NewInstanceName("PyWBEM_Person")
	path.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "Fritz"))

	it, err := conn.IterReferenceInstances(ctx, "", path, "", "", nil)
	require.NoError(t, err)

	inst, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	name, _ := inst.Property("Name")
	assert.Equal(t, "Hans", name.Value.Scalar())
}

// TestConcurrentIterConsumersShareDialectCache drives several
// concurrent Iter… consumers against the same connection with an
// errgroup, confirming the per-namespace dialect cache is safe under
// concurrent access once the fallback has been learned once.
func TestConcurrentIterConsumersShareDialectCache(t *testing.T) {
	srv := notSupportedThenTraditionalServer(t)
	defer srv.Close()

	conn := testConnection(t, srv)
	ctx := context.Background()

	// Prime the dialect cache with one sequential call so the
	// concurrent group below never races the first NOT_SUPPORTED probe.
	it, err := conn.IterEnumerateInstances(ctx, "", "PyWBEM_Person", false, nil)
	require.NoError(t, err)
	_, _, err = it.Next(ctx)
	require.NoError(t, err)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			it, err := conn.IterEnumerateInstances(gctx, "", "PyWBEM_Person", false, nil)
			if err != nil {
				return err
			}
			inst, ok, err := it.Next(gctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("expected at least one instance")
			}
			if name, _ := inst.Property("Name"); name.Value.Scalar() != "Fritz" {
				return fmt.Errorf("unexpected instance %v", name.Value.Scalar())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
