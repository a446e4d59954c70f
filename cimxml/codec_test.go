package cimxml_test

import (
	"fmt"
	"testing"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/rob-gra/go-wbem/cimxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNamespace(t *testing.T) {
	cases := map[string][]string{
		"//root/mycim//": {"root", "mycim"},
		"root/cimv2":      {"root", "cimv2"},
		"/":               nil,
		"":                nil,
	}
	for in, want := range cases {
		assert.Equal(t, want, cimxml.SplitNamespace(in))
	}
}

func TestEncodeRequestNamespaceNormalization(t *testing.T) {
	body, err := cimxml.EncodeRequest(cimxml.IntrinsicMethod, "EnumerateInstances", "//root/mycim//", "1", nil, nil, nil)
	require.NoError(t, err)
	s := string(body)
	assert.Contains(t, s, `<NAMESPACE NAME="root"/><NAMESPACE NAME="mycim"/>`)
}

func TestInstanceNameRoundTrip(t *testing.T) {
	n := cim.NewInstanceName("PyWBEM_Person")
	n.SetKeybinding("Name", cim.NewScalar(cim.TypeString, "Fritz"))

	var b []byte
	params := []cimxml.Param{{Name: "InstanceName", InstanceName: &n}}
	body, err := cimxml.EncodeRequest(cimxml.IntrinsicMethod, "GetInstance", "root/cimv2", "1", nil, nil, params)
	require.NoError(t, err)
	b = body

	node, err := cimxml.ParseNode(b)
	require.NoError(t, err)
	iparam, ok := node.Child("MESSAGE")
	require.True(t, ok)
	simplereq, ok := iparam.Child("SIMPLEREQ")
	require.True(t, ok)
	imethod, ok := simplereq.Child("IMETHODCALL")
	require.True(t, ok)
	ip, ok := imethod.Child("IPARAMVALUE")
	require.True(t, ok)
	instanceNameNode, ok := ip.Child("INSTANCENAME")
	require.True(t, ok)

	decoded, err := cimxml.DecodeInstanceName(instanceNameNode)
	require.NoError(t, err)
	assert.True(t, n.Equal(decoded))
}

func TestDecodeResponseGetInstanceSuccess(t *testing.T) {
	// Scenario 1 of spec §8: GetInstance success.
	body := []byte(`<?xml version="1.0"?>
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

	resp, err := cimxml.DecodeResponse(body)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.True(t, resp.HasReturn)

	instNode, ok := resp.Return.Child("INSTANCE")
	require.True(t, ok)
	inst, err := cimxml.DecodeInstance(instNode)
	require.NoError(t, err)

	name, ok := inst.Property("Name")
	require.True(t, ok)
	assert.Equal(t, "Fritz", name.Value.Scalar())

	addr, ok := inst.Property("Address")
	require.True(t, ok)
	assert.Equal(t, "Fritz Town", addr.Value.Scalar())
}

func TestDecodeResponseNotFoundError(t *testing.T) {
	// Scenario 2 of spec §8: GetInstance not found.
	body := []byte(`<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1002" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="GetInstance">
    <ERROR CODE="6" DESCRIPTION="Instance not found"/>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`)

	resp, err := cimxml.DecodeResponse(body)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, 6, resp.Error.Code)
}

func TestDecodeResponseRejectsWrongTopElement(t *testing.T) {
	// Scenario 8 of spec §8.
	body := []byte(`<CIMX CIMVERSION="2.0" DTDVERSION="2.0"></CIMX>`)
	_, err := cimxml.DecodeResponse(body)
	require.Error(t, err)
	assert.ErrorIs(t, err, cimxml.ErrCIMXMLSchema)
}

func TestPropertyArrayRoundTrip(t *testing.T) {
	v := cim.NewArray(cim.TypeUint32, []interface{}{uint64(1), uint64(2), uint64(3)})
	p, err := cim.NewProperty("Numbers", v)
	require.NoError(t, err)

	inst := cim.NewInstance("CIM_Foo")
	inst.SetProperty(p)

	params := []cimxml.Param{{Name: "NewInstance", Instance: inst}}
	body, err := cimxml.EncodeRequest(cimxml.IntrinsicMethod, "CreateInstance", "root/cimv2", "1", nil, nil, params)
	require.NoError(t, err)

	node, err := cimxml.ParseNode(body)
	require.NoError(t, err)
	msg, _ := node.Child("MESSAGE")
	simplereq, _ := msg.Child("SIMPLEREQ")
	imethod, _ := simplereq.Child("IMETHODCALL")
	ip, _ := imethod.Child("IPARAMVALUE")
	instanceNode, ok := ip.Child("INSTANCE")
	require.True(t, ok)

	decoded, err := cimxml.DecodeInstance(instanceNode)
	require.NoError(t, err)
	dp, ok := decoded.Property("Numbers")
	require.True(t, ok)
	require.True(t, dp.Value.IsArray())
	assert.Equal(t, fmt.Sprint(p.Value.Array()), fmt.Sprint(dp.Value.Array()))
}

func TestInstanceQualifierRoundTrip(t *testing.T) {
	inst := cim.NewInstance("CIM_Foo")
	inst.Qualifiers.Set(cim.Qualifier{
		QualName:   "Description",
		Value:      cim.NewScalar(cim.TypeString, "a foo"),
		Propagated: true,
		Flavor:     cim.Flavor{Overridable: false, ToSubclass: true, ToInstance: true, Translatable: true},
	})
	p, err := cim.NewProperty("Name", cim.NewScalar(cim.TypeString, "Fritz"))
	require.NoError(t, err)
	p.Qualifiers.Set(cim.Qualifier{QualName: "Key", Value: cim.NewScalar(cim.TypeBoolean, true), Flavor: cim.Flavor{ToSubclass: true}})
	inst.SetProperty(p)

	params := []cimxml.Param{{Name: "NewInstance", Instance: inst}}
	body, err := cimxml.EncodeRequest(cimxml.IntrinsicMethod, "CreateInstance", "root/cimv2", "1", nil, nil, params)
	require.NoError(t, err)

	node, err := cimxml.ParseNode(body)
	require.NoError(t, err)
	msg, _ := node.Child("MESSAGE")
	simplereq, _ := msg.Child("SIMPLEREQ")
	imethod, _ := simplereq.Child("IMETHODCALL")
	ip, _ := imethod.Child("IPARAMVALUE")
	instanceNode, ok := ip.Child("INSTANCE")
	require.True(t, ok)

	decoded, err := cimxml.DecodeInstance(instanceNode)
	require.NoError(t, err)
	assert.True(t, inst.Equal(decoded))

	dq, ok := decoded.Qualifiers.Get("Description")
	require.True(t, ok)
	assert.True(t, dq.Propagated)
	assert.True(t, dq.Flavor.ToInstance)
	assert.True(t, dq.Flavor.Translatable)
	assert.False(t, dq.Flavor.Overridable)

	dp, ok := decoded.Property("Name")
	require.True(t, ok)
	_, ok = dp.Qualifiers.Get("Key")
	require.True(t, ok)
}

func TestClassWithMethodsAndQualifiersRoundTrip(t *testing.T) {
	c := cim.NewClass("CIM_Foo")
	c.SuperClass = "CIM_ManagedElement"
	c.Qualifiers.Set(cim.Qualifier{QualName: "Abstract", Value: cim.NewScalar(cim.TypeBoolean, true)})

	p, err := cim.NewProperty("Name", cim.NewScalar(cim.TypeString, ""))
	require.NoError(t, err)
	c.Properties.Set(p)

	m := cim.NewMethod("Start", cim.TypeUint32)
	m.ClassOrigin = "CIM_Foo"
	m.Qualifiers.Set(cim.Qualifier{QualName: "Description", Value: cim.NewScalar(cim.TypeString, "starts it")})
	m.Parameters.Set(cim.Parameter{ParamName: "Reason", Type: cim.TypeString, Qualifiers: cim.NewNamedList[cim.Qualifier]()})
	c.Methods.Set(m)

	params := []cimxml.Param{{Name: "NewClass", Class: c}}
	body, err := cimxml.EncodeRequest(cimxml.IntrinsicMethod, "CreateClass", "root/cimv2", "1", nil, nil, params)
	require.NoError(t, err)

	node, err := cimxml.ParseNode(body)
	require.NoError(t, err)
	msg, _ := node.Child("MESSAGE")
	simplereq, _ := msg.Child("SIMPLEREQ")
	imethod, _ := simplereq.Child("IMETHODCALL")
	ip, _ := imethod.Child("IPARAMVALUE")
	classNode, ok := ip.Child("CLASS")
	require.True(t, ok)

	decoded, err := cimxml.DecodeClass(classNode)
	require.NoError(t, err)
	assert.True(t, c.Equal(decoded))

	_, ok = decoded.Qualifiers.Get("Abstract")
	require.True(t, ok)

	dm, ok := decoded.Methods.Get("Start")
	require.True(t, ok)
	assert.Equal(t, "CIM_Foo", dm.ClassOrigin)
	_, ok = dm.Qualifiers.Get("Description")
	require.True(t, ok)
	_, ok = dm.Parameters.Get("Reason")
	require.True(t, ok)
}
