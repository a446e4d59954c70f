package wbem

import (
	"context"
	"fmt"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/rob-gra/go-wbem/cimxml"
)

// This file implements the traditional (non-pull) CIM operations of
// spec §4.5. Each method follows the same three-step shape as the
// teacher's asdu/csys.go command functions: build parameters, call the
// transport through Connection.call, and decode the IRETURNVALUE into
// typed cim objects.

func strParam(name, s string) cimxml.Param {
	return cimxml.Param{Name: name, Value: cim.NewScalar(cim.TypeString, s)}
}

func boolParam(name string, b bool) cimxml.Param {
	return cimxml.Param{Name: name, Value: cim.NewScalar(cim.TypeBoolean, b)}
}

func instanceNameParam(name string, n cim.InstanceName) cimxml.Param {
	return cimxml.Param{Name: name, InstanceName: &n}
}

func instanceParam(name string, i *cim.Instance) cimxml.Param {
	return cimxml.Param{Name: name, Instance: i}
}

func classParam(name string, c *cim.Class) cimxml.Param {
	return cimxml.Param{Name: name, Class: c}
}

func stringArrayParam(name string, vals []string) cimxml.Param {
	arr := make([]interface{}, len(vals))
	for i, v := range vals {
		arr[i] = v
	}
	return cimxml.Param{Name: name, Value: cim.NewArray(cim.TypeString, arr)}
}

func uint32Param(name string, v uint32) cimxml.Param {
	return cimxml.Param{Name: name, Value: cim.NewScalar(cim.TypeUint32, uint64(v))}
}

func withPropertyList(params []cimxml.Param, propertyList []string) []cimxml.Param {
	if propertyList == nil {
		return params
	}
	return append(params, stringArrayParam("PropertyList", propertyList))
}

// GetInstance retrieves one instance by path, per spec §4.5.1.
func (c *Connection) GetInstance(ctx context.Context, namespace string, path cim.InstanceName,
	localOnly, includeQualifiers, includeClassOrigin bool, propertyList []string) (*cim.Instance, error) {

	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{
		instanceNameParam("InstanceName", path),
		boolParam("LocalOnly", localOnly),
		boolParam("IncludeQualifiers", includeQualifiers),
		boolParam("IncludeClassOrigin", includeClassOrigin),
	}
	params = withPropertyList(params, propertyList)

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "GetInstance", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	instNode, ok := resp.Return.Child("INSTANCE")
	if !ok {
		return nil, newCIMXMLParseError("GetInstance", fmt.Errorf("IRETURNVALUE has no INSTANCE"))
	}
	return cimxml.DecodeInstance(instNode)
}

// EnumerateInstances retrieves every instance of className (and,
// if deepInheritance, its subclasses), per spec §4.5.2.
func (c *Connection) EnumerateInstances(ctx context.Context, namespace, className string,
	deepInheritance, localOnly, includeQualifiers, includeClassOrigin bool, propertyList []string) ([]*cim.Instance, error) {

	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{
		strParam("ClassName", className),
		boolParam("DeepInheritance", deepInheritance),
		boolParam("LocalOnly", localOnly),
		boolParam("IncludeQualifiers", includeQualifiers),
		boolParam("IncludeClassOrigin", includeClassOrigin),
	}
	params = withPropertyList(params, propertyList)

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "EnumerateInstances", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	var out []*cim.Instance
	for _, n := range resp.Return.ChildrenNamed("INSTANCE") {
		inst, err := cimxml.DecodeInstance(n)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// EnumerateInstanceNames retrieves the paths of every instance of
// className, per spec §4.5.3.
func (c *Connection) EnumerateInstanceNames(ctx context.Context, namespace, className string) ([]cim.InstanceName, error) {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{strParam("ClassName", className)}

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "EnumerateInstanceNames", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	var out []cim.InstanceName
	for _, n := range resp.Return.ChildrenNamed("INSTANCENAME") {
		name, err := cimxml.DecodeInstanceName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// CreateInstance creates newInstance in namespace, returning its
// assigned path, per spec §4.5.4.
func (c *Connection) CreateInstance(ctx context.Context, namespace string, newInstance *cim.Instance) (cim.InstanceName, error) {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{instanceParam("NewInstance", newInstance)}

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "CreateInstance", ns, nil, nil, params)
	if err != nil {
		return cim.InstanceName{}, err
	}
	if n, ok := resp.Return.Child("INSTANCENAME"); ok {
		return cimxml.DecodeInstanceName(n)
	}
	return cim.InstanceName{}, newCIMXMLParseError("CreateInstance", fmt.Errorf("IRETURNVALUE has no INSTANCENAME"))
}

// ModifyInstance overwrites an existing instance's properties, per
// spec §4.5.5. When propertyList is non-nil, only those properties are
// modified.
func (c *Connection) ModifyInstance(ctx context.Context, namespace string, modifiedInstance *cim.Instance,
	includeQualifiers bool, propertyList []string) error {

	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{
		instanceParam("ModifiedInstance", modifiedInstance),
		boolParam("IncludeQualifiers", includeQualifiers),
	}
	params = withPropertyList(params, propertyList)

	_, err := c.call(ctx, cimxml.IntrinsicMethod, "ModifyInstance", ns, nil, nil, params)
	return err
}

// DeleteInstance removes the instance at path, per spec §4.5.6.
func (c *Connection) DeleteInstance(ctx context.Context, namespace string, path cim.InstanceName) error {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{instanceNameParam("InstanceName", path)}
	_, err := c.call(ctx, cimxml.IntrinsicMethod, "DeleteInstance", ns, nil, nil, params)
	return err
}

// AssociatedObject pairs an associated instance's path with its
// instance data, the wire shape of a VALUE.NAMEDINSTANCE element used
// by Associators and References.
type AssociatedObject struct {
	Path     cim.InstanceName
	Instance *cim.Instance
}

func decodeNamedInstances(nodes []cimxml.Node) ([]AssociatedObject, error) {
	out := make([]AssociatedObject, 0, len(nodes))
	for _, n := range nodes {
		pathNode, ok := n.Child("INSTANCENAME")
		if !ok {
			return nil, newCIMXMLParseError("", fmt.Errorf("VALUE.NAMEDINSTANCE missing INSTANCENAME"))
		}
		path, err := cimxml.DecodeInstanceName(pathNode)
		if err != nil {
			return nil, err
		}
		instNode, ok := n.Child("INSTANCE")
		if !ok {
			return nil, newCIMXMLParseError("", fmt.Errorf("VALUE.NAMEDINSTANCE missing INSTANCE"))
		}
		inst, err := cimxml.DecodeInstance(instNode)
		if err != nil {
			return nil, err
		}
		out = append(out, AssociatedObject{Path: path, Instance: inst})
	}
	return out, nil
}

// associatorParams builds the shared parameter set of Associators,
// AssociatorNames, References, and ReferenceNames, per spec §4.5.7-10.
func associatorParams(path cim.InstanceName, assocClass, resultClass, role, resultRole string) []cimxml.Param {
	params := []cimxml.Param{instanceNameParam("ObjectName", path)}
	if assocClass != "" {
		params = append(params, strParam("AssocClass", assocClass))
	}
	if resultClass != "" {
		params = append(params, strParam("ResultClass", resultClass))
	}
	if role != "" {
		params = append(params, strParam("Role", role))
	}
	if resultRole != "" {
		params = append(params, strParam("ResultRole", resultRole))
	}
	return params
}

// Associators retrieves the instances associated with path, per spec
// §4.5.7.
func (c *Connection) Associators(ctx context.Context, namespace string, path cim.InstanceName,
	assocClass, resultClass, role, resultRole string,
	includeQualifiers, includeClassOrigin bool, propertyList []string) ([]AssociatedObject, error) {

	ns := c.namespaceOrDefault(namespace)
	params := associatorParams(path, assocClass, resultClass, role, resultRole)
	params = append(params, boolParam("IncludeQualifiers", includeQualifiers), boolParam("IncludeClassOrigin", includeClassOrigin))
	params = withPropertyList(params, propertyList)

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "Associators", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	return decodeNamedInstances(resp.Return.ChildrenNamed("VALUE.NAMEDINSTANCE"))
}

// AssociatorNames retrieves the paths of instances associated with
// path, per spec §4.5.8.
func (c *Connection) AssociatorNames(ctx context.Context, namespace string, path cim.InstanceName,
	assocClass, resultClass, role, resultRole string) ([]cim.InstanceName, error) {

	ns := c.namespaceOrDefault(namespace)
	params := associatorParams(path, assocClass, resultClass, role, resultRole)

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "AssociatorNames", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	var out []cim.InstanceName
	for _, n := range resp.Return.ChildrenNamed("INSTANCENAME") {
		name, err := cimxml.DecodeInstanceName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// References retrieves the association instances that reference path,
// per spec §4.5.9.
func (c *Connection) References(ctx context.Context, namespace string, path cim.InstanceName,
	resultClass, role string, includeQualifiers, includeClassOrigin bool, propertyList []string) ([]AssociatedObject, error) {

	ns := c.namespaceOrDefault(namespace)
	params := associatorParams(path, "", resultClass, role, "")
	params = append(params, boolParam("IncludeQualifiers", includeQualifiers), boolParam("IncludeClassOrigin", includeClassOrigin))
	params = withPropertyList(params, propertyList)

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "References", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	return decodeNamedInstances(resp.Return.ChildrenNamed("VALUE.NAMEDINSTANCE"))
}

// ReferenceNames retrieves the paths of association instances that
// reference path, per spec §4.5.10.
func (c *Connection) ReferenceNames(ctx context.Context, namespace string, path cim.InstanceName,
	resultClass, role string) ([]cim.InstanceName, error) {

	ns := c.namespaceOrDefault(namespace)
	params := associatorParams(path, "", resultClass, role, "")

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "ReferenceNames", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	var out []cim.InstanceName
	for _, n := range resp.Return.ChildrenNamed("INSTANCENAME") {
		name, err := cimxml.DecodeInstanceName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// ExecQuery evaluates a query in queryLanguage (e.g. "WQL", "CQL")
// against namespace, per spec §4.5.11.
func (c *Connection) ExecQuery(ctx context.Context, namespace, query, queryLanguage string) ([]*cim.Instance, error) {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{strParam("QueryLanguage", queryLanguage), strParam("Query", query)}

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "ExecQuery", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	var out []*cim.Instance
	for _, n := range resp.Return.ChildrenNamed("VALUE.OBJECT") {
		instNode, ok := n.Child("INSTANCE")
		if !ok {
			continue
		}
		inst, err := cimxml.DecodeInstance(instNode)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// InvokeMethod invokes an extrinsic method on either an instance
// (target set) or a static class method (targetClass set), per spec
// §4.5.12.
func (c *Connection) InvokeMethod(ctx context.Context, namespace, methodName string,
	target *cim.InstanceName, targetClass *cim.ClassName, inputParams map[string]cim.Value) (cim.Value, map[string]cim.Value, error) {

	ns := c.namespaceOrDefault(namespace)
	var params []cimxml.Param
	for name, v := range inputParams {
		params = append(params, cimxml.Param{Name: name, Value: v})
	}

	kind := cimxml.ExtrinsicInstanceMethod
	if target == nil {
		kind = cimxml.ExtrinsicClassMethod
	}

	resp, err := c.call(ctx, kind, methodName, ns, target, targetClass, params)
	if err != nil {
		return cim.Value{}, nil, err
	}

	var retVal cim.Value
	if resp.HasReturn {
		retVal, err = decodeReturnValueNode(resp.Return)
		if err != nil {
			return cim.Value{}, nil, err
		}
	}
	outParams := make(map[string]cim.Value, len(resp.OutputParams))
	for _, n := range resp.OutputParams {
		name, ok := n.Attr("NAME")
		if !ok {
			continue
		}
		v, err := decodeParamValueNode(n)
		if err != nil {
			return cim.Value{}, nil, err
		}
		outParams[name] = v
	}
	return retVal, outParams, nil
}

func decodeReturnValueNode(n cimxml.Node) (cim.Value, error) {
	typName, _ := n.Attr("PARAMTYPE")
	if typName == "" {
		typName = "string"
	}
	typ, err := cim.ParseType(typName)
	if err != nil {
		return cim.Value{}, err
	}
	return cim.NewScalar(typ, n.Text()), nil
}

func decodeParamValueNode(n cimxml.Node) (cim.Value, error) {
	return decodeReturnValueNode(n)
}

// GetClass retrieves one class declaration, per spec §4.5.13.
func (c *Connection) GetClass(ctx context.Context, namespace, className string,
	localOnly, includeQualifiers, includeClassOrigin bool, propertyList []string) (*cim.Class, error) {

	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{
		strParam("ClassName", className),
		boolParam("LocalOnly", localOnly),
		boolParam("IncludeQualifiers", includeQualifiers),
		boolParam("IncludeClassOrigin", includeClassOrigin),
	}
	params = withPropertyList(params, propertyList)

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "GetClass", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	classNode, ok := resp.Return.Child("CLASS")
	if !ok {
		return nil, newCIMXMLParseError("GetClass", fmt.Errorf("IRETURNVALUE has no CLASS"))
	}
	return cimxml.DecodeClass(classNode)
}

// EnumerateClasses retrieves the subclasses of className (or the root
// classes of namespace when className is empty), per spec §4.5.14.
func (c *Connection) EnumerateClasses(ctx context.Context, namespace, className string,
	deepInheritance, localOnly, includeQualifiers, includeClassOrigin bool) ([]*cim.Class, error) {

	ns := c.namespaceOrDefault(namespace)
	var params []cimxml.Param
	if className != "" {
		params = append(params, strParam("ClassName", className))
	}
	params = append(params,
		boolParam("DeepInheritance", deepInheritance),
		boolParam("LocalOnly", localOnly),
		boolParam("IncludeQualifiers", includeQualifiers),
		boolParam("IncludeClassOrigin", includeClassOrigin))

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "EnumerateClasses", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	var out []*cim.Class
	for _, n := range resp.Return.ChildrenNamed("CLASS") {
		cls, err := cimxml.DecodeClass(n)
		if err != nil {
			return nil, err
		}
		out = append(out, cls)
	}
	return out, nil
}

// EnumerateClassNames retrieves the names of the subclasses of
// className, per spec §4.5.15.
func (c *Connection) EnumerateClassNames(ctx context.Context, namespace, className string, deepInheritance bool) ([]string, error) {
	ns := c.namespaceOrDefault(namespace)
	var params []cimxml.Param
	if className != "" {
		params = append(params, strParam("ClassName", className))
	}
	params = append(params, boolParam("DeepInheritance", deepInheritance))

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "EnumerateClassNames", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range resp.Return.ChildrenNamed("CLASSNAME") {
		name, _ := n.Attr("NAME")
		out = append(out, name)
	}
	return out, nil
}

// CreateClass creates newClass in namespace, per spec §4.5.16.
func (c *Connection) CreateClass(ctx context.Context, namespace string, newClass *cim.Class) error {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{classParam("NewClass", newClass)}
	_, err := c.call(ctx, cimxml.IntrinsicMethod, "CreateClass", ns, nil, nil, params)
	return err
}

// ModifyClass overwrites an existing class declaration, per spec
// §4.5.17.
func (c *Connection) ModifyClass(ctx context.Context, namespace string, modifiedClass *cim.Class) error {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{classParam("ModifiedClass", modifiedClass)}
	_, err := c.call(ctx, cimxml.IntrinsicMethod, "ModifyClass", ns, nil, nil, params)
	return err
}

// DeleteClass removes className from namespace, per spec §4.5.18.
func (c *Connection) DeleteClass(ctx context.Context, namespace, className string) error {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{strParam("ClassName", className)}
	_, err := c.call(ctx, cimxml.IntrinsicMethod, "DeleteClass", ns, nil, nil, params)
	return err
}

// GetQualifier retrieves one qualifier declaration, per spec §4.5.19.
func (c *Connection) GetQualifier(ctx context.Context, namespace, qualifierName string) (*cim.QualifierDeclaration, error) {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{strParam("QualifierName", qualifierName)}

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "GetQualifier", ns, nil, nil, params)
	if err != nil {
		return nil, err
	}
	n, ok := resp.Return.Child("QUALIFIER.DECLARATION")
	if !ok {
		return nil, newCIMXMLParseError("GetQualifier", fmt.Errorf("IRETURNVALUE has no QUALIFIER.DECLARATION"))
	}
	qd, err := cimxml.DecodeQualifierDeclaration(n)
	if err != nil {
		return nil, newCIMXMLParseError("GetQualifier", err)
	}
	return qd, nil
}

// SetQualifier declares or overwrites a qualifier declaration, per
// spec §4.5.20.
func (c *Connection) SetQualifier(ctx context.Context, namespace string, qd *cim.QualifierDeclaration) error {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{{Name: "QualifierDeclaration", QualifierDecl: qd}}
	_, err := c.call(ctx, cimxml.IntrinsicMethod, "SetQualifier", ns, nil, nil, params)
	return err
}

// DeleteQualifier removes a qualifier declaration, per spec §4.5.21.
func (c *Connection) DeleteQualifier(ctx context.Context, namespace, qualifierName string) error {
	ns := c.namespaceOrDefault(namespace)
	params := []cimxml.Param{strParam("QualifierName", qualifierName)}
	_, err := c.call(ctx, cimxml.IntrinsicMethod, "DeleteQualifier", ns, nil, nil, params)
	return err
}

// EnumerateQualifiers lists every qualifier declaration in namespace,
// per spec §4.5.22.
func (c *Connection) EnumerateQualifiers(ctx context.Context, namespace string) ([]*cim.QualifierDeclaration, error) {
	ns := c.namespaceOrDefault(namespace)
	resp, err := c.call(ctx, cimxml.IntrinsicMethod, "EnumerateQualifiers", ns, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var out []*cim.QualifierDeclaration
	for _, n := range resp.Return.ChildrenNamed("QUALIFIER.DECLARATION") {
		qd, err := cimxml.DecodeQualifierDeclaration(n)
		if err != nil {
			return nil, newCIMXMLParseError("EnumerateQualifiers", err)
		}
		out = append(out, qd)
	}
	return out, nil
}
