package cimxml

import (
	"fmt"
	"strconv"

	"github.com/rob-gra/go-wbem/cim"
)

// ErrorPayload is the decoded <ERROR> element: a numeric CIM status code,
// optional description, and zero or more instance detail objects. See
// spec §4.3.2.
type ErrorPayload struct {
	Code        int
	Description string
	Details     []*cim.Instance
}

// Response is the decoded response envelope. Exactly one of Error and
// Return is populated (Return may legitimately be the zero Node when the
// operation has a void return, e.g. DeleteInstance).
type Response struct {
	MessageID string
	MethodName string
	Error     *ErrorPayload
	Return    Node
	HasReturn bool
	// OutputParams carries PARAMVALUE children of a METHODRESPONSE
	// (InvokeMethod's output parameters), empty for IMETHODRESPONSE.
	OutputParams []Node
}

// DecodeResponse parses and schema-validates a response envelope per
// spec §4.3.2: top element must be CIM with matching CIMVERSION/
// DTDVERSION, a MESSAGE with an ID must be present (it is not required to
// match the request's ID; see spec.md §9 and SPEC_FULL.md Open Question
// 1 for the optional strict check), and the SIMPLERSP must contain either
// an IMETHODRESPONSE or a METHODRESPONSE. Which of the two is present is
// not checked against the kind of the outgoing request.
func DecodeResponse(body []byte) (Response, error) {
	root, err := ParseNode(body)
	if err != nil {
		return Response{}, err
	}
	if root.XMLName.Local != "CIM" {
		return Response{}, fmt.Errorf("%w: top-level element is %q, want CIM", ErrCIMXMLSchema, root.XMLName.Local)
	}
	if v, _ := root.Attr("CIMVERSION"); v != "2.0" {
		return Response{}, fmt.Errorf("%w: unsupported CIMVERSION %q", ErrCIMXMLSchema, v)
	}
	if v, _ := root.Attr("DTDVERSION"); v != "2.0" {
		return Response{}, fmt.Errorf("%w: unsupported DTDVERSION %q", ErrCIMXMLSchema, v)
	}

	msg, ok := root.Child("MESSAGE")
	if !ok {
		return Response{}, fmt.Errorf("%w: missing MESSAGE element", ErrCIMXMLSchema)
	}
	id, ok := msg.Attr("ID")
	if !ok {
		return Response{}, fmt.Errorf("%w: MESSAGE element missing ID attribute", ErrCIMXMLSchema)
	}

	simple, ok := msg.Child("SIMPLERSP")
	if !ok {
		return Response{}, fmt.Errorf("%w: missing SIMPLERSP element", ErrCIMXMLSchema)
	}

	resp := Response{MessageID: id}

	if im, ok := simple.Child("IMETHODRESPONSE"); ok {
		resp.MethodName, _ = im.Attr("NAME")
		if err := fillResponseBody(&resp, im); err != nil {
			return Response{}, err
		}
		return resp, nil
	}
	if m, ok := simple.Child("METHODRESPONSE"); ok {
		resp.MethodName, _ = m.Attr("NAME")
		if errNode, ok := m.Child("ERROR"); ok {
			ep, err := decodeError(errNode)
			if err != nil {
				return Response{}, err
			}
			resp.Error = &ep
			return resp, nil
		}
		for _, c := range m.Children {
			switch c.XMLName.Local {
			case "RETURNVALUE":
				resp.Return = c
				resp.HasReturn = true
			case "PARAMVALUE":
				resp.OutputParams = append(resp.OutputParams, c)
			}
		}
		return resp, nil
	}
	return Response{}, fmt.Errorf("%w: SIMPLERSP has neither IMETHODRESPONSE nor METHODRESPONSE", ErrCIMXMLSchema)
}

func fillResponseBody(resp *Response, im Node) error {
	if errNode, ok := im.Child("ERROR"); ok {
		ep, err := decodeError(errNode)
		if err != nil {
			return err
		}
		resp.Error = &ep
		return nil
	}
	if ret, ok := im.Child("IRETURNVALUE"); ok {
		resp.Return = ret
		resp.HasReturn = true
	}
	return nil
}

func decodeError(n Node) (ErrorPayload, error) {
	codeStr, ok := n.Attr("CODE")
	if !ok {
		return ErrorPayload{}, fmt.Errorf("%w: ERROR element missing CODE attribute", ErrCIMXMLSchema)
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return ErrorPayload{}, fmt.Errorf("%w: ERROR CODE %q is not numeric", ErrCIMXMLSchema, codeStr)
	}
	desc, _ := n.Attr("DESCRIPTION")
	ep := ErrorPayload{Code: code, Description: desc}
	for _, instNode := range n.ChildrenNamed("INSTANCE") {
		inst, err := DecodeInstance(instNode)
		if err != nil {
			return ErrorPayload{}, err
		}
		ep.Details = append(ep.Details, inst)
	}
	return ep, nil
}

// DecodeInstanceName decodes an <INSTANCENAME> or <VALUE.REFERENCE>-wrapped
// instance path.
func DecodeInstanceName(n Node) (cim.InstanceName, error) {
	if n.XMLName.Local == "VALUE.REFERENCE" {
		if inner, ok := n.Child("INSTANCENAME"); ok {
			return DecodeInstanceName(inner)
		}
		return cim.InstanceName{}, fmt.Errorf("%w: VALUE.REFERENCE has no INSTANCENAME child", ErrCIMXMLSchema)
	}
	className, ok := n.Attr("CLASSNAME")
	if !ok {
		return cim.InstanceName{}, fmt.Errorf("%w: INSTANCENAME missing CLASSNAME", ErrCIMXMLSchema)
	}
	name := cim.NewInstanceName(className)
	for _, kb := range n.ChildrenNamed("KEYBINDING") {
		kbName, ok := kb.Attr("NAME")
		if !ok {
			return cim.InstanceName{}, fmt.Errorf("%w: KEYBINDING missing NAME", ErrCIMXMLSchema)
		}
		if kv, ok := kb.Child("KEYVALUE"); ok {
			v, err := decodeKeyValue(kv)
			if err != nil {
				return cim.InstanceName{}, err
			}
			name.SetKeybinding(kbName, v)
			continue
		}
		if vr, ok := kb.Child("VALUE.REFERENCE"); ok {
			ref, err := DecodeInstanceName(vr)
			if err != nil {
				return cim.InstanceName{}, err
			}
			name.SetKeybinding(kbName, cim.NewReference(ref))
			continue
		}
		return cim.InstanceName{}, fmt.Errorf("%w: KEYBINDING %q has no recognized value child", ErrCIMXMLSchema, kbName)
	}
	return name, nil
}

func decodeKeyValue(n Node) (cim.Value, error) {
	typ, err := cim.ParseType(firstNonEmpty(mustAttr(n, "TYPE"), "string"))
	if err != nil {
		return cim.Value{}, err
	}
	return decodeScalarText(typ, n.Text())
}

func mustAttr(n Node, name string) string {
	v, _ := n.Attr(name)
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// DecodeInstance decodes an <INSTANCE> element into a cim.Instance.
func DecodeInstance(n Node) (*cim.Instance, error) {
	className, ok := n.Attr("CLASSNAME")
	if !ok {
		return nil, fmt.Errorf("%w: INSTANCE missing CLASSNAME", ErrCIMXMLSchema)
	}
	inst := cim.NewInstance(className)
	for _, c := range n.Children {
		switch c.XMLName.Local {
		case "QUALIFIER":
			q, err := decodeQualifier(c)
			if err != nil {
				return nil, err
			}
			inst.Qualifiers.Set(q)
		case "PROPERTY", "PROPERTY.ARRAY", "PROPERTY.REFERENCE":
			p, err := decodeProperty(c)
			if err != nil {
				return nil, err
			}
			inst.SetProperty(p)
		}
	}
	return inst, nil
}

// decodeTypedValue reads a VALUE.ARRAY or VALUE child of n and decodes it
// as typ, returning a null Value of typ if neither is present. Shared by
// property, qualifier, and qualifier-declaration decoding.
func decodeTypedValue(n Node, typ cim.Type) (cim.Value, error) {
	if va, ok := n.Child("VALUE.ARRAY"); ok {
		var elems []interface{}
		for _, vn := range va.ChildrenNamed("VALUE") {
			sv, err := decodeScalarText(typ, vn.Text())
			if err != nil {
				return cim.Value{}, err
			}
			elems = append(elems, sv.Scalar())
		}
		return cim.NewArray(typ, elems), nil
	}
	if vn, ok := n.Child("VALUE"); ok {
		return decodeScalarText(typ, vn.Text())
	}
	return cim.NewNull(typ), nil
}

func decodeQualifier(n Node) (cim.Qualifier, error) {
	name, ok := n.Attr("NAME")
	if !ok {
		return cim.Qualifier{}, fmt.Errorf("%w: QUALIFIER missing NAME", ErrCIMXMLSchema)
	}
	typ, err := cim.ParseType(firstNonEmpty(mustAttr(n, "TYPE"), "string"))
	if err != nil {
		return cim.Qualifier{}, err
	}
	v, err := decodeTypedValue(n, typ)
	if err != nil {
		return cim.Qualifier{}, err
	}
	return cim.Qualifier{
		QualName:   name,
		Value:      v,
		Propagated: flavorAttr(n, "PROPAGATED", false),
		Flavor:     decodeFlavor(n),
	}, nil
}

func decodeFlavor(n Node) cim.Flavor {
	return cim.Flavor{
		Overridable:  flavorAttr(n, "OVERRIDABLE", true),
		ToSubclass:   flavorAttr(n, "TOSUBCLASS", true),
		ToInstance:   flavorAttr(n, "TOINSTANCE", false),
		Translatable: flavorAttr(n, "TRANSLATABLE", false),
	}
}

func flavorAttr(n Node, name string, def bool) bool {
	v, ok := n.Attr(name)
	if !ok {
		return def
	}
	return v == "true"
}

func decodeProperty(n Node) (*cim.Property, error) {
	name, ok := n.Attr("NAME")
	if !ok {
		return nil, fmt.Errorf("%w: property element missing NAME", ErrCIMXMLSchema)
	}
	p, err := decodePropertyPayload(n, name)
	if err != nil {
		return nil, err
	}
	for _, qn := range n.ChildrenNamed("QUALIFIER") {
		q, err := decodeQualifier(qn)
		if err != nil {
			return nil, err
		}
		p.Qualifiers.Set(q)
	}
	return p, nil
}

func decodePropertyPayload(n Node, name string) (*cim.Property, error) {
	switch n.XMLName.Local {
	case "PROPERTY.REFERENCE":
		var ref cim.InstanceName
		var err error
		if vr, ok := n.Child("VALUE.REFERENCE"); ok {
			ref, err = DecodeInstanceName(vr)
			if err != nil {
				return nil, err
			}
		}
		p, err := cim.NewProperty(name, cim.NewReference(ref))
		if err != nil {
			return nil, err
		}
		if rc, ok := n.Attr("REFERENCECLASS"); ok {
			_ = p.SetReferenceClass(rc)
		}
		return p, nil
	case "PROPERTY.ARRAY":
		typ, err := cim.ParseType(mustAttr(n, "TYPE"))
		if err != nil {
			return nil, err
		}
		v, err := decodeTypedValue(n, typ)
		if err != nil {
			return nil, err
		}
		return cim.NewProperty(name, v)
	default: // PROPERTY
		typ, err := cim.ParseType(mustAttr(n, "TYPE"))
		if err != nil {
			return nil, err
		}
		v, err := decodeTypedValue(n, typ)
		if err != nil {
			return nil, err
		}
		p, err := cim.NewProperty(name, v)
		if err != nil {
			return nil, err
		}
		if eo, ok := n.Attr("EmbeddedObject"); ok {
			switch eo {
			case "instance":
				_ = p.SetEmbedded(cim.EmbeddedInstance)
			case "object":
				_ = p.SetEmbedded(cim.EmbeddedObject)
			}
		}
		return p, nil
	}
}

// DecodeClass decodes a <CLASS> element into a cim.Class.
func DecodeClass(n Node) (*cim.Class, error) {
	name, ok := n.Attr("NAME")
	if !ok {
		return nil, fmt.Errorf("%w: CLASS missing NAME", ErrCIMXMLSchema)
	}
	c := cim.NewClass(name)
	c.SuperClass, _ = n.Attr("SUPERCLASS")
	for _, ch := range n.Children {
		switch ch.XMLName.Local {
		case "QUALIFIER":
			q, err := decodeQualifier(ch)
			if err != nil {
				return nil, err
			}
			c.Qualifiers.Set(q)
		case "PROPERTY", "PROPERTY.ARRAY", "PROPERTY.REFERENCE":
			p, err := decodeProperty(ch)
			if err != nil {
				return nil, err
			}
			c.Properties.Set(p)
		case "METHOD":
			m, err := decodeMethod(ch)
			if err != nil {
				return nil, err
			}
			c.Methods.Set(m)
		}
	}
	return c, nil
}

func decodeMethod(n Node) (*cim.Method, error) {
	name, ok := n.Attr("NAME")
	if !ok {
		return nil, fmt.Errorf("%w: METHOD missing NAME", ErrCIMXMLSchema)
	}
	retType, err := cim.ParseType(firstNonEmpty(mustAttr(n, "TYPE"), "string"))
	if err != nil {
		return nil, err
	}
	m := cim.NewMethod(name, retType)
	m.ClassOrigin, _ = n.Attr("CLASSORIGIN")
	m.Propagated = flavorAttr(n, "PROPAGATED", false)
	for _, ch := range n.Children {
		switch ch.XMLName.Local {
		case "QUALIFIER":
			q, err := decodeQualifier(ch)
			if err != nil {
				return nil, err
			}
			m.Qualifiers.Set(q)
		case "PARAMETER", "PARAMETER.ARRAY", "PARAMETER.REFERENCE":
			p, err := decodeParameter(ch)
			if err != nil {
				return nil, err
			}
			m.Parameters.Set(p)
		}
	}
	return m, nil
}

func decodeParameter(n Node) (cim.Parameter, error) {
	name, ok := n.Attr("NAME")
	if !ok {
		return cim.Parameter{}, fmt.Errorf("%w: parameter element missing NAME", ErrCIMXMLSchema)
	}
	p := cim.Parameter{ParamName: name, Qualifiers: cim.NewNamedList[cim.Qualifier]()}
	switch n.XMLName.Local {
	case "PARAMETER.REFERENCE":
		p.Type = cim.TypeReference
		p.ReferenceClass, _ = n.Attr("REFERENCECLASS")
	case "PARAMETER.ARRAY":
		typ, err := cim.ParseType(firstNonEmpty(mustAttr(n, "TYPE"), "string"))
		if err != nil {
			return cim.Parameter{}, err
		}
		p.Type = typ
		p.IsArray = true
		if sz, ok := n.Attr("ARRAYSIZE"); ok {
			if size, err := strconv.Atoi(sz); err == nil {
				p.ArraySize = size
			}
		}
	default: // PARAMETER
		typ, err := cim.ParseType(firstNonEmpty(mustAttr(n, "TYPE"), "string"))
		if err != nil {
			return cim.Parameter{}, err
		}
		p.Type = typ
	}
	for _, qn := range n.ChildrenNamed("QUALIFIER") {
		q, err := decodeQualifier(qn)
		if err != nil {
			return cim.Parameter{}, err
		}
		p.Qualifiers.Set(q)
	}
	return p, nil
}

// DecodeQualifierDeclaration decodes a <QUALIFIER.DECLARATION> element
// into a cim.QualifierDeclaration, per spec §3.2/§4.5.19.
func DecodeQualifierDeclaration(n Node) (*cim.QualifierDeclaration, error) {
	name, ok := n.Attr("NAME")
	if !ok {
		return nil, fmt.Errorf("%w: QUALIFIER.DECLARATION missing NAME", ErrCIMXMLSchema)
	}
	typ, err := cim.ParseType(firstNonEmpty(mustAttr(n, "TYPE"), "string"))
	if err != nil {
		return nil, err
	}
	v, err := decodeTypedValue(n, typ)
	if err != nil {
		return nil, err
	}
	qd := &cim.QualifierDeclaration{
		QualName: name,
		Type:     typ,
		Value:    v,
		IsArray:  flavorAttr(n, "ISARRAY", false),
		Flavor:   decodeFlavor(n),
	}
	if sc, ok := n.Child("SCOPE"); ok {
		qd.Scopes = decodeScope(sc)
	}
	return qd, nil
}

var scopeDecodeAttrs = []struct {
	attr  string
	scope cim.Scope
}{
	{"CLASS", cim.ScopeClass}, {"ASSOCIATION", cim.ScopeAssociation}, {"REFERENCE", cim.ScopeReference},
	{"PROPERTY", cim.ScopeProperty}, {"METHOD", cim.ScopeMethod}, {"PARAMETER", cim.ScopeParameter},
	{"INDICATION", cim.ScopeIndication},
}

func decodeScope(n Node) map[cim.Scope]bool {
	scopes := make(map[cim.Scope]bool)
	for _, sa := range scopeDecodeAttrs {
		if flavorAttr(n, sa.attr, false) {
			scopes[sa.scope] = true
		}
	}
	return scopes
}

func decodeScalarText(t cim.Type, text string) (cim.Value, error) {
	switch t {
	case cim.TypeBoolean:
		return cim.NewScalar(t, text == "TRUE"), nil
	case cim.TypeReal32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return cim.Value{}, fmt.Errorf("%w: bad real32 %q", ErrCIMXMLSchema, text)
		}
		return cim.NewScalar(t, float32(f)), nil
	case cim.TypeReal64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return cim.Value{}, fmt.Errorf("%w: bad real64 %q", ErrCIMXMLSchema, text)
		}
		return cim.NewScalar(t, f), nil
	case cim.TypeUint8, cim.TypeUint16, cim.TypeUint32, cim.TypeUint64:
		u, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return cim.Value{}, fmt.Errorf("%w: bad %s %q", ErrCIMXMLSchema, t, text)
		}
		return cim.NewScalar(t, u), nil
	case cim.TypeSint8, cim.TypeSint16, cim.TypeSint32, cim.TypeSint64:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return cim.Value{}, fmt.Errorf("%w: bad %s %q", ErrCIMXMLSchema, t, text)
		}
		return cim.NewScalar(t, i), nil
	case cim.TypeDateTime:
		dt, err := cim.ParseDateTime(text)
		if err != nil {
			return cim.Value{}, err
		}
		return cim.NewScalar(t, dt.String()), nil
	default: // string, char16
		return cim.NewScalar(t, text), nil
	}
}
