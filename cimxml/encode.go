package cimxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rob-gra/go-wbem/cim"
)

// Param is one named parameter of an intrinsic (IMETHODCALL) or
// extrinsic (METHODCALL) request.
type Param struct {
	Name  string
	Value cim.Value
	// Instance/InstanceName/Class/QualifierDecl carry structured payloads
	// for parameters whose CIM-XML representation is not a bare VALUE
	// (e.g. the "NewInstance" parameter of CreateInstance, or the
	// "QualifierDeclaration" parameter of SetQualifier).
	Instance      *cim.Instance
	InstanceName  *cim.InstanceName
	Class         *cim.Class
	QualifierDecl *cim.QualifierDeclaration
}

// RequestKind distinguishes the three request envelope shapes the
// encoder can build, per spec §4.3.1.
type RequestKind uint8

const (
	// IntrinsicMethod wraps the call in IMETHODCALL/SIMPLEREQ (most
	// operations: GetInstance, EnumerateInstances, ...).
	IntrinsicMethod RequestKind = iota
	// ExtrinsicInstanceMethod wraps the call in METHODCALL with a
	// LOCALINSTANCEPATH target (InvokeMethod on an instance).
	ExtrinsicInstanceMethod
	// ExtrinsicClassMethod wraps the call in METHODCALL with a
	// LOCALCLASSPATH target (InvokeMethod on a class, static methods).
	ExtrinsicClassMethod
)

// EncodeRequest builds a DTD-compliant request envelope for one CIM
// operation, per spec §4.3.1.
//
// namespace is the target namespace (or, for extrinsic calls on an
// instance/class, the namespace portion of the target path); it is
// normalized by splitting on '/' after stripping leading/trailing
// slashes, per spec §4.3.1/§8 scenario 5.
func EncodeRequest(kind RequestKind, opName, namespace, messageID string, target *cim.InstanceName, targetClass *cim.ClassName, params []Param) ([]byte, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<CIM CIMVERSION="2.0" DTDVERSION="2.0">`)
	fmt.Fprintf(&b, `<MESSAGE ID="%s" PROTOCOLVERSION="1.0">`, xmlEscapeAttr(messageID))
	b.WriteString(`<SIMPLEREQ>`)

	switch kind {
	case IntrinsicMethod:
		fmt.Fprintf(&b, `<IMETHODCALL NAME="%s">`, xmlEscapeAttr(opName))
		writeLocalNamespacePath(&b, namespace)
		for _, p := range params {
			writeIParamValue(&b, p)
		}
		b.WriteString(`</IMETHODCALL>`)
	case ExtrinsicInstanceMethod:
		if target == nil {
			return nil, fmt.Errorf("%w: extrinsic instance method requires a target instance path", ErrUnsupportedOp)
		}
		fmt.Fprintf(&b, `<METHODCALL NAME="%s">`, xmlEscapeAttr(opName))
		writeLocalInstancePath(&b, namespace, *target)
		for _, p := range params {
			writeParamValue(&b, p)
		}
		b.WriteString(`</METHODCALL>`)
	case ExtrinsicClassMethod:
		if targetClass == nil {
			return nil, fmt.Errorf("%w: extrinsic class method requires a target class path", ErrUnsupportedOp)
		}
		fmt.Fprintf(&b, `<METHODCALL NAME="%s">`, xmlEscapeAttr(opName))
		writeLocalClassPath(&b, namespace, *targetClass)
		for _, p := range params {
			writeParamValue(&b, p)
		}
		b.WriteString(`</METHODCALL>`)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnsupportedOp, kind)
	}

	b.WriteString(`</SIMPLEREQ></MESSAGE></CIM>`)
	return []byte(b.String()), nil
}

// SplitNamespace strips leading/trailing slashes and splits the
// namespace into its non-empty '/'-separated components, per spec
// §4.3.1/§8 scenario 5.
func SplitNamespace(namespace string) []string {
	trimmed := strings.Trim(namespace, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeLocalNamespacePath(b *strings.Builder, namespace string) {
	b.WriteString(`<LOCALNAMESPACEPATH>`)
	for _, comp := range SplitNamespace(namespace) {
		fmt.Fprintf(b, `<NAMESPACE NAME="%s"/>`, xmlEscapeAttr(comp))
	}
	b.WriteString(`</LOCALNAMESPACEPATH>`)
}

func writeLocalInstancePath(b *strings.Builder, namespace string, target cim.InstanceName) {
	b.WriteString(`<LOCALINSTANCEPATH>`)
	writeLocalNamespacePath(b, namespace)
	writeInstanceName(b, target)
	b.WriteString(`</LOCALINSTANCEPATH>`)
}

func writeLocalClassPath(b *strings.Builder, namespace string, target cim.ClassName) {
	b.WriteString(`<LOCALCLASSPATH>`)
	writeLocalNamespacePath(b, namespace)
	fmt.Fprintf(b, `<CLASSNAME NAME="%s"/>`, xmlEscapeAttr(target.Name))
	b.WriteString(`</LOCALCLASSPATH>`)
}

func writeIParamValue(b *strings.Builder, p Param) {
	fmt.Fprintf(b, `<IPARAMVALUE NAME="%s">`, xmlEscapeAttr(p.Name))
	writeParamPayload(b, p)
	b.WriteString(`</IPARAMVALUE>`)
}

func writeParamValue(b *strings.Builder, p Param) {
	fmt.Fprintf(b, `<PARAMVALUE NAME="%s" PARAMTYPE="%s">`, xmlEscapeAttr(p.Name), p.Value.CIMType())
	writeParamPayload(b, p)
	b.WriteString(`</PARAMVALUE>`)
}

func writeParamPayload(b *strings.Builder, p Param) {
	switch {
	case p.InstanceName != nil:
		writeInstanceName(b, *p.InstanceName)
	case p.Instance != nil:
		writeInstance(b, *p.Instance)
	case p.Class != nil:
		writeClass(b, *p.Class)
	case p.QualifierDecl != nil:
		writeQualifierDeclaration(b, p.QualifierDecl)
	default:
		writeValue(b, p.Value)
	}
}

func writeInstanceName(b *strings.Builder, n cim.InstanceName) {
	fmt.Fprintf(b, `<INSTANCENAME CLASSNAME="%s">`, xmlEscapeAttr(n.ClassName))
	for _, kb := range n.Keybindings() {
		fmt.Fprintf(b, `<KEYBINDING NAME="%s">`, xmlEscapeAttr(kb.Name))
		writeKeyValue(b, kb.Value)
		b.WriteString(`</KEYBINDING>`)
	}
	b.WriteString(`</INSTANCENAME>`)
}

func writeKeyValue(b *strings.Builder, v cim.Value) {
	if v.CIMType() == cim.TypeReference {
		ref, _ := v.Scalar().(cim.InstanceName)
		fmt.Fprintf(b, `<VALUE.REFERENCE>`)
		writeInstanceName(b, ref)
		b.WriteString(`</VALUE.REFERENCE>`)
		return
	}
	valueType := "string"
	switch {
	case v.CIMType().IsNumeric():
		valueType = "numeric"
	case v.CIMType() == cim.TypeBoolean:
		valueType = "boolean"
	}
	fmt.Fprintf(b, `<KEYVALUE VALUETYPE="%s" TYPE="%s">%s</KEYVALUE>`, valueType, v.CIMType(), xmlEscapeText(formatScalar(v.CIMType(), v.Scalar())))
}

func writeValue(b *strings.Builder, v cim.Value) {
	if v.IsNull() {
		return
	}
	if v.CIMType() == cim.TypeReference {
		ref, _ := v.Scalar().(cim.InstanceName)
		b.WriteString(`<VALUE.REFERENCE>`)
		writeInstanceName(b, ref)
		b.WriteString(`</VALUE.REFERENCE>`)
		return
	}
	if v.IsArray() {
		b.WriteString(`<VALUE.ARRAY>`)
		for _, e := range v.Array() {
			fmt.Fprintf(b, `<VALUE>%s</VALUE>`, xmlEscapeText(formatScalar(v.CIMType(), e)))
		}
		b.WriteString(`</VALUE.ARRAY>`)
		return
	}
	fmt.Fprintf(b, `<VALUE>%s</VALUE>`, xmlEscapeText(formatScalar(v.CIMType(), v.Scalar())))
}

func writeProperty(b *strings.Builder, p *cim.Property) {
	switch {
	case p.Type == cim.TypeReference:
		fmt.Fprintf(b, `<PROPERTY.REFERENCE NAME="%s"`, xmlEscapeAttr(p.PropName))
		if p.ReferenceClass != "" {
			fmt.Fprintf(b, ` REFERENCECLASS="%s"`, xmlEscapeAttr(p.ReferenceClass))
		}
		b.WriteString(`>`)
		writeQualifiers(b, p.Qualifiers)
		writeValue(b, p.Value)
		b.WriteString(`</PROPERTY.REFERENCE>`)
	case p.IsArray:
		fmt.Fprintf(b, `<PROPERTY.ARRAY NAME="%s" TYPE="%s">`, xmlEscapeAttr(p.PropName), p.Type)
		writeQualifiers(b, p.Qualifiers)
		writeValue(b, p.Value)
		b.WriteString(`</PROPERTY.ARRAY>`)
	default:
		embedded := ""
		switch p.Embedded {
		case cim.EmbeddedInstance:
			embedded = ` EmbeddedObject="instance"`
		case cim.EmbeddedObject:
			embedded = ` EmbeddedObject="object"`
		}
		fmt.Fprintf(b, `<PROPERTY NAME="%s" TYPE="%s"%s>`, xmlEscapeAttr(p.PropName), p.Type, embedded)
		writeQualifiers(b, p.Qualifiers)
		writeValue(b, p.Value)
		b.WriteString(`</PROPERTY>`)
	}
}

// writeQualifiers emits the QUALIFIER children shared by INSTANCE, CLASS,
// PROPERTY*, METHOD, and PARAMETER* elements, per spec §4.3.1/§3.2.
func writeQualifiers(b *strings.Builder, quals *cim.NamedList[cim.Qualifier]) {
	for _, q := range quals.Slice() {
		writeQualifier(b, q)
	}
}

func writeQualifier(b *strings.Builder, q cim.Qualifier) {
	fmt.Fprintf(b, `<QUALIFIER NAME="%s" TYPE="%s" PROPAGATED="%s" OVERRIDABLE="%s" TOSUBCLASS="%s" TOINSTANCE="%s" TRANSLATABLE="%s">`,
		xmlEscapeAttr(q.QualName), q.Value.CIMType(), boolAttr(q.Propagated),
		boolAttr(q.Flavor.Overridable), boolAttr(q.Flavor.ToSubclass), boolAttr(q.Flavor.ToInstance), boolAttr(q.Flavor.Translatable))
	writeValue(b, q.Value)
	b.WriteString(`</QUALIFIER>`)
}

func boolAttr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func writeInstance(b *strings.Builder, inst cim.Instance) {
	fmt.Fprintf(b, `<INSTANCE CLASSNAME="%s">`, xmlEscapeAttr(inst.ClassName))
	writeQualifiers(b, inst.Qualifiers)
	for _, p := range inst.Properties.Slice() {
		writeProperty(b, p)
	}
	b.WriteString(`</INSTANCE>`)
}

func writeClass(b *strings.Builder, c cim.Class) {
	fmt.Fprintf(b, `<CLASS NAME="%s"`, xmlEscapeAttr(c.ClassName))
	if c.SuperClass != "" {
		fmt.Fprintf(b, ` SUPERCLASS="%s"`, xmlEscapeAttr(c.SuperClass))
	}
	b.WriteString(`>`)
	writeQualifiers(b, c.Qualifiers)
	for _, p := range c.Properties.Slice() {
		writeProperty(b, p)
	}
	for _, m := range c.Methods.Slice() {
		writeMethod(b, m)
	}
	b.WriteString(`</CLASS>`)
}

func writeMethod(b *strings.Builder, m *cim.Method) {
	fmt.Fprintf(b, `<METHOD NAME="%s" TYPE="%s"`, xmlEscapeAttr(m.MethodName), m.ReturnType)
	if m.ClassOrigin != "" {
		fmt.Fprintf(b, ` CLASSORIGIN="%s"`, xmlEscapeAttr(m.ClassOrigin))
	}
	if m.Propagated {
		b.WriteString(` PROPAGATED="true"`)
	}
	b.WriteString(`>`)
	writeQualifiers(b, m.Qualifiers)
	for _, p := range m.Parameters.Slice() {
		writeParameter(b, p)
	}
	b.WriteString(`</METHOD>`)
}

func writeParameter(b *strings.Builder, p cim.Parameter) {
	switch {
	case p.Type == cim.TypeReference:
		fmt.Fprintf(b, `<PARAMETER.REFERENCE NAME="%s"`, xmlEscapeAttr(p.ParamName))
		if p.ReferenceClass != "" {
			fmt.Fprintf(b, ` REFERENCECLASS="%s"`, xmlEscapeAttr(p.ReferenceClass))
		}
		b.WriteString(`>`)
		writeQualifiers(b, p.Qualifiers)
		b.WriteString(`</PARAMETER.REFERENCE>`)
	case p.IsArray:
		fmt.Fprintf(b, `<PARAMETER.ARRAY NAME="%s" TYPE="%s"`, xmlEscapeAttr(p.ParamName), p.Type)
		if p.ArraySize > 0 {
			fmt.Fprintf(b, ` ARRAYSIZE="%d"`, p.ArraySize)
		}
		b.WriteString(`>`)
		writeQualifiers(b, p.Qualifiers)
		b.WriteString(`</PARAMETER.ARRAY>`)
	default:
		fmt.Fprintf(b, `<PARAMETER NAME="%s" TYPE="%s">`, xmlEscapeAttr(p.ParamName), p.Type)
		writeQualifiers(b, p.Qualifiers)
		b.WriteString(`</PARAMETER>`)
	}
}

// writeQualifierDeclaration emits the <QUALIFIER.DECLARATION> element
// that is the SetQualifier operation's parameter payload, per spec
// §3.2/§4.5.20 — distinct from writeQualifier, which emits a qualifier's
// use on a class/instance/property/method/parameter.
func writeQualifierDeclaration(b *strings.Builder, qd *cim.QualifierDeclaration) {
	fmt.Fprintf(b, `<QUALIFIER.DECLARATION NAME="%s" TYPE="%s"`, xmlEscapeAttr(qd.QualName), qd.Type)
	if qd.IsArray {
		b.WriteString(` ISARRAY="true"`)
	}
	fmt.Fprintf(b, ` OVERRIDABLE="%s" TOSUBCLASS="%s" TOINSTANCE="%s" TRANSLATABLE="%s">`,
		boolAttr(qd.Flavor.Overridable), boolAttr(qd.Flavor.ToSubclass), boolAttr(qd.Flavor.ToInstance), boolAttr(qd.Flavor.Translatable))
	writeScope(b, qd.Scopes)
	writeValue(b, qd.Value)
	b.WriteString(`</QUALIFIER.DECLARATION>`)
}

var scopeAttrs = []struct {
	scope cim.Scope
	attr  string
}{
	{cim.ScopeClass, "CLASS"}, {cim.ScopeAssociation, "ASSOCIATION"}, {cim.ScopeReference, "REFERENCE"},
	{cim.ScopeProperty, "PROPERTY"}, {cim.ScopeMethod, "METHOD"}, {cim.ScopeParameter, "PARAMETER"},
	{cim.ScopeIndication, "INDICATION"},
}

func writeScope(b *strings.Builder, scopes map[cim.Scope]bool) {
	if len(scopes) == 0 {
		return
	}
	b.WriteString(`<SCOPE`)
	for _, sa := range scopeAttrs {
		if scopes[cim.ScopeAny] || scopes[sa.scope] {
			fmt.Fprintf(b, ` %s="true"`, sa.attr)
		}
	}
	b.WriteString(`/>`)
}

// formatScalar renders a scalar value's text content. Booleans render as
// TRUE/FALSE; reals render with the shortest round-trip representation
// using '.' as the decimal separator, per spec §4.3.1.
func formatScalar(t cim.Type, v interface{}) string {
	switch t {
	case cim.TypeBoolean:
		if b, _ := v.(bool); b {
			return "TRUE"
		}
		return "FALSE"
	case cim.TypeReal32:
		f, _ := v.(float32)
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case cim.TypeReal64:
		f, _ := v.(float64)
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func xmlEscapeAttr(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}

func xmlEscapeText(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}
