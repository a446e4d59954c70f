package cim

import (
	"fmt"
	"strings"
)

// MOFString renders the instance in Managed Object Format, used by the
// CLI and for diagnostics per spec §4.2. Qualifiers are rendered as
// name, optional value, then `: override` for a non-overridable
// qualifier, e.g. `[Key (TRUE): override]`; no other flavors are written.
func (i *Instance) MOFString() string {
	var b strings.Builder
	writeQualifierBlock(&b, i.Qualifiers, "")
	fmt.Fprintf(&b, "instance of %s {\n", i.ClassName)
	for _, p := range i.Properties.Slice() {
		b.WriteString("\t")
		writeQualifierBlock(&b, p.Qualifiers, "")
		fmt.Fprintf(&b, "%s = %s;\n", p.PropName, mofValue(p.Value))
	}
	b.WriteString("};\n")
	return b.String()
}

// MOFString renders the class declaration in MOF.
func (c *Class) MOFString() string {
	var b strings.Builder
	writeQualifierBlock(&b, c.Qualifiers, "")
	fmt.Fprintf(&b, "class %s", c.ClassName)
	if c.SuperClass != "" {
		fmt.Fprintf(&b, " : %s", c.SuperClass)
	}
	b.WriteString(" {\n")
	for _, p := range c.Properties.Slice() {
		b.WriteString("\t")
		writeQualifierBlock(&b, p.Qualifiers, "")
		fmt.Fprintf(&b, "%s %s;\n", p.Type, p.PropName)
	}
	for _, m := range c.Methods.Slice() {
		b.WriteString("\t")
		writeQualifierBlock(&b, m.Qualifiers, "")
		fmt.Fprintf(&b, "%s %s();\n", m.ReturnType, m.MethodName)
	}
	b.WriteString("};\n")
	return b.String()
}

func writeQualifierBlock(b *strings.Builder, qs *NamedList[Qualifier], indent string) {
	if qs == nil || qs.Len() == 0 {
		return
	}
	b.WriteString(indent + "[")
	for i, q := range qs.Slice() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(q.QualName)
		if !q.Value.IsNull() {
			fmt.Fprintf(b, " (%s)", mofValue(q.Value))
		}
		if !q.Flavor.Overridable {
			b.WriteString(": override")
		}
	}
	b.WriteString("]\n" + indent)
}

func mofValue(v Value) string {
	if v.IsNull() {
		return "NULL"
	}
	if v.IsArray() {
		parts := make([]string, len(v.Array()))
		for i, e := range v.Array() {
			parts[i] = mofScalar(v.CIMType(), e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return mofScalar(v.CIMType(), v.Scalar())
}

func mofScalar(t Type, v interface{}) string {
	switch t {
	case TypeString, TypeChar16, TypeDateTime:
		return `"` + escapeDoubleQuoted(fmt.Sprint(v)) + `"`
	case TypeBoolean:
		if b, _ := v.(bool); b {
			return "TRUE"
		}
		return "FALSE"
	case TypeReference:
		ref, _ := v.(InstanceName)
		return ref.WBEMURI()
	default:
		return fmt.Sprint(v)
	}
}
