package routepattern

import (
	"fmt"
	"strconv"
	"strings"
)

var xmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// Dump renders the tree as indented XML: the node structure,
// diagnostics with raw spans and the parameter index.
func (t *Tree) Dump() string {
	var b strings.Builder
	b.WriteString("<Tree>\n")
	dumpNode(&b, t.Root, 1)

	if len(t.Diagnostics) > 0 {
		b.WriteString("  <Diagnostics>\n")
		for _, d := range t.Diagnostics {
			raw := t.Text.RawSpan(d.Span)
			fmt.Fprintf(&b, "    <Diagnostic Message=\"%s\" Span=\"[%d..%d)\" Text=\"%s\" />\n",
				xmlEscaper.Replace(d.Message), raw.Start, raw.End,
				xmlEscaper.Replace(spanText(t.Text, d.Span)))
		}
		b.WriteString("  </Diagnostics>\n")
	}

	names := t.ParameterNames()
	if len(names) == 0 {
		b.WriteString("  <Parameters />\n")
	} else {
		b.WriteString("  <Parameters>\n")
		for _, name := range names {
			p, _ := t.Parameter(name)
			dumpParameter(&b, p)
		}
		b.WriteString("  </Parameters>\n")
	}
	b.WriteString("</Tree>")
	return b.String()
}

func dumpParameter(b *strings.Builder, p ParameterInfo) {
	fmt.Fprintf(b, "    <Parameter Name=\"%s\" IsCatchAll=\"%s\" IsOptional=\"%s\" EncodeSlashes=\"%s\"",
		xmlEscaper.Replace(p.Name),
		strconv.FormatBool(p.IsCatchAll),
		strconv.FormatBool(p.IsOptional),
		strconv.FormatBool(p.EncodeSlashes))
	if p.HasDefault {
		fmt.Fprintf(b, " DefaultValue=\"%s\"", xmlEscaper.Replace(p.DefaultValue))
	}
	if len(p.Policies) == 0 {
		b.WriteString(" />\n")
		return
	}
	b.WriteString(">\n")
	for _, pol := range p.Policies {
		fmt.Fprintf(b, "      <Policy>%s</Policy>\n", xmlEscaper.Replace(pol.Text))
	}
	b.WriteString("    </Parameter>\n")
}

func dumpNode(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	tag := nodeTag(n.Kind)
	b.WriteString(indent + "<" + tag + ">\n")
	for _, c := range n.Children() {
		if c.IsNode() {
			dumpNode(b, c.Node(), depth+1)
			continue
		}
		dumpToken(b, c.Token(), depth+1)
	}
	b.WriteString(indent + "</" + tag + ">\n")
}

func dumpToken(b *strings.Builder, t Token, depth int) {
	indent := strings.Repeat("  ", depth)
	tag := tokenTag(t.Kind)
	text := xmlEscaper.Replace(t.Text())
	switch {
	case t.Kind == TokenEndOfFile, t.IsMissing:
		fmt.Fprintf(b, "%s<%s />\n", indent, tag)
	case hasValue(t.Kind) && text == "":
		fmt.Fprintf(b, "%s<%s value=\"\" />\n", indent, tag)
	case hasValue(t.Kind):
		fmt.Fprintf(b, "%s<%s value=\"%s\">%s</%s>\n", indent, tag, text, text, tag)
	default:
		fmt.Fprintf(b, "%s<%s>%s</%s>\n", indent, tag, text, tag)
	}
}

func hasValue(k TokenKind) bool {
	switch k {
	case TokenLiteral, TokenParameterName, TokenPolicyFragment,
		TokenDefaultValue, TokenReplacementText:
		return true
	}
	return false
}

func nodeTag(k NodeKind) string {
	switch k {
	case KindSegmentSeparator:
		return "Separator"
	case KindNameParameterPart:
		return "ParameterName"
	case KindPolicyParameterPart:
		return "ParameterPolicy"
	case KindOptionalParameterPart:
		return "Optional"
	case KindDefaultValueParameterPart:
		return "DefaultValue"
	case KindCatchAllParameterPart:
		return "CatchAll"
	}
	return k.String()
}

func tokenTag(k TokenKind) string {
	if k == TokenLiteral {
		return "Literal"
	}
	return k.String()
}

func spanText(t Text, s Span) string {
	start, end := max(s.Start, 0), min(s.End, len(t))
	if start >= end {
		return ""
	}
	return t[start:end].String()
}
