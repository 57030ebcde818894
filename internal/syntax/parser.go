package syntax

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// SyntaxError reports the first error or missing node tree-sitter produced for a file.
type SyntaxError struct {
	FilePath string
	Line     int
	Column   int
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
}

// Parse converts TypeScript declaration source into a File. fileName is the path
// without extension; path is the path the content was read from.
func Parse(ctx context.Context, fileName, path string, src []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(typescript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	root := tree.RootNode()
	if root.HasError() {
		if bad := firstErrorNode(root); bad != nil {
			p := position(bad)
			msg := "unexpected " + snippet(bad.Content(src))
			if bad.IsMissing() {
				msg = "missing " + bad.Type()
			}
			return nil, &SyntaxError{FilePath: path, Line: p.Line, Column: p.Column, Message: msg}
		}
		return nil, &SyntaxError{FilePath: path, Line: 1, Column: 1, Message: "unparseable source"}
	}

	c := &converter{src: src}
	return &File{
		Name:       fileName,
		Path:       path,
		Statements: c.statements(root),
	}, nil
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstErrorNode(child); bad != nil {
			return bad
		}
	}
	return nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return strconv.Quote(s)
}

func position(n *sitter.Node) Position {
	p := n.StartPoint()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

// hasToken reports whether n has an anonymous child with the given literal text.
func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Type() == token {
			return true
		}
	}
	return false
}

func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		for _, t := range types {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

// precedingComment returns the JSDoc block right before n, if any.
func (c *converter) precedingComment(n *sitter.Node) string {
	prev := n.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	text := c.text(prev)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	return text
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func splitDotted(s string) []string {
	parts := strings.Split(s, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *converter) statements(parent *sitter.Node) []Statement {
	var out []Statement
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		if stmt := c.statement(parent.NamedChild(i)); stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

func (c *converter) statement(n *sitter.Node) Statement {
	switch n.Type() {
	case "export_statement":
		return c.exportStatement(n)
	case "import_statement":
		return c.importStatement(n)
	case "expression_statement":
		// `namespace A {}` may surface as an expression statement.
		if inner := childOfType(n, "internal_module"); inner != nil {
			if decl := c.declaration(inner, c.precedingComment(n), false); decl != nil {
				return decl
			}
		}
		return nil
	default:
		if decl := c.declaration(n, c.precedingComment(n), false); decl != nil {
			return decl
		}
		return nil
	}
}

func (c *converter) declaration(n *sitter.Node, comment string, declare bool) Declaration {
	switch n.Type() {
	case "ambient_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if decl := c.declaration(n.NamedChild(i), comment, true); decl != nil {
				return decl
			}
		}
		return nil
	case "class_declaration", "abstract_class_declaration", "class":
		if n.Type() == "class" && n.ChildByFieldName("name") == nil {
			return nil
		}
		return c.classDecl(n, comment, declare)
	case "interface_declaration":
		return c.interfaceDecl(n, comment, declare)
	case "type_alias_declaration":
		return &TypeAliasDecl{
			Name:       c.text(n.ChildByFieldName("name")),
			Declare:    declare,
			TypeParams: c.typeParams(n.ChildByFieldName("type_parameters")),
			Type:       c.typ(n.ChildByFieldName("value")),
			Comment:    comment,
			Position:   position(n),
		}
	case "enum_declaration":
		return c.enumDecl(n, comment, declare)
	case "internal_module", "module":
		name := n.ChildByFieldName("name")
		if name == nil || name.Type() == "string" {
			// ambient external module declarations are not namespaces
			return nil
		}
		ns := &NamespaceDecl{
			Path:     splitDotted(c.text(name)),
			Declare:  declare,
			Comment:  comment,
			Position: position(n),
		}
		if body := n.ChildByFieldName("body"); body != nil {
			ns.Body = c.statements(body)
		}
		if len(ns.Path) == 0 {
			return nil
		}
		return ns
	}
	return nil
}

func (c *converter) exportStatement(n *sitter.Node) Statement {
	comment := c.precedingComment(n)
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		if hasToken(n, "default") {
			return nil
		}
		d := c.declaration(decl, comment, false)
		if d == nil {
			return nil
		}
		return &ExportDecl{Declaration: d, Position: position(n)}
	}
	if hasToken(n, "default") {
		return nil
	}

	source := unquote(c.text(n.ChildByFieldName("source")))
	if clause := childOfType(n, "export_clause"); clause != nil {
		named := &ExportNamed{Source: source, Position: position(n)}
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if spec.Type() != "export_specifier" {
				continue
			}
			local := unquote(c.text(spec.ChildByFieldName("name")))
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = unquote(c.text(alias))
			}
			named.Specifiers = append(named.Specifiers, ExportSpecifier{Local: local, Exported: exported})
		}
		return named
	}
	if ns := childOfType(n, "namespace_export"); ns != nil {
		as := ""
		for i := 0; i < int(ns.NamedChildCount()); i++ {
			as = unquote(c.text(ns.NamedChild(i)))
		}
		return &ExportAll{Source: source, As: as, Position: position(n)}
	}
	if hasToken(n, "*") && source != "" {
		return &ExportAll{Source: source, Position: position(n)}
	}
	if hasToken(n, "=") {
		if id := childOfType(n, "identifier"); id != nil {
			return &ExportAssign{Name: c.text(id), Position: position(n)}
		}
	}
	return nil
}

func (c *converter) importStatement(n *sitter.Node) Statement {
	clause := childOfType(n, "import_clause")
	source := n.ChildByFieldName("source")
	if clause == nil || source == nil {
		return nil
	}
	imp := &ImportDecl{Source: unquote(c.text(source)), Position: position(n)}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		part := clause.NamedChild(i)
		switch part.Type() {
		case "namespace_import":
			if id := childOfType(part, "identifier"); id != nil {
				imp.Namespace = c.text(id)
			}
		case "named_imports":
			for j := 0; j < int(part.NamedChildCount()); j++ {
				spec := part.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				imported := unquote(c.text(spec.ChildByFieldName("name")))
				local := imported
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = c.text(alias)
				}
				imp.Named = append(imp.Named, ImportSpecifier{Imported: imported, Local: local})
			}
		}
	}
	if imp.Namespace == "" && len(imp.Named) == 0 {
		// default imports are not tracked
		return nil
	}
	return imp
}

func (c *converter) classDecl(n *sitter.Node, comment string, declare bool) *ClassDecl {
	decl := &ClassDecl{
		Name:       c.text(n.ChildByFieldName("name")),
		Abstract:   n.Type() == "abstract_class_declaration",
		Declare:    declare,
		TypeParams: c.typeParams(n.ChildByFieldName("type_parameters")),
		Comment:    comment,
		Position:   position(n),
	}
	if heritage := childOfType(n, "class_heritage"); heritage != nil {
		for i := 0; i < int(heritage.NamedChildCount()); i++ {
			clause := heritage.NamedChild(i)
			switch clause.Type() {
			case "extends_clause":
				decl.Extends = c.heritage(clause)
			case "implements_clause":
				for j := 0; j < int(clause.NamedChildCount()); j++ {
					if t := c.typ(clause.NamedChild(j)); t != nil {
						decl.Implements = append(decl.Implements, t)
					}
				}
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		decl.Members = c.classMembers(body)
	}
	return decl
}

func (c *converter) heritage(clause *sitter.Node) *Heritage {
	value := clause.ChildByFieldName("value")
	if value == nil && clause.NamedChildCount() > 0 {
		value = clause.NamedChild(0)
	}
	if value == nil {
		return nil
	}
	h := &Heritage{Text: c.text(value), Position: position(value)}
	switch value.Type() {
	case "identifier", "type_identifier":
		h.Kind = HeritageIdentifier
		h.Name = c.text(value)
	case "member_expression", "nested_identifier":
		h.Kind = HeritageNamespaced
		h.Name = c.text(value)
	case "class":
		h.Kind = HeritageClassExpression
	default:
		h.Kind = HeritageOther
	}
	if args := clause.ChildByFieldName("type_arguments"); args != nil {
		h.TypeArgs = c.typeArgs(args)
	} else if args := childOfType(clause, "type_arguments"); args != nil {
		h.TypeArgs = c.typeArgs(args)
	}
	return h
}

func (c *converter) classMembers(body *sitter.Node) []ClassMember {
	var out []ClassMember
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		switch m.Type() {
		case "method_definition", "method_signature", "abstract_method_signature":
			name := c.text(m.ChildByFieldName("name"))
			if name == "constructor" {
				out = append(out, &Constructor{
					Params:   c.params(m.ChildByFieldName("parameters")),
					Comment:  c.precedingComment(m),
					Position: position(m),
				})
				continue
			}
			out = append(out, &MethodMember{Name: name, Static: hasToken(m, "static"), Position: position(m)})
		case "public_field_definition", "property_signature":
			nameNode := m.ChildByFieldName("name")
			prop := &PropertyMember{
				Name:     unquote(c.text(nameNode)),
				Computed: nameNode != nil && nameNode.Type() == "computed_property_name",
				Optional: hasToken(m, "?"),
				Static:   hasToken(m, "static"),
				Type:     c.typ(m.ChildByFieldName("type")),
				Comment:  c.precedingComment(m),
				Position: position(m),
			}
			if nameNode != nil && nameNode.Type() == "private_property_identifier" {
				prop.Private = true
			}
			if mod := childOfType(m, "accessibility_modifier"); mod != nil && c.text(mod) != "public" {
				prop.Private = true
			}
			out = append(out, prop)
		case "index_signature":
			if sig := c.indexSignature(m); sig != nil {
				out = append(out, &ClassIndexSignature{Signature: sig})
			}
		}
	}
	return out
}

func (c *converter) params(n *sitter.Node) []*Parameter {
	if n == nil {
		return nil
	}
	var out []*Parameter
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "required_parameter", "optional_parameter", "rest_parameter":
		default:
			continue
		}
		param := &Parameter{
			Optional: p.Type() == "optional_parameter",
			Rest:     p.Type() == "rest_parameter",
			Readonly: hasToken(p, "readonly"),
			Type:     c.typ(p.ChildByFieldName("type")),
			Comment:  c.precedingComment(p),
			Position: position(p),
		}
		if mod := childOfType(p, "accessibility_modifier"); mod != nil {
			param.Accessibility = c.text(mod)
		}
		pattern := p.ChildByFieldName("pattern")
		if pattern == nil {
			pattern = childOfType(p, "identifier", "object_pattern", "array_pattern", "rest_pattern", "this")
		}
		if pattern == nil {
			continue
		}
		switch pattern.Type() {
		case "this":
			continue
		case "identifier":
			param.Name = c.text(pattern)
		case "rest_pattern":
			param.Rest = true
			if id := childOfType(pattern, "identifier"); id != nil {
				param.Name = c.text(id)
			} else {
				param.Destructured = true
			}
		default:
			param.Destructured = true
		}
		out = append(out, param)
	}
	return out
}

func (c *converter) interfaceDecl(n *sitter.Node, comment string, declare bool) *InterfaceDecl {
	decl := &InterfaceDecl{
		Name:       c.text(n.ChildByFieldName("name")),
		Declare:    declare,
		TypeParams: c.typeParams(n.ChildByFieldName("type_parameters")),
		Comment:    comment,
		Position:   position(n),
	}
	if ext := childOfType(n, "extends_type_clause"); ext != nil {
		for i := 0; i < int(ext.NamedChildCount()); i++ {
			if t := c.typ(ext.NamedChild(i)); t != nil {
				decl.Extends = append(decl.Extends, t)
			}
		}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		body = childOfType(n, "interface_body", "object_type")
	}
	if body != nil {
		decl.Members, _ = c.typeMembers(body)
	}
	return decl
}

func (c *converter) enumDecl(n *sitter.Node, comment string, declare bool) *EnumDecl {
	decl := &EnumDecl{
		Name:     c.text(n.ChildByFieldName("name")),
		Declare:  declare,
		Comment:  comment,
		Position: position(n),
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return decl
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		switch m.Type() {
		case "property_identifier", "identifier", "string", "number":
			decl.Members = append(decl.Members, &EnumMember{Name: unquote(c.text(m)), Position: position(m)})
		case "enum_assignment":
			member := &EnumMember{
				Name:     unquote(c.text(m.ChildByFieldName("name"))),
				Position: position(m),
			}
			member.Value = c.literalExpression(m.ChildByFieldName("value"))
			decl.Members = append(decl.Members, member)
		}
	}
	return decl
}

// literalExpression converts a constant initializer into a literal, or nil when the
// expression is not a literal.
func (c *converter) literalExpression(n *sitter.Node) *LiteralType {
	if n == nil {
		return nil
	}
	text := c.text(n)
	switch n.Type() {
	case "string":
		return &LiteralType{Kind: LiteralString, Value: unquote(text), Text: text, Position: position(n)}
	case "template_string":
		if strings.Contains(text, "${") {
			return nil
		}
		return &LiteralType{Kind: LiteralString, Value: unquote(text), Text: text, Position: position(n)}
	case "number", "unary_expression":
		v, err := strconv.ParseFloat(strings.ReplaceAll(text, " ", ""), 64)
		if err != nil {
			return nil
		}
		return &LiteralType{Kind: LiteralNumber, Value: v, Text: text, Position: position(n)}
	case "true", "false":
		return &LiteralType{Kind: LiteralBoolean, Value: text == "true", Text: text, Position: position(n)}
	case "null":
		return &LiteralType{Kind: LiteralNull, Text: text, Position: position(n)}
	case "undefined":
		return &LiteralType{Kind: LiteralUndefined, Text: text, Position: position(n)}
	case "parenthesized_expression":
		if n.NamedChildCount() == 1 {
			return c.literalExpression(n.NamedChild(0))
		}
	}
	return nil
}

func (c *converter) typeParams(n *sitter.Node) []*TypeParam {
	if n == nil {
		return nil
	}
	var out []*TypeParam
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		if p.Type() != "type_parameter" {
			continue
		}
		param := &TypeParam{Name: c.text(p.ChildByFieldName("name")), Position: position(p)}
		if constraint := p.ChildByFieldName("constraint"); constraint != nil && constraint.NamedChildCount() > 0 {
			param.Constraint = c.typ(constraint.NamedChild(0))
		}
		if def := p.ChildByFieldName("value"); def != nil && def.NamedChildCount() > 0 {
			param.Default = c.typ(def.NamedChild(0))
		}
		out = append(out, param)
	}
	return out
}

func (c *converter) typeArgs(n *sitter.Node) []Type {
	var out []Type
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if t := c.typ(n.NamedChild(i)); t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (c *converter) typeMembers(body *sitter.Node) (members []TypeMember, mapped bool) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		switch m.Type() {
		case "property_signature":
			nameNode := m.ChildByFieldName("name")
			members = append(members, &PropertySignature{
				Name:     unquote(c.text(nameNode)),
				Computed: nameNode != nil && nameNode.Type() == "computed_property_name",
				Optional: hasToken(m, "?"),
				Type:     c.typ(m.ChildByFieldName("type")),
				Comment:  c.precedingComment(m),
				Position: position(m),
			})
		case "method_signature":
			members = append(members, &MethodSignature{Name: c.text(m.ChildByFieldName("name")), Position: position(m)})
		case "construct_signature":
			members = append(members, &ConstructSignature{Position: position(m)})
		case "call_signature":
			members = append(members, &CallSignature{Position: position(m)})
		case "index_signature":
			if childOfType(m, "mapped_type_clause") != nil {
				mapped = true
				continue
			}
			if sig := c.indexSignature(m); sig != nil {
				members = append(members, sig)
			}
		}
	}
	return members, mapped
}

func (c *converter) indexSignature(m *sitter.Node) *IndexSignature {
	sig := &IndexSignature{Comment: c.precedingComment(m), Position: position(m)}
	if t := m.ChildByFieldName("index_type"); t != nil {
		sig.ParamType = c.typ(t)
	}
	if t := m.ChildByFieldName("type"); t != nil {
		sig.Type = c.typ(t)
	}
	for i := 0; i < int(m.NamedChildCount()); i++ {
		child := m.NamedChild(i)
		switch child.Type() {
		case "identifier":
			if sig.ParamName == "" {
				sig.ParamName = c.text(child)
			}
		case "type_annotation", "omitting_type_annotation", "adding_type_annotation", "opting_type_annotation":
			if sig.Type == nil {
				sig.Type = c.typ(child)
			}
		default:
			if sig.ParamType == nil {
				sig.ParamType = c.typ(child)
			}
		}
	}
	return sig
}

func (c *converter) typ(n *sitter.Node) Type {
	if n == nil {
		return nil
	}
	pos := position(n)
	switch n.Type() {
	case "type_annotation", "omitting_type_annotation", "adding_type_annotation", "opting_type_annotation", "readonly_type":
		if n.NamedChildCount() == 0 {
			return nil
		}
		return c.typ(n.NamedChild(0))
	case "predefined_type":
		return &PredefinedType{Name: c.text(n), Position: pos}
	case "type_identifier", "identifier":
		return &TypeReference{Name: c.text(n), Position: pos}
	case "nested_type_identifier":
		parts := splitDotted(c.text(n))
		return &TypeReference{Name: parts[len(parts)-1], Qualifier: parts[:len(parts)-1], Position: pos}
	case "generic_type":
		ref := &TypeReference{Position: pos}
		name := n.ChildByFieldName("name")
		if name == nil && n.NamedChildCount() > 0 {
			name = n.NamedChild(0)
		}
		parts := splitDotted(c.text(name))
		if len(parts) == 0 {
			return &UnsupportedType{Kind: n.Type(), Text: c.text(n), Position: pos}
		}
		ref.Name = parts[len(parts)-1]
		ref.Qualifier = parts[:len(parts)-1]
		args := n.ChildByFieldName("type_arguments")
		if args == nil {
			args = childOfType(n, "type_arguments")
		}
		if args != nil {
			ref.TypeArgs = c.typeArgs(args)
		}
		return ref
	case "object_type", "interface_body":
		members, mapped := c.typeMembers(n)
		if mapped {
			return &UnsupportedType{Kind: "mapped_type", Text: c.text(n), Position: pos}
		}
		return &ObjectType{Members: members, Position: pos}
	case "array_type":
		return &ArrayType{Elem: c.typ(n.NamedChild(0)), Position: pos}
	case "tuple_type":
		tuple := &TupleType{Position: pos}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if el := c.tupleMember(n.NamedChild(i)); el != nil {
				tuple.Elements = append(tuple.Elements, el)
			}
		}
		return tuple
	case "rest_type":
		return &RestType{Elem: c.typ(n.NamedChild(0)), Position: pos}
	case "optional_type":
		return &OptionalType{Elem: c.typ(n.NamedChild(0)), Position: pos}
	case "union_type":
		return &UnionType{Types: c.flatten(n, "union_type"), Position: pos}
	case "intersection_type":
		return &IntersectionType{Types: c.flatten(n, "intersection_type"), Position: pos}
	case "parenthesized_type":
		return &ParenthesizedType{Inner: c.typ(n.NamedChild(0)), Position: pos}
	case "literal_type":
		if n.NamedChildCount() > 0 {
			if lit := c.literalExpression(n.NamedChild(0)); lit != nil {
				return lit
			}
		}
		return &UnsupportedType{Kind: n.Type(), Text: c.text(n), Position: pos}
	case "string", "number", "true", "false", "null", "undefined", "template_string":
		if lit := c.literalExpression(n); lit != nil {
			return lit
		}
		return &UnsupportedType{Kind: n.Type(), Text: c.text(n), Position: pos}
	case "lookup_type":
		return &LookupType{Object: c.typ(n.NamedChild(0)), Index: c.typ(n.NamedChild(1)), Position: pos}
	case "index_type_query":
		return &KeyofType{Operand: c.typ(n.NamedChild(0)), Position: pos}
	case "type_query":
		if n.NamedChildCount() == 0 {
			return &UnsupportedType{Kind: n.Type(), Text: c.text(n), Position: pos}
		}
		target := n.NamedChild(0)
		switch target.Type() {
		case "identifier", "member_expression", "nested_identifier":
			parts := splitDotted(c.text(target))
			return &TypeQuery{Name: parts[len(parts)-1], Qualifier: parts[:len(parts)-1], Position: pos}
		}
		return &UnsupportedType{Kind: n.Type(), Text: c.text(n), Position: pos}
	case "function_type":
		return &FunctionType{Position: pos}
	case "constructor_type":
		return &ConstructorType{Position: pos}
	}
	return &UnsupportedType{Kind: n.Type(), Text: c.text(n), Position: pos}
}

func (c *converter) tupleMember(n *sitter.Node) Type {
	switch n.Type() {
	case "tuple_parameter", "optional_tuple_parameter":
		var elem Type
		if t := n.ChildByFieldName("type"); t != nil {
			elem = c.typ(t)
		} else if t := childOfType(n, "type_annotation"); t != nil {
			elem = c.typ(t)
		}
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "rest_pattern" {
			return &RestType{Elem: elem, Position: position(n)}
		}
		if n.Type() == "optional_tuple_parameter" {
			return &OptionalType{Elem: elem, Position: position(n)}
		}
		return elem
	case "comment":
		return nil
	}
	return c.typ(n)
}

// flatten collects the members of left-nested union or intersection nodes.
func (c *converter) flatten(n *sitter.Node, kind string) []Type {
	var out []Type
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == kind {
			out = append(out, c.flatten(child, kind)...)
			continue
		}
		if t := c.typ(child); t != nil {
			out = append(out, t)
		}
	}
	return out
}
