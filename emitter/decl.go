package emitter

import (
	"strings"

	"github.com/refaktor/vkgen/registry"
	"github.com/refaktor/vkgen/textutils"
)

// declTokens collects the tokens of a mixed-content declaration.
// Referenced types and constants are replaced by their identifiers,
// comments are dropped.
func (p *Plan) declTokens(n *registry.Node) []string {
	toks := strings.Fields(n.Text)
	for _, c := range n.Children {
		switch c.Tag {
		case "type":
			toks = append(toks, p.TypeIdent(strings.TrimSpace(c.Text)))
		case "enum":
			toks = append(toks, p.ConstantIdent(strings.TrimSpace(c.Text)))
		case "name":
			toks = append(toks, strings.TrimSpace(c.Text))
		case "comment":
		default:
			toks = append(toks, p.declTokens(c)...)
		}
		toks = append(toks, strings.Fields(c.Tail)...)
	}
	return toks
}

// Decl renders a struct member or a command parameter.
func (p *Plan) Decl(d registry.Decl) string {
	return textutils.JoinDeclTokens(p.declTokens(d.Node))
}

// params renders a parameter list, leaving out bound parameters if
// unbound is set.
func (p *Plan) params(params []registry.Decl, unbound bool) string {
	var res []string
	for _, d := range params {
		if _, ok := p.Profile.BoundParam(d.Name); unbound && ok {
			continue
		}
		res = append(res, p.Decl(d))
	}
	return strings.Join(res, ", ")
}

// args renders the arguments a wrapper forwards to the loaded command.
func (p *Plan) args(params []registry.Decl) string {
	res := make([]string, len(params))
	for i, d := range params {
		if expr, ok := p.Profile.BoundParam(d.Name); ok {
			res[i] = expr
		} else {
			res[i] = d.Name
		}
	}
	return strings.Join(res, ", ")
}

// funcPointer renders a funcpointer type. The legacy form is a single
// typedef with inline params, the newer one has proto and param
// elements.
func (p *Plan) funcPointer(ty *registry.Type) string {
	proto := ty.Node.Find("proto")
	if proto == nil {
		return textutils.JoinDeclTokens(p.declTokens(ty.Node))
	}
	var params []string
	for _, param := range ty.Node.FindAll("param") {
		params = append(params, textutils.JoinDeclTokens(p.declTokens(param)))
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	return "typedef " + textutils.JoinDeclTokens(p.declTokens(proto)) +
		"(" + strings.Join(params, ", ") + ");"
}
