package emitter

import "github.com/refaktor/vkgen/scope"

// Declarations renders the dispatch table header.
func (p *Plan) Declarations() *CodeBuilder {
	cb := &CodeBuilder{}
	boot := p.Bootstrap.PFN()
	writeHeader(cb)
	cb.Linef(`#pragma once`)
	cb.Linef(``)
	cb.Linef(`%v`, includeLine(p.Profile.Output.TypesInclude))
	cb.Linef(``)
	cb.Linef(`namespace %v {`, p.Profile.Namespace)
	cb.Linef(``)
	cb.Linef(`class ContextTable {`)
	cb.Linef(`protected:`)
	cb.Indent++
	for _, m := range p.TableMembers() {
		cb.Linef(`%v %v;`, m.Type, m.Name)
	}
	cb.Linef(``)
	cb.Linef(`void load_loader(%v get_instance_proc_addr);`, boot)
	cb.Linef(`void load_instance(%v get_instance_proc_addr);`, boot)
	cb.Linef(`void load_device();`)
	cb.Indent--
	cb.Linef(``)
	cb.Linef(`private:`)
	cb.Indent++
	for _, c := range p.Commands {
		cb.Linef(`%v %v;`, c.PFN(), c.Member())
	}
	cb.Indent--
	cb.Linef(``)
	cb.Linef(`public:`)
	cb.Indent++
	for _, c := range p.Commands {
		cb.Linef(`%v %v(%v) const;`, p.TypeIdent(c.ReturnType), c.Ident, p.params(c.Params, true))
	}
	cb.Indent--
	cb.Linef(`};`)
	cb.Linef(``)
	writeFooter(cb, p.Profile.Namespace)
	return cb
}

// Definitions renders the dispatch table source.
func (p *Plan) Definitions() *CodeBuilder {
	cb := &CodeBuilder{}
	boot := p.Bootstrap
	instance, _ := p.tableMember(p.Profile.InstanceHandle)
	writeHeader(cb)
	cb.Linef(`%v`, includeLine(p.Profile.Output.DeclarationsInclude))
	cb.Linef(``)
	cb.Linef(`namespace %v {`, p.Profile.Namespace)
	cb.Linef(``)

	load := func(fn, param string, s scope.Scope, loader func(name string) string) {
		cb.Linef(`void ContextTable::%v(%v) {`, fn, param)
		cb.Indent++
		for _, name := range p.Scopes.Of(s) {
			c, ok := p.Command(name)
			if !ok {
				continue
			}
			cb.Linef(`%v = reinterpret_cast<%v>(%v);`, c.Member(), c.PFN(), loader(c.Name))
		}
		cb.Indent--
		cb.Linef(`}`)
		cb.Linef(``)
	}
	param := boot.PFN() + " " + boot.Ident
	load("load_loader", param, scope.Loader, func(name string) string {
		return boot.Ident + `(nullptr, "` + name + `")`
	})
	load("load_instance", param, scope.Instance, func(name string) string {
		return boot.Ident + `(` + instance + `, "` + name + `")`
	})
	devLoader := p.Profile.DeviceLoaderCommand
	if c, ok := p.Command(devLoader); ok {
		devLoader = c.Ident
	}
	load("load_device", "", scope.Device, func(name string) string {
		return devLoader + `("` + name + `")`
	})

	for _, c := range p.Commands {
		cb.Linef(`%v ContextTable::%v(%v) const {`, p.TypeIdent(c.ReturnType), c.Ident, p.params(c.Params, true))
		cb.Indent++
		cb.Linef(`return %v(%v);`, c.Member(), p.args(c.Params))
		cb.Indent--
		cb.Linef(`}`)
		cb.Linef(``)
	}
	writeFooter(cb, p.Profile.Namespace)
	return cb
}
