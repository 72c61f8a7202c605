package emitter

import (
	"fmt"
	"strings"
)

func writeHeader(cb *CodeBuilder) {
	cb.Linef(`// File generated by vkgen`)
	cb.Linef(`// NOLINTBEGIN`)
}

func writeFooter(cb *CodeBuilder, namespace string) {
	cb.Linef(`} // namespace %v`, namespace)
	cb.Linef(`// NOLINTEND`)
}

// Types renders the types artifact.
func (p *Plan) Types() *CodeBuilder {
	cb := &CodeBuilder{}
	writeHeader(cb)
	cb.Linef(`#pragma once`)
	cb.Linef(``)
	cb.Linef(`#include <stddef.h>`)
	cb.Linef(`#include <stdint.h>`)
	cb.Linef(``)
	if len(p.External) > 0 {
		for _, td := range p.External {
			cb.Linef(`using %v = struct %v;`, td.Ident, td.Ident)
		}
		cb.Linef(``)
	}
	cb.Linef(`namespace %v {`, p.Profile.Namespace)
	cb.Linef(``)
	cb.Linef(`#if defined(_WIN32)`)
	cb.Linef(`#define VKAPI_PTR __stdcall`)
	cb.Linef(`#else`)
	cb.Linef(`#define VKAPI_PTR`)
	cb.Linef(`#endif`)
	cb.Linef(``)

	for _, c := range p.Constants {
		cb.Linef(`constexpr %v %v = %v;`, c.Type, c.Ident, c.Value)
	}
	cb.Linef(``)

	cb.Linef(`// Base types.`)
	for _, td := range p.BaseTypes {
		if td.Underlying == "" {
			cb.Linef(`struct %v;`, td.Ident)
		} else {
			cb.Linef(`using %v = %v;`, td.Ident, td.Underlying)
		}
	}
	cb.Linef(``)

	p.writeBool(cb)

	cb.Linef(`// Bitmasks.`)
	for _, td := range p.Bitmasks {
		cb.Linef(`using %v = %v;`, td.Ident, td.Underlying)
	}
	cb.Linef(``)

	cb.Linef(`// Handles.`)
	for _, td := range p.Handles {
		cb.Linef(`using %v = struct %v_T *;`, td.Ident, td.Ident)
	}
	cb.Linef(``)

	cb.Linef(`// Enums.`)
	for i := range p.Enums {
		p.writeEnum(cb, &p.Enums[i])
		cb.Linef(``)
	}

	cb.Linef(`// Structs and unions.`)
	for _, ty := range p.Composites {
		if ty.Category == "funcpointer" {
			cb.Linef(`%v`, p.funcPointer(ty))
			cb.Linef(``)
			continue
		}
		cb.Linef(`%v %v {`, ty.Category, p.TypeIdent(ty.Name))
		cb.Indent++
		for _, m := range ty.Members {
			cb.Linef(`%v;`, p.Decl(m))
		}
		cb.Indent--
		cb.Linef(`};`)
		cb.Linef(``)
	}

	cb.Linef(`// Command function pointers.`)
	for _, c := range p.all {
		cb.Linef(`using %v = %v (*)(%v);`, c.PFN(), p.TypeIdent(c.ReturnType), p.params(c.Params, false))
	}
	cb.Linef(``)
	writeFooter(cb, p.Profile.Namespace)
	return cb
}

func (p *Plan) writeBool(cb *CodeBuilder) {
	cb.Linef(`class %v {`, p.Bool)
	cb.Indent++
	cb.Linef(`uint32_t m_value;`)
	cb.Indent--
	cb.Linef(``)
	cb.Linef(`public:`)
	cb.Indent++
	cb.Linef(`%v() = default;`, p.Bool)
	cb.Linef(`%v(bool value) : m_value(value ? 1 : 0) {}`, p.Bool)
	cb.Linef(`operator bool() const { return m_value == 1; }`)
	cb.Indent--
	cb.Linef(`};`)
	cb.Linef(``)
}

func (p *Plan) writeEnum(cb *CodeBuilder, e *Enum) {
	underlying := fmt.Sprintf("uint%v_t", e.BitWidth)
	if e.AsConstants {
		if e.DeclareType {
			cb.Linef(`using %v = %v;`, e.Ident, underlying)
		}
		for _, v := range e.Values {
			cb.Linef(`inline constexpr %v %v = %v;`, e.Ident, e.ConstantIdent(v), v.Value)
		}
		return
	}

	var base string
	if e.BitWidth == 64 {
		base = " : uint64_t"
	}
	cb.Linef(`enum class %v%v {`, e.Ident, base)
	cb.Indent++
	if e.None {
		cb.Linef(`None = 0,`)
	}
	for _, v := range e.Values {
		cb.Linef(`%v = %v,`, v.Ident, v.Value)
	}
	cb.Indent--
	cb.Linef(`};`)

	if !e.FlagBits {
		return
	}
	for _, op := range []string{"&", "|"} {
		cb.Linef(`inline constexpr %v operator%v(%v lhs, %v rhs) {`, e.Ident, op, e.Ident, e.Ident)
		cb.Indent++
		cb.Linef(`return static_cast<%v>(static_cast<%v>(lhs) %v static_cast<%v>(rhs));`,
			e.Ident, underlying, op, underlying)
		cb.Indent--
		cb.Linef(`}`)
	}
}

// includeLine accepts paths with or without brackets or quotes.
func includeLine(path string) string {
	if strings.HasPrefix(path, "<") || strings.HasPrefix(path, `"`) {
		return "#include " + path
	}
	return "#include <" + path + ">"
}
