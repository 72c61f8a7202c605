package emitter_test

import (
	"fmt"

	"github.com/refaktor/vkgen/emitter"
)

func ExampleCodeBuilder() {
	var cb emitter.CodeBuilder
	cb.Linef(`namespace vull::vkb {`)
	cb.Linef(``)
	cb.Linef(`struct Extent2D {`)
	cb.Indent++
	for _, field := range []string{"width", "height"} {
		cb.Linef(`uint32_t %v;`, field)
	}
	cb.Indent--
	cb.Linef(`};`)
	cb.Linef(``)
	cb.Linef(`} // namespace vull::vkb`)

	fmt.Print(cb.String())
	// Output:
	// namespace vull::vkb {
	//
	// struct Extent2D {
	//     uint32_t width;
	//     uint32_t height;
	// };
	//
	// } // namespace vull::vkb
}
