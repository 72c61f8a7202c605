/*
Package vkgen generates a minimal C++ binding for Vulkan from the API registry (vk.xml).

The binding consists of a types header (constants, enums, handles, structs and function pointer types) and a dispatch table class that loads the selected commands at loader, instance and device scope.

# Architecture pipeline (for developers)

Each element in the pipeline has distinct sub-packages that do a specific part. These are then "glued" together in the [Run] function.
 1. [config]: Parse the user-supplied 'vkgen.toml' and pick a target profile
 2. [registry]: Load vk.xml into an immutable snapshot ([fetch] refreshes the file)
 3. [selector]: Expand extension dependencies ([depexpr]) and collect the required commands, types and enum extensions
 4. [enumval]: Compute the values of added enumerants
 5. [typeorder]: Close the type set and order it so every type follows its dependencies
 6. [scope]: Sort commands into loader, instance and device scope
 7. [emitter]: Convert identifiers ([ident], [rules]), check their uniqueness and render the artifacts
*/
package vkgen
