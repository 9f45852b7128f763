/*
Package prims registers the flat library of native primitives spec.md treats as an external,
extensible concern (§2: "only their calling convention is specified"). The set implemented here is
grounded directly in original_source/bone.c's own DEFSUB/register_csub table: arithmetic, pairs and
lists, predicates, symbols/strings, I/O, and apply — enough surface to run every end-to-end
scenario in spec.md §8.
*/
package prims
