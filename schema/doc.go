// Package schema models the ordered type schema consumed from the
// external C declaration parser: named types, function signatures, global
// variables, named constants, and the set of symbols each translation
// unit implements.
//
// The core never parses C itself; parsers emit this schema as JSON and
// Decode validates it, including a format-version compatibility gate.
// Merge combines the schemas of several translation units, preferring
// complete struct definitions over opaque declarations of the same name.
package schema
