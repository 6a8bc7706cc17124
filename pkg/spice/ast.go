package spice

// File is one parsed SPICE card (one logical, continuation-joined
// line); a full netlist file is read card-by-card in reader.go rather
// than as a single top-level grammar rule, so that a `.INCLUDE` card
// can switch input files mid-stream.
type File struct {
	Card *Card `@@`
}

// Card is the union of every card shape this dialect recognizes.
// Field order matters to participle: more specific alternatives (ones
// starting with a distinctive keyword token) must come before Device,
// which accepts any leading identifier.
type Card struct {
	Subckt  *SubcktStart `  @@`
	Ends    *SubcktEnd   `| @@`
	Model   *ModelCard   `| @@`
	Global  *GlobalCard  `| @@`
	Include *IncludeCard `| @@`
	Param   *ParamCard   `| @@`
	Device  *DeviceCard  `| @@`
}

// SubcktStart opens a subcircuit definition: `.SUBCKT name p1 p2 ...`.
type SubcktStart struct {
	Name  string   `KwSubckt @(Ident|Number)`
	Ports []string `@(Ident|Number)*`
}

// SubcktEnd closes the most recently opened subcircuit: `.ENDS [name]`.
type SubcktEnd struct {
	Name string `KwEnds @(Ident|Number)?`
}

// ModelCard declares a primitive device model: `.MODEL name class
// (key=value ...)`, parentheses optional.
type ModelCard struct {
	Name  string `KwModel @(Ident|Number)`
	Class string `@(Ident|Number)`
	Pairs []*KV  `LParen? @@* RParen?`
}

// GlobalCard declares one or more cell-wide global nets: `.GLOBAL
// name ...`.
type GlobalCard struct {
	Names []string `KwGlobal @(Ident|Number)+`
}

// IncludeCard pulls in another file: `.INCLUDE "path"`.
type IncludeCard struct {
	Path string `KwInclude @String`
}

// ParamCard declares parameters; netcmp never evaluates expressions
// (no circuit simulation per spec §1's Non-goals), so the pairs are
// kept verbatim and never interpreted.
type ParamCard struct {
	Pairs []*KV `KwParam @@+`
}

// KV is one `key=value` pair, value taken as a bare identifier,
// number or quoted string.
type KV struct {
	Key   string `@(Ident|Number) Equals`
	Value string `@(Ident | Number | String)`
}

// DeviceCard is an instance card: a reference designator followed by
// a flat run of fields. reader.go splits Fields into the leading bare
// run (nodes plus, last, the model/value name) and the trailing
// key=value property pairs.
type DeviceCard struct {
	Name   string   `@(Ident|Number)`
	Fields []*Field `@@*`
}

// Field is one bare token or key=value pair inside a device card.
type Field struct {
	Key   string `(@(Ident|Number) Equals)?`
	Value string `@(Ident | Number | String)`
}
