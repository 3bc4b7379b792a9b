package diag

import "fmt"

// Domain is the stable kebab-coded diagnostic domain (spec.md §6).
type Domain string

const (
	DomainSRC  Domain = "SRC"  // source-level lex/decode/encoding
	DomainPRJ  Domain = "PRJ"  // project manifest
	DomainMOD  Domain = "MOD"  // module discovery
	DomainSEM  Domain = "SEM"  // name resolution
	DomainCNF  Domain = "CNF"  // conformance / subset
	DomainUNS  Domain = "UNS"  // unsupported form
	DomainCAP  Domain = "CAP"  // capability
	DomainKEY  Domain = "KEY"  // key conflict
	DomainCON  Domain = "CON"  // contracts / concurrency
	DomainPTR  Domain = "PTR"  // pointer state
	DomainPROV Domain = "PROV" // provenance
	DomainOUT  Domain = "OUT"  // output pipeline
)

// Code is a stable diagnostic identifier of the form {E|W|I}-<DOMAIN>-<NNNN>.
type Code struct {
	Severity Severity
	Domain   Domain
	Number   uint16
	Name     string // short mnemonic, e.g. "Deref-Null"
}

func (c Code) String() string {
	letter := "E"
	switch c.Severity {
	case SevWarning:
		letter = "W"
	case SevInfo:
		letter = "I"
	case SevPanic:
		letter = "P"
	}
	return fmt.Sprintf("%s-%s-%04d", letter, c.Domain, c.Number)
}

// Template returns the fixed English message template for a code. A
// localized implementation would key off the same Code value.
func (c Code) Template() string {
	if t, ok := templates[c]; ok {
		return t
	}
	return c.Name
}

var templates = map[Code]string{}

// register associates a fixed message template with a code and returns the
// code, so declarations below read as a flat table.
func register(sev Severity, dom Domain, num uint16, name, template string) Code {
	c := Code{Severity: sev, Domain: dom, Number: num, Name: name}
	templates[c] = template
	return c
}

// Stable diagnostic codes. Numbers are assigned once and never reused.
var (
	// SRC
	ErrSourceIOFailure     = register(SevError, DomainSRC, 101, "SourceIOFailure", "failed to read source file: {msg}")
	WarnLeadingBOM         = register(SevWarning, DomainSRC, 102, "LeadingBOM", "leading UTF-8 byte-order mark stripped")
	ErrEmbeddedBOM         = register(SevError, DomainSRC, 103, "EmbeddedBOM", "embedded byte-order mark is not permitted mid-file")
	ErrNonUTF8Input        = register(SevError, DomainSRC, 104, "NonUTF8Input", "source file is not valid UTF-8")
	ErrUnknownChar         = register(SevError, DomainSRC, 201, "UnknownChar", "unrecognized character {msg}")
	ErrUnterminatedString  = register(SevError, DomainSRC, 301, "UnterminatedString", "unterminated string literal")
	WarnLeadingZeroDecimal = register(SevWarning, DomainSRC, 302, "LeadingZeroDecimal", "leading-zero decimal integer literal {msg}")
	ErrUnterminatedComment = register(SevError, DomainSRC, 306, "UnterminatedBlockComment", "unterminated block comment")
	ErrBadNumber           = register(SevError, DomainSRC, 307, "BadNumberLiteral", "malformed numeric literal {msg}")

	// PRJ
	ErrManifestNotFound  = register(SevError, DomainPRJ, 101, "ManifestNotFound", "no project manifest found")
	ErrManifestMalformed = register(SevError, DomainPRJ, 102, "ManifestMalformed", "failed to parse project manifest: {msg}")
	ErrAssemblyInvalid   = register(SevError, DomainPRJ, 103, "AssemblyInvalid", "invalid [[assembly]] entry: {msg}")

	// MOD
	ErrModuleInvalidIdent = register(SevError, DomainMOD, 101, "ModuleInvalidIdent", "module path component {msg} is not a valid identifier")
	WarnModuleCaseCollide = register(SevWarning, DomainMOD, 102, "ModuleCaseCollision", "module directories differ only by case: {msg}")
	ErrModuleCaseCollide  = register(SevError, DomainMOD, 103, "ModuleCaseCollision", "module directories differ only by case: {msg}")

	// SEM
	ErrDuplicateTopLevel     = register(SevError, DomainSEM, 101, "DuplicateTopLevel", "duplicate top-level name {msg} in module")
	ErrUnresolvedName        = register(SevError, DomainSEM, 102, "UnresolvedName", "unresolved name {msg}")
	ErrAmbiguousImport       = register(SevError, DomainSEM, 103, "AmbiguousImport", "ambiguous import of {msg}")
	WarnShadowedImport       = register(SevWarning, DomainSEM, 104, "ShadowedImport", "import of {msg} shadows an earlier binding")
	ErrVisibilityViolation   = register(SevError, DomainSEM, 105, "VisibilityViolation", "{msg} is not visible from this module")
	ErrImportCycle           = register(SevError, DomainSEM, 3005, "ImportCycle", "import cycle detected: {msg}")
	ErrValueUseNonBitcopy    = register(SevError, DomainSEM, 201, "ValueUseNonBitcopyPlace", "use of non-Bitcopy place {msg} without 'move'")
	ErrLookupMethodAmbig     = register(SevError, DomainSEM, 202, "LookupMethodAmbig", "ambiguous method {msg}: multiple unrelated classes provide it")
	ErrFieldNotFound         = register(SevError, DomainSEM, 203, "FieldNotFound", "type {msg} has no field {extra}")
	ErrDuplicateField        = register(SevError, DomainSEM, 204, "DuplicateFieldInit", "duplicate field {msg} in literal")
	ErrMissingField          = register(SevError, DomainSEM, 205, "MissingFieldInit", "missing field {msg} in literal")
	ErrUnknownField          = register(SevError, DomainSEM, 206, "UnknownFieldInit", "unknown field {msg} in literal")
	ErrCastInvalid           = register(SevError, DomainSEM, 207, "CastInvalid", "invalid cast from {msg} to {extra}")
	ErrTransmuteSizeAlign    = register(SevError, DomainSEM, 208, "TransmuteSizeAlignMismatch", "transmute requires matching size and alignment")
	ErrMatchNonExhaustive    = register(SevError, DomainSEM, 209, "MatchNonExhaustive", "match is not exhaustive over {msg}")
	ErrMatchUnreachable      = register(SevError, DomainSEM, 210, "MatchUnreachableArm", "match arm is unreachable")
	ErrPropagateTypeMismatch = register(SevError, DomainSEM, 211, "PropagateTypeMismatch", "'?' operand type does not match enclosing return union")
	ErrNotAPlace             = register(SevError, DomainSEM, 212, "NotAPlace", "expression is not a place; '&' requires an addressable place")
	ErrIfElseTypeMismatch    = register(SevError, DomainSEM, 213, "IfElseTypeMismatch", "if/else branches have no common supertype")
	ErrIntegerRangeCheck     = register(SevError, DomainSEM, 214, "IntegerOutOfRange", "integer literal out of range for {msg}")
	ErrTypeMismatch          = register(SevError, DomainSEM, 215, "TypeMismatch", "expected {msg}, found {extra}")
	ErrArityMismatch         = register(SevError, DomainSEM, 216, "ArityMismatch", "call has wrong number of arguments: {msg}")
	ErrNotCallable           = register(SevError, DomainSEM, 217, "NotCallable", "expression of type {msg} is not callable")

	// CNF / UNS
	ErrUnsupportedForm  = register(SevError, DomainCNF, 50, "UnsupportedForm", "{msg} is outside the supported bootstrap subset")
	ErrGenericProcedure = register(SevError, DomainCNF, 51, "GenericProcedureUnsupported", "generic procedures are outside the supported bootstrap subset")
	ErrUnsafeRequired   = register(SevError, DomainUNS, 1, "UnsafeRequired", "{msg} requires an enclosing 'unsafe' region")

	// CAP
	ErrCapabilityMissing = register(SevError, DomainCAP, 11, "CapabilityMissing", "call requires capability {msg} not present in caller's scope")
	ErrExternCapability  = register(SevError, DomainCAP, 12, "ExternCapabilityParam", "extern procedures may not declare capability parameters")

	// KEY
	// E-KEY-0001 covers both a conflicting acquisition against the held
	// set and a pairwise conflict between parallel-arm capture sets.
	ErrKeyConflict          = register(SevError, DomainKEY, 1, "KeyConflict", "conflicting key access to {msg}")
	ErrKeyHeldAcrossWait    = register(SevError, DomainKEY, 2, "KeyHeldAcrossSuspension", "key {msg} is held across a suspension point")
	WarnNonCanonicalOrder   = register(SevWarning, DomainKEY, 80, "NonCanonicalKeyOrder", "key acquisitions are not in canonical lexicographic order")
	WarnConservativeOverlap = register(SevInfo, DomainKEY, 90, "ConservativeOverlap", "index segments are conservatively treated as overlapping")

	// CON (contracts/concurrency)
	ErrContractNotPure   = register(SevError, DomainCON, 1, "ContractNotPure", "contract predicate is not pure: {msg}")
	ErrContractNotBool   = register(SevError, DomainCON, 2, "ContractNotBool", "contract predicate must be of type bool")
	ErrRaceArmMismatch   = register(SevError, DomainCON, 10, "RaceArmMismatch", "race arms must be uniformly 'return' or uniformly 'yield'")
	ErrRaceArity         = register(SevError, DomainCON, 11, "RaceArity", "race requires at least two arms")
	ErrAllErrorUnify     = register(SevError, DomainCON, 12, "AllErrorUnify", "'all' arms have incompatible error types")
	ErrYieldOutsideAsync = register(SevError, DomainCON, 13, "YieldOutsideAsync", "'yield' is only valid inside an async body")
	ErrSyncOutsideSync   = register(SevError, DomainCON, 14, "SyncRequiresNonAsync", "'sync' requires Out=() and In=() and a non-async context")

	// PTR
	ErrDerefNull         = register(SevError, DomainPTR, 1, "Deref-Null", "dereference of a pointer in the Null state")
	ErrDerefExpired      = register(SevError, DomainPTR, 2, "Deref-Expired", "dereference of a pointer in the Expired state")
	ErrPermissionTooWeak = register(SevError, DomainPTR, 10, "PermissionTooWeak", "receiver permission {msg} does not satisfy required {extra}")
	ErrModalWrongState   = register(SevError, DomainPTR, 20, "ModalWrongState", "access to state-specific member {msg} through widened type")

	// PROV
	ErrAllocNoRegion   = register(SevError, DomainPROV, 1, "AllocNoActiveRegion", "'^expr' requires exactly one active region in scope")
	ErrAllocAmbiguous  = register(SevError, DomainPROV, 2, "AllocAmbiguousRegion", "multiple active regions; use '^region<-expr'")
	ErrRegionNotActive = register(SevError, DomainPROV, 3, "RegionNotActive", "region transition requires the Active state")

	// OUT
	ErrOutputCollision     = register(SevError, DomainOUT, 1, "OutputPathCollision", "duplicate object output path {msg}")
	ErrRuntimeIncompatible = register(SevError, DomainOUT, 408, "RuntimeIncompatible", "runtime archive is missing required symbol {msg}")
	ErrLinkFailed          = register(SevError, DomainOUT, 409, "LinkFailed", "link step failed: {msg}")
)
