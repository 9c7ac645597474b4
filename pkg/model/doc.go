// Package model defines the form document consumed by the ticket authoring
// engine. A Document is an ordered list of Sections; a Section is an ordered
// list of Fields. Sections sharing a SectionID are instances of the same
// template and sit next to each other, the first being the canonical one.
// Each instance carries a unique DuplicateGroupID, and fields are addressed
// by Path{GroupID, FieldID} (dotted form "<group>.<field>").
//
// The model holds data and structural operations only (Get, Set,
// InsertSection, RemoveSection). Validation, dependency propagation and
// duplication live in their own packages and operate on these types.
package model
