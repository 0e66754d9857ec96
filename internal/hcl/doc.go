// Package hcl implements the HCL-backed pipeline definition loader. It
// parses one or more .hcl files, decodes them into the schemas defined in
// internal/schema, and translates the result into the format-agnostic
// model consumed by the graph builder.
package hcl
