// Package model describes derived form schemas as plain, JSON-serialisable
// values. Validation rules expose canonical identifiers (min/max,
// minLength/maxLength, required) with string parameters so renderers and
// exporters can map them onto HTML attributes or schema keywords without
// inspecting validator types, and so snapshots stay deterministic.
package model
