// Package schema declares the export-variable schema attached to each
// registered node type: field name, value kind, and default.
//
// The schema replaces inline metadata markers embedded in script
// source. Node types register once, and every field they expose to the
// editor or to scene files is described declaratively:
//
//	reg := schema.NewRegistry()
//	reg.Register(schema.NodeType{
//	    Name: "Sprite",
//	    Fields: schema.Fields{
//	        {Name: "texture", Type: schema.String(), Default: domain.StringValue("")},
//	        {Name: "position", Type: schema.Vec2(), Default: domain.Vec2Value(domain.Vec2{})},
//	    },
//	})
//
// Validation reports every failing field at once via AggregateError.
package schema
