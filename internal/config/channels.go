// internal/config/channels.go
package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ChannelEntry is one raw row of a module's channel table. Entries are kept
// even when malformed; the driver decides what to skip.
type ChannelEntry struct {
	Key    string         // channel identifier as written in the file
	Fields map[string]any // nil unless IsMap
	IsMap  bool
}

// ChannelTable keeps channels in file order.
type ChannelTable []ChannelEntry

func (t *ChannelTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: channels must be a mapping", node.Line)
	}

	out := make(ChannelTable, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		entry := ChannelEntry{Key: key.Value}
		if val.Kind == yaml.MappingNode {
			fields := map[string]any{}
			if err := val.Decode(&fields); err != nil {
				return errors.Wrapf(err, "line %d: channel %s", val.Line, key.Value)
			}
			entry.Fields = fields
			entry.IsMap = true
		}
		out = append(out, entry)
	}
	*t = out
	return nil
}
