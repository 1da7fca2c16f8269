// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrators

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// orderedMap is a YAML mapping that keeps its keys in insertion order.
type orderedMap []mapItem

type mapItem struct {
	Key   string
	Value interface{}
}

func (m *orderedMap) Set(key string, value interface{}) {
	*m = append(*m, mapItem{Key: key, Value: value})
}

func (m orderedMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, item := range m {
		value := &yaml.Node{}
		if err := value.Encode(item.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item.Key},
			value,
		)
	}
	return node, nil
}

func variablesMap(vars []variable) orderedMap {
	m := orderedMap{}
	for _, v := range vars {
		m.Set(v.Key, v.Value)
	}
	return m
}

// marshal encodes v with two space indentation.
func marshal(v interface{}) ([]byte, error) {
	b := &bytes.Buffer{}
	enc := yaml.NewEncoder(b)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
