// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package settings

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/util/syncutil"
)

// Values is a container that stores values for all registered settings.
// Each planning session holds a reference to one; there are no process-wide
// setting values.
type Values struct {
	mu struct {
		syncutil.Mutex
		vals map[slotIdx]interface{}
	}
}

// MakeTestingValues returns a Values container holding only defaults.
func MakeTestingValues() *Values {
	return &Values{}
}

func (sv *Values) get(slot slotIdx, defaultValue interface{}) interface{} {
	if sv == nil {
		return defaultValue
	}
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if v, ok := sv.mu.vals[slot]; ok {
		return v
	}
	return defaultValue
}

func (sv *Values) set(slot slotIdx, v interface{}) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.mu.vals == nil {
		sv.mu.vals = make(map[slotIdx]interface{})
	}
	sv.mu.vals[slot] = v
}

// Set parses the encoded value and assigns it to the setting with the
// given key.
func (sv *Values) Set(key, encoded string) error {
	s, ok := registry[key]
	if !ok {
		return errors.Errorf("unknown setting %q", key)
	}
	v, err := s.decode(encoded)
	if err != nil {
		return err
	}
	sv.set(s.slot(), v)
	return nil
}

// LoadTOML assigns every setting named in the TOML document. Nested tables
// form dotted keys, so
//
//	[sql.opt]
//	max_rule_firings = 500
//
// sets "sql.opt.max_rule_firings".
func (sv *Values) LoadTOML(data []byte) error {
	var doc map[string]interface{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return errors.Wrap(err, "parsing settings")
	}
	flat := make(map[string]interface{})
	flatten("", doc, flat)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := sv.Set(k, fmt.Sprint(flat[k])); err != nil {
			return err
		}
	}
	return nil
}

func flatten(prefix string, doc map[string]interface{}, out map[string]interface{}) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]interface{}); ok {
			flatten(key, m, out)
			continue
		}
		out[key] = v
	}
}
