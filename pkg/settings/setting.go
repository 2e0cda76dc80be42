// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package settings

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// Setting is the interface exposing the metadata for a setting.
type Setting interface {
	// Key returns the name of the setting.
	Key() string
	// Typ returns the short (1 char) string denoting the type of setting.
	Typ() string
	// Description returns the help text.
	Description() string
	// EncodedDefault returns the default value in its string encoding.
	EncodedDefault() string
	// Encoded returns the value in sv in its string encoding.
	Encoded(sv *Values) string

	decode(s string) (interface{}, error)
	slot() slotIdx
}

type slotIdx int

type common struct {
	key         string
	description string
	slotIdx     slotIdx
}

func (c *common) Key() string         { return c.key }
func (c *common) Description() string { return c.description }
func (c *common) slot() slotIdx       { return c.slotIdx }

// BoolSetting is the interface of a setting variable that will be
// updated automatically when the corresponding cluster-wide setting
// of type "bool" is updated.
type BoolSetting struct {
	common
	defaultValue bool
}

var _ Setting = &BoolSetting{}

// Get retrieves the bool value in the setting.
func (b *BoolSetting) Get(sv *Values) bool {
	return sv.get(b.slotIdx, b.defaultValue).(bool)
}

// Override changes the setting without validation.
func (b *BoolSetting) Override(sv *Values, v bool) {
	sv.set(b.slotIdx, v)
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*BoolSetting) Typ() string { return "b" }

// EncodedDefault implements Setting.
func (b *BoolSetting) EncodedDefault() string { return strconv.FormatBool(b.defaultValue) }

// Encoded implements Setting.
func (b *BoolSetting) Encoded(sv *Values) string { return strconv.FormatBool(b.Get(sv)) }

func (b *BoolSetting) decode(s string) (interface{}, error) {
	v, err := strconv.ParseBool(s)
	return v, errors.Wrapf(err, "setting %s", b.key)
}

// RegisterBoolSetting defines a new setting with type bool.
func RegisterBoolSetting(key, desc string, defaultValue bool) *BoolSetting {
	s := &BoolSetting{common: common{key: key, description: desc}, defaultValue: defaultValue}
	s.slotIdx = register(s)
	return s
}

// IntSetting is the interface of a setting variable of type "int".
type IntSetting struct {
	common
	defaultValue int64
	validateFn   func(int64) error
}

var _ Setting = &IntSetting{}

// Get retrieves the int value in the setting.
func (i *IntSetting) Get(sv *Values) int64 {
	return sv.get(i.slotIdx, i.defaultValue).(int64)
}

// Override changes the setting without validation.
func (i *IntSetting) Override(sv *Values, v int64) {
	sv.set(i.slotIdx, v)
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*IntSetting) Typ() string { return "i" }

// EncodedDefault implements Setting.
func (i *IntSetting) EncodedDefault() string { return strconv.FormatInt(i.defaultValue, 10) }

// Encoded implements Setting.
func (i *IntSetting) Encoded(sv *Values) string { return strconv.FormatInt(i.Get(sv), 10) }

func (i *IntSetting) decode(s string) (interface{}, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "setting %s", i.key)
	}
	if i.validateFn != nil {
		if err := i.validateFn(v); err != nil {
			return nil, errors.Wrapf(err, "setting %s", i.key)
		}
	}
	return v, nil
}

// RegisterIntSetting defines a new setting with type int.
func RegisterIntSetting(key, desc string, defaultValue int64) *IntSetting {
	return RegisterValidatedIntSetting(key, desc, defaultValue, nil)
}

// RegisterValidatedIntSetting defines a new setting with type int with a
// validation function.
func RegisterValidatedIntSetting(
	key, desc string, defaultValue int64, validateFn func(int64) error,
) *IntSetting {
	if validateFn != nil {
		if err := validateFn(defaultValue); err != nil {
			panic(errors.Wrap(err, "invalid default"))
		}
	}
	s := &IntSetting{
		common:       common{key: key, description: desc},
		defaultValue: defaultValue,
		validateFn:   validateFn,
	}
	s.slotIdx = register(s)
	return s
}

// NonNegativeInt can be passed to RegisterValidatedIntSetting.
func NonNegativeInt(v int64) error {
	if v < 0 {
		return errors.Errorf("cannot set to a negative value: %d", v)
	}
	return nil
}

// FloatSetting is the interface of a setting variable of type "float".
type FloatSetting struct {
	common
	defaultValue float64
}

var _ Setting = &FloatSetting{}

// Get retrieves the float value in the setting.
func (f *FloatSetting) Get(sv *Values) float64 {
	return sv.get(f.slotIdx, f.defaultValue).(float64)
}

// Override changes the setting without validation.
func (f *FloatSetting) Override(sv *Values, v float64) {
	sv.set(f.slotIdx, v)
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*FloatSetting) Typ() string { return "f" }

// EncodedDefault implements Setting.
func (f *FloatSetting) EncodedDefault() string {
	return strconv.FormatFloat(f.defaultValue, 'g', -1, 64)
}

// Encoded implements Setting.
func (f *FloatSetting) Encoded(sv *Values) string {
	return strconv.FormatFloat(f.Get(sv), 'g', -1, 64)
}

func (f *FloatSetting) decode(s string) (interface{}, error) {
	v, err := strconv.ParseFloat(s, 64)
	return v, errors.Wrapf(err, "setting %s", f.key)
}

// RegisterFloatSetting defines a new setting with type float.
func RegisterFloatSetting(key, desc string, defaultValue float64) *FloatSetting {
	s := &FloatSetting{common: common{key: key, description: desc}, defaultValue: defaultValue}
	s.slotIdx = register(s)
	return s
}

// StringSetting is the interface of a setting variable of type "string".
type StringSetting struct {
	common
	defaultValue string
}

var _ Setting = &StringSetting{}

// Get retrieves the string value in the setting.
func (s *StringSetting) Get(sv *Values) string {
	return sv.get(s.slotIdx, s.defaultValue).(string)
}

// Override changes the setting without validation.
func (s *StringSetting) Override(sv *Values, v string) {
	sv.set(s.slotIdx, v)
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*StringSetting) Typ() string { return "s" }

// EncodedDefault implements Setting.
func (s *StringSetting) EncodedDefault() string { return s.defaultValue }

// Encoded implements Setting.
func (s *StringSetting) Encoded(sv *Values) string { return s.Get(sv) }

func (s *StringSetting) decode(str string) (interface{}, error) { return str, nil }

// RegisterStringSetting defines a new setting with type string.
func RegisterStringSetting(key, desc string, defaultValue string) *StringSetting {
	s := &StringSetting{common: common{key: key, description: desc}, defaultValue: defaultValue}
	s.slotIdx = register(s)
	return s
}
