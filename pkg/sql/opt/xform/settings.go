// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import "github.com/cockroachdb/polyopt/pkg/settings"

var maxRuleFirings = settings.RegisterValidatedIntSetting(
	"sql.opt.max_rule_firings",
	"maximum number of rule firings in one planning session; 0 means no limit",
	10000,
	settings.NonNegativeInt,
)

var impatientEnabled = settings.RegisterBoolSetting(
	"sql.opt.impatient.enabled",
	"stop the search shortly after the first implementable plan is found",
	false,
)

var impatientExtraFirings = settings.RegisterValidatedIntSetting(
	"sql.opt.impatient.extra_firings",
	"rule firings allowed in impatient mode once an implementable plan exists",
	25,
	settings.NonNegativeInt,
)

var materializationsEnabled = settings.RegisterBoolSetting(
	"sql.opt.materializations.enabled",
	"substitute materialized views and star tables into plans",
	true,
)

var allowInfiniteCostConverters = settings.RegisterBoolSetting(
	"sql.opt.allow_infinite_cost_converters",
	"allow trait conversions through intermediate expressions of infinite cost",
	true,
)

var defaultImportance = settings.RegisterFloatSetting(
	"sql.opt.default_importance",
	"importance given to newly registered expressions",
	1.0,
)
