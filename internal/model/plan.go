// Package model defines the bulk-edit plan, the local product mirror rows and
// the error taxonomy shared by every other package.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/mod/semver"
)

// PlanSchemaMajor is the plan schema major version this build understands.
// Plans without schema_version are assumed to be current.
const PlanSchemaMajor = "v1"

// Scope selects whether changes target whole products or variant rows.
type Scope string

const (
	ScopeProduct Scope = "PRODUCT"
	ScopeVariant Scope = "VARIANT"
)

// Field names the product attribute a change targets.
type Field string

const (
	FieldTitle            Field = "title"
	FieldDescription      Field = "description"
	FieldBrand            Field = "brand"
	FieldTags             Field = "tags"
	FieldSKU              Field = "sku"
	FieldBarcode          Field = "barcode"
	FieldStatus           Field = "status"
	FieldPrice            Field = "price"
	FieldPromotionalPrice Field = "promotional_price"
	FieldCost             Field = "cost"
	FieldStock            Field = "stock"
	FieldLogistics        Field = "logistics_batch"
	FieldDemographics     Field = "demographics"
	FieldRelated          Field = "related"
	FieldCategory         Field = "category"
	FieldSEO              Field = "seo"
	FieldWeight           Field = "weight"
	FieldHeight           Field = "height"
	FieldWidth            Field = "width"
	FieldDepth            Field = "depth"
)

// Action is the field-specific operation of a change.
type Action string

const (
	// shared
	ActionSet    Action = "SET"
	ActionAdd    Action = "ADD"
	ActionRemove Action = "REMOVE"
	ActionClear  Action = "CLEAR"

	// text
	ActionAppend       Action = "APPEND"
	ActionPrepend      Action = "PREPEND"
	ActionReplace      Action = "REPLACE"
	ActionRemoveAfter  Action = "REMOVE_AFTER"
	ActionRemoveBefore Action = "REMOVE_BEFORE"
	ActionRemoveImages Action = "REMOVE_IMAGES"
	ActionCleanPattern Action = "CLEAN_PATTERN"
	ActionFormat       Action = "FORMAT"

	// pricing
	ActionIncreasePercent Action = "INCREASE_PERCENT"
	ActionDecreasePercent Action = "DECREASE_PERCENT"
	ActionIncreaseFixed   Action = "INCREASE_FIXED"
	ActionDecreaseFixed   Action = "DECREASE_FIXED"
	ActionApplyMarkup     Action = "APPLY_MARKUP"

	// codes
	ActionSetSKU        Action = "SET_SKU"
	ActionSetBarcode    Action = "SET_BARCODE"
	ActionGenerateSKU   Action = "GENERATE_SKU_FROM_ID"
	ActionInheritSKU    Action = "INHERIT_SKU_FROM_PARENT"
	ActionSanitizeCodes Action = "SANITIZE_CODES"
	ActionClearCode     Action = "CLEAR_CODE"

	// logistics
	ActionSetDimensions   Action = "SET_DIMENSIONS"
	ActionAddToDimensions Action = "ADD_TO_DIMENSIONS"
	ActionSetFreeShipping Action = "SET_FREE_SHIPPING"

	// brand
	ActionSetBrand            Action = "SET_BRAND"
	ActionRemoveBrand         Action = "REMOVE_BRAND"
	ActionReplaceBrand        Action = "REPLACE_BRAND"
	ActionStandardizeCase     Action = "STANDARDIZE_CASE"
	ActionSetFromTitleKeyword Action = "SET_FROM_TITLE_KEYWORD"

	// tags
	ActionAddTag           Action = "ADD_TAG"
	ActionRemoveTag        Action = "REMOVE_TAG"
	ActionReplaceTag       Action = "REPLACE_TAG"
	ActionRemoveByPattern  Action = "REMOVE_BY_PATTERN"
	ActionAutoTagFromTitle Action = "AUTO_TAG_FROM_TITLE"

	// status
	ActionPublish   Action = "PUBLISH"
	ActionUnpublish Action = "UNPUBLISH"

	// related
	ActionSetRelated   Action = "SET_RELATED"
	ActionAddRelated   Action = "ADD_RELATED"
	ActionClearRelated Action = "CLEAR_RELATED"

	// category tree
	ActionRename   Action = "RENAME"
	ActionMoveTree Action = "MOVE_TREE"
	ActionDelete   Action = "DELETE"

	// variant matrix
	ActionAddValue    Action = "ADD_VALUE"
	ActionRemoveValue Action = "REMOVE_VALUE"
)

// allowedActions lists the actions each field accepts in a changes entry.
var allowedActions = map[Field][]Action{
	FieldTitle:            {ActionSet, ActionAppend, ActionPrepend, ActionReplace, ActionRemoveAfter, ActionRemoveBefore, ActionCleanPattern, ActionFormat},
	FieldDescription:      {ActionSet, ActionAppend, ActionPrepend, ActionReplace, ActionRemoveAfter, ActionRemoveBefore, ActionRemoveImages, ActionCleanPattern, ActionFormat},
	FieldBrand:            {ActionSetBrand, ActionRemoveBrand, ActionReplaceBrand, ActionStandardizeCase, ActionSetFromTitleKeyword},
	FieldTags:             {ActionAddTag, ActionRemoveTag, ActionReplaceTag, ActionStandardizeCase, ActionRemoveByPattern, ActionAutoTagFromTitle},
	FieldSKU:              {ActionSetSKU, ActionGenerateSKU, ActionInheritSKU, ActionSanitizeCodes, ActionClearCode},
	FieldBarcode:          {ActionSetBarcode, ActionSanitizeCodes, ActionClearCode},
	FieldStatus:           {ActionPublish, ActionUnpublish, ActionSet},
	FieldPrice:            {ActionSet, ActionIncreasePercent, ActionDecreasePercent, ActionIncreaseFixed, ActionDecreaseFixed, ActionApplyMarkup},
	FieldPromotionalPrice: {ActionSet, ActionIncreasePercent, ActionDecreasePercent, ActionIncreaseFixed, ActionDecreaseFixed, ActionApplyMarkup, ActionRemove},
	FieldCost:             {ActionSet, ActionIncreasePercent, ActionDecreasePercent, ActionIncreaseFixed, ActionDecreaseFixed},
	FieldStock:            {ActionSet, ActionAdd},
	FieldLogistics:        {ActionSetDimensions, ActionAddToDimensions, ActionSetFreeShipping},
	FieldDemographics:     {ActionSet, ActionClear},
	FieldRelated:          {ActionSetRelated, ActionAddRelated, ActionClearRelated, ActionSet, ActionAdd, ActionClear},
	FieldCategory:         {ActionAdd, ActionRemove, ActionSet},
	FieldWeight:           {ActionSet, ActionAdd},
	FieldHeight:           {ActionSet, ActionAdd},
	FieldWidth:            {ActionSet, ActionAdd},
	FieldDepth:            {ActionSet, ActionAdd},
}

// Param is a scalar plan parameter. The planner emits it as a JSON string,
// number or bool depending on the field, so the raw token is kept and read
// through the typed accessors.
type Param json.RawMessage

// P builds a Param from a Go value. Used by tests and by the reversal engine.
func P(v any) Param {
	b, _ := json.Marshal(v)
	return Param(b)
}

func (p Param) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *Param) UnmarshalJSON(data []byte) error {
	*p = append((*p)[0:0], data...)
	return nil
}

// IsSet reports whether the parameter was provided and is not null.
func (p Param) IsSet() bool {
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

// String returns the parameter as text; numbers and bools are returned verbatim.
func (p Param) String() string {
	if !p.IsSet() {
		return ""
	}
	var s string
	if err := json.Unmarshal(p, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(p))
}

// Decimal parses the parameter as a decimal number, accepting "12,5" as well.
func (p Param) Decimal() (decimal.Decimal, error) {
	s := strings.ReplaceAll(p.String(), ",", ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("value is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("value %q is not a number", s)
	}
	return d, nil
}

// Int parses the parameter as an integer, truncating any fraction.
func (p Param) Int() (int, error) {
	d, err := p.Decimal()
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}

// Bool parses the parameter as a boolean ("true", "1", "sim", "yes").
func (p Param) Bool() (bool, error) {
	s := strings.ToLower(p.String())
	switch s {
	case "true", "1", "sim", "yes", "si":
		return true, nil
	case "false", "0", "nao", "não", "no", "":
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	return false, fmt.Errorf("value %q is not a boolean", s)
}

// FindProduct is the product filter clause.
type FindProduct struct {
	TitleContains    string   `json:"title_contains,omitempty"`
	CategoryContains string   `json:"category_contains,omitempty"`
	ExcludeTerms     []string `json:"exclude_terms,omitempty"`
	StockMin         *int     `json:"stock_min,omitempty"`
	// Sequential asks for an exact phrase match, for names where word
	// order matters ("Air Jordan 6" vs "Jordan Air 6").
	Sequential bool `json:"sequential,omitempty"`
}

// VariantConstraint restricts VARIANT-scope changes to rows carrying a value.
type VariantConstraint struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Dimensions holds per-dimension values; nil entries are left untouched.
type Dimensions struct {
	Weight *decimal.Decimal `json:"weight,omitempty"`
	Height *decimal.Decimal `json:"height,omitempty"`
	Width  *decimal.Decimal `json:"width,omitempty"`
	Depth  *decimal.Decimal `json:"depth,omitempty"`
}

// Demographics holds the optional catalog classification fields.
// Only non-nil entries are written.
type Demographics struct {
	MPN      *string `json:"mpn,omitempty"`
	NCM      *string `json:"ncm,omitempty"`
	Gender   *string `json:"gender,omitempty"`
	AgeGroup *string `json:"age_group,omitempty"`
}

// Change is one entry of Plan.Changes.
type Change struct {
	Field        Field         `json:"field"`
	Action       Action        `json:"action"`
	Value        Param         `json:"value,omitempty"`
	Values       []string      `json:"values,omitempty"`
	ReplaceThis  string        `json:"replace_this,omitempty"`
	Separator    string        `json:"separator,omitempty"`
	PatternType  string        `json:"pattern_type,omitempty"`
	FormatType   string        `json:"format_type,omitempty"`
	CaseType     string        `json:"case_type,omitempty"`
	Rounding     string        `json:"rounding,omitempty"`
	SafetyLock   bool          `json:"safety_lock,omitempty"`
	Dimensions   *Dimensions   `json:"dimensions,omitempty"`
	Demographics *Demographics `json:"demographics,omitempty"`
	LinkNames    []string      `json:"link_names,omitempty"`
	CategoryName string        `json:"category_name,omitempty"`
	ParentName   string        `json:"parent_name,omitempty"`
}

// Case returns the requested case transform, accepting either parameter name.
func (c Change) Case() string {
	if c.CaseType != "" {
		return c.CaseType
	}
	return c.FormatType
}

// CategoryRules drives both per-product category assignment (ADD/REMOVE/SET)
// and structural tree edits (RENAME/MOVE_TREE/DELETE).
type CategoryRules struct {
	Action        Action `json:"action"`
	CategoryName  string `json:"category_name"`
	ParentName    string `json:"parent_name,omitempty"`
	NewName       string `json:"new_name,omitempty"`
	NewParentName string `json:"new_parent_name,omitempty"`
}

// Structural reports whether the rules edit the tree rather than products.
func (r CategoryRules) Structural() bool {
	switch r.Action {
	case ActionRename, ActionMoveTree, ActionDelete:
		return true
	}
	return false
}

// SEOModifications edits the SEO title/description, never the display name.
type SEOModifications struct {
	SetSEOTitle       string `json:"set_seo_title,omitempty"`
	SetSEODescription string `json:"set_seo_description,omitempty"`
	TitlePrefix       string `json:"title_prefix,omitempty"`
	TitleSuffix       string `json:"title_suffix,omitempty"`
	PatternType       string `json:"pattern_type,omitempty"`
	CaseType          string `json:"case_type,omitempty"`
}

// VariantRules adds or removes one attribute value across the variant matrix.
type VariantRules struct {
	Action        Action `json:"action"`
	AttributeName string `json:"attribute_name"`
	Value         string `json:"value"`
}

// Plan is the unit of work emitted by the planner.
type Plan struct {
	SchemaVersion string              `json:"schema_version,omitempty"`
	Scope         Scope               `json:"scope,omitempty"`
	FindProduct   FindProduct         `json:"find_product"`
	FindVariant   []VariantConstraint `json:"find_variant,omitempty"`
	Changes       []Change            `json:"changes,omitempty"`
	CategoryRules *CategoryRules      `json:"category_rules,omitempty"`
	Modifications *SEOModifications   `json:"modifications,omitempty"`
	VariantRules  *VariantRules       `json:"variant_rules,omitempty"`
}

// ModeKind names the dispatch shape of a plan.
type ModeKind string

const (
	ModeField         ModeKind = "field"
	ModeCategory      ModeKind = "category"
	ModeSEO           ModeKind = "seo"
	ModeVariantMatrix ModeKind = "variant_matrix"
)

// Mode is the resolved dispatch shape of a plan. Exactly one implementation
// is produced per plan.
type Mode interface {
	Kind() ModeKind
}

// FieldMode applies the first entry of Plan.Changes to every matched product.
type FieldMode struct{ Change Change }

// CategoryMode assigns categories per product or edits the tree once.
type CategoryMode struct{ Rules CategoryRules }

// SEOMode edits SEO metadata per product.
type SEOMode struct{ Mods SEOModifications }

// VariantMatrixMode adds or removes attribute values per product.
type VariantMatrixMode struct{ Rules VariantRules }

func (FieldMode) Kind() ModeKind         { return ModeField }
func (CategoryMode) Kind() ModeKind      { return ModeCategory }
func (SEOMode) Kind() ModeKind           { return ModeSEO }
func (VariantMatrixMode) Kind() ModeKind { return ModeVariantMatrix }

// Mode resolves which of changes/category_rules/modifications/variant_rules
// drives dispatch. More than one populated shape is rejected.
func (p *Plan) Mode() (Mode, error) {
	var modes []Mode
	if len(p.Changes) > 0 {
		modes = append(modes, FieldMode{Change: p.Changes[0]})
	}
	if p.CategoryRules != nil {
		modes = append(modes, CategoryMode{Rules: *p.CategoryRules})
	}
	if p.Modifications != nil {
		modes = append(modes, SEOMode{Mods: *p.Modifications})
	}
	if p.VariantRules != nil {
		modes = append(modes, VariantMatrixMode{Rules: *p.VariantRules})
	}

	switch len(modes) {
	case 0:
		return nil, NewValidationError("plan", "one of changes, category_rules, modifications or variant_rules is required")
	case 1:
		return modes[0], nil
	default:
		return nil, NewValidationError("plan", "changes, category_rules, modifications and variant_rules are mutually exclusive")
	}
}

// Validate checks the schema version, scope and mode-specific requirements.
func (p *Plan) Validate() error {
	if p.SchemaVersion != "" {
		v := p.SchemaVersion
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if !semver.IsValid(v) {
			return NewValidationError("schema_version", fmt.Sprintf("%q is not a semantic version", p.SchemaVersion))
		}
		if semver.Major(v) != PlanSchemaMajor {
			return NewValidationError("schema_version", fmt.Sprintf("major %s not supported (want %s)", semver.Major(v), PlanSchemaMajor))
		}
	}

	switch p.Scope {
	case "", ScopeProduct, ScopeVariant:
	default:
		return NewValidationError("scope", fmt.Sprintf("unknown scope %q", p.Scope))
	}

	mode, err := p.Mode()
	if err != nil {
		return err
	}

	switch m := mode.(type) {
	case FieldMode:
		allowed, ok := allowedActions[m.Change.Field]
		if !ok {
			return NewValidationError("field", fmt.Sprintf("unknown field %q", m.Change.Field))
		}
		for _, a := range allowed {
			if a == m.Change.Action {
				return nil
			}
		}
		return NewValidationError("action", fmt.Sprintf("%s does not support %s", m.Change.Field, m.Change.Action))
	case CategoryMode:
		switch m.Rules.Action {
		case ActionAdd, ActionRemove, ActionSet, ActionRename, ActionMoveTree, ActionDelete:
		default:
			return NewValidationError("category_rules.action", fmt.Sprintf("unknown action %q", m.Rules.Action))
		}
		if strings.TrimSpace(m.Rules.CategoryName) == "" {
			return NewValidationError("category_rules.category_name", "required")
		}
		if m.Rules.Action == ActionRename && strings.TrimSpace(m.Rules.NewName) == "" {
			return NewValidationError("category_rules.new_name", "required for RENAME")
		}
	case VariantMatrixMode:
		if m.Rules.Action != ActionAddValue && m.Rules.Action != ActionRemoveValue {
			return NewValidationError("variant_rules.action", fmt.Sprintf("unknown action %q", m.Rules.Action))
		}
		if strings.TrimSpace(m.Rules.Value) == "" {
			return NewValidationError("variant_rules.value", "required")
		}
		if m.Rules.Action == ActionAddValue && strings.TrimSpace(m.Rules.AttributeName) == "" {
			return NewValidationError("variant_rules.attribute_name", "required for ADD_VALUE")
		}
	}
	return nil
}

// Summary renders a one-line, human-readable description of the plan for
// history rows and previews.
func (p *Plan) Summary() string {
	mode, err := p.Mode()
	if err != nil {
		return "invalid plan"
	}

	var b strings.Builder
	switch m := mode.(type) {
	case FieldMode:
		fmt.Fprintf(&b, "%s %s", m.Change.Field, m.Change.Action)
		if m.Change.ReplaceThis != "" {
			fmt.Fprintf(&b, " %q →", m.Change.ReplaceThis)
		}
		if v := m.Change.Value.String(); v != "" {
			fmt.Fprintf(&b, " %q", v)
		}
	case CategoryMode:
		fmt.Fprintf(&b, "category %s %q", m.Rules.Action, m.Rules.CategoryName)
		if m.Rules.NewName != "" {
			fmt.Fprintf(&b, " → %q", m.Rules.NewName)
		}
		if m.Rules.NewParentName != "" {
			fmt.Fprintf(&b, " under %q", m.Rules.NewParentName)
		}
		if m.Rules.Structural() {
			return b.String()
		}
	case SEOMode:
		b.WriteString("seo update")
		if m.Mods.SetSEOTitle != "" {
			fmt.Fprintf(&b, " title=%q", m.Mods.SetSEOTitle)
		}
		if m.Mods.TitlePrefix != "" {
			fmt.Fprintf(&b, " prefix=%q", m.Mods.TitlePrefix)
		}
		if m.Mods.TitleSuffix != "" {
			fmt.Fprintf(&b, " suffix=%q", m.Mods.TitleSuffix)
		}
	case VariantMatrixMode:
		fmt.Fprintf(&b, "variants %s %s=%q", m.Rules.Action, m.Rules.AttributeName, m.Rules.Value)
	}

	if f := p.FindProduct; f.TitleContains != "" || f.CategoryContains != "" {
		b.WriteString(" where")
		if f.TitleContains != "" {
			fmt.Fprintf(&b, " title~%q", f.TitleContains)
		}
		if f.CategoryContains != "" {
			fmt.Fprintf(&b, " category~%q", f.CategoryContains)
		}
	}
	return b.String()
}
