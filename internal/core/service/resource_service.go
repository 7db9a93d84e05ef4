package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/silianos/voyage-api/internal/core/domain"
	"github.com/silianos/voyage-api/internal/core/ports"
)

// fieldValidator checks coerced values against the rules derived from a schema.
var fieldValidator = validator.New()

// ResourceService implements CRUD for one content resource, validating writes
// against its schema.
type ResourceService struct {
	schema *domain.ResourceSchema
	rules  map[string]string
	docs   ports.DocumentCollection
	now    func() time.Time
}

func NewResourceService(schema *domain.ResourceSchema, docs ports.DocumentCollection) *ResourceService {
	return &ResourceService{schema: schema, rules: validationRules(schema), docs: docs, now: time.Now}
}

func (s *ResourceService) Schema() *domain.ResourceSchema { return s.schema }

// List returns the records matching filter on top of the schema's own list filter.
func (s *ResourceService) List(ctx context.Context, filter map[string]any) ([]*domain.Document, error) {
	merged := make(map[string]any, len(s.schema.ListFilter)+len(filter))
	for k, v := range s.schema.ListFilter {
		merged[k] = v
	}
	for k, v := range filter {
		merged[k] = v
	}
	return s.docs.Find(ctx, merged, s.schema.Sort)
}

// Categories returns the distinct, sorted values of the category field.
func (s *ResourceService) Categories(ctx context.Context) ([]string, error) {
	if _, ok := s.schema.Field("category"); !ok {
		return nil, fmt.Errorf("%s has no category field", s.schema.Name)
	}
	values, err := s.docs.Distinct(ctx, "category", s.schema.ListFilter)
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if c, _ := v.(string); c != "" {
			categories = append(categories, c)
		}
	}
	slices.Sort(categories)
	return slices.Compact(categories), nil
}

func (s *ResourceService) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, s.notFound(err)
	}
	return doc, nil
}

func (s *ResourceService) Create(ctx context.Context, fields map[string]any) (*domain.Document, error) {
	values, err := s.normalize(fields, true)
	if err != nil {
		return nil, err
	}
	return s.docs.Create(ctx, values)
}

// Update writes only the declared fields present in fields.
func (s *ResourceService) Update(ctx context.Context, id string, fields map[string]any) (*domain.Document, error) {
	values, err := s.normalize(fields, false)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, domain.ErrNoFields
	}
	doc, err := s.docs.UpdateByID(ctx, id, values)
	if err != nil {
		return nil, s.notFound(err)
	}
	return doc, nil
}

// SetField updates a single field, typically an enumerated status.
func (s *ResourceService) SetField(ctx context.Context, id, field string, value any) (*domain.Document, error) {
	spec, ok := s.schema.Field(field)
	if !ok {
		return nil, fmt.Errorf("%s has no field %q", s.schema.Name, field)
	}
	if value == nil {
		return nil, domain.NewValidationError("%s is required", field)
	}
	v, err := coerce(spec, value)
	if err != nil {
		return nil, err
	}
	values := map[string]any{field: v}
	if err := s.validate(values); err != nil {
		return nil, err
	}
	doc, err := s.docs.UpdateByID(ctx, id, values)
	if err != nil {
		return nil, s.notFound(err)
	}
	return doc, nil
}

func (s *ResourceService) Delete(ctx context.Context, id string) error {
	deleted, err := s.docs.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NotFound(s.schema.Label)
	}
	return nil
}

func (s *ResourceService) notFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound(s.schema.Label)
	}
	return err
}

// normalize coerces fields to the schema's types and validates the result.
// Undeclared keys are dropped. On create, omitted fields take their default.
func (s *ResourceService) normalize(fields map[string]any, create bool) (map[string]any, error) {
	out := make(map[string]any, len(s.schema.Fields))
	for _, spec := range s.schema.Fields {
		raw, present := fields[spec.Name]
		if !present {
			if create && !spec.Required {
				out[spec.Name] = s.defaultValue(spec)
			}
			continue
		}

		v, err := coerce(spec, raw)
		if err != nil {
			return nil, err
		}
		if v == nil && create {
			v = s.defaultValue(spec)
		}
		out[spec.Name] = v
	}

	// On create every rule applies, so omitted required fields are reported.
	check := out
	if create {
		check = make(map[string]any, len(s.rules))
		for name := range s.rules {
			check[name] = out[name]
		}
	}
	if err := s.validate(check); err != nil {
		return nil, err
	}
	return out, nil
}

// validate runs the schema rules for the keys in values and reports the first
// failure in field declaration order. Nil optional values are not checked.
func (s *ResourceService) validate(values map[string]any) error {
	data := make(map[string]any, len(values))
	rules := make(map[string]any, len(values))
	for name, v := range values {
		rule, ok := s.rules[name]
		if !ok || (v == nil && !strings.HasPrefix(rule, "required")) {
			continue
		}
		data[name] = addressed(v)
		rules[name] = rule
	}

	failures := fieldValidator.ValidateMap(data, rules)
	if len(failures) == 0 {
		return nil
	}

	for _, spec := range s.schema.Fields {
		failure, ok := failures[spec.Name]
		if !ok {
			continue
		}
		var errs validator.ValidationErrors
		if err, isErr := failure.(error); isErr && errors.As(err, &errs) && len(errs) > 0 {
			return domain.NewValidationError("%s", ruleMessage(spec, errs[0]))
		}
		return domain.NewValidationError("invalid %s", spec.Name)
	}
	return domain.ErrValidation
}

// addressed passes scalars by pointer so "required" means present: a stored
// 0 or false satisfies it.
func addressed(v any) any {
	switch x := v.(type) {
	case float64:
		return &x
	case int64:
		return &x
	case int:
		return &x
	case bool:
		return &x
	}
	return v
}

// validationRules turns each field's constraints into a validator tag, e.g.
// "required,min=1,max=5" or "oneof=new read replied".
func validationRules(schema *domain.ResourceSchema) map[string]string {
	rules := make(map[string]string)
	for _, spec := range schema.Fields {
		var tags []string
		if len(spec.Enum) > 0 {
			tags = append(tags, "oneof="+strings.Join(spec.Enum, " "))
		}
		if spec.Min != nil {
			tags = append(tags, "min="+strconv.FormatFloat(*spec.Min, 'f', -1, 64))
		}
		if spec.Max != nil {
			tags = append(tags, "max="+strconv.FormatFloat(*spec.Max, 'f', -1, 64))
		}
		if spec.Type == domain.FieldRef {
			tags = append(tags, "mongodb")
		}

		if spec.Required {
			tags = append([]string{"required"}, tags...)
		}
		if len(tags) > 0 {
			rules[spec.Name] = strings.Join(tags, ",")
		}
	}
	return rules
}

func ruleMessage(spec domain.FieldSpec, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return spec.Name + " is required"
	case "oneof":
		return fmt.Sprintf("invalid %s: must be one of %s", spec.Name, strings.Join(spec.Enum, ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", spec.Name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", spec.Name, fe.Param())
	default:
		return fmt.Sprintf("%s must be a %s", spec.Name, spec.Type)
	}
}

func (s *ResourceService) defaultValue(spec domain.FieldSpec) any {
	if spec.DefaultToday {
		return s.now().Format(time.DateOnly)
	}
	if list, ok := spec.Default.([]string); ok {
		return slices.Clone(list)
	}
	return spec.Default
}

// coerce converts a decoded JSON value to the field's type. Null, and an empty
// string for non-string fields, become nil; the rules decide whether that is allowed.
func coerce(spec domain.FieldSpec, raw any) (any, error) {
	if s, ok := raw.(string); ok && s == "" && spec.Type != domain.FieldString {
		raw = nil
	}
	if raw == nil {
		if spec.Type == domain.FieldStringList && !spec.Required {
			return []string{}, nil
		}
		return nil, nil
	}

	invalid := func() error {
		return domain.NewValidationError("%s must be a %s", spec.Name, spec.Type)
	}

	switch spec.Type {
	case domain.FieldString:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid()
		}
		if spec.Trim {
			s = strings.TrimSpace(s)
		}
		if spec.Lowercase {
			s = strings.ToLower(s)
		}
		return s, nil

	case domain.FieldNumber, domain.FieldInteger:
		n, ok := toFloat(raw)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, invalid()
		}
		if spec.Type == domain.FieldInteger {
			if n != math.Trunc(n) {
				return nil, invalid()
			}
			return int64(n), nil
		}
		return n, nil

	case domain.FieldBool:
		switch b := raw.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, invalid()
			}
			return parsed, nil
		}
		return nil, invalid()

	case domain.FieldStringList:
		switch l := raw.(type) {
		case []string:
			return slices.Clone(l), nil
		case []any:
			out := make([]string, 0, len(l))
			for _, e := range l {
				s, ok := e.(string)
				if !ok {
					return nil, invalid()
				}
				out = append(out, s)
			}
			return out, nil
		}
		return nil, invalid()

	case domain.FieldRef:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid()
		}
		return domain.Ref(strings.ToLower(strings.TrimSpace(s))), nil
	}
	return nil, invalid()
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
