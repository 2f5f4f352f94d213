package service

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeValidator checks a recipe write payload. It runs shape checks,
// duplicate detection and existence checks and reports everything it finds
// in one ValidationError.
type RecipeValidator struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewRecipeValidator creates a new RecipeValidator instance
func NewRecipeValidator(db *gorm.DB) *RecipeValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RecipeValidator{db: db, validate: v}
}

// Validate returns a *ValidationError describing every problem in req, nil
// if the payload is acceptable, or a wrapped store error if an existence
// check could not run
func (v *RecipeValidator) Validate(ctx context.Context, req *types.RecipeWriteRequest) error {
	verr := &ValidationError{}

	v.checkShape(req, verr)

	tagIDs := req.Tags
	ingredientIDs := make([]uint, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		ingredientIDs = append(ingredientIDs, ing.ID)
	}

	if dups := duplicateIDs(tagIDs); len(dups) > 0 {
		verr.Add("tags", fmt.Sprintf("ids %s duplicated", joinIDs(dups)))
	}
	if dups := duplicateIDs(ingredientIDs); len(dups) > 0 {
		verr.Add("ingredients", fmt.Sprintf("ids %s duplicated", joinIDs(dups)))
	}

	missing, err := v.missingIDs(ctx, &models.Tag{}, tagIDs)
	if err != nil {
		return fmt.Errorf("failed to check tags: %w", err)
	}
	if len(missing) > 0 {
		verr.Add("tags", fmt.Sprintf("ids %s do not exist", joinIDs(missing)))
	}

	missing, err = v.missingIDs(ctx, &models.Ingredient{}, ingredientIDs)
	if err != nil {
		return fmt.Errorf("failed to check ingredients: %w", err)
	}
	if len(missing) > 0 {
		verr.Add("ingredients", fmt.Sprintf("ids %s do not exist", joinIDs(missing)))
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (v *RecipeValidator) checkShape(req *types.RecipeWriteRequest, verr *ValidationError) {
	err := v.validate.Struct(req)
	if err == nil {
		return
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.Add("non_field_errors", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		// Namespace is "RecipeWriteRequest.ingredients[0].amount"
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		field := path
		if i := strings.IndexAny(field, ".["); i >= 0 {
			field = field[:i]
		}

		msg := describeFieldError(fe)
		if path != field {
			msg = path + ": " + msg
		}
		verr.Add(field, msg)
	}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this field has at least %s items", fe.Param())
	case "gt":
		return fmt.Sprintf("ensure this value is greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	default:
		return "invalid value"
	}
}

// missingIDs returns the positive ids from ids that have no row in model's
// table, sorted ascending. It issues at most one query.
func (v *RecipeValidator) missingIDs(ctx context.Context, model interface{}, ids []uint) ([]uint, error) {
	wanted := uniquePositive(ids)
	if len(wanted) == 0 {
		return nil, nil
	}

	var found []uint
	if err := v.db.WithContext(ctx).Model(model).Where("id IN ?", wanted).Pluck("id", &found).Error; err != nil {
		return nil, err
	}

	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uint
	for _, id := range wanted {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// duplicateIDs returns every id that occurs more than once, sorted, each
// reported once
func duplicateIDs(ids []uint) []uint {
	seen := make(map[uint]int, len(ids))
	var dups []uint
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i] < dups[j] })
	return dups
}

func uniquePositive(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}
